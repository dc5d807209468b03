package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jkindrix/pitchcheck/internal/domain"
	apperrors "github.com/jkindrix/pitchcheck/internal/errors"
	"github.com/jkindrix/pitchcheck/internal/middleware"
	"github.com/jkindrix/pitchcheck/internal/service"
)

// Companies is the company operations the API needs.
type Companies interface {
	GenerateQuestions(ctx context.Context, pitch string) ([]string, error)
	Create(ctx context.Context, in service.CreateCompanyInput) (*domain.Company, error)
	List(ctx context.Context) ([]*domain.CompanySummary, error)
	Data(ctx context.Context, companyID, customerID uuid.UUID) (*service.CompanyData, error)
}

// Customers registers interview participants.
type Customers interface {
	Create(ctx context.Context, name, email, companyID string) (*domain.Customer, error)
}

// Sessions runs interview chats.
type Sessions interface {
	Initiate(ctx context.Context, customerID uuid.UUID) (*service.Session, error)
	SendMessage(ctx context.Context, customerID uuid.UUID, text string) (*service.TurnResult, error)
	Messages(ctx context.Context, customerID uuid.UUID) ([]*domain.Message, error)
}

// Analytics aggregates a company's interviews.
type Analytics interface {
	Analyze(ctx context.Context, companyID uuid.UUID) (*domain.InsightReport, error)
}

// APIHandler serves the JSON API used by the pitch and chat clients.
type APIHandler struct {
	companies Companies
	customers Customers
	sessions  Sessions
	analytics Analytics
	logger    *zap.Logger
}

// APIHandlerConfig holds configuration for APIHandler.
type APIHandlerConfig struct {
	Companies Companies
	Customers Customers
	Sessions  Sessions
	Analytics Analytics
	Logger    *zap.Logger
}

// NewAPIHandler creates a new APIHandler with all required dependencies.
func NewAPIHandler(cfg APIHandlerConfig) *APIHandler {
	if cfg.Logger == nil {
		panic("logger is required")
	}
	return &APIHandler{
		companies: cfg.Companies,
		customers: cfg.Customers,
		sessions:  cfg.Sessions,
		analytics: cfg.Analytics,
		logger:    cfg.Logger,
	}
}

// RegisterRoutes registers API routes under /api.
func (h *APIHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/pitch/generate-questions", h.GenerateQuestions)
		r.Post("/company/save", h.SaveCompany)
		r.Get("/companies", h.ListCompanies)

		r.Route("/chatbot", func(r chi.Router) {
			r.Post("/create-customer", h.CreateCustomer)
			r.Get("/company-data", h.CompanyData)
			r.Get("/messages/{customerId}", h.Messages)
			r.Post("/initiate", h.Initiate)
			r.With(middleware.BodySizeLimiter(middleware.MaxMessageBodySize)).Post("/message", h.SendMessage)
		})

		r.Post("/analytics/analyze", h.Analyze)
	})
}

// GenerateQuestions handles POST /api/pitch/generate-questions.
func (h *APIHandler) GenerateQuestions(w http.ResponseWriter, r *http.Request) {
	var req GenerateQuestionsRequest
	if err := decodeJSON(r, &req); err != nil {
		APIError(w, r, h.logger, err)
		return
	}

	questions, err := h.companies.GenerateQuestions(r.Context(), req.Pitch)
	if err != nil {
		APIError(w, r, h.logger, err)
		return
	}
	JSON(w, http.StatusOK, GenerateQuestionsResponse{Questions: questions})
}

// SaveCompany handles POST /api/company/save.
func (h *APIHandler) SaveCompany(w http.ResponseWriter, r *http.Request) {
	var req SaveCompanyRequest
	if err := decodeJSON(r, &req); err != nil {
		APIError(w, r, h.logger, err)
		return
	}

	company, err := h.companies.Create(r.Context(), service.CreateCompanyInput{
		Name:      req.Name,
		Email:     req.Email,
		Pitch:     req.Pitch,
		Questions: req.Questions,
	})
	if err != nil {
		APIError(w, r, h.logger, err)
		return
	}
	JSON(w, http.StatusOK, SaveCompanyResponse{CompanyID: company.ID.String(), Success: true})
}

// ListCompanies handles GET /api/companies.
func (h *APIHandler) ListCompanies(w http.ResponseWriter, r *http.Request) {
	companies, err := h.companies.List(r.Context())
	if err != nil {
		APIError(w, r, h.logger, err)
		return
	}
	JSON(w, http.StatusOK, CompaniesResponse{Companies: companies})
}

// CreateCustomer handles POST /api/chatbot/create-customer.
func (h *APIHandler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req CreateCustomerRequest
	if err := decodeJSON(r, &req); err != nil {
		APIError(w, r, h.logger, err)
		return
	}

	customer, err := h.customers.Create(r.Context(), req.Name, req.Email, req.CompanyID)
	if err != nil {
		APIError(w, r, h.logger, err)
		return
	}
	JSON(w, http.StatusOK, CreateCustomerResponse{CustomerID: customer.ID.String()})
}

// CompanyData handles GET /api/chatbot/company-data?companyId=|customerId=.
// companyId wins when both are given.
func (h *APIHandler) CompanyData(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	companyID, err := optionalUUID("companyId", query.Get("companyId"))
	if err != nil {
		APIError(w, r, h.logger, err)
		return
	}
	customerID, err := optionalUUID("customerId", query.Get("customerId"))
	if err != nil {
		APIError(w, r, h.logger, err)
		return
	}

	data, err := h.companies.Data(r.Context(), companyID, customerID)
	if err != nil {
		APIError(w, r, h.logger, err)
		return
	}
	JSON(w, http.StatusOK, newCompanyDataResponse(data))
}

// Messages handles GET /api/chatbot/messages/{customerId}.
func (h *APIHandler) Messages(w http.ResponseWriter, r *http.Request) {
	customerID, err := requiredUUID("customerId", chi.URLParam(r, "customerId"))
	if err != nil {
		APIError(w, r, h.logger, err)
		return
	}

	messages, err := h.sessions.Messages(r.Context(), customerID)
	if err != nil {
		APIError(w, r, h.logger, err)
		return
	}
	JSON(w, http.StatusOK, MessagesResponse{Messages: messages})
}

// Initiate handles POST /api/chatbot/initiate.
func (h *APIHandler) Initiate(w http.ResponseWriter, r *http.Request) {
	var req CustomerRequest
	if err := decodeJSON(r, &req); err != nil {
		APIError(w, r, h.logger, err)
		return
	}
	customerID, err := requiredUUID("customerId", req.CustomerID)
	if err != nil {
		APIError(w, r, h.logger, err)
		return
	}

	session, err := h.sessions.Initiate(r.Context(), customerID)
	if err != nil {
		APIError(w, r, h.logger, err)
		return
	}
	JSON(w, http.StatusOK, newInitiateResponse(session))
}

// SendMessage handles POST /api/chatbot/message.
func (h *APIHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req SendMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		APIError(w, r, h.logger, err)
		return
	}
	customerID, err := requiredUUID("customerId", req.CustomerID)
	if err != nil {
		APIError(w, r, h.logger, err)
		return
	}

	result, err := h.sessions.SendMessage(r.Context(), customerID, req.Message)
	if err != nil {
		APIError(w, r, h.logger, err)
		return
	}
	JSON(w, http.StatusOK, SendMessageResponse{
		BotResponse:      result.BotResponse,
		UserMessageOrder: result.UserMessageOrder,
		BotMessageOrder:  result.BotMessageOrder,
	})
}

// Analyze handles POST /api/analytics/analyze.
func (h *APIHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := decodeJSON(r, &req); err != nil {
		APIError(w, r, h.logger, err)
		return
	}
	companyID, err := requiredUUID("companyId", req.CompanyID)
	if err != nil {
		APIError(w, r, h.logger, err)
		return
	}

	report, err := h.analytics.Analyze(r.Context(), companyID)
	if err != nil {
		APIError(w, r, h.logger, err)
		return
	}
	JSON(w, http.StatusOK, AnalyzeResponse{
		CustomerCount: report.CustomerCount,
		Insights:      report.Insights,
	})
}

func requiredUUID(field, value string) (uuid.UUID, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return uuid.Nil, apperrors.MissingField(field)
	}
	return optionalUUID(field, value)
}

// optionalUUID returns uuid.Nil for an empty value.
func optionalUUID(field, value string) (uuid.UUID, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, apperrors.InvalidFormat(field, "a UUID")
	}
	return id, nil
}
