package handler

import (
	"github.com/jkindrix/pitchcheck/internal/domain"
	"github.com/jkindrix/pitchcheck/internal/service"
)

// GenerateQuestionsRequest is the body of POST /api/pitch/generate-questions.
type GenerateQuestionsRequest struct {
	Pitch string `json:"pitch"`
}

// GenerateQuestionsResponse carries drafted questions.
type GenerateQuestionsResponse struct {
	Questions []string `json:"questions"`
}

// SaveCompanyRequest is the body of POST /api/company/save.
type SaveCompanyRequest struct {
	Name      string   `json:"name"`
	Email     string   `json:"email"`
	Pitch     string   `json:"pitch"`
	Questions []string `json:"questions"`
}

// SaveCompanyResponse reports the stored company.
type SaveCompanyResponse struct {
	CompanyID string `json:"companyId"`
	Success   bool   `json:"success"`
}

// CompaniesResponse lists the company directory.
type CompaniesResponse struct {
	Companies []*domain.CompanySummary `json:"companies"`
}

// CreateCustomerRequest is the body of POST /api/chatbot/create-customer.
type CreateCustomerRequest struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	CompanyID string `json:"companyId"`
}

// CreateCustomerResponse carries the new customer's ID.
type CreateCustomerResponse struct {
	CustomerID string `json:"customerId"`
}

// QuestionDTO is a question as shown to the chat client. ID is the
// question's position.
type QuestionDTO struct {
	ID       int    `json:"id"`
	Question string `json:"question"`
}

// CompanyDataResponse is a company's pitch and question set.
type CompanyDataResponse struct {
	CompanyID   string        `json:"companyId"`
	CompanyName string        `json:"companyName"`
	Pitch       string        `json:"pitch"`
	Questions   []QuestionDTO `json:"questions"`
}

// MessagesResponse is a customer's transcript.
type MessagesResponse struct {
	Messages []*domain.Message `json:"messages"`
}

// CustomerRequest is the body of endpoints keyed by customer.
type CustomerRequest struct {
	CustomerID string `json:"customerId"`
}

// InitiateResponse opens or resumes a chat. InitialMessage is null when the
// session was resumed.
type InitiateResponse struct {
	Pitch          string            `json:"pitch"`
	Questions      []QuestionDTO     `json:"questions"`
	Messages       []*domain.Message `json:"messages"`
	InitialMessage *string           `json:"initialMessage"`
}

// SendMessageRequest is the body of POST /api/chatbot/message.
type SendMessageRequest struct {
	CustomerID string `json:"customerId"`
	Message    string `json:"message"`
}

// SendMessageResponse is the interviewer's reply to one message.
type SendMessageResponse struct {
	BotResponse      string `json:"botResponse"`
	UserMessageOrder int    `json:"userMessageOrder"`
	BotMessageOrder  int    `json:"botMessageOrder"`
}

// AnalyzeRequest is the body of POST /api/analytics/analyze.
type AnalyzeRequest struct {
	CompanyID string `json:"companyId"`
}

// AnalyzeResponse is the aggregated insight report.
type AnalyzeResponse struct {
	CustomerCount int             `json:"customerCount"`
	Insights      domain.Insights `json:"insights"`
}

func newQuestionDTOs(questions []*domain.Question) []QuestionDTO {
	out := make([]QuestionDTO, len(questions))
	for i, q := range questions {
		out[i] = QuestionDTO{ID: q.Position, Question: q.Text}
	}
	return out
}

func newCompanyDataResponse(data *service.CompanyData) CompanyDataResponse {
	return CompanyDataResponse{
		CompanyID:   data.Company.ID.String(),
		CompanyName: data.Company.Name,
		Pitch:       data.Company.Pitch,
		Questions:   newQuestionDTOs(data.Questions),
	}
}

func newInitiateResponse(session *service.Session) InitiateResponse {
	resp := InitiateResponse{
		Pitch:     session.Data.Company.Pitch,
		Questions: newQuestionDTOs(session.Data.Questions),
		Messages:  session.Messages,
	}
	if resp.Messages == nil {
		resp.Messages = []*domain.Message{}
	}
	if session.InitialMessage != "" {
		msg := session.InitialMessage
		resp.InitialMessage = &msg
	}
	return resp
}
