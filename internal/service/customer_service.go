package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jkindrix/pitchcheck/internal/domain"
	"github.com/jkindrix/pitchcheck/internal/events"
	"github.com/jkindrix/pitchcheck/internal/logging"
	"github.com/jkindrix/pitchcheck/internal/metrics"
	"github.com/jkindrix/pitchcheck/internal/validation"
)

// CustomerService registers interview participants.
type CustomerService struct {
	customerRepo domain.CustomerRepository
	companyRepo  domain.CompanyRepository
	publisher    events.Publisher
	logger       *zap.Logger
	metrics      *metrics.Metrics
}

// NewCustomerService creates a new CustomerService.
func NewCustomerService(
	customerRepo domain.CustomerRepository,
	companyRepo domain.CompanyRepository,
	publisher events.Publisher,
	logger *zap.Logger,
	metrics *metrics.Metrics,
) *CustomerService {
	return &CustomerService{
		customerRepo: customerRepo,
		companyRepo:  companyRepo,
		publisher:    publisher,
		logger:       logger,
		metrics:      metrics,
	}
}

// Create registers a customer for an existing company.
func (s *CustomerService) Create(ctx context.Context, name, email, companyID string) (*domain.Customer, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	companyID = strings.TrimSpace(companyID)

	if err := validation.Customer(name, email, companyID); err != nil {
		return nil, err
	}
	id, err := uuid.Parse(companyID)
	if err != nil {
		return nil, err
	}

	if _, err := s.companyRepo.GetByID(ctx, id); err != nil {
		return nil, err
	}

	customer := domain.NewCustomer(name, email, id)
	if err := s.customerRepo.Create(ctx, customer); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordCustomerCreated()
	}
	s.logger.Info("customer registered",
		zap.String("customer_id", customer.ID.String()),
		zap.String("company_id", id.String()),
		logging.Email("email", email),
	)
	publish(ctx, s.publisher, s.logger, events.CustomerRegistered{
		CustomerID: customer.ID,
		CompanyID:  id,
		Email:      email,
	})
	return customer, nil
}
