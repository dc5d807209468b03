package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jkindrix/pitchcheck/internal/domain"
	apperrors "github.com/jkindrix/pitchcheck/internal/errors"
	"github.com/jkindrix/pitchcheck/internal/events"
	"github.com/jkindrix/pitchcheck/internal/logging"
	"github.com/jkindrix/pitchcheck/internal/metrics"
	"github.com/jkindrix/pitchcheck/internal/validation"
)

// Company creation outcomes reported to metrics.
const (
	createCommitted   = "committed"
	createCompensated = "compensated"
	createFailed      = "failed"
)

// CompanyService handles pitches, question sets and the company directory.
type CompanyService struct {
	companyRepo  domain.CompanyRepository
	questionRepo domain.QuestionRepository
	customerRepo domain.CustomerRepository
	writer       QuestionWriter
	tx           Transactor
	publisher    events.Publisher
	logger       *zap.Logger
	metrics      *metrics.Metrics
}

// NewCompanyService creates a new CompanyService. tx may be nil, in which
// case a failed question insert is compensated by deleting the company.
func NewCompanyService(
	companyRepo domain.CompanyRepository,
	questionRepo domain.QuestionRepository,
	customerRepo domain.CustomerRepository,
	writer QuestionWriter,
	tx Transactor,
	publisher events.Publisher,
	logger *zap.Logger,
	metrics *metrics.Metrics,
) *CompanyService {
	return &CompanyService{
		companyRepo:  companyRepo,
		questionRepo: questionRepo,
		customerRepo: customerRepo,
		writer:       writer,
		tx:           tx,
		publisher:    publisher,
		logger:       logger,
		metrics:      metrics,
	}
}

// CreateCompanyInput is a company submission.
type CreateCompanyInput struct {
	Name      string
	Email     string
	Pitch     string
	Questions []string
}

// CompanyData is a company's pitch with its ordered question set.
type CompanyData struct {
	Company   *domain.Company
	Questions []*domain.Question
}

// QuestionTexts returns the question texts in position order.
func (d *CompanyData) QuestionTexts() []string {
	return domain.QuestionTexts(d.Questions)
}

// GenerateQuestions drafts interview questions for a pitch. Nothing is stored.
func (s *CompanyService) GenerateQuestions(ctx context.Context, pitch string) ([]string, error) {
	pitch = strings.TrimSpace(pitch)
	if pitch == "" {
		return nil, apperrors.MissingField("pitch")
	}

	questions, err := s.writer.Generate(ctx, pitch)
	if err != nil {
		s.logger.Warn("question generation failed", zap.Error(err))
		return nil, err
	}
	return questions, nil
}

// Create stores a company and its questions at positions 1..N. Both writes
// happen in one transaction when a Transactor is configured.
func (s *CompanyService) Create(ctx context.Context, in CreateCompanyInput) (*domain.Company, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Pitch = strings.TrimSpace(in.Pitch)
	in.Questions = trimQuestions(in.Questions)

	if err := validation.Company(in.Name, in.Email, in.Pitch, in.Questions); err != nil {
		return nil, err
	}

	company := domain.NewCompany(in.Name, in.Email, in.Pitch)

	var err error
	result := createCommitted
	if s.tx != nil {
		err = s.tx.WithTransactionContext(ctx, func(ctx context.Context) error {
			return s.insert(ctx, company, in.Questions)
		})
	} else {
		result, err = s.insertWithCompensation(ctx, company, in.Questions)
	}
	if err != nil {
		if result == createCommitted {
			result = createFailed
		}
		s.recordCreated(result)
		return nil, err
	}
	s.recordCreated(result)

	s.logger.Info("company created",
		zap.String("company_id", company.ID.String()),
		zap.String("name", company.Name),
		logging.Email("email", company.Email),
		zap.Int("questions", len(in.Questions)),
	)
	publish(ctx, s.publisher, s.logger, events.CompanyCreated{
		CompanyID:     company.ID,
		Name:          company.Name,
		QuestionCount: len(in.Questions),
	})
	return company, nil
}

func (s *CompanyService) insert(ctx context.Context, company *domain.Company, questions []string) error {
	if err := s.companyRepo.Create(ctx, company); err != nil {
		return err
	}
	_, err := s.questionRepo.CreateBatch(ctx, company.ID, questions)
	return err
}

// insertWithCompensation deletes the company when its questions cannot be
// stored. A failed delete is logged; the insert error is what surfaces.
func (s *CompanyService) insertWithCompensation(ctx context.Context, company *domain.Company, questions []string) (string, error) {
	if err := s.companyRepo.Create(ctx, company); err != nil {
		return createFailed, err
	}

	_, err := s.questionRepo.CreateBatch(ctx, company.ID, questions)
	if err == nil {
		return createCommitted, nil
	}

	if delErr := s.companyRepo.Delete(context.WithoutCancel(ctx), company.ID); delErr != nil {
		s.logger.Error("failed to remove company after question insert failure",
			zap.String("company_id", company.ID.String()),
			zap.NamedError("insert_error", err),
			zap.Error(delErr),
		)
	} else {
		s.logger.Warn("company removed after question insert failure",
			zap.String("company_id", company.ID.String()),
			zap.Error(err),
		)
	}
	return createCompensated, err
}

func (s *CompanyService) recordCreated(result string) {
	if s.metrics != nil {
		s.metrics.RecordCompanyCreated(result)
	}
}

// List returns the company directory ordered by name.
func (s *CompanyService) List(ctx context.Context) ([]*domain.CompanySummary, error) {
	companies, err := s.companyRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	if companies == nil {
		companies = []*domain.CompanySummary{}
	}
	return companies, nil
}

// Data returns a company's pitch and questions. When companyID is zero the
// company is resolved through customerID.
func (s *CompanyService) Data(ctx context.Context, companyID, customerID uuid.UUID) (*CompanyData, error) {
	if companyID == uuid.Nil {
		if customerID == uuid.Nil {
			return nil, apperrors.ValidationFailed("company ID or customer ID is required")
		}
		customer, err := s.customerRepo.GetByID(ctx, customerID)
		if err != nil {
			return nil, err
		}
		companyID = customer.CompanyID
	}
	return loadCompanyData(ctx, s.companyRepo, s.questionRepo, companyID)
}

func loadCompanyData(
	ctx context.Context,
	companyRepo domain.CompanyRepository,
	questionRepo domain.QuestionRepository,
	companyID uuid.UUID,
) (*CompanyData, error) {
	company, err := companyRepo.GetByID(ctx, companyID)
	if err != nil {
		return nil, err
	}
	questions, err := questionRepo.ListByCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if questions == nil {
		questions = []*domain.Question{}
	}
	return &CompanyData{Company: company, Questions: questions}, nil
}

// trimQuestions returns trimmed copies of questions. Blank entries stay
// so validation rejects them at their own index.
func trimQuestions(questions []string) []string {
	out := make([]string, len(questions))
	for i, q := range questions {
		out[i] = strings.TrimSpace(q)
	}
	return out
}
