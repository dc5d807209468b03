package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jkindrix/pitchcheck/internal/domain"
	"github.com/jkindrix/pitchcheck/internal/events"
	"github.com/jkindrix/pitchcheck/internal/insight"
	"github.com/jkindrix/pitchcheck/internal/metrics"
)

// InsightService aggregates a company's interviews into insights.
type InsightService struct {
	companyRepo  domain.CompanyRepository
	customerRepo domain.CustomerRepository
	messageRepo  domain.MessageRepository
	analyst      Analyst
	publisher    events.Publisher
	logger       *zap.Logger
	metrics      *metrics.Metrics
}

// NewInsightService creates a new InsightService.
func NewInsightService(
	companyRepo domain.CompanyRepository,
	customerRepo domain.CustomerRepository,
	messageRepo domain.MessageRepository,
	analyst Analyst,
	publisher events.Publisher,
	logger *zap.Logger,
	metrics *metrics.Metrics,
) *InsightService {
	return &InsightService{
		companyRepo:  companyRepo,
		customerRepo: customerRepo,
		messageRepo:  messageRepo,
		analyst:      analyst,
		publisher:    publisher,
		logger:       logger,
		metrics:      metrics,
	}
}

// Analyze produces the insight report for a company. A company without
// customers gets the fixed empty report and no generation call is made.
func (s *InsightService) Analyze(ctx context.Context, companyID uuid.UUID) (*domain.InsightReport, error) {
	company, err := s.companyRepo.GetByID(ctx, companyID)
	if err != nil {
		return nil, err
	}
	customers, err := s.customerRepo.ListByCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}

	report := &domain.InsightReport{CompanyID: companyID, CustomerCount: len(customers)}
	empty := len(customers) == 0

	if empty {
		report.Insights = domain.EmptyInsights()
	} else {
		messages, err := s.messageRepo.ListByCompany(ctx, companyID)
		if err != nil {
			return nil, err
		}
		conversations := insight.GroupByCustomer(customers, messages)

		insights, err := s.analyst.Analyze(ctx, company.Pitch, conversations)
		if err != nil {
			s.recordInsights(false, false)
			s.logger.Error("insight analysis failed",
				zap.String("company_id", companyID.String()),
				zap.Int("customers", len(customers)),
				zap.Error(err),
			)
			return nil, err
		}
		report.Insights = insights
	}

	s.recordInsights(empty, true)
	s.logger.Info("insight report produced",
		zap.String("company_id", companyID.String()),
		zap.Int("customers", report.CustomerCount),
		zap.Bool("empty", empty),
	)
	publish(ctx, s.publisher, s.logger, events.InsightsGenerated{
		CompanyID:     companyID,
		CustomerCount: report.CustomerCount,
	})
	return report, nil
}

func (s *InsightService) recordInsights(empty, success bool) {
	if s.metrics != nil {
		s.metrics.RecordInsights(empty, success)
	}
}
