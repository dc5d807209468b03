package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jkindrix/pitchcheck/internal/domain"
	"github.com/jkindrix/pitchcheck/internal/events"
	"github.com/jkindrix/pitchcheck/internal/metrics"
	"github.com/jkindrix/pitchcheck/internal/validation"
)

// SessionService runs interview sessions: it opens or resumes a chat and
// executes one turn per customer message.
type SessionService struct {
	companyRepo  domain.CompanyRepository
	questionRepo domain.QuestionRepository
	customerRepo domain.CustomerRepository
	messageRepo  domain.MessageRepository
	interviewer  Interviewer
	publisher    events.Publisher
	logger       *zap.Logger
	metrics      *metrics.Metrics
}

// NewSessionService creates a new SessionService.
func NewSessionService(
	companyRepo domain.CompanyRepository,
	questionRepo domain.QuestionRepository,
	customerRepo domain.CustomerRepository,
	messageRepo domain.MessageRepository,
	interviewer Interviewer,
	publisher events.Publisher,
	logger *zap.Logger,
	metrics *metrics.Metrics,
) *SessionService {
	return &SessionService{
		companyRepo:  companyRepo,
		questionRepo: questionRepo,
		customerRepo: customerRepo,
		messageRepo:  messageRepo,
		interviewer:  interviewer,
		publisher:    publisher,
		logger:       logger,
		metrics:      metrics,
	}
}

// Session is the state handed to a customer opening the chat.
type Session struct {
	Customer *domain.Customer
	Data     *CompanyData
	Messages []*domain.Message

	// InitialMessage is the opener generated by this call, empty on resume.
	InitialMessage string
}

// TurnResult is the outcome of one customer message.
type TurnResult struct {
	BotResponse      string
	UserMessageOrder int
	BotMessageOrder  int
	TargetPosition   int
	FollowUp         bool
}

// Initiate opens a session. An empty transcript gets a generated opener
// stored as the first bot message; an existing transcript is returned
// unchanged without generating anything.
func (s *SessionService) Initiate(ctx context.Context, customerID uuid.UUID) (*Session, error) {
	customer, err := s.customerRepo.GetByID(ctx, customerID)
	if err != nil {
		return nil, err
	}
	data, err := loadCompanyData(ctx, s.companyRepo, s.questionRepo, customer.CompanyID)
	if err != nil {
		return nil, err
	}
	messages, err := s.messageRepo.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}

	session := &Session{Customer: customer, Data: data, Messages: messages}
	resumed := len(messages) > 0

	if !resumed {
		turn, err := s.interviewer.Next(ctx, nil, data.Company.Pitch, data.QuestionTexts())
		if err != nil {
			s.logger.Error("failed to generate opener",
				zap.String("customer_id", customerID.String()),
				zap.Error(err),
			)
			s.recordTurn(false, false)
			return nil, err
		}

		opener := domain.NewBotMessage(customerID, turn.Text, turn.TargetPosition)
		if _, err := s.messageRepo.Append(ctx, opener); err != nil {
			return nil, err
		}
		s.recordTurn(turn.FollowUp, true)
		s.recordAppended(domain.SpeakerBot)

		session.Messages = []*domain.Message{opener}
		session.InitialMessage = turn.Text
	}

	if s.metrics != nil {
		s.metrics.RecordSessionStarted(resumed)
	}
	s.logger.Info("session initiated",
		zap.String("customer_id", customerID.String()),
		zap.String("company_id", customer.CompanyID.String()),
		zap.Bool("resumed", resumed),
		zap.Int("messages", len(session.Messages)),
	)
	publish(ctx, s.publisher, s.logger, events.SessionStarted{
		CustomerID: customerID,
		CompanyID:  customer.CompanyID,
		Resumed:    resumed,
	})
	return session, nil
}

// SendMessage stores the customer's message, generates the interviewer's
// reply on the extended transcript and stores it. When generation fails the
// customer's message stays stored and no bot message is written.
func (s *SessionService) SendMessage(ctx context.Context, customerID uuid.UUID, text string) (*TurnResult, error) {
	text = validation.SanitizeString(text)
	if err := validation.Message(text); err != nil {
		return nil, err
	}

	customer, err := s.customerRepo.GetByID(ctx, customerID)
	if err != nil {
		return nil, err
	}
	data, err := loadCompanyData(ctx, s.companyRepo, s.questionRepo, customer.CompanyID)
	if err != nil {
		return nil, err
	}
	existing, err := s.messageRepo.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}

	userMsg := domain.NewUserMessage(customerID, text)
	userOrder, err := s.messageRepo.Append(ctx, userMsg)
	if err != nil {
		return nil, err
	}
	s.recordAppended(domain.SpeakerUser)

	transcript := make([]*domain.Message, 0, len(existing)+1)
	transcript = append(transcript, existing...)
	transcript = append(transcript, userMsg)

	turn, err := s.interviewer.Next(ctx, transcript, data.Company.Pitch, data.QuestionTexts())
	if err != nil {
		s.logger.Error("failed to generate reply",
			zap.String("customer_id", customerID.String()),
			zap.Int("user_order", userOrder),
			zap.Error(err),
		)
		s.recordTurn(false, false)
		return nil, err
	}

	botMsg := domain.NewBotMessage(customerID, turn.Text, turn.TargetPosition)
	botOrder, err := s.messageRepo.Append(ctx, botMsg)
	if err != nil {
		return nil, err
	}
	s.recordTurn(turn.FollowUp, true)
	s.recordAppended(domain.SpeakerBot)

	s.logger.Info("turn completed",
		zap.String("customer_id", customerID.String()),
		zap.Int("user_order", userOrder),
		zap.Int("bot_order", botOrder),
		zap.Int("target_position", turn.TargetPosition),
		zap.Bool("follow_up", turn.FollowUp),
	)
	publish(ctx, s.publisher, s.logger, events.TurnCompleted{
		CustomerID:     customerID,
		UserOrder:      userOrder,
		BotOrder:       botOrder,
		TargetPosition: turn.TargetPosition,
		FollowUp:       turn.FollowUp,
	})

	return &TurnResult{
		BotResponse:      turn.Text,
		UserMessageOrder: userOrder,
		BotMessageOrder:  botOrder,
		TargetPosition:   turn.TargetPosition,
		FollowUp:         turn.FollowUp,
	}, nil
}

// Messages returns a customer's transcript ordered by order.
func (s *SessionService) Messages(ctx context.Context, customerID uuid.UUID) ([]*domain.Message, error) {
	if _, err := s.customerRepo.GetByID(ctx, customerID); err != nil {
		return nil, err
	}
	messages, err := s.messageRepo.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if messages == nil {
		messages = []*domain.Message{}
	}
	return messages, nil
}

func (s *SessionService) recordTurn(followUp, success bool) {
	if s.metrics != nil {
		s.metrics.RecordTurn(followUp, success)
	}
}

func (s *SessionService) recordAppended(speaker domain.Speaker) {
	if s.metrics != nil {
		s.metrics.RecordMessageAppended(string(speaker))
	}
}
