// Package events publishes business events about interviews, companies and
// insight reports.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jkindrix/pitchcheck/internal/logging"
	"github.com/jkindrix/pitchcheck/internal/middleware"
)

// Event is a business event. Type is the dotted suffix of the subject it is
// published on, e.g. "session.started".
type Event interface {
	Type() string
	Fields() []zap.Field
}

// Envelope is the wire form of a published event. CorrelationID links the
// events of one chat session when the client reuses its correlation header.
type Envelope struct {
	Type          string    `json:"type"`
	OccurredAt    time.Time `json:"occurredAt"`
	CorrelationID string    `json:"correlationId,omitempty"`
	Data          Event     `json:"data"`
}

// NewEnvelope stamps e with the current time and the correlation ID of ctx.
func NewEnvelope(ctx context.Context, e Event) Envelope {
	return Envelope{
		Type:          e.Type(),
		OccurredAt:    time.Now().UTC(),
		CorrelationID: middleware.GetCorrelationID(ctx),
		Data:          e,
	}
}

// Publisher delivers events.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// SessionStarted is emitted when a customer opens the chat.
type SessionStarted struct {
	CustomerID uuid.UUID `json:"customerId"`
	CompanyID  uuid.UUID `json:"companyId"`
	Resumed    bool      `json:"resumed"`
}

func (SessionStarted) Type() string { return "session.started" }

func (e SessionStarted) Fields() []zap.Field {
	return []zap.Field{
		zap.String("customer_id", e.CustomerID.String()),
		zap.String("company_id", e.CompanyID.String()),
		zap.Bool("resumed", e.Resumed),
	}
}

// TurnCompleted is emitted after a bot reply is stored.
type TurnCompleted struct {
	CustomerID     uuid.UUID `json:"customerId"`
	UserOrder      int       `json:"userMessageOrder"`
	BotOrder       int       `json:"botMessageOrder"`
	TargetPosition int       `json:"targetPosition,omitempty"`
	FollowUp       bool      `json:"followUp"`
}

func (TurnCompleted) Type() string { return "turn.completed" }

func (e TurnCompleted) Fields() []zap.Field {
	return []zap.Field{
		zap.String("customer_id", e.CustomerID.String()),
		zap.Int("user_order", e.UserOrder),
		zap.Int("bot_order", e.BotOrder),
		zap.Int("target_position", e.TargetPosition),
		zap.Bool("follow_up", e.FollowUp),
	}
}

// CompanyCreated is emitted once a company and its question set are stored.
type CompanyCreated struct {
	CompanyID     uuid.UUID `json:"companyId"`
	Name          string    `json:"name"`
	QuestionCount int       `json:"questionCount"`
}

func (CompanyCreated) Type() string { return "company.created" }

func (e CompanyCreated) Fields() []zap.Field {
	return []zap.Field{
		zap.String("company_id", e.CompanyID.String()),
		zap.String("name", e.Name),
		zap.Int("question_count", e.QuestionCount),
	}
}

// CustomerRegistered is emitted when an interview participant signs up.
type CustomerRegistered struct {
	CustomerID uuid.UUID `json:"customerId"`
	CompanyID  uuid.UUID `json:"companyId"`
	Email      string    `json:"email"`
}

func (CustomerRegistered) Type() string { return "customer.registered" }

func (e CustomerRegistered) Fields() []zap.Field {
	return []zap.Field{
		zap.String("customer_id", e.CustomerID.String()),
		zap.String("company_id", e.CompanyID.String()),
		logging.Email("email", e.Email),
	}
}

// InsightsGenerated is emitted after an insight report is produced.
type InsightsGenerated struct {
	CompanyID     uuid.UUID `json:"companyId"`
	CustomerCount int       `json:"customerCount"`
}

func (InsightsGenerated) Type() string { return "insights.generated" }

func (e InsightsGenerated) Fields() []zap.Field {
	return []zap.Field{
		zap.String("company_id", e.CompanyID.String()),
		zap.Int("customer_count", e.CustomerCount),
	}
}

// LogPublisher writes events to a named logger.
type LogPublisher struct {
	logger *zap.Logger
}

// NewLogPublisher creates a LogPublisher.
func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	return &LogPublisher{logger: logger.Named("business_events")}
}

// Publish implements Publisher.
func (p *LogPublisher) Publish(ctx context.Context, e Event) error {
	fields := append([]zap.Field{zap.String("event_type", e.Type())}, e.Fields()...)
	middleware.LoggerWithCorrelation(ctx, p.logger).Info("business_event", fields...)
	return nil
}

// Noop discards events.
type Noop struct{}

// Publish implements Publisher.
func (Noop) Publish(context.Context, Event) error { return nil }

// Multi fans an event out to several publishers and returns the first error.
type Multi []Publisher

// Publish implements Publisher. Every publisher is tried.
func (m Multi) Publish(ctx context.Context, e Event) error {
	var first error
	for _, p := range m {
		if err := p.Publish(ctx, e); err != nil && first == nil {
			first = err
		}
	}
	return first
}
