// Package service contains business logic implementations.
package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/jkindrix/pitchcheck/internal/domain"
	"github.com/jkindrix/pitchcheck/internal/events"
	"github.com/jkindrix/pitchcheck/internal/insight"
	"github.com/jkindrix/pitchcheck/internal/interview"
)

// Interviewer decides the next interviewer utterance for a transcript.
type Interviewer interface {
	Next(ctx context.Context, transcript []*domain.Message, pitch string, questions []string) (*interview.Turn, error)
}

// Analyst summarizes a company's conversations.
type Analyst interface {
	Analyze(ctx context.Context, pitch string, conversations []insight.Conversation) (domain.Insights, error)
}

// QuestionWriter drafts interview questions for a pitch.
type QuestionWriter interface {
	Generate(ctx context.Context, pitch string) ([]string, error)
}

// Transactor runs fn in a transaction that repositories called by fn join.
// *database.TxManager implements it.
type Transactor interface {
	WithTransactionContext(ctx context.Context, fn func(ctx context.Context) error) error
}

// publish delivers e and logs, but never returns, delivery failures.
func publish(ctx context.Context, publisher events.Publisher, logger *zap.Logger, e events.Event) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(ctx, e); err != nil {
		logger.Warn("failed to publish event",
			zap.String("event_type", e.Type()),
			zap.Error(err),
		)
	}
}
