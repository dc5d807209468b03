package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jkindrix/pitchcheck/internal/database"
	"github.com/jkindrix/pitchcheck/internal/domain"
)

// QuestionRepository implements domain.QuestionRepository using PostgreSQL.
type QuestionRepository struct {
	tm *database.TxManager
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(tm *database.TxManager) *QuestionRepository {
	return &QuestionRepository{tm: tm}
}

// CreateBatch stores texts at positions 1..N in a single round trip.
func (r *QuestionRepository) CreateBatch(ctx context.Context, companyID uuid.UUID, texts []string) ([]*domain.Question, error) {
	ctx, cancel := WithWriteTimeout(ctx)
	defer cancel()

	questions := domain.NewQuestionSet(companyID, texts)

	batch := &pgx.Batch{}
	query := `INSERT INTO questions (` + QuestionColumns.Select() + `) VALUES (` + QuestionColumns.Placeholders() + `)`
	for _, q := range questions {
		batch.Queue(query, q.CompanyID, q.Position, q.Text)
	}

	if err := r.tm.GetQuerier(ctx).SendBatch(ctx, batch).Close(); err != nil {
		return nil, mapError("questions.CreateBatch", "company", err)
	}
	return questions, nil
}

// ListByCompany returns the question set ordered by position.
func (r *QuestionRepository) ListByCompany(ctx context.Context, companyID uuid.UUID) ([]*domain.Question, error) {
	ctx, cancel := WithListQueryTimeout(ctx)
	defer cancel()

	query := `SELECT ` + QuestionColumns.Select() + ` FROM questions WHERE company_id = $1 ORDER BY position`

	rows, err := r.tm.GetQuerier(ctx).Query(ctx, query, companyID)
	if err != nil {
		return nil, mapError("questions.ListByCompany", "question", err)
	}

	questions, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.Question, error) {
		var q domain.Question
		err := row.Scan(&q.CompanyID, &q.Position, &q.Text)
		return &q, err
	})
	if err != nil {
		return nil, mapError("questions.ListByCompany", "question", err)
	}
	return questions, nil
}
