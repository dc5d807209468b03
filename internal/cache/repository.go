package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jkindrix/pitchcheck/internal/domain"
)

// DefaultTTL applies when no TTL is configured.
const DefaultTTL = time.Hour

// CompanyRepository caches GetByID of an underlying repository. Cache
// failures are logged and the underlying repository is used.
type CompanyRepository struct {
	domain.CompanyRepository
	store  Store
	ttl    time.Duration
	logger *zap.Logger
}

// NewCompanyRepository wraps next.
func NewCompanyRepository(next domain.CompanyRepository, store Store, ttl time.Duration, logger *zap.Logger) *CompanyRepository {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &CompanyRepository{CompanyRepository: next, store: store, ttl: ttl, logger: logger}
}

// GetByID returns the cached company or loads and caches it.
func (r *CompanyRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Company, error) {
	key := CompanyKey(id)

	var cached domain.Company
	if readThrough(ctx, r.store, key, &cached, r.logger) {
		return &cached, nil
	}

	company, err := r.CompanyRepository.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	write(ctx, r.store, key, company, r.ttl, r.logger)
	return company, nil
}

// Delete removes the company and its cache entry.
func (r *CompanyRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.CompanyRepository.Delete(ctx, id); err != nil {
		return err
	}
	evict(ctx, r.store, CompanyKey(id), r.logger)
	evict(ctx, r.store, QuestionsKey(id), r.logger)
	return nil
}

// QuestionRepository caches ListByCompany of an underlying repository.
type QuestionRepository struct {
	domain.QuestionRepository
	store  Store
	ttl    time.Duration
	logger *zap.Logger
}

// NewQuestionRepository wraps next.
func NewQuestionRepository(next domain.QuestionRepository, store Store, ttl time.Duration, logger *zap.Logger) *QuestionRepository {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &QuestionRepository{QuestionRepository: next, store: store, ttl: ttl, logger: logger}
}

// ListByCompany returns the cached question set or loads and caches it.
// Empty sets are not cached since the company may still be mid-creation.
func (r *QuestionRepository) ListByCompany(ctx context.Context, companyID uuid.UUID) ([]*domain.Question, error) {
	key := QuestionsKey(companyID)

	var cached []*domain.Question
	if readThrough(ctx, r.store, key, &cached, r.logger) {
		return cached, nil
	}

	questions, err := r.QuestionRepository.ListByCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if len(questions) > 0 {
		write(ctx, r.store, key, questions, r.ttl, r.logger)
	}
	return questions, nil
}

func readThrough(ctx context.Context, store Store, key string, dst any, logger *zap.Logger) bool {
	val, err := store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrMiss) {
			logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal([]byte(val), dst); err != nil {
		logger.Warn("cache entry unreadable", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func write(ctx context.Context, store Store, key string, value any, ttl time.Duration, logger *zap.Logger) {
	data, err := json.Marshal(value)
	if err != nil {
		logger.Warn("cache encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := store.Set(ctx, key, string(data), ttl); err != nil {
		logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func evict(ctx context.Context, store Store, key string, logger *zap.Logger) {
	if err := store.Delete(ctx, key); err != nil {
		logger.Warn("cache evict failed", zap.String("key", key), zap.Error(err))
	}
}
