package cache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jkindrix/pitchcheck/internal/domain"
	apperrors "github.com/jkindrix/pitchcheck/internal/errors"
)

type memStore struct {
	mu     sync.Mutex
	data   map[string]string
	ttls   map[string]time.Duration
	getErr error
	setErr error
}

func newMemStore() *memStore {
	return &memStore{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return "", m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return "", ErrMiss
	}
	return v, nil
}

func (m *memStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

func (m *memStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

type countingCompanies struct {
	domain.CompanyRepository
	companies map[uuid.UUID]*domain.Company
	gets      int
	deletes   int
}

func (c *countingCompanies) GetByID(_ context.Context, id uuid.UUID) (*domain.Company, error) {
	c.gets++
	if co, ok := c.companies[id]; ok {
		return co, nil
	}
	return nil, apperrors.NotFound("company")
}

func (c *countingCompanies) Delete(_ context.Context, id uuid.UUID) error {
	c.deletes++
	delete(c.companies, id)
	return nil
}

type countingQuestions struct {
	domain.QuestionRepository
	sets  map[uuid.UUID][]*domain.Question
	lists int
}

func (c *countingQuestions) ListByCompany(_ context.Context, id uuid.UUID) ([]*domain.Question, error) {
	c.lists++
	return c.sets[id], nil
}

func TestCompanyRepository_ReadThrough(t *testing.T) {
	company := domain.NewCompany("RideShare", "owner@rideshare.test", "Carpooling for suburbs")
	next := &countingCompanies{companies: map[uuid.UUID]*domain.Company{company.ID: company}}
	store := newMemStore()
	repo := NewCompanyRepository(next, store, 10*time.Minute, zap.NewNop())

	for i := 0; i < 3; i++ {
		got, err := repo.GetByID(context.Background(), company.ID)
		if err != nil {
			t.Fatalf("GetByID() error = %v", err)
		}
		if got.Pitch != company.Pitch || got.ID != company.ID {
			t.Errorf("GetByID() = %+v", got)
		}
	}

	if next.gets != 1 {
		t.Errorf("underlying GetByID called %d times, want 1", next.gets)
	}
	if store.ttls[CompanyKey(company.ID)] != 10*time.Minute {
		t.Errorf("ttl = %v", store.ttls[CompanyKey(company.ID)])
	}
}

func TestCompanyRepository_NotFoundNotCached(t *testing.T) {
	next := &countingCompanies{companies: map[uuid.UUID]*domain.Company{}}
	store := newMemStore()
	repo := NewCompanyRepository(next, store, 0, zap.NewNop())

	_, err := repo.GetByID(context.Background(), uuid.New())
	if !apperrors.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if len(store.data) != 0 {
		t.Error("misses must not be cached")
	}
}

func TestCompanyRepository_StoreFailureFallsBack(t *testing.T) {
	company := domain.NewCompany("A", "a@a.test", "p")
	next := &countingCompanies{companies: map[uuid.UUID]*domain.Company{company.ID: company}}
	store := newMemStore()
	store.getErr = errors.New("redis: connection refused")
	store.setErr = errors.New("redis: connection refused")
	repo := NewCompanyRepository(next, store, time.Minute, zap.NewNop())

	got, err := repo.GetByID(context.Background(), company.ID)
	if err != nil || got.ID != company.ID {
		t.Fatalf("GetByID() = %v, %v", got, err)
	}
}

func TestCompanyRepository_DeleteEvicts(t *testing.T) {
	company := domain.NewCompany("A", "a@a.test", "p")
	next := &countingCompanies{companies: map[uuid.UUID]*domain.Company{company.ID: company}}
	store := newMemStore()
	repo := NewCompanyRepository(next, store, time.Minute, zap.NewNop())

	_, _ = repo.GetByID(context.Background(), company.ID)
	if err := repo.Delete(context.Background(), company.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, ok := store.data[CompanyKey(company.ID)]; ok {
		t.Error("cache entry should be evicted")
	}
	if next.deletes != 1 {
		t.Errorf("underlying Delete called %d times", next.deletes)
	}
}

func TestQuestionRepository_ReadThrough(t *testing.T) {
	companyID := uuid.New()
	next := &countingQuestions{sets: map[uuid.UUID][]*domain.Question{
		companyID: domain.NewQuestionSet(companyID, []string{"Q1?", "Q2?"}),
	}}
	repo := NewQuestionRepository(next, newMemStore(), time.Minute, zap.NewNop())

	for i := 0; i < 2; i++ {
		got, err := repo.ListByCompany(context.Background(), companyID)
		if err != nil {
			t.Fatalf("ListByCompany() error = %v", err)
		}
		if len(got) != 2 || got[1].Position != 2 || got[1].Text != "Q2?" {
			t.Errorf("ListByCompany() = %+v", got)
		}
	}
	if next.lists != 1 {
		t.Errorf("underlying ListByCompany called %d times, want 1", next.lists)
	}
}

func TestQuestionRepository_EmptySetNotCached(t *testing.T) {
	next := &countingQuestions{sets: map[uuid.UUID][]*domain.Question{}}
	store := newMemStore()
	repo := NewQuestionRepository(next, store, time.Minute, zap.NewNop())

	_, _ = repo.ListByCompany(context.Background(), uuid.New())
	_, _ = repo.ListByCompany(context.Background(), uuid.New())

	if len(store.data) != 0 || next.lists != 2 {
		t.Errorf("empty sets should not be cached (entries=%d, lists=%d)", len(store.data), next.lists)
	}
}

func TestKeys(t *testing.T) {
	id := uuid.MustParse("e9d1ef02-8582-4173-9d2d-29a7f0661353")
	if got := CompanyKey(id); got != "pitchcheck:v1:company:e9d1ef02-8582-4173-9d2d-29a7f0661353" {
		t.Errorf("CompanyKey() = %q", got)
	}
	if got := QuestionsKey(id); !strings.HasSuffix(got, ":questions:"+id.String()) {
		t.Errorf("QuestionsKey() = %q", got)
	}
}
