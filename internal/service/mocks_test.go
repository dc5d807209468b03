package service

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/jkindrix/pitchcheck/internal/ai"
	"github.com/jkindrix/pitchcheck/internal/domain"
	apperrors "github.com/jkindrix/pitchcheck/internal/errors"
	"github.com/jkindrix/pitchcheck/internal/events"
)

// MockCompanyRepository is an in-memory domain.CompanyRepository.
type MockCompanyRepository struct {
	mu        sync.RWMutex
	companies map[uuid.UUID]*domain.Company

	CreateCalls int
	DeleteCalls int

	CreateError error
	DeleteError error
}

func NewMockCompanyRepository() *MockCompanyRepository {
	return &MockCompanyRepository{companies: make(map[uuid.UUID]*domain.Company)}
}

func (m *MockCompanyRepository) Create(ctx context.Context, company *domain.Company) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreateCalls++
	if m.CreateError != nil {
		return m.CreateError
	}
	m.companies[company.ID] = company
	return nil
}

func (m *MockCompanyRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Company, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if c, ok := m.companies[id]; ok {
		return c, nil
	}
	return nil, apperrors.NotFound("company")
}

func (m *MockCompanyRepository) List(ctx context.Context) ([]*domain.CompanySummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.CompanySummary
	for _, c := range m.companies {
		out = append(out, &domain.CompanySummary{ID: c.ID, Name: c.Name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MockCompanyRepository) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DeleteCalls++
	if m.DeleteError != nil {
		return m.DeleteError
	}
	if _, ok := m.companies[id]; !ok {
		return apperrors.NotFound("company")
	}
	delete(m.companies, id)
	return nil
}

func (m *MockCompanyRepository) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.companies)
}

// MockQuestionRepository is an in-memory domain.QuestionRepository.
type MockQuestionRepository struct {
	mu   sync.RWMutex
	sets map[uuid.UUID][]*domain.Question

	CreateBatchError error
}

func NewMockQuestionRepository() *MockQuestionRepository {
	return &MockQuestionRepository{sets: make(map[uuid.UUID][]*domain.Question)}
}

func (m *MockQuestionRepository) CreateBatch(ctx context.Context, companyID uuid.UUID, texts []string) ([]*domain.Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateBatchError != nil {
		return nil, m.CreateBatchError
	}
	set := domain.NewQuestionSet(companyID, texts)
	m.sets[companyID] = set
	return set, nil
}

func (m *MockQuestionRepository) ListByCompany(ctx context.Context, companyID uuid.UUID) ([]*domain.Question, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sets[companyID], nil
}

func (m *MockQuestionRepository) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sets)
}

// MockCustomerRepository is an in-memory domain.CustomerRepository.
type MockCustomerRepository struct {
	mu        sync.RWMutex
	customers []*domain.Customer

	CreateError error
}

func NewMockCustomerRepository() *MockCustomerRepository {
	return &MockCustomerRepository{}
}

func (m *MockCustomerRepository) Create(ctx context.Context, customer *domain.Customer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateError != nil {
		return m.CreateError
	}
	m.customers = append(m.customers, customer)
	return nil
}

func (m *MockCustomerRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.customers {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, apperrors.NotFound("customer")
}

func (m *MockCustomerRepository) ListByCompany(ctx context.Context, companyID uuid.UUID) ([]*domain.Customer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Customer
	for _, c := range m.customers {
		if c.CompanyID == companyID {
			out = append(out, c)
		}
	}
	return out, nil
}

// MockMessageRepository is an in-memory domain.MessageRepository that
// assigns orders the way the Postgres one does.
type MockMessageRepository struct {
	mu         sync.RWMutex
	byCustomer map[uuid.UUID][]*domain.Message
	customers  *MockCustomerRepository

	AppendCalls int
	AppendError error
}

func NewMockMessageRepository(customers *MockCustomerRepository) *MockMessageRepository {
	return &MockMessageRepository{
		byCustomer: make(map[uuid.UUID][]*domain.Message),
		customers:  customers,
	}
}

func (m *MockMessageRepository) Append(ctx context.Context, msg *domain.Message) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AppendCalls++
	if m.AppendError != nil {
		return 0, m.AppendError
	}
	stored := *msg
	stored.Order = len(m.byCustomer[msg.CustomerID]) + 1
	m.byCustomer[msg.CustomerID] = append(m.byCustomer[msg.CustomerID], &stored)
	msg.Order = stored.Order
	return stored.Order, nil
}

func (m *MockMessageRepository) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]*domain.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stored := m.byCustomer[customerID]
	out := make([]*domain.Message, len(stored))
	copy(out, stored)
	return out, nil
}

func (m *MockMessageRepository) NextOrder(ctx context.Context, customerID uuid.UUID) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byCustomer[customerID]) + 1, nil
}

func (m *MockMessageRepository) ListByCompany(ctx context.Context, companyID uuid.UUID) ([]*domain.Message, error) {
	customers, _ := m.customers.ListByCompany(ctx, companyID)
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Message
	for _, c := range customers {
		out = append(out, m.byCustomer[c.ID]...)
	}
	return out, nil
}

// MockGenerator is a scripted ai.Generator. Replies are returned in turn and
// the last one repeats.
type MockGenerator struct {
	mu       sync.Mutex
	Replies  []string
	Err      error
	Requests []ai.Request
}

func (m *MockGenerator) Generate(ctx context.Context, req ai.Request) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Requests = append(m.Requests, req)
	if m.Err != nil {
		return "", m.Err
	}
	if len(m.Replies) == 0 {
		return "", nil
	}
	i := len(m.Requests) - 1
	if i >= len(m.Replies) {
		i = len(m.Replies) - 1
	}
	return m.Replies[i], nil
}

func (m *MockGenerator) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}

// MockTransactor runs fn directly and counts calls.
type MockTransactor struct {
	Calls int
}

func (m *MockTransactor) WithTransactionContext(ctx context.Context, fn func(ctx context.Context) error) error {
	m.Calls++
	return fn(ctx)
}

// MockPublisher collects published events.
type MockPublisher struct {
	mu     sync.Mutex
	Events []events.Event
	Err    error
}

func (m *MockPublisher) Publish(ctx context.Context, e events.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, e)
	return m.Err
}

func (m *MockPublisher) Types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	types := make([]string, len(m.Events))
	for i, e := range m.Events {
		types[i] = e.Type()
	}
	return types
}
