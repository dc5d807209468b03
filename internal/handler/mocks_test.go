package handler

import (
	"context"

	"github.com/google/uuid"

	"github.com/jkindrix/pitchcheck/internal/domain"
	"github.com/jkindrix/pitchcheck/internal/ratelimit"
	"github.com/jkindrix/pitchcheck/internal/service"
)

type mockCompanies struct {
	questions []string
	company   *domain.Company
	list      []*domain.CompanySummary
	data      *service.CompanyData
	err       error

	gotPitch      string
	gotInput      service.CreateCompanyInput
	gotCompanyID  uuid.UUID
	gotCustomerID uuid.UUID
}

func (m *mockCompanies) GenerateQuestions(ctx context.Context, pitch string) ([]string, error) {
	m.gotPitch = pitch
	return m.questions, m.err
}

func (m *mockCompanies) Create(ctx context.Context, in service.CreateCompanyInput) (*domain.Company, error) {
	m.gotInput = in
	return m.company, m.err
}

func (m *mockCompanies) List(ctx context.Context) ([]*domain.CompanySummary, error) {
	return m.list, m.err
}

func (m *mockCompanies) Data(ctx context.Context, companyID, customerID uuid.UUID) (*service.CompanyData, error) {
	m.gotCompanyID = companyID
	m.gotCustomerID = customerID
	return m.data, m.err
}

type mockCustomers struct {
	customer *domain.Customer
	err      error

	gotName, gotEmail, gotCompanyID string
}

func (m *mockCustomers) Create(ctx context.Context, name, email, companyID string) (*domain.Customer, error) {
	m.gotName, m.gotEmail, m.gotCompanyID = name, email, companyID
	return m.customer, m.err
}

type mockSessions struct {
	session  *service.Session
	turn     *service.TurnResult
	messages []*domain.Message
	err      error

	gotCustomerID uuid.UUID
	gotText       string
}

func (m *mockSessions) Initiate(ctx context.Context, customerID uuid.UUID) (*service.Session, error) {
	m.gotCustomerID = customerID
	return m.session, m.err
}

func (m *mockSessions) SendMessage(ctx context.Context, customerID uuid.UUID, text string) (*service.TurnResult, error) {
	m.gotCustomerID = customerID
	m.gotText = text
	return m.turn, m.err
}

func (m *mockSessions) Messages(ctx context.Context, customerID uuid.UUID) ([]*domain.Message, error) {
	m.gotCustomerID = customerID
	return m.messages, m.err
}

type mockAnalytics struct {
	report *domain.InsightReport
	err    error

	gotCompanyID uuid.UUID
}

func (m *mockAnalytics) Analyze(ctx context.Context, companyID uuid.UUID) (*domain.InsightReport, error) {
	m.gotCompanyID = companyID
	return m.report, m.err
}

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(ctx context.Context) error {
	return m.err
}

type mockBreaker struct {
	open bool
}

func (m *mockBreaker) IsCircuitOpen() bool {
	return m.open
}

type mockBudget struct {
	stats ratelimit.BudgetStats
}

func (m *mockBudget) Stats() ratelimit.BudgetStats {
	return m.stats
}
