package domain

import "github.com/google/uuid"

// Insights is the structured summary of all interviews for a company.
type Insights struct {
	GeneralInsights  []string `json:"generalInsights"`
	Positives        []string `json:"positives"`
	Negatives        []string `json:"negatives"`
	PivotSuggestions []string `json:"pivotSuggestions"`
}

// NoInterviewsInsight is reported when a company has no customers yet.
const NoInterviewsInsight = "No customer interviews have been conducted yet."

// EmptyInsights returns the summary for a company without interviews.
func EmptyInsights() Insights {
	return Insights{
		GeneralInsights:  []string{NoInterviewsInsight},
		Positives:        []string{},
		Negatives:        []string{},
		PivotSuggestions: []string{},
	}
}

// InsightReport pairs the insights with the number of customers analyzed.
type InsightReport struct {
	CompanyID     uuid.UUID `json:"companyId"`
	CustomerCount int       `json:"customerCount"`
	Insights      Insights  `json:"insights"`
}
