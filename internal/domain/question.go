package domain

import "github.com/google/uuid"

// Question is one predefined interview question. Positions start at 1 and
// are dense within a company.
type Question struct {
	CompanyID uuid.UUID `json:"companyId"`
	Position  int       `json:"position"`
	Text      string    `json:"question"`
}

// NewQuestionSet assigns positions 1..N to texts in input order.
func NewQuestionSet(companyID uuid.UUID, texts []string) []*Question {
	questions := make([]*Question, len(texts))
	for i, text := range texts {
		questions[i] = &Question{
			CompanyID: companyID,
			Position:  i + 1,
			Text:      text,
		}
	}
	return questions
}

// QuestionTexts returns the question texts in position order.
func QuestionTexts(questions []*Question) []string {
	texts := make([]string, len(questions))
	for i, q := range questions {
		texts[i] = q.Text
	}
	return texts
}
