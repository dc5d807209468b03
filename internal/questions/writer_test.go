package questions

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/jkindrix/pitchcheck/internal/ai"
	apperrors "github.com/jkindrix/pitchcheck/internal/errors"
)

type stubGenerator struct {
	reply string
	err   error
	calls []ai.Request
}

func (s *stubGenerator) Generate(_ context.Context, req ai.Request) (string, error) {
	s.calls = append(s.calls, req)
	return s.reply, s.err
}

const seven = `"Q1?","Q2?","Q3?","Q4?","Q5?","Q6?","Q7?"`

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"questions key", `{"questions":[` + seven + `]}`},
		{"bare array", `[` + seven + `]`},
		{"other array key", `{"note":"ok","items":[` + seven + `]}`},
		{"questions key not an array", `{"questions":"none","list":[` + seven + `]}`},
		{"embedded in prose", "Sure! Here they are:\n[" + seven + "]\nGood luck."},
		{"whitespace trimmed", `{"questions":[" Q1? ","Q2?","Q3?","Q4?","Q5?","Q6?","Q7?\n"]}`},
		{"blank entries dropped", `{"questions":["Q1?","","Q2?","Q3?","  ","Q4?","Q5?","Q6?","Q7?"]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.in, 7)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if len(got) != 7 || got[0] != "Q1?" || got[6] != "Q7?" {
				t.Errorf("Parse() = %q", got)
			}
		})
	}
}

func TestParse_FirstArrayInDocumentOrder(t *testing.T) {
	got, err := Parse(`{"zeta":["a","b"],"alpha":["c","d","e"]}`, 2)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got[0] != "a" {
		t.Errorf("expected the first array in the document, got %q", got)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		wantCode apperrors.Code
	}{
		{"not json", "I cannot help with that.", apperrors.CodeParse},
		{"no array", `{"questions":"Q1?"}`, apperrors.CodeParse},
		{"non-string entry", `{"questions":["Q1?",2,"Q3?","Q4?","Q5?","Q6?","Q7?"]}`, apperrors.CodeValidation},
		{"too few", `{"questions":["Q1?","Q2?"]}`, apperrors.CodeValidation},
		{"too few after cleaning", `{"questions":["Q1?","Q2?","Q3?","Q4?","Q5?","Q6?"," "]}`, apperrors.CodeValidation},
		{"too many", `{"questions":[` + seven + `,"Q8?"]}`, apperrors.CodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.in, 7)
			if code := apperrors.GetCode(err); code != tt.wantCode {
				t.Errorf("code = %s, want %s (err %v)", code, tt.wantCode, err)
			}
		})
	}
}

func TestWriter_Generate(t *testing.T) {
	gen := &stubGenerator{reply: `{"questions":[` + seven + `]}`}
	w := NewWriter(gen, DefaultConfig(), zap.NewNop())

	got, err := w.Generate(context.Background(), "  Meal kits for students  ")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(got) != 7 {
		t.Errorf("got %d questions", len(got))
	}

	req := gen.calls[0]
	if req.Schema == nil || req.Purpose != ai.PurposeQuestions || req.Temperature != 0.7 {
		t.Errorf("unexpected request %+v", req)
	}
	if !strings.Contains(req.Prompt, "\n\nMeal kits for students\n\n") {
		t.Errorf("prompt should embed the trimmed pitch: %q", req.Prompt)
	}
	if !strings.Contains(req.System, "exactly 7 questions") {
		t.Error("system prompt should ask for 7 questions")
	}
}

func TestWriter_Generate_Errors(t *testing.T) {
	tests := []struct {
		name     string
		gen      *stubGenerator
		pitch    string
		wantCode apperrors.Code
	}{
		{"blank pitch", &stubGenerator{}, "   ", apperrors.CodeMissingField},
		{"generation failure", &stubGenerator{err: errors.New("quota exceeded")}, "pitch", apperrors.CodeGenerationFailed},
		{"wrong count", &stubGenerator{reply: `{"questions":["only one?"]}`}, "pitch", apperrors.CodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewWriter(tt.gen, DefaultConfig(), zap.NewNop())
			_, err := w.Generate(context.Background(), tt.pitch)
			if code := apperrors.GetCode(err); code != tt.wantCode {
				t.Errorf("code = %s, want %s", code, tt.wantCode)
			}
			if tt.pitch == "   " && len(tt.gen.calls) != 0 {
				t.Error("blank pitch must not reach the generator")
			}
		})
	}
}
