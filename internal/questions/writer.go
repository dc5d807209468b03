// Package questions drafts interview questions for a business pitch.
package questions

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/jkindrix/pitchcheck/internal/ai"
	"github.com/jkindrix/pitchcheck/internal/config"
	apperrors "github.com/jkindrix/pitchcheck/internal/errors"
)

// DefaultCount is the number of questions drafted per pitch.
const DefaultCount = 7

var bracketedArray = regexp.MustCompile(`(?s)\[.*\]`)

// Config tunes the drafting call.
type Config struct {
	Count       int
	MaxTokens   int
	Temperature float64
}

// DefaultConfig returns the drafting defaults.
func DefaultConfig() Config {
	return Config{Count: DefaultCount, MaxTokens: 1000, Temperature: 0.7}
}

// ConfigFrom reads the drafting settings, keeping defaults for unset values.
func ConfigFrom(llm *config.LLMConfig, iv *config.InterviewConfig) Config {
	cfg := DefaultConfig()
	if iv != nil && iv.QuestionCount > 0 {
		cfg.Count = iv.QuestionCount
	}
	if llm != nil {
		if llm.QuestionsMaxTokens > 0 {
			cfg.MaxTokens = llm.QuestionsMaxTokens
		}
		if llm.QuestionsTemperature > 0 {
			cfg.Temperature = llm.QuestionsTemperature
		}
	}
	return cfg
}

// draft is the structured-output shape requested from the model.
type draft struct {
	Questions []string `json:"questions"`
}

var draftSchema = ai.SchemaFor[draft]("interview_questions")

// Writer drafts questions with a generator.
type Writer struct {
	generator ai.Generator
	config    Config
	logger    *zap.Logger
}

// NewWriter creates a Writer.
func NewWriter(generator ai.Generator, cfg Config, logger *zap.Logger) *Writer {
	if cfg.Count <= 0 {
		cfg.Count = DefaultCount
	}
	return &Writer{generator: generator, config: cfg, logger: logger}
}

// Generate drafts exactly Config.Count questions for pitch.
func (w *Writer) Generate(ctx context.Context, pitch string) ([]string, error) {
	const op = "questions.Generate"

	pitch = strings.TrimSpace(pitch)
	if pitch == "" {
		return nil, apperrors.WrapWithOp(apperrors.MissingField("pitch"), op)
	}

	out, err := w.generator.Generate(ctx, ai.Request{
		Purpose:     ai.PurposeQuestions,
		System:      systemPrompt(w.config.Count),
		Prompt:      userPrompt(pitch, w.config.Count),
		MaxTokens:   w.config.MaxTokens,
		Temperature: w.config.Temperature,
		Schema:      draftSchema,
	})
	if err != nil {
		if !apperrors.IsGenerationError(err) {
			err = apperrors.GenerationError("question writer", err)
		}
		return nil, err
	}

	questions, err := Parse(out, w.config.Count)
	if err != nil {
		w.logger.Warn("question draft rejected", zap.Int("output_length", len(out)), zap.Error(err))
		return nil, err
	}

	w.logger.Info("questions drafted", zap.Int("count", len(questions)))
	return questions, nil
}

// Parse extracts the question list from model output. It accepts an object
// with a "questions" array, a bare array, an object with any array-valued
// key, or text with an embedded array. Every entry must be a string; entries
// are trimmed and blanks dropped, and exactly want must remain.
func Parse(out string, want int) ([]string, error) {
	raw, err := extractArray(out)
	if err != nil {
		return nil, err
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, apperrors.ParseError("questions", err)
	}

	questions := make([]string, 0, len(entries))
	for i, entry := range entries {
		var q string
		if err := json.Unmarshal(entry, &q); err != nil {
			return nil, apperrors.ValidationFailed(fmt.Sprintf("question %d is not a string", i+1))
		}
		if q = strings.TrimSpace(q); q != "" {
			questions = append(questions, q)
		}
	}

	if len(questions) != want {
		return nil, apperrors.ValidationFailed(fmt.Sprintf("expected exactly %d questions, got %d", want, len(questions)))
	}
	return questions, nil
}

func extractArray(out string) (json.RawMessage, error) {
	var doc json.RawMessage
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		match := bracketedArray.FindString(out)
		if match == "" {
			return nil, apperrors.ParseError("questions", err)
		}
		doc = json.RawMessage(match)
	}

	trimmed := strings.TrimSpace(string(doc))
	if strings.HasPrefix(trimmed, "[") {
		return doc, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(doc, &fields); err != nil {
		return nil, apperrors.ParseError("questions", err)
	}
	if q, ok := fields["questions"]; ok && isArray(q) {
		return q, nil
	}
	if q, ok := firstArrayField(doc); ok {
		return q, nil
	}
	return nil, apperrors.ParseError("questions", errors.New("no array found in output"))
}

// firstArrayField returns the first array-valued field of a JSON object in
// document order.
func firstArrayField(doc json.RawMessage) (json.RawMessage, bool) {
	dec := json.NewDecoder(bytes.NewReader(doc))
	if _, err := dec.Token(); err != nil {
		return nil, false
	}
	for dec.More() {
		if _, err := dec.Token(); err != nil {
			return nil, false
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, false
		}
		if isArray(value) {
			return value, true
		}
	}
	return nil, false
}

func isArray(raw json.RawMessage) bool {
	return strings.HasPrefix(strings.TrimSpace(string(raw)), "[")
}

func systemPrompt(count int) string {
	return fmt.Sprintf(`You are an expert at creating user interview questions for startup validation. Your task is to generate exactly %[1]d questions based on a business pitch.

CRITICAL REQUIREMENTS:
1. Question 1 MUST be about "Initial Interest & Purchase Intent" - ask about likelihood to purchase/use the product on a 1-10 scale. Tailor the question specifically to the business described.
2. Question 2 MUST be about "Price Sensitivity" - ask what price they would expect or be willing to pay. Format as multiple choice options or ask for a specific numeric value. Tailor it to the specific product/service.
3. The remaining questions should collect broader insights about:
   - Product features and attributes
   - Target audience preferences
   - Concerns or hesitations
   - What stands out about the product
   - Related preferences and behaviors

   These can be open-ended or multiple choice questions.

OUTPUT FORMAT: Return a JSON object with a "questions" key containing an array of exactly %[1]d question strings.

Make sure each question is:
- Clear and specific
- Tailored to the business described
- Appropriate for a user interview context
- Designed to validate demand and learn about user preferences`, count)
}

func userPrompt(pitch string, count int) string {
	return fmt.Sprintf(`Generate %[1]d interview questions for this business pitch:

%[2]s

Return only a JSON object with a "questions" array containing exactly %[1]d questions, formatted as specified.`, count, pitch)
}
