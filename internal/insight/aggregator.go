// Package insight aggregates a company's interview transcripts into a
// structured summary.
package insight

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jkindrix/pitchcheck/internal/ai"
	"github.com/jkindrix/pitchcheck/internal/config"
	"github.com/jkindrix/pitchcheck/internal/domain"
	apperrors "github.com/jkindrix/pitchcheck/internal/errors"
)

// Conversation is one customer's transcript prepared for analysis.
type Conversation struct {
	CustomerName string
	Messages     []*domain.Message
}

// Config tunes the analysis call.
type Config struct {
	MaxTokens   int
	Temperature float64
}

// DefaultConfig returns the analysis defaults.
func DefaultConfig() Config {
	return Config{MaxTokens: 1500, Temperature: 0.7}
}

// ConfigFrom reads the insight settings, keeping defaults for unset values.
func ConfigFrom(llm *config.LLMConfig) Config {
	cfg := DefaultConfig()
	if llm == nil {
		return cfg
	}
	if llm.InsightMaxTokens > 0 {
		cfg.MaxTokens = llm.InsightMaxTokens
	}
	if llm.InsightTemperature > 0 {
		cfg.Temperature = llm.InsightTemperature
	}
	return cfg
}

// insightSchema mirrors domain.Insights for structured output.
var insightSchema = ai.SchemaFor[domain.Insights]("customer_insights")

// Aggregator turns transcripts into insights.
type Aggregator struct {
	generator ai.Generator
	config    Config
	logger    *zap.Logger
}

// NewAggregator creates an Aggregator.
func NewAggregator(generator ai.Generator, cfg Config, logger *zap.Logger) *Aggregator {
	return &Aggregator{generator: generator, config: cfg, logger: logger}
}

// Analyze summarizes conversations. With no conversations it returns
// domain.EmptyInsights without calling the generator.
func (a *Aggregator) Analyze(ctx context.Context, pitch string, conversations []Conversation) (domain.Insights, error) {
	if len(conversations) == 0 {
		return domain.EmptyInsights(), nil
	}

	req := ai.Request{
		Purpose:     ai.PurposeInsight,
		System:      systemPrompt(pitch),
		Prompt:      userPrompt(conversations),
		MaxTokens:   a.config.MaxTokens,
		Temperature: a.config.Temperature,
		Schema:      insightSchema,
	}

	out, err := a.generator.Generate(ctx, req)
	if err != nil {
		if !apperrors.IsGenerationError(err) {
			err = apperrors.GenerationError("analyst", err)
		}
		return domain.Insights{}, err
	}

	insights, err := Parse(out)
	if err != nil {
		a.logger.Warn("insight output rejected",
			zap.Int("conversations", len(conversations)),
			zap.Int("output_length", len(out)),
			zap.Error(err),
		)
		return domain.Insights{}, err
	}

	a.logger.Info("insights generated",
		zap.Int("conversations", len(conversations)),
		zap.Int("general", len(insights.GeneralInsights)),
		zap.Int("positives", len(insights.Positives)),
		zap.Int("negatives", len(insights.Negatives)),
		zap.Int("pivots", len(insights.PivotSuggestions)),
	)
	return insights, nil
}

// Parse decodes the analyst output. Output that is not a JSON object is a
// ParseError; missing or malformed fields become empty lists.
func Parse(out string) (domain.Insights, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(stripCodeFence(out)), &fields); err != nil {
		return domain.Insights{}, apperrors.ParseError("insights", err)
	}

	return domain.Insights{
		GeneralInsights:  stringList(fields["generalInsights"]),
		Positives:        stringList(fields["positives"]),
		Negatives:        stringList(fields["negatives"]),
		PivotSuggestions: stringList(fields["pivotSuggestions"]),
	}, nil
}

func stringList(raw json.RawMessage) []string {
	var list []string
	if len(raw) == 0 || json.Unmarshal(raw, &list) != nil || list == nil {
		return []string{}
	}
	return list
}

// stripCodeFence removes a surrounding ```json fence some models add.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func systemPrompt(pitch string) string {
	return fmt.Sprintf(`You are an expert business analyst specializing in analyzing user interview data to provide actionable insights for startups.

Your task is to analyze customer interview conversations and provide structured insights in JSON format.

Business Pitch Context:
%s

Analyze the following customer conversations holistically and provide insights about:
1. General insights about what people think about this business idea
2. Positive feedback - good things people said about the idea/product
3. Negative feedback - concerns, criticisms, or bad things people said
4. Pivot suggestions - actionable recommendations for how the business could pivot based on the feedback

Return ONLY a valid JSON object with this exact structure (no markdown, no code blocks, just JSON):
{
  "generalInsights": ["insight 1", "insight 2", ...],
  "positives": ["positive point 1", "positive point 2", ...],
  "negatives": ["negative point 1", "negative point 2", ...],
  "pivotSuggestions": ["suggestion 1", "suggestion 2", ...]
}

Make sure each array contains 3-8 bullet points. Be specific and actionable.`, pitch)
}

func userPrompt(conversations []Conversation) string {
	return "Analyze these customer interview conversations and provide insights:\n\n" +
		RenderConversations(conversations) +
		"\n\nReturn the analysis as JSON with the specified structure."
}

// RenderConversations renders the numbered conversation blocks separated by "---".
func RenderConversations(conversations []Conversation) string {
	blocks := make([]string, len(conversations))
	for i, c := range conversations {
		blocks[i] = fmt.Sprintf("Conversation %d (Customer: %s):\n%s\n", i+1, c.CustomerName, domain.Conversation(c.Messages))
	}
	return strings.Join(blocks, "\n---\n\n")
}

// GroupByCustomer builds one Conversation per customer, in customer order,
// from a flat company-wide message list. Customers without messages get an
// empty conversation.
func GroupByCustomer(customers []*domain.Customer, messages []*domain.Message) []Conversation {
	byCustomer := make(map[uuid.UUID][]*domain.Message, len(customers))
	for _, m := range messages {
		byCustomer[m.CustomerID] = append(byCustomer[m.CustomerID], m)
	}

	conversations := make([]Conversation, len(customers))
	for i, c := range customers {
		conversations[i] = Conversation{
			CustomerName: c.Name,
			Messages:     byCustomer[c.ID],
		}
	}
	return conversations
}
