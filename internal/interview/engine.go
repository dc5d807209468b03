package interview

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/jkindrix/pitchcheck/internal/ai"
	"github.com/jkindrix/pitchcheck/internal/config"
	"github.com/jkindrix/pitchcheck/internal/domain"
	apperrors "github.com/jkindrix/pitchcheck/internal/errors"
)

// Config tunes the engine.
type Config struct {
	Interviewer  string
	PrefixLength int
	MaxTokens    int
	Temperature  float64
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		Interviewer:  DefaultInterviewer,
		PrefixLength: DefaultPrefixLength,
		MaxTokens:    200,
		Temperature:  0.8,
	}
}

// ConfigFrom builds a Config from application settings, keeping defaults
// for unset values.
func ConfigFrom(llm *config.LLMConfig, iv *config.InterviewConfig) Config {
	cfg := DefaultConfig()
	if iv != nil {
		if iv.InterviewerName != "" {
			cfg.Interviewer = iv.InterviewerName
		}
		if iv.PrefixLength > 0 {
			cfg.PrefixLength = iv.PrefixLength
		}
	}
	if llm != nil {
		if llm.TurnMaxTokens > 0 {
			cfg.MaxTokens = llm.TurnMaxTokens
		}
		if llm.TurnTemperature > 0 {
			cfg.Temperature = llm.TurnTemperature
		}
	}
	return cfg
}

// Turn is the engine's decision for one interviewer utterance.
type Turn struct {
	Text string
	// TargetPosition is the 1-based question the turn aimed at, 0 in follow-up mode.
	TargetPosition int
	FollowUp       bool
}

// Engine decides the next interviewer utterance.
type Engine struct {
	generator ai.Generator
	prompter  Prompter
	config    Config
	logger    *zap.Logger
}

// NewEngine creates an Engine.
func NewEngine(generator ai.Generator, cfg Config, logger *zap.Logger) *Engine {
	if cfg.PrefixLength <= 0 {
		cfg.PrefixLength = DefaultPrefixLength
	}
	return &Engine{
		generator: generator,
		prompter:  Prompter{Interviewer: cfg.Interviewer},
		config:    cfg,
		logger:    logger,
	}
}

// Next produces the interviewer's next utterance for transcript. It makes a
// single generation call and never retries.
func (e *Engine) Next(ctx context.Context, transcript []*domain.Message, pitch string, questions []string) (*Turn, error) {
	const op = "interview.Next"

	if strings.TrimSpace(pitch) == "" {
		return nil, apperrors.WrapWithOp(apperrors.MissingField("pitch"), op)
	}
	if len(questions) == 0 {
		return nil, apperrors.WrapWithOp(apperrors.ValidationFailed("at least one question is required"), op)
	}

	progress := DetectProgress(transcript, questions, e.config.PrefixLength)

	req := ai.Request{
		Purpose:     ai.PurposeTurn,
		System:      e.prompter.System(pitch, questions, progress),
		Prompt:      e.prompter.User(transcript, questions),
		MaxTokens:   e.config.MaxTokens,
		Temperature: e.config.Temperature,
	}

	text, err := e.generator.Generate(ctx, req)
	if err != nil {
		if !apperrors.IsGenerationError(err) {
			err = apperrors.GenerationError("interviewer", err)
		}
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.GenerationError("interviewer", errors.New("empty reply"))
	}

	e.logger.Debug("interviewer turn generated",
		zap.Int("transcript_length", len(transcript)),
		zap.Int("last_asked", progress.LastAsked),
		zap.Int("target_position", progress.TargetPosition()),
	)

	return &Turn{
		Text:           text,
		TargetPosition: progress.TargetPosition(),
		FollowUp:       progress.FollowUp(),
	}, nil
}
