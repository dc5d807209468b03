package interview

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/jkindrix/pitchcheck/internal/ai"
	"github.com/jkindrix/pitchcheck/internal/config"
	"github.com/jkindrix/pitchcheck/internal/domain"
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

const carpoolPitch = "A carpooling app that matches suburban commuters with neighbours driving the same route."

func TestEngine_Next_Opener(t *testing.T) {
	gen := &stubGenerator{reply: "  Hi, I'm Alex! " + carpoolQuestions[0] + "  "}
	engine := NewEngine(gen, DefaultConfig(), zap.NewNop())

	turn, err := engine.Next(context.Background(), nil, carpoolPitch, carpoolQuestions)
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if turn.Text != "Hi, I'm Alex! "+carpoolQuestions[0] {
		t.Errorf("Text = %q", turn.Text)
	}
	if turn.TargetPosition != 1 || turn.FollowUp {
		t.Errorf("turn = %+v, want target 1", turn)
	}

	if len(gen.calls) != 1 {
		t.Fatalf("expected a single generation call, got %d", len(gen.calls))
	}
	req := gen.calls[0]
	if req.MaxTokens != 200 || req.Temperature != 0.8 || req.Purpose != ai.PurposeTurn {
		t.Errorf("unexpected generation settings %+v", req)
	}
	if req.Schema != nil {
		t.Error("turns are free text")
	}
	if !strings.HasPrefix(req.Prompt, "Start the conversation by introducing yourself briefly") {
		t.Errorf("Prompt = %q", req.Prompt)
	}
	if !strings.Contains(req.System, `You should ask question 1: "`+carpoolQuestions[0]+`"`) {
		t.Error("system prompt should target question 1")
	}
}

func TestEngine_Next_FollowUpMode(t *testing.T) {
	questions := []string{"Would you use a carpool app?"}
	gen := &stubGenerator{reply: "What makes it useful for you?"}
	engine := NewEngine(gen, DefaultConfig(), zap.NewNop())

	transcript := []*domain.Message{
		{Order: 1, Speaker: domain.SpeakerBot, Text: "Hi! Would you use a carpool app?"},
		{Order: 2, Speaker: domain.SpeakerUser, Text: "Yes, sounds useful"},
	}

	turn, err := engine.Next(context.Background(), transcript, carpoolPitch, questions)
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if !turn.FollowUp || turn.TargetPosition != 0 {
		t.Errorf("turn = %+v, want follow-up", turn)
	}

	req := gen.calls[0]
	if !strings.Contains(req.System, followUpStatus) {
		t.Error("system prompt should carry the follow-up status")
	}
	wantPrompt := "Interviewer: Hi! Would you use a carpool app?\nUser: Yes, sounds useful\n\n" + nextTurnInstruction
	if req.Prompt != wantPrompt {
		t.Errorf("Prompt = %q, want %q", req.Prompt, wantPrompt)
	}
}

func TestEngine_Next_Errors(t *testing.T) {
	tests := []struct {
		name      string
		gen       *stubGenerator
		pitch     string
		questions []string
		wantCode  apperrors.Code
	}{
		{"blank reply", &stubGenerator{reply: " \n\t"}, carpoolPitch, carpoolQuestions, apperrors.CodeGenerationFailed},
		{"plain provider error", &stubGenerator{err: errors.New("dial tcp: refused")}, carpoolPitch, carpoolQuestions, apperrors.CodeGenerationFailed},
		{"circuit open passes through", &stubGenerator{err: apperrors.ErrCircuitOpen}, carpoolPitch, carpoolQuestions, apperrors.CodeCircuitOpen},
		{"missing pitch", &stubGenerator{reply: "hi"}, "  ", carpoolQuestions, apperrors.CodeMissingField},
		{"no questions", &stubGenerator{reply: "hi"}, carpoolPitch, nil, apperrors.CodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := NewEngine(tt.gen, DefaultConfig(), zap.NewNop())
			_, err := engine.Next(context.Background(), nil, tt.pitch, tt.questions)
			if code := apperrors.GetCode(err); code != tt.wantCode {
				t.Errorf("code = %s, want %s (err %v)", code, tt.wantCode, err)
			}
		})
	}
}

func TestConfigFrom(t *testing.T) {
	cfg := ConfigFrom(
		&config.LLMConfig{TurnMaxTokens: 150, TurnTemperature: 0.5},
		&config.InterviewConfig{InterviewerName: "Sam", PrefixLength: 12},
	)
	want := Config{Interviewer: "Sam", PrefixLength: 12, MaxTokens: 150, Temperature: 0.5}
	if cfg != want {
		t.Errorf("ConfigFrom() = %+v, want %+v", cfg, want)
	}

	if got := ConfigFrom(nil, nil); got != DefaultConfig() {
		t.Errorf("ConfigFrom(nil, nil) = %+v", got)
	}
}
