package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jkindrix/pitchcheck/internal/config"
)

const (
	anthropicDefaultURL = "https://api.anthropic.com/v1/messages"
	anthropicVersion    = "2023-06-01"
)

// AnthropicProvider calls the Anthropic Messages API over plain HTTP.
type AnthropicProvider struct {
	apiKey     string
	model      string
	url        string
	httpClient *http.Client
}

// NewAnthropicProvider creates a provider from cfg.
func NewAnthropicProvider(cfg config.ProviderConfig) *AnthropicProvider {
	url := cfg.BaseURL
	if url == "" {
		url = anthropicDefaultURL
	}
	return &AnthropicProvider{
		apiKey: cfg.APIKey,
		model:  cfg.Model,
		url:    url,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	System      string             `json:"system,omitempty"`
	Temperature float64            `json:"temperature"`
	Messages    []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

type anthropicError struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Name implements Provider.
func (p *AnthropicProvider) Name() string {
	return config.ProviderAnthropic
}

// Complete implements Provider. Structured requests put the schema in the
// system prompt and prefill the assistant turn with "{".
func (p *AnthropicProvider) Complete(ctx context.Context, req Request) (string, error) {
	system := req.System
	messages := []anthropicMessage{{Role: "user", Content: req.Prompt}}
	prefill := ""
	if req.Schema != nil {
		system = strings.TrimSpace(system + "\n\n" + req.Schema.Instruction())
		prefill = "{"
		messages = append(messages, anthropicMessage{Role: "assistant", Content: prefill})
	}

	body, err := json.Marshal(anthropicRequest{
		Model:       p.model,
		MaxTokens:   req.MaxTokens,
		System:      system,
		Temperature: req.Temperature,
		Messages:    messages,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp anthropicError
		if err := json.Unmarshal(data, &errResp); err == nil && errResp.Error.Message != "" {
			return "", fmt.Errorf("anthropic api error: %s - %s", errResp.Error.Type, errResp.Error.Message)
		}
		return "", fmt.Errorf("anthropic api error: status %d", resp.StatusCode)
	}

	var msg anthropicResponse
	if err := json.Unmarshal(data, &msg); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", nil
	}
	return prefill + sb.String(), nil
}
