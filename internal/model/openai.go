package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

// OpenAI completes prompts through an OpenAI-compatible /chat/completions API.
type OpenAI struct {
	apiKey  string
	apiBase string
	model   string
	client  *http.Client
	retry   retrier
}

type OpenAIConfig struct {
	APIKey  string
	APIBase string
	Model   string
	Client  *http.Client
	Logger  *slog.Logger
}

// NewOpenAI returns a client for the OpenAI API or any compatible endpoint.
func NewOpenAI(cfg OpenAIConfig) *OpenAI {
	if cfg.APIBase == "" {
		cfg.APIBase = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Client == nil {
		cfg.Client = SharedHTTPClient(defaultTimeout)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &OpenAI{
		apiKey:  cfg.APIKey,
		apiBase: cfg.APIBase,
		model:   cfg.Model,
		client:  cfg.Client,
		retry:   retrier{backoff: jitterBackoff, logger: cfg.Logger.With("model", "openai")},
	}
}

func (o *OpenAI) Name() string { return "openai" }

type oaiRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type oaiResponse struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
}

// Complete returns the first choice of a chat completion, or "" when there is none.
func (o *OpenAI) Complete(ctx context.Context, systemPrompt, prompt string) (string, error) {
	body, err := json.Marshal(oaiRequest{
		Model:    o.model,
		Messages: chatMessages(systemPrompt, prompt),
	})
	if err != nil {
		return "", fmt.Errorf("marshal: %w", err)
	}

	resp, err := o.retry.do(ctx, o.client, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.apiBase+"/chat/completions", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+o.apiKey)
		return req, nil
	})
	if err != nil {
		return "", fmt.Errorf("openai request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("openai %d: %s", resp.StatusCode, string(respBody))
	}

	var out oaiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", nil
	}
	return out.Choices[0].Message.Content, nil
}
