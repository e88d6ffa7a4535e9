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

const (
	ollamaDefaultBase  = "http://localhost:11434"
	ollamaDefaultModel = "llama3.1:8b"
)

// Ollama completes prompts through the Ollama /api/chat endpoint.
type Ollama struct {
	apiBase string
	model   string
	client  *http.Client
	retry   retrier
}

type OllamaConfig struct {
	APIBase string
	Model   string
	Client  *http.Client
	Logger  *slog.Logger
}

// NewOllama returns a client for a local Ollama server unless APIBase says otherwise.
func NewOllama(cfg OllamaConfig) *Ollama {
	if cfg.APIBase == "" {
		cfg.APIBase = ollamaDefaultBase
	}
	if cfg.Model == "" {
		cfg.Model = ollamaDefaultModel
	}
	if cfg.Client == nil {
		cfg.Client = SharedHTTPClient(defaultTimeout)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Ollama{
		apiBase: cfg.APIBase,
		model:   cfg.Model,
		client:  cfg.Client,
		retry:   retrier{backoff: jitterBackoff, logger: cfg.Logger.With("model", "ollama")},
	}
}

func (o *Ollama) Name() string { return "ollama" }

type ollamaRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type ollamaResponse struct {
	Message    chatMessage `json:"message"`
	Done       bool        `json:"done"`
	DoneReason string      `json:"done_reason"`
}

// Complete sends one non-streaming chat turn and returns the reply text.
func (o *Ollama) Complete(ctx context.Context, systemPrompt, prompt string) (string, error) {
	body, err := json.Marshal(ollamaRequest{
		Model:    o.model,
		Messages: chatMessages(systemPrompt, prompt),
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	resp, err := o.retry.do(ctx, o.client, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.apiBase+"/api/chat", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("ollama returned %d: %s", resp.StatusCode, string(respBody))
	}

	var out ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return out.Message.Content, nil
}
