// Package model implements domain.LanguageModel over HTTP chat APIs
// (Ollama and OpenAI-compatible) with retry and ordered failover.
package model

import (
	"fmt"
	"log/slog"
	"time"

	"domainbot/internal/config"
	"domainbot/internal/domain"
)

// Model is a named language model.
type Model interface {
	domain.LanguageModel
	Name() string
}

const defaultTimeout = 120 * time.Second

// FromConfig builds the configured chain. An empty chain returns nil, nil.
func FromConfig(cfg config.ModelConfig, logger *slog.Logger) (Model, error) {
	if len(cfg.Chain) == 0 {
		return nil, nil
	}
	timeout := time.Duration(cfg.TimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	client := SharedHTTPClient(timeout)

	models := make([]Model, 0, len(cfg.Chain))
	for i, ep := range cfg.Chain {
		switch ep.Kind {
		case "ollama":
			models = append(models, NewOllama(OllamaConfig{
				APIBase: ep.APIBase,
				Model:   ep.Model,
				Client:  client,
				Logger:  logger,
			}))
		case "openai":
			models = append(models, NewOpenAI(OpenAIConfig{
				APIKey:  ep.APIKey,
				APIBase: ep.APIBase,
				Model:   ep.Model,
				Client:  client,
				Logger:  logger,
			}))
		default:
			return nil, fmt.Errorf("model.chain[%d]: unknown kind %q", i, ep.Kind)
		}
	}

	if len(models) == 1 {
		return models[0], nil
	}
	return NewFailover(models, logger), nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func chatMessages(systemPrompt, prompt string) []chatMessage {
	msgs := make([]chatMessage, 0, 2)
	if systemPrompt != "" {
		msgs = append(msgs, chatMessage{Role: "system", Content: systemPrompt})
	}
	return append(msgs, chatMessage{Role: "user", Content: prompt})
}
