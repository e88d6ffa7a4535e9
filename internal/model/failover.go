package model

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Failover tries models in order and returns the first successful completion.
type Failover struct {
	models []Model
	logger *slog.Logger
}

// NewFailover chains models in the given order.
func NewFailover(models []Model, logger *slog.Logger) *Failover {
	return &Failover{models: models, logger: logger}
}

func (f *Failover) Name() string {
	names := make([]string, len(f.models))
	for i, m := range f.models {
		names[i] = m.Name()
	}
	return "failover(" + strings.Join(names, "→") + ")"
}

func (f *Failover) Complete(ctx context.Context, systemPrompt, prompt string) (string, error) {
	if len(f.models) == 0 {
		return "", fmt.Errorf("empty failover chain")
	}
	var lastErr error
	for i, m := range f.models {
		text, err := m.Complete(ctx, systemPrompt, prompt)
		if err == nil {
			if i > 0 {
				f.logger.Info("failover: used fallback model", "model", m.Name(), "attempt", i+1)
			}
			return text, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		lastErr = err
		f.logger.Warn("failover: model failed, trying next", "model", m.Name(), "attempt", i+1, "err", err)
	}
	return "", fmt.Errorf("all models in failover chain failed: %w", lastErr)
}
