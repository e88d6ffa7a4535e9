// Package capability provides in-process capability providers backed by
// fixed payloads, and the registry the dispatcher looks them up in.
package capability

import (
	"context"

	"domainbot/internal/domain"
)

// Static returns the same payload for every prompt.
type Static struct {
	capability domain.Capability
	payload    any
}

var _ domain.CapabilityProvider = (*Static)(nil)

// NewStatic returns a provider that always yields payload for c.
func NewStatic(c domain.Capability, payload any) *Static {
	return &Static{capability: c, payload: payload}
}

func (s *Static) Capability() domain.Capability { return s.capability }

// Fetch returns the fixed payload unless ctx is already done.
func (s *Static) Fetch(ctx context.Context, prompt string) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.payload, nil
}

// Func adapts a plain function to domain.CapabilityProvider.
type Func struct {
	capability domain.Capability
	fn         func(ctx context.Context, prompt string) (any, error)
}

var _ domain.CapabilityProvider = (*Func)(nil)

func NewFunc(c domain.Capability, fn func(ctx context.Context, prompt string) (any, error)) *Func {
	return &Func{capability: c, fn: fn}
}

func (f *Func) Capability() domain.Capability { return f.capability }

func (f *Func) Fetch(ctx context.Context, prompt string) (any, error) {
	return f.fn(ctx, prompt)
}
