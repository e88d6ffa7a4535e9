package domain

import "context"

// CapabilityProvider gathers the payload for one capability.
type CapabilityProvider interface {
	Capability() Capability
	Fetch(ctx context.Context, prompt string) (any, error)
}

// LanguageModel turns a system prompt and user prompt into response text.
type LanguageModel interface {
	Complete(ctx context.Context, systemPrompt, prompt string) (string, error)
}
