package capability

import (
	"log/slog"
	"sort"
	"sync"

	"domainbot/internal/domain"
)

// Registry holds one provider per capability.
type Registry struct {
	mu        sync.RWMutex
	providers map[domain.Capability]domain.CapabilityProvider
	logger    *slog.Logger
}

// NewRegistry returns an empty provider registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		providers: make(map[domain.Capability]domain.CapabilityProvider),
		logger:    logger,
	}
}

// Register adds p, replacing any provider for the same capability.
func (r *Registry) Register(p domain.CapabilityProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Capability()] = p
	r.logger.Debug("registered capability provider", "capability", p.Capability())
}

// Get returns the provider for c, or nil.
func (r *Registry) Get(c domain.Capability) domain.CapabilityProvider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.providers[c]
}

// Capabilities lists the capabilities that have a provider, sorted.
func (r *Registry) Capabilities() []domain.Capability {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Capability, 0, len(r.providers))
	for c := range r.providers {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
