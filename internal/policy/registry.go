package policy

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"domainbot/internal/domain"
)

// Registry holds the domain policies, keyed by name.
type Registry struct {
	mu       sync.RWMutex
	policies map[string]domain.Policy
	logger   *slog.Logger
}

// NewRegistry returns an empty policy registry; see RegisterBuiltins.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		policies: make(map[string]domain.Policy),
		logger:   logger,
	}
}

// Register adds p, replacing any policy already registered under its name.
func (r *Registry) Register(p domain.Policy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.policies[p.Name()] = p
	r.logger.Debug("registered policy", "domain", p.Name())
}

// RegisterBuiltins adds the study and shopping policies.
func (r *Registry) RegisterBuiltins() {
	r.Register(NewStudy())
	r.Register(NewShopping())
}

// Get returns the policy for name, or nil when none is registered.
func (r *Registry) Get(name string) domain.Policy {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.policies[name]
}

// Names returns the registered domain names in lexical order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.policies))
	for n := range r.policies {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ruleReplacer is implemented by policies whose rule table can be swapped.
type ruleReplacer interface {
	WithRules(rules []Rule) (domain.Policy, error)
}

// ApplyRules replaces the rule tables of registered policies. Files naming an
// unknown domain or carrying invalid rules are logged and skipped; the number
// of applied files is returned.
func (r *Registry) ApplyRules(files []RuleFile) int {
	applied := 0
	for _, f := range files {
		p := r.Get(f.Domain)
		if p == nil {
			r.logger.Warn("rules for unknown domain, skipping", "domain", f.Domain, "path", f.Path)
			continue
		}
		rr, ok := p.(ruleReplacer)
		if !ok {
			r.logger.Warn("domain does not accept rule overrides", "domain", f.Domain)
			continue
		}
		np, err := rr.WithRules(f.Rules)
		if err != nil {
			r.logger.Warn("invalid rules, keeping built-in table", "domain", f.Domain, "path", f.Path, "err", err)
			continue
		}
		r.Register(np)
		r.logger.Info("applied rule overrides", "domain", f.Domain, "rules", len(f.Rules))
		applied++
	}
	return applied
}

// Describe renders a policy's rule table for display.
func Describe(p domain.Policy) string {
	type ruled interface{ Rules() []Rule }
	s := fmt.Sprintf("%s: vocabulary=%v", p.Name(), p.Vocabulary().Strings())
	if rp, ok := p.(ruled); ok {
		for i, rule := range rp.Rules() {
			s += fmt.Sprintf("\n  %d. %v -> %v", i+1, rule.Keywords, rule.Capabilities)
		}
	}
	return s
}
