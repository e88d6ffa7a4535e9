// Package router picks the domain that should handle a request.
package router

import (
	"log/slog"
	"sort"
	"strings"

	"domainbot/internal/config"
)

// Router scores a prompt against per-domain keywords.
type Router struct {
	domains       []string            // sorted, so ties resolve the same way every time
	lowerKeywords map[string][]string // pre-computed lowercase keywords per domain
	defaultDomain string
	logger        *slog.Logger
}

// New builds a router from the configured domain keywords. Keywords are
// lower-cased once here.
func New(cfg config.RouterConfig, logger *slog.Logger) *Router {
	lowerKW := make(map[string][]string, len(cfg.Domains))
	names := make([]string, 0, len(cfg.Domains))
	for name, route := range cfg.Domains {
		kws := make([]string, 0, len(route.Keywords))
		for _, kw := range route.Keywords {
			if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
				kws = append(kws, kw)
			}
		}
		lowerKW[name] = kws
		names = append(names, name)
	}
	sort.Strings(names)

	return &Router{
		domains:       names,
		lowerKeywords: lowerKW,
		defaultDomain: cfg.DefaultDomain,
		logger:        logger,
	}
}

// Route returns the domain with the most keyword hits, or the default
// domain when nothing matches.
func (r *Router) Route(prompt string) string {
	lower := strings.ToLower(prompt)

	var bestMatch string
	var bestScore int
	for _, name := range r.domains {
		score := 0
		for _, kw := range r.lowerKeywords[name] {
			if strings.Contains(lower, kw) {
				score++
			}
		}
		if score > bestScore {
			bestScore = score
			bestMatch = name
		}
	}

	if bestScore == 0 {
		r.logger.Debug("router fell back to default domain", "domain", r.defaultDomain)
		return r.defaultDomain
	}
	r.logger.Debug("router matched domain", "domain", bestMatch, "score", bestScore)
	return bestMatch
}

// Default returns the fallback domain.
func (r *Router) Default() string { return r.defaultDomain }
