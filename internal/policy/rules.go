// Package policy holds the domain policies (study, shopping) and the
// keyword rule tables that drive capability selection.
package policy

import (
	"fmt"
	"strings"

	"domainbot/internal/domain"
)

// Rule maps a set of trigger keywords to the capabilities they require.
// A rule fires when any keyword occurs as a substring of the lower-cased prompt.
type Rule struct {
	Keywords     []string            `json:"keywords" yaml:"keywords"`
	Capabilities []domain.Capability `json:"capabilities" yaml:"capabilities"`
}

// Selector evaluates an ordered rule table against prompts.
type Selector struct {
	rules    []Rule // keywords pre-lowered
	baseline domain.Capability
	fallback domain.Capability
}

// NewSelector checks every rule against the vocabulary and pre-lowers keywords.
func NewSelector(vocab domain.CapabilitySet, baseline, fallback domain.Capability, rules []Rule) (*Selector, error) {
	for _, c := range []domain.Capability{baseline, fallback} {
		if !vocab.Has(c) {
			return nil, fmt.Errorf("capability %q is not in the domain vocabulary", c)
		}
	}

	lowered := make([]Rule, 0, len(rules))
	for i, r := range rules {
		if len(r.Keywords) == 0 {
			return nil, fmt.Errorf("rule %d: no keywords", i)
		}
		if len(r.Capabilities) == 0 {
			return nil, fmt.Errorf("rule %d: no capabilities", i)
		}
		kws := make([]string, 0, len(r.Keywords))
		for _, kw := range r.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw == "" {
				return nil, fmt.Errorf("rule %d: empty keyword", i)
			}
			kws = append(kws, kw)
		}
		for _, c := range r.Capabilities {
			if !vocab.Has(c) {
				return nil, fmt.Errorf("rule %d: capability %q is not in the domain vocabulary", i, c)
			}
		}
		caps := make([]domain.Capability, len(r.Capabilities))
		copy(caps, r.Capabilities)
		lowered = append(lowered, Rule{Keywords: kws, Capabilities: caps})
	}

	return &Selector{rules: lowered, baseline: baseline, fallback: fallback}, nil
}

// mustSelector is for the built-in tables, which are known to be valid.
func mustSelector(vocab domain.CapabilitySet, baseline, fallback domain.Capability, rules []Rule) *Selector {
	s, err := NewSelector(vocab, baseline, fallback, rules)
	if err != nil {
		panic(err)
	}
	return s
}

// Select returns baseline + fallback + capabilities of every matching rule.
func (s *Selector) Select(prompt string) domain.CapabilitySet {
	lower := strings.ToLower(prompt)
	caps := domain.NewCapabilitySet(s.baseline)
	for _, r := range s.rules {
		if matchesAny(lower, r.Keywords) {
			caps.Add(r.Capabilities...)
		}
	}
	caps.Add(s.fallback)
	return caps
}

// Rules returns a copy of the rule table.
func (s *Selector) Rules() []Rule {
	out := make([]Rule, len(s.rules))
	for i, r := range s.rules {
		out[i] = Rule{
			Keywords:     append([]string(nil), r.Keywords...),
			Capabilities: append([]domain.Capability(nil), r.Capabilities...),
		}
	}
	return out
}

func matchesAny(lower string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// hasAny reports whether bag holds at least one of caps.
func hasAny(bag domain.Bag, caps ...domain.Capability) bool {
	for _, c := range caps {
		if bag.Has(c) {
			return true
		}
	}
	return false
}

// baseProps seeds the prop map every domain returns.
func baseProps(bag domain.Bag, modelText string) map[string]any {
	return map[string]any{
		domain.PropUserMessage: modelText,
		domain.PropTimestamp:   bag.Timestamp(),
	}
}

// copyProp copies the payload of c into props[key] when c is present.
func copyProp(props map[string]any, bag domain.Bag, c domain.Capability, key string) {
	if v, ok := bag.Get(c); ok {
		props[key] = v
	}
}
