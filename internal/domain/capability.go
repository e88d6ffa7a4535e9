package domain

import "sort"

// Capability names a data-gathering ability a domain may need (search, pricing, ...).
type Capability string

const (
	CapBrowser    Capability = "browser"
	CapSearch     Capability = "search"
	CapDocuments  Capability = "documents"
	CapSummarizer Capability = "summarizer"
	CapSummary    Capability = "summary"
	CapFlashcards Capability = "flashcards"
	CapPricing    Capability = "pricing"
	CapReviews    Capability = "reviews"
	CapLocation   Capability = "location"
)

// CapabilitySet is an unordered set of capability tags.
type CapabilitySet map[Capability]struct{}

// NewCapabilitySet builds a set from the given tags, dropping duplicates.
func NewCapabilitySet(caps ...Capability) CapabilitySet {
	s := make(CapabilitySet, len(caps))
	for _, c := range caps {
		s[c] = struct{}{}
	}
	return s
}

// Add inserts caps into s.
func (s CapabilitySet) Add(caps ...Capability) {
	for _, c := range caps {
		s[c] = struct{}{}
	}
}

// Has reports whether c is in s.
func (s CapabilitySet) Has(c Capability) bool {
	_, ok := s[c]
	return ok
}

// Contains reports whether every tag of other is in s.
func (s CapabilitySet) Contains(other CapabilitySet) bool {
	for c := range other {
		if !s.Has(c) {
			return false
		}
	}
	return true
}

// Equal reports whether s and other hold the same tags.
func (s CapabilitySet) Equal(other CapabilitySet) bool {
	return len(s) == len(other) && s.Contains(other)
}

// Sorted returns the tags in lexical order, for stable logs and output.
func (s CapabilitySet) Sorted() []Capability {
	out := make([]Capability, 0, len(s))
	for c := range s {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Strings is Sorted as plain strings.
func (s CapabilitySet) Strings() []string {
	sorted := s.Sorted()
	out := make([]string, len(sorted))
	for i, c := range sorted {
		out[i] = string(c)
	}
	return out
}
