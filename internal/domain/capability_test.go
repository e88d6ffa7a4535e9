package domain

import "testing"

func TestCapabilitySet_Dedup(t *testing.T) {
	s := NewCapabilitySet(CapBrowser, CapSearch, CapBrowser)
	if len(s) != 2 {
		t.Fatalf("expected 2 tags, got %d", len(s))
	}
	s.Add(CapSearch, CapPricing)
	if len(s) != 3 || !s.Has(CapPricing) {
		t.Fatalf("unexpected set after Add: %v", s.Strings())
	}
}

func TestCapabilitySet_EqualAndContains(t *testing.T) {
	a := NewCapabilitySet(CapSearch, CapBrowser)
	b := NewCapabilitySet(CapBrowser, CapSearch)
	if !a.Equal(b) {
		t.Error("order must not matter")
	}
	super := NewCapabilitySet(CapBrowser, CapSearch, CapDocuments)
	if !super.Contains(a) {
		t.Error("superset should contain subset")
	}
	if a.Contains(super) || a.Equal(super) {
		t.Error("subset should not contain superset")
	}
}

func TestCapabilitySet_Sorted(t *testing.T) {
	s := NewCapabilitySet(CapSearch, CapBrowser, CapDocuments)
	got := s.Strings()
	want := []string{"browser", "documents", "search"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}
