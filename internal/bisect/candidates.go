package bisect

import "sort"

// Item is an opaque toggle identifier (a compiled-function name in the
// jit-list use case). Items compare by string equality; their lexicographic
// order is used only to make output deterministic.
type Item string

// CandidateSet is an ordered sequence of unique Items.
//
// The order is irrelevant for correctness but fixed once established (the
// universe is sorted exactly once, at extraction time) so that repeated runs
// are reproducible. CandidateSets are treated as immutable: Split and Concat
// return views/new slices and callers must never write through them.
type CandidateSet []Item

// NewCandidateSet deduplicates the given identifiers and returns them as a
// lexicographically sorted CandidateSet. This is the one place ordering is
// established; everything downstream preserves relative order.
func NewCandidateSet(ids []string) CandidateSet {
	seen := make(map[string]struct{}, len(ids))
	unique := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	sort.Strings(unique)

	set := make(CandidateSet, len(unique))
	for i, id := range unique {
		set[i] = Item(id)
	}
	return set
}

// Split returns the two positional halves of the set. For odd lengths the
// right half receives the extra element. The split point is a pure function
// of length only.
func (s CandidateSet) Split() (left, right CandidateSet) {
	half := len(s) / 2
	return s[:half], s[half:]
}

// Concat returns a new CandidateSet holding s followed by other. Neither
// input is modified or aliased by the result.
func (s CandidateSet) Concat(other CandidateSet) CandidateSet {
	out := make(CandidateSet, 0, len(s)+len(other))
	out = append(out, s...)
	return append(out, other...)
}

// Strings returns the items as plain strings, preserving order.
func (s CandidateSet) Strings() []string {
	out := make([]string, len(s))
	for i, it := range s {
		out[i] = string(it)
	}
	return out
}
