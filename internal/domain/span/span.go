// Package span provides ordered sets of token positions. A match is
// bookkept as two spans of equal cardinality: the query positions and the
// rule positions its aligned tokens fall on.
package span

import "sort"

// Span is a strictly increasing sequence of token positions.
type Span []int

// New returns a Span from positions, sorted with duplicates removed.
func New(positions ...int) Span {
	if len(positions) == 0 {
		return nil
	}
	s := make(Span, len(positions))
	copy(s, positions)
	sort.Ints(s)
	out := s[:1]
	for _, p := range s[1:] {
		if p != out[len(out)-1] {
			out = append(out, p)
		}
	}
	return out
}

// Start returns the first position. Undefined on an empty span.
func (s Span) Start() int { return s[0] }

// End returns the last position. Undefined on an empty span.
func (s Span) End() int { return s[len(s)-1] }

// Len returns the number of positions.
func (s Span) Len() int { return len(s) }

// Contains reports whether p is one of the span's positions.
func (s Span) Contains(p int) bool {
	i := sort.SearchInts(s, p)
	return i < len(s) && s[i] == p
}

// SubsetOf reports whether every position of s is in other.
func (s Span) SubsetOf(other Span) bool {
	if len(s) > len(other) {
		return false
	}
	for _, p := range s {
		if !other.Contains(p) {
			return false
		}
	}
	return true
}

// Overlaps reports whether the two spans share at least one position.
func (s Span) Overlaps(other Span) bool {
	if len(s) == 0 || len(other) == 0 {
		return false
	}
	// Walk the shorter, probe the longer.
	a, b := s, other
	if len(b) < len(a) {
		a, b = b, a
	}
	for _, p := range a {
		if b.Contains(p) {
			return true
		}
	}
	return false
}

// OverlapLen returns the number of shared positions.
func (s Span) OverlapLen(other Span) int {
	a, b := s, other
	if len(b) < len(a) {
		a, b = b, a
	}
	n := 0
	for _, p := range a {
		if b.Contains(p) {
			n++
		}
	}
	return n
}

// Equal reports whether the two spans hold the same positions.
func (s Span) Equal(other Span) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}
