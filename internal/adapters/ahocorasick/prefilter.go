// Package ahocorasick narrows the candidate rule set before alignment
// using multi-pattern string matching. It wraps the
// petar-dambovaliev/aho-corasick library: every rule contributes its
// starter phrase as a pattern, and a single O(n) pass over a document's
// normalized text yields the rules whose phrase occurs at all. A strictly
// aligned match always contains its rule's starter phrase contiguously,
// so dropping rules whose phrase is absent is safe for exact scans.
package ahocorasick

import (
	aho "github.com/petar-dambovaliev/aho-corasick"
)

// Prefilter holds a compiled automaton over rule starter phrases.
type Prefilter struct {
	automaton aho.AhoCorasick
	// rids[i] lists the rule ids sharing pattern i. Distinct rules
	// often open with the same phrase.
	rids [][]int32
}

// NewPrefilter compiles an automaton from starter phrases indexed by rule
// id, as produced by the index build.
func NewPrefilter(starters []string) *Prefilter {
	byPhrase := make(map[string]int) // phrase -> pattern index
	var patterns []string
	var rids [][]int32

	for rid, phrase := range starters {
		i, ok := byPhrase[phrase]
		if !ok {
			i = len(patterns)
			byPhrase[phrase] = i
			patterns = append(patterns, phrase)
			rids = append(rids, nil)
		}
		rids[i] = append(rids[i], int32(rid))
	}

	builder := aho.NewAhoCorasickBuilder(aho.Opts{
		MatchOnlyWholeWords: true,
		DFA:                 true,
	})
	return &Prefilter{
		automaton: builder.Build(patterns),
		rids:      rids,
	}
}

// Candidates returns the ids of rules whose starter phrase occurs in the
// normalized document text. Nil when nothing matches.
func (p *Prefilter) Candidates(normalized string) map[int32]struct{} {
	if len(p.rids) == 0 || normalized == "" {
		return nil
	}

	var out map[int32]struct{}
	iter := p.automaton.IterOverlapping(normalized)
	for next := iter.Next(); next != nil; next = iter.Next() {
		if out == nil {
			out = make(map[int32]struct{})
		}
		for _, rid := range p.rids[next.Pattern()] {
			out[rid] = struct{}{}
		}
	}
	return out
}
