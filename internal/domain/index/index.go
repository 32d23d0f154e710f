// Package index builds the frozen license detection index and matches
// documents against it. The index owns the shared token dictionary, the
// per-rule compiled token-id sequences with their gap sets, and inverted
// postings used to find candidate rules without scanning every rule.
// After Build returns, the index is read-only and safe for arbitrarily
// many concurrent Match calls.
package index

import (
	"strings"

	"github.com/balusarakesh/dje-license-search/internal/domain/rule"
)

// starterLen caps the number of leading tokens that form a rule's starter
// phrase, used by the exact-match prefilter.
const starterLen = 4

// Posting records one occurrence of a token within a rule.
type Posting struct {
	RID int32
	Pos int32
}

// compiled is the indexed form of one rule.
type compiled struct {
	rule     *rule.Rule
	tids     []int32
	gaps     map[int]struct{}
	negative bool
}

// Index is the queryable structure over all rules.
type Index struct {
	dict     *Dictionary
	rules    []compiled
	postings map[int32][]Posting
	starters []string
}

// Build tokenizes and indexes rules: duplicates are dropped, degenerate
// rules rejected, each distinct token assigned a stable id in first-seen
// order, and inverted postings populated. Any load or validation failure
// aborts the build; a partial index would silently under-detect.
func Build(rules []*rule.Rule) (*Index, error) {
	rules, err := rule.Dedupe(rules)
	if err != nil {
		return nil, err
	}

	ix := &Index{
		dict:     NewDictionary(),
		rules:    make([]compiled, 0, len(rules)),
		postings: make(map[int32][]Posting),
		starters: make([]string, 0, len(rules)),
	}

	for rid, r := range rules {
		if err := r.Validate(); err != nil {
			return nil, err
		}
		toks, err := r.Tokens()
		if err != nil {
			return nil, err
		}
		r.RID = rid

		tids := make([]int32, len(toks))
		for pos, tok := range toks {
			tid := ix.dict.Add(tok)
			tids[pos] = tid
			ix.postings[tid] = append(ix.postings[tid], Posting{RID: int32(rid), Pos: int32(pos)})
		}

		gaps := r.Gaps()
		ix.rules = append(ix.rules, compiled{
			rule:     r,
			tids:     tids,
			gaps:     gaps,
			negative: r.Negative(),
		})
		ix.starters = append(ix.starters, starterPhrase(toks, gaps))
	}
	return ix, nil
}

// starterPhrase returns the space-joined leading run of a rule: its first
// tokens up to the first gap, capped at starterLen. Any strictly aligned
// match must contain this phrase contiguously in its normalized text.
func starterPhrase(toks []string, gaps map[int]struct{}) string {
	n := len(toks)
	if n > starterLen {
		n = starterLen
	}
	for i := 0; i < n-1; i++ {
		if _, gap := gaps[i]; gap {
			n = i + 1
			break
		}
	}
	return strings.Join(toks[:n], " ")
}

// Dictionary returns the shared, frozen token dictionary.
func (ix *Index) Dictionary() *Dictionary { return ix.dict }

// Len returns the number of indexed rules.
func (ix *Index) Len() int { return len(ix.rules) }

// Rules returns the indexed rules in rid order.
func (ix *Index) Rules() []*rule.Rule {
	out := make([]*rule.Rule, len(ix.rules))
	for i := range ix.rules {
		out[i] = ix.rules[i].rule
	}
	return out
}

// Starters returns each rule's starter phrase, indexed by rid. Used by
// the app layer to build the exact-match prefilter automaton.
func (ix *Index) Starters() []string { return ix.starters }
