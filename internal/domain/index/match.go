package index

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/balusarakesh/dje-license-search/internal/domain/rule"
	"github.com/balusarakesh/dje-license-search/internal/domain/span"
)

const (
	// DefaultMinScore only reports matches covering every non-gap rule
	// token.
	DefaultMinScore = 100

	// defaultMaxDist is the skip tolerance between consecutively aligned
	// tokens outside gap regions: up to this many stray query tokens may
	// sit between two matched rule tokens.
	defaultMaxDist = 2
)

// Match is one detected occurrence of a rule in a document. QSpan holds
// the document token positions aligned to non-gap rule tokens, ISpan the
// corresponding rule positions; the two always have equal cardinality.
type Match struct {
	Rule  *rule.Rule
	QSpan span.Span
	ISpan span.Span
	// Score is the percentage of the rule's non-gap tokens accounted
	// for, 0-100.
	Score float64
	// Lines is the 1-based start/end line range of the matched region.
	Lines [2]int32
}

// Options controls a matching call.
type Options struct {
	// MinScore discards matches scoring below it, 0-100.
	MinScore float64
	// CheckNegative runs negative-rule suppression.
	CheckNegative bool
	// MaxTokenDist overrides the stray-token tolerance between aligned
	// tokens; zero means strictly contiguous alignment outside gaps.
	MaxTokenDist int
	// Candidates, when non-nil, restricts alignment to these rule ids.
	// Used by the starter-phrase prefilter for strict scans.
	Candidates map[int32]struct{}
}

// DefaultOptions returns the standard matching configuration: exact
// coverage with negative suppression.
func DefaultOptions() Options {
	return Options{MinScore: DefaultMinScore, CheckNegative: true, MaxTokenDist: defaultMaxDist}
}

// Match scans the document at location and returns its matches ordered by
// query start position, then rule precedence. No match is the valid empty
// result, not an error.
func (ix *Index) Match(location string, opts Options) ([]Match, error) {
	q, err := ix.QueryFile(location)
	if err != nil {
		return nil, err
	}
	return ix.MatchQuery(q, opts), nil
}

// MatchQuery matches an already tokenized query. Safe to call from any
// number of goroutines: neither the index nor the query is mutated.
func (ix *Index) MatchQuery(q *Query, opts Options) []Match {
	if opts.MinScore < 0 || opts.MinScore > 100 {
		panic(fmt.Sprintf("min score out of range: %v", opts.MinScore))
	}
	if len(q.Tokens) == 0 {
		return nil
	}

	posCands, negCands := ix.candidates(q, opts.Candidates)

	positives := ix.alignRules(q, posCands, opts.MinScore, opts.MaxTokenDist)
	positives = resolveOverlaps(positives)

	if opts.CheckNegative && len(negCands) > 0 {
		// Negative rules align strictly and must cover fully: they
		// cancel, never report.
		negatives := ix.alignRules(q, negCands, 100, 0)
		positives = suppress(positives, negatives)
	}

	sort.SliceStable(positives, func(i, j int) bool {
		si, sj := positives[i].QSpan.Start(), positives[j].QSpan.Start()
		if si != sj {
			return si < sj
		}
		return positives[i].Rule.RID < positives[j].Rule.RID
	})
	return positives
}

// candidates returns the positive and negative rule id sets sharing at
// least one token with the query. Rules sharing zero vocabulary cannot
// match and are pruned before any alignment work. A non-nil allow set
// further restricts positives only: suppression must see every negative
// rule regardless of prefiltering.
func (ix *Index) candidates(q *Query, allow map[int32]struct{}) (pos, neg []int32) {
	seen := make(map[int32]struct{})
	for id := range q.byID {
		for _, p := range ix.postings[id] {
			seen[p.RID] = struct{}{}
		}
	}
	for rid := range seen {
		if ix.rules[rid].negative {
			neg = append(neg, rid)
			continue
		}
		if allow != nil {
			if _, ok := allow[rid]; !ok {
				continue
			}
		}
		pos = append(pos, rid)
	}
	sort.Slice(pos, func(i, j int) bool { return pos[i] < pos[j] })
	sort.Slice(neg, func(i, j int) bool { return neg[i] < neg[j] })
	return pos, neg
}

// alignRules aligns each candidate rule against the query and keeps the
// alignments reaching minScore, deduplicated by (rule, query span).
func (ix *Index) alignRules(q *Query, rids []int32, minScore float64, maxDist int) []Match {
	var out []Match
	seen := make(map[string]struct{})
	for _, rid := range rids {
		c := &ix.rules[rid]
		for _, m := range ix.alignRule(q, c, minScore, maxDist) {
			key := spanKey(rid, m.QSpan)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, m)
		}
	}
	return out
}

// alignRule tries gap-tolerant alignments of one rule at every anchor
// position and returns those reaching minScore.
func (ix *Index) alignRule(q *Query, c *compiled, minScore float64, maxDist int) []Match {
	length := len(c.tids)
	if length == 0 {
		return nil
	}

	exact := minScore >= 100

	var matches []Match
	for _, startI := range ix.anchors(q, c, exact) {
		for _, startQ := range q.byID[c.tids[startI]] {
			qpos, ipos := alignFrom(q, c, int(startQ), startI, maxDist)
			if len(qpos) == 0 {
				continue
			}
			score := roundScore(100 * float64(len(ipos)) / float64(length))
			if score < minScore {
				continue
			}
			qs, is := span.New(qpos...), span.New(ipos...)
			matches = append(matches, Match{
				Rule:  c.rule,
				QSpan: qs,
				ISpan: is,
				Score: score,
				Lines: [2]int32{q.LineByPos[qs.Start()], q.LineByPos[qs.End()]},
			})
		}
	}
	return matches
}

// anchors returns the rule positions an alignment may start from. An
// exact match must begin at the rule's first token. Sub-100 alignments
// may also begin at the head of any gap-separated run, or at the first
// rule token that occurs in the query at all, so a document carrying only
// a later fragment of the rule is still found.
func (ix *Index) anchors(q *Query, c *compiled, exact bool) []int {
	if exact {
		if len(q.byID[c.tids[0]]) == 0 {
			return nil
		}
		return []int{0}
	}

	var starts []int
	added := make(map[int]struct{})
	add := func(i int) {
		if _, ok := added[i]; ok {
			return
		}
		if len(q.byID[c.tids[i]]) == 0 {
			return
		}
		added[i] = struct{}{}
		starts = append(starts, i)
	}

	add(0)
	for g := range c.gaps {
		if g+1 < len(c.tids) {
			add(g + 1)
		}
	}
	// First rule token present in the query, wherever it sits.
	for i := range c.tids {
		if len(q.byID[c.tids[i]]) > 0 {
			add(i)
			break
		}
	}
	sort.Ints(starts)
	return starts
}

// alignFrom greedily aligns rule tokens from startI against the query,
// anchored so the first aligned pair is exactly (startQ, startI). A rule
// token absent within the allowed window is skipped (lowering the score);
// a gap between the last aligned rule position and the current one lifts
// the window entirely.
func alignFrom(q *Query, c *compiled, startQ, startI, maxDist int) (qpos, ipos []int) {
	occ := q.byID[c.tids[startI]]
	if !hasPosition(occ, int32(startQ)) {
		return nil, nil
	}
	qpos = append(qpos, startQ)
	ipos = append(ipos, startI)

	qcur := startQ + 1
	lastI := startI
	for i := startI + 1; i < len(c.tids); i++ {
		positions := q.byID[c.tids[i]]
		if len(positions) == 0 {
			continue // token unknown to the query, skip the rule token
		}
		limit := int32(math.MaxInt32)
		if !gapBetween(c.gaps, lastI, i) {
			// Widen by one per skipped rule token: a substituted word
			// in the document occupies a position too.
			limit = int32(qcur + maxDist + (i - lastI - 1))
		}
		p, ok := firstInWindow(positions, int32(qcur), limit)
		if !ok {
			continue
		}
		qpos = append(qpos, int(p))
		ipos = append(ipos, i)
		qcur = int(p) + 1
		lastI = i
	}
	return qpos, ipos
}

// gapBetween reports whether any gap position lies between two rule
// token indexes (a gap at g sits between tokens g and g+1).
func gapBetween(gaps map[int]struct{}, from, to int) bool {
	for g := from; g < to; g++ {
		if _, ok := gaps[g]; ok {
			return true
		}
	}
	return false
}

// firstInWindow returns the first position in sorted positions that falls
// in [lo, hi].
func firstInWindow(positions []int32, lo, hi int32) (int32, bool) {
	i := sort.Search(len(positions), func(i int) bool { return positions[i] >= lo })
	if i < len(positions) && positions[i] <= hi {
		return positions[i], true
	}
	return 0, false
}

func hasPosition(positions []int32, p int32) bool {
	i := sort.Search(len(positions), func(i int) bool { return positions[i] >= p })
	return i < len(positions) && positions[i] == p
}

// resolveOverlaps keeps the best match per overlapping query region:
// higher score first, then the span covering more query positions, then
// the earlier query start, then the longer (more specific) rule. A match
// whose span is a strict subset of an accepted match's span is dropped as
// subsumed.
func resolveOverlaps(matches []Match) []Match {
	sort.SliceStable(matches, func(i, j int) bool {
		a, b := &matches[i], &matches[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.QSpan.Len() != b.QSpan.Len() {
			return a.QSpan.Len() > b.QSpan.Len()
		}
		if a.QSpan.Start() != b.QSpan.Start() {
			return a.QSpan.Start() < b.QSpan.Start()
		}
		if a.Rule.Length() != b.Rule.Length() {
			return a.Rule.Length() > b.Rule.Length()
		}
		return a.Rule.RID < b.Rule.RID
	})

	var accepted []Match
	for _, m := range matches {
		keep := true
		for i := range accepted {
			a := &accepted[i]
			if m.QSpan.SubsetOf(a.QSpan) {
				keep = false
				break
			}
			if m.QSpan.Overlaps(a.QSpan) {
				// a sorted first, so it never scores lower.
				if a.Score > m.Score || a.QSpan.Len() > m.QSpan.Len() {
					keep = false
					break
				}
			}
		}
		if keep {
			accepted = append(accepted, m)
		}
	}
	return accepted
}

// suppress removes matches whose span is entirely covered by an accepted
// negative-rule match. Negative matches themselves are never reported.
func suppress(positives, negatives []Match) []Match {
	if len(negatives) == 0 {
		return positives
	}
	out := positives[:0]
	for _, p := range positives {
		covered := false
		for _, n := range negatives {
			if p.QSpan.SubsetOf(n.QSpan) {
				covered = true
				break
			}
		}
		if !covered {
			out = append(out, p)
		}
	}
	return out
}

func roundScore(s float64) float64 {
	return math.Round(s*100) / 100
}

func spanKey(rid int32, qs span.Span) string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(int(rid)))
	for _, p := range qs {
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(p))
	}
	return b.String()
}
