package index

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/balusarakesh/dje-license-search/internal/domain/rule"
)

func buildIndex(t *testing.T, rules ...*rule.Rule) *Index {
	t.Helper()
	ix, err := Build(rules)
	require.NoError(t, err)
	return ix
}

func TestMatchQueryExact(t *testing.T) {
	ix := buildIndex(t, rule.New("licensed under the Apache License", "apache-2.0"))

	q := ix.QueryText("This code is licensed under the Apache License.")
	matches := ix.MatchQuery(q, DefaultOptions())

	require.Len(t, matches, 1)
	m := matches[0]
	assert.Equal(t, []string{"apache-2.0"}, m.Rule.Licenses)
	assert.Equal(t, 100.0, m.Score)
	assert.Equal(t, 3, m.QSpan.Start())
	assert.Equal(t, 7, m.QSpan.End())
	assert.Equal(t, 5, m.QSpan.Len())
	assert.Equal(t, 5, m.ISpan.Len())
}

func TestMatchQueryNoSharedVocabulary(t *testing.T) {
	ix := buildIndex(t, rule.New("licensed under the Apache License", "apache-2.0"))

	q := ix.QueryText("completely unrelated words here")
	assert.Empty(t, ix.MatchQuery(q, DefaultOptions()))
}

func TestMatchQueryEmptyQuery(t *testing.T) {
	ix := buildIndex(t, rule.New("mit license", "mit"))

	assert.Empty(t, ix.MatchQuery(ix.QueryText(""), DefaultOptions()))
	assert.Empty(t, ix.MatchQuery(ix.QueryText("  \n\t "), DefaultOptions()))
}

func TestMatchQueryGapTolerance(t *testing.T) {
	ix := buildIndex(t, rule.New("Copyright {{}} all rights reserved", "proprietary"))

	q := ix.QueryText("Copyright 2019 Example Corp. All Rights Reserved.")
	matches := ix.MatchQuery(q, DefaultOptions())

	require.Len(t, matches, 1)
	m := matches[0]
	assert.Equal(t, 100.0, m.Score)
	// The gap swallows "2019 Example Corp" without counting against
	// the stray-token tolerance.
	assert.Equal(t, 0, m.QSpan.Start())
	assert.Equal(t, 6, m.QSpan.End())
	assert.Equal(t, 4, m.QSpan.Len())
}

func TestMatchQueryStrayTokenWithinTolerance(t *testing.T) {
	ix := buildIndex(t, rule.New("permission is hereby granted free of charge", "mit"))

	q := ix.QueryText("permission is hereby generously granted free of charge")
	matches := ix.MatchQuery(q, DefaultOptions())

	require.Len(t, matches, 1)
	assert.Equal(t, 100.0, matches[0].Score)
	assert.Equal(t, 7, matches[0].QSpan.Len())
}

func TestMatchQueryStrayTokensBeyondTolerance(t *testing.T) {
	ix := buildIndex(t, rule.New("permission is hereby granted", "mit"))

	// Three inserted tokens exceed the default tolerance of two, so
	// "granted" falls outside the window and full coverage fails.
	q := ix.QueryText("permission is hereby quite generously and unconditionally granted")
	assert.Empty(t, ix.MatchQuery(q, DefaultOptions()))

	opts := DefaultOptions()
	opts.MaxTokenDist = 4
	matches := ix.MatchQuery(q, opts)
	require.Len(t, matches, 1)
	assert.Equal(t, 100.0, matches[0].Score)
}

func TestMatchQueryMinScore(t *testing.T) {
	ix := buildIndex(t, rule.New("one two three four", "test"))

	q := ix.QueryText("one two something else entirely")

	assert.Empty(t, ix.MatchQuery(q, DefaultOptions()))

	opts := DefaultOptions()
	opts.MinScore = 50
	matches := ix.MatchQuery(q, opts)
	require.Len(t, matches, 1)
	assert.Equal(t, 50.0, matches[0].Score)
	assert.Equal(t, 2, matches[0].QSpan.Len())
}

func TestMatchQueryLateFragment(t *testing.T) {
	ix := buildIndex(t, rule.New("alpha beta gamma delta", "test"))

	// Only the tail of the rule appears; a sub-100 scan must still
	// anchor on it.
	q := ix.QueryText("unrelated prelude gamma delta")
	opts := DefaultOptions()
	opts.MinScore = 50
	matches := ix.MatchQuery(q, opts)

	require.Len(t, matches, 1)
	assert.Equal(t, 50.0, matches[0].Score)
	assert.Equal(t, 2, matches[0].QSpan.Start())
}

func TestMatchQueryOverlapResolution(t *testing.T) {
	ix := buildIndex(t,
		rule.New("GNU General Public License version 2", "gpl-2.0"),
		rule.New("General Public License", "gpl"),
	)

	q := ix.QueryText("Released under the GNU General Public License version 2.")
	matches := ix.MatchQuery(q, DefaultOptions())

	// The shorter rule's span is contained in the longer one's and is
	// subsumed.
	require.Len(t, matches, 1)
	assert.Equal(t, []string{"gpl-2.0"}, matches[0].Rule.Licenses)
}

func TestMatchQueryNegativeSuppression(t *testing.T) {
	ix := buildIndex(t,
		rule.New("MIT license", "mit"),
		rule.New("not released under the MIT license"),
	)

	q := ix.QueryText("This file is not released under the MIT license at all.")
	assert.Empty(t, ix.MatchQuery(q, DefaultOptions()))

	opts := DefaultOptions()
	opts.CheckNegative = false
	matches := ix.MatchQuery(q, opts)
	require.Len(t, matches, 1)
	assert.Equal(t, []string{"mit"}, matches[0].Rule.Licenses)
}

func TestMatchQueryNegativeRequiresFullCover(t *testing.T) {
	ix := buildIndex(t,
		rule.New("MIT license", "mit"),
		rule.New("not the MIT license of record"),
	)

	// The negative rule only partially appears, so its strict
	// alignment fails and nothing is suppressed.
	q := ix.QueryText("distributed under the MIT license")
	matches := ix.MatchQuery(q, DefaultOptions())
	require.Len(t, matches, 1)
	assert.Equal(t, []string{"mit"}, matches[0].Rule.Licenses)
}

func TestMatchQueryNegativeNeverReported(t *testing.T) {
	ix := buildIndex(t, rule.New("see license in file"))

	q := ix.QueryText("see license in file")
	assert.Empty(t, ix.MatchQuery(q, DefaultOptions()))
}

func TestMatchQueryCandidateRestriction(t *testing.T) {
	mit := rule.New("MIT license", "mit")
	bsd := rule.New("BSD license", "bsd-new")
	ix := buildIndex(t, mit, bsd)

	q := ix.QueryText("MIT license and BSD license")

	matches := ix.MatchQuery(q, DefaultOptions())
	require.Len(t, matches, 2)

	opts := DefaultOptions()
	opts.Candidates = map[int32]struct{}{int32(bsd.RID): {}}
	matches = ix.MatchQuery(q, opts)
	require.Len(t, matches, 1)
	assert.Equal(t, []string{"bsd-new"}, matches[0].Rule.Licenses)
}

func TestMatchQueryOrderedByPosition(t *testing.T) {
	ix := buildIndex(t,
		rule.New("Apache License", "apache-2.0"),
		rule.New("MIT license", "mit"),
	)

	q := ix.QueryText("MIT license first, then the Apache License")
	matches := ix.MatchQuery(q, DefaultOptions())

	require.Len(t, matches, 2)
	assert.Equal(t, []string{"mit"}, matches[0].Rule.Licenses)
	assert.Equal(t, []string{"apache-2.0"}, matches[1].Rule.Licenses)
	assert.Less(t, matches[0].QSpan.Start(), matches[1].QSpan.Start())
}

func TestMatchQueryLines(t *testing.T) {
	ix := buildIndex(t, rule.New("licensed under the MIT license", "mit"))

	q := ix.QueryText("Some header.\n\nThis file is\nlicensed under the\nMIT license.\n")
	matches := ix.MatchQuery(q, DefaultOptions())

	require.Len(t, matches, 1)
	assert.Equal(t, [2]int32{4, 5}, matches[0].Lines)
}

func TestMatchQueryInvalidMinScore(t *testing.T) {
	ix := buildIndex(t, rule.New("mit license", "mit"))
	q := ix.QueryText("mit license")

	assert.Panics(t, func() {
		ix.MatchQuery(q, Options{MinScore: 101})
	})
	assert.Panics(t, func() {
		ix.MatchQuery(q, Options{MinScore: -1})
	})
}

func TestMatchFile(t *testing.T) {
	ix := buildIndex(t, rule.New("licensed under the Apache License, Version 2.0", "apache-2.0"))

	dir := t.TempDir()
	path := filepath.Join(dir, "NOTICE")
	require.NoError(t, os.WriteFile(path, []byte("This component is licensed under the Apache License, Version 2.0.\n"), 0o644))

	matches, err := ix.Match(path, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, 100.0, matches[0].Score)

	_, err = ix.Match(filepath.Join(dir, "missing"), DefaultOptions())
	assert.Error(t, err)
}
