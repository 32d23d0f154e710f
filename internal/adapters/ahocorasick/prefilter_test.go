package ahocorasick

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCandidates(t *testing.T) {
	p := NewPrefilter([]string{
		"permission is hereby granted", // rid 0
		"licensed under the apache",    // rid 1
		"copyright",                    // rid 2
	})

	got := p.Candidates("this code is licensed under the apache license version 2")
	require.Len(t, got, 1)
	assert.Contains(t, got, int32(1))

	assert.Nil(t, p.Candidates("nothing related here"))
	assert.Nil(t, p.Candidates(""))
}

func TestCandidatesSharedPhrase(t *testing.T) {
	p := NewPrefilter([]string{
		"gnu general public license", // rid 0
		"gnu general public license", // rid 1
		"mit",                        // rid 2
	})

	got := p.Candidates("released under the gnu general public license version 2")
	assert.Contains(t, got, int32(0))
	assert.Contains(t, got, int32(1))
	assert.NotContains(t, got, int32(2))
}

func TestCandidatesWholeWordsOnly(t *testing.T) {
	p := NewPrefilter([]string{"mit"})

	// "permit" must not surface the "mit" starter.
	assert.Nil(t, p.Candidates("permit granted"))
	assert.Contains(t, p.Candidates("the mit license"), int32(0))
}

func TestCandidatesMultipleRules(t *testing.T) {
	p := NewPrefilter([]string{
		"mit license",    // rid 0
		"apache license", // rid 1
	})

	got := p.Candidates("dual licensed: mit license or apache license")
	assert.Len(t, got, 2)
}
