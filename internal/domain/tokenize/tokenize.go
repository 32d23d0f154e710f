// Package tokenize normalizes rule and query texts into word token streams.
// Both sides of a match (indexed rules and scanned documents) must use the
// same normalization, so this is the single place where it lives.
package tokenize

import (
	"regexp"
	"strings"
)

// wordRe keeps runs of letters and digits, splitting on whitespace,
// punctuation, underscore, dash and plus.
var wordRe = regexp.MustCompile(`[\p{L}\p{N}]+`)

// ruleRe additionally recognizes a template region {{...}} as its own token.
var ruleRe = regexp.MustCompile(`[\p{L}\p{N}]+|\{\{[^{}]*\}\}`)

// Words returns the normalized word tokens of text.
// Lowercasing is selectable: matching always uses lowered tokens, the
// case-preserving form is used to rebuild matched texts for diagnostics.
// Token boundaries are found on the original text and lowering is applied
// per token, so both forms of the same input share length and positions
// even where lowering introduces combining marks.
func Words(text string, lower bool) []string {
	if text == "" {
		return nil
	}
	toks := wordRe.FindAllString(text, -1)
	if lower {
		for i, tok := range toks {
			toks[i] = strings.ToLower(tok)
		}
	}
	return toks
}

// Rule tokenizes a rule text that may contain {{...}} template markers.
// It returns the word tokens and the set of interior gap positions.
// A gap at position p means variable text may occur between token p and
// token p+1. Leading and trailing markers carry no information and are
// dropped; a run of adjacent markers collapses to one gap.
func Rule(text string, lower bool) ([]string, map[int]struct{}) {
	if text == "" {
		return nil, nil
	}

	raw := ruleRe.FindAllString(text, -1)

	// Trim boundary markers.
	for len(raw) > 0 && isMarker(raw[0]) {
		raw = raw[1:]
	}
	for len(raw) > 0 && isMarker(raw[len(raw)-1]) {
		raw = raw[:len(raw)-1]
	}
	if len(raw) == 0 {
		return nil, nil
	}

	var tokens []string
	gaps := make(map[int]struct{})
	for _, tok := range raw {
		if isMarker(tok) {
			// Adjacent markers collapse: the set keyed by position
			// absorbs duplicates for free.
			gaps[len(tokens)-1] = struct{}{}
			continue
		}
		if lower {
			tok = strings.ToLower(tok)
		}
		tokens = append(tokens, tok)
	}
	if len(gaps) == 0 {
		gaps = nil
	}
	return tokens, gaps
}

func isMarker(tok string) bool {
	return strings.HasPrefix(tok, "{{")
}
