package app

import (
	"strings"

	"github.com/balusarakesh/dje-license-search/internal/domain/index"
	"github.com/balusarakesh/dje-license-search/internal/domain/tokenize"
)

const (
	noMatch   = "<no-match>"
	wrapWidth = 80
)

// Texts holds aligned excerpts of a match for side-by-side diagnostics:
// the matched document region and the matched rule region, original
// casing preserved, with a placeholder at every unaligned position.
type Texts struct {
	Query string
	Rule  string
}

// MatchTexts reconstructs the matched excerpts from the original document
// content. Positions inside the matched region that did not align (stray
// document tokens, skipped rule tokens, gap content) render as the
// placeholder, so the two texts can be read against each other.
func MatchTexts(m index.Match, doc string) (Texts, error) {
	qtoks := tokenize.Words(doc, false)
	var qparts []string
	for pos := m.QSpan.Start(); pos <= m.QSpan.End(); pos++ {
		if m.QSpan.Contains(pos) {
			qparts = append(qparts, qtoks[pos])
		} else {
			qparts = append(qparts, noMatch)
		}
	}

	rtoks, err := m.Rule.TokensPreserved()
	if err != nil {
		return Texts{}, err
	}
	var rparts []string
	for pos := m.ISpan.Start(); pos <= m.ISpan.End(); pos++ {
		if m.ISpan.Contains(pos) {
			rparts = append(rparts, rtoks[pos])
		} else {
			rparts = append(rparts, noMatch)
		}
	}

	return Texts{
		Query: wrap(qparts, wrapWidth),
		Rule:  wrap(rparts, wrapWidth),
	}, nil
}

// wrap joins words with spaces, breaking lines before width overflows.
func wrap(words []string, width int) string {
	var b strings.Builder
	lineLen := 0
	for i, w := range words {
		if i > 0 {
			if lineLen+1+len(w) > width {
				b.WriteByte('\n')
				lineLen = 0
			} else {
				b.WriteByte(' ')
				lineLen++
			}
		}
		b.WriteString(w)
		lineLen += len(w)
	}
	return b.String()
}
