package index

import (
	"fmt"
	"os"
	"strings"

	"github.com/balusarakesh/dje-license-search/internal/domain/tokenize"
)

// Query is a document converted to a token-id sequence against the shared
// dictionary. Tokens unknown to the catalog still get query-local ids
// allocated past the dictionary size, so equal-but-novel tokens compare
// equal to each other while never matching frozen rule vocabulary.
type Query struct {
	// Tokens holds one id per document token, in document order.
	Tokens []int32
	// LineByPos maps each token position to its 1-based line number.
	LineByPos []int32

	dictLen int32
	// byID maps known token id -> ascending query positions.
	byID map[int32][]int32
	// normalized is the space-joined lowered token stream, used by the
	// starter-phrase prefilter.
	normalized string
}

// QueryText tokenizes a document given as a string.
func (ix *Index) QueryText(text string) *Query {
	q := &Query{dictLen: int32(ix.dict.Len()), byID: make(map[int32][]int32)}
	novel := make(map[string]int32)
	nextNovel := q.dictLen

	var norm strings.Builder
	line := int32(1)
	for _, rawLine := range strings.Split(text, "\n") {
		for _, tok := range tokenize.Words(rawLine, true) {
			id, known := ix.dict.ID(tok)
			if !known {
				nid, seen := novel[tok]
				if !seen {
					nid = nextNovel
					novel[tok] = nid
					nextNovel++
				}
				id = nid
			}
			pos := int32(len(q.Tokens))
			q.Tokens = append(q.Tokens, id)
			q.LineByPos = append(q.LineByPos, line)
			if id < q.dictLen {
				q.byID[id] = append(q.byID[id], pos)
			}
			if norm.Len() > 0 {
				norm.WriteByte(' ')
			}
			norm.WriteString(tok)
		}
		line++
	}
	q.normalized = norm.String()
	return q
}

// QueryFile tokenizes the document at location. An unreadable location is
// a hard failure so callers can tell "nothing detected" from "could not
// scan".
func (ix *Index) QueryFile(location string) (*Query, error) {
	data, err := os.ReadFile(location)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", location, err)
	}
	return ix.QueryText(string(data)), nil
}

// Known reports whether the token at pos belongs to the rule vocabulary.
func (q *Query) Known(pos int) bool { return q.Tokens[pos] < q.dictLen }

// Normalized returns the lowered, punctuation-stripped document text with
// tokens joined by single spaces.
func (q *Query) Normalized() string { return q.normalized }
