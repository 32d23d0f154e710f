package index

// Dictionary maps token strings to small integer ids and back. Ids are
// assigned in first-seen order during the index build, then the dictionary
// is frozen: query processing never adds to it, so concurrent reads need
// no locking.
type Dictionary struct {
	ids    map[string]int32
	tokens []string
}

// NewDictionary returns an empty dictionary.
func NewDictionary() *Dictionary {
	return &Dictionary{ids: make(map[string]int32)}
}

// Add returns the id for tok, assigning the next id on first sight.
// Build-phase only.
func (d *Dictionary) Add(tok string) int32 {
	if id, ok := d.ids[tok]; ok {
		return id
	}
	id := int32(len(d.tokens))
	d.ids[tok] = id
	d.tokens = append(d.tokens, tok)
	return id
}

// ID returns the id for tok and whether the token is known.
func (d *Dictionary) ID(tok string) (int32, bool) {
	id, ok := d.ids[tok]
	return id, ok
}

// Token returns the string for a known id.
func (d *Dictionary) Token(id int32) string { return d.tokens[int(id)] }

// Len returns the number of known tokens.
func (d *Dictionary) Len() int { return len(d.tokens) }

// Tokens returns the id-ordered token list. Callers must not mutate it.
func (d *Dictionary) Tokens() []string { return d.tokens }
