// Package rule models license detection rules and catalog licenses.
// A rule is a tokenized text pattern, possibly with {{...}} template gaps,
// associated with the license keys it signals. A rule with no licenses is
// "negative": detecting it suppresses a match instead of reporting one.
package rule

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/balusarakesh/dje-license-search/internal/domain/tokenize"
)

// Metadata is the YAML block stored next to a rule text file.
// Empty fields are omitted when written back out.
type Metadata struct {
	Licenses        []string `yaml:"licenses,omitempty"`
	LicenseChoice   bool     `yaml:"license_choice,omitempty"`
	Notes           string   `yaml:"notes,omitempty"`
	ExpectedFailure bool     `yaml:"expected_failure,omitempty"`
}

// Rule is the unit of detection. Immutable after first tokenization;
// never mutated during matching.
type Rule struct {
	// RID is assigned at index build time; -1 until then.
	RID int

	Licenses        []string
	LicenseChoice   bool
	Notes           string
	ExpectedFailure bool

	// DataFile is the YAML metadata path, TextFile the text payload
	// path. Either TextFile or inline text must be set.
	DataFile string
	TextFile string

	text string

	once   sync.Once
	tokens []string
	gaps   map[int]struct{}
	tokErr error
}

// New returns a rule from inline text, used by tests and catalog-derived
// rules.
func New(text string, licenses ...string) *Rule {
	return &Rule{RID: -1, Licenses: licenses, text: text}
}

// Restored rebuilds a rule from an index snapshot: the token stream and
// gap positions are trusted as persisted instead of being re-derived from
// TextFile, so loading a cached index touches no catalog files.
func Restored(tokens []string, gaps []int, meta Metadata, dataFile, textFile string) *Rule {
	r := &Rule{
		RID:             -1,
		Licenses:        meta.Licenses,
		LicenseChoice:   meta.LicenseChoice,
		Notes:           meta.Notes,
		ExpectedFailure: meta.ExpectedFailure,
		DataFile:        dataFile,
		TextFile:        textFile,
	}
	r.once.Do(func() {
		r.tokens = tokens
		if len(gaps) > 0 {
			r.gaps = make(map[int]struct{}, len(gaps))
			for _, g := range gaps {
				r.gaps[g] = struct{}{}
			}
		}
	})
	return r
}

// FromFiles loads a rule from its metadata file and text payload pair.
// The text itself is read lazily at first tokenization.
func FromFiles(dataFile, textFile string) (*Rule, error) {
	data, err := os.ReadFile(dataFile)
	if err != nil {
		return nil, &LoadError{Path: dataFile, Err: err}
	}
	var meta Metadata
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return nil, &LoadError{Path: dataFile, Err: err}
	}
	return &Rule{
		RID:             -1,
		Licenses:        meta.Licenses,
		LicenseChoice:   meta.LicenseChoice,
		Notes:           meta.Notes,
		ExpectedFailure: meta.ExpectedFailure,
		DataFile:        dataFile,
		TextFile:        textFile,
	}, nil
}

// Text returns the raw rule text, reading the text file when the rule was
// not built from inline text.
func (r *Rule) Text() (string, error) {
	if r.text != "" {
		return r.text, nil
	}
	if r.TextFile == "" {
		return "", nil
	}
	data, err := os.ReadFile(r.TextFile)
	if err != nil {
		return "", &LoadError{Path: r.TextFile, Err: err}
	}
	return string(data), nil
}

// Tokens returns the rule's lowercased token sequence, computed once and
// cached. Gap positions are computed alongside.
func (r *Rule) Tokens() ([]string, error) {
	r.once.Do(func() {
		text, err := r.Text()
		if err != nil {
			r.tokErr = err
			return
		}
		r.tokens, r.gaps = tokenize.Rule(text, true)
	})
	return r.tokens, r.tokErr
}

// TokensPreserved returns the token sequence with original casing, used to
// rebuild matched rule text for diagnostics. Not cached.
func (r *Rule) TokensPreserved() ([]string, error) {
	text, err := r.Text()
	if err != nil {
		return nil, err
	}
	toks, _ := tokenize.Rule(text, false)
	return toks, nil
}

// Gaps returns the set of interior gap positions. A gap at p permits
// variable text between tokens p and p+1.
func (r *Rule) Gaps() map[int]struct{} {
	r.Tokens() //nolint:errcheck // error surfaces through Tokens callers
	return r.gaps
}

// Length is the rule's non-gap token count.
func (r *Rule) Length() int {
	toks, _ := r.Tokens()
	return len(toks)
}

// Negative reports whether this rule suppresses matches rather than
// signaling licenses. Emptiness of the license set decides, not text.
func (r *Rule) Negative() bool { return len(r.Licenses) == 0 }

// ContentKey returns the structural content key used for deduplication:
// equal iff the normalized token sequences and license_choice flags are
// equal. Whitespace and gap positions do not participate.
func (r *Rule) ContentKey() (string, error) {
	toks, err := r.Tokens()
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for i, t := range toks {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(t)
	}
	b.WriteByte('\x00')
	if r.LicenseChoice {
		b.WriteByte('1')
	} else {
		b.WriteByte('0')
	}
	return b.String(), nil
}

// Identifier names the rule for messages: its text file name, or _tst_
// for inline rules.
func (r *Rule) Identifier() string {
	if r.TextFile != "" {
		return filepath.Base(r.TextFile)
	}
	return "_tst_"
}

// Validate checks the rule's invariants after tokenization: at least one
// effective token, and no gap at or beyond the boundary positions.
func (r *Rule) Validate() error {
	toks, err := r.Tokens()
	if err != nil {
		return err
	}
	if len(toks) == 0 {
		return &LoadError{Path: r.Identifier(), Err: errors.New("rule has no effective tokens")}
	}
	for g := range r.gaps {
		if g < 0 || g >= len(toks)-1 {
			return &ValidationError{Rule: r.Identifier(), Msg: fmt.Sprintf("gap at boundary position %d", g)}
		}
	}
	return nil
}

// Dump writes the rule back out as a metadata block and a text payload.
// Empty metadata fields are omitted.
func (r *Rule) Dump(dataPath, textPath string) error {
	meta := Metadata{
		Licenses:        r.Licenses,
		LicenseChoice:   r.LicenseChoice,
		Notes:           r.Notes,
		ExpectedFailure: r.ExpectedFailure,
	}
	data, err := yaml.Marshal(&meta)
	if err != nil {
		return fmt.Errorf("marshal rule metadata: %w", err)
	}
	if err := os.WriteFile(dataPath, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", dataPath, err)
	}
	text, err := r.Text()
	if err != nil {
		return err
	}
	if err := os.WriteFile(textPath, []byte(text), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", textPath, err)
	}
	return nil
}

// Dedupe returns rules with structural duplicates removed, keeping the
// first occurrence so original precedence is preserved.
func Dedupe(rules []*Rule) ([]*Rule, error) {
	seen := make(map[string]struct{}, len(rules))
	out := rules[:0:0]
	for _, r := range rules {
		key, err := r.ContentKey()
		if err != nil {
			return nil, err
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return out, nil
}
