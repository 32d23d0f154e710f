package rule

import (
	"fmt"
	"os"
	"sort"
)

// License is a catalog entry: a key, the canonical license text and an
// optional SPDX-style text. On disk an entry is up to three co-located
// files sharing the key as base name:
//
//	<key>.yml      license data
//	<key>.LICENSE  the license text
//	<key>.SPDX     the SPDX license text
type License struct {
	Key       string `yaml:"key"`
	ShortName string `yaml:"short_name,omitempty"`
	Name      string `yaml:"name,omitempty"`
	Category  string `yaml:"category,omitempty"`
	Owner     string `yaml:"owner,omitempty"`
	Notes     string `yaml:"notes,omitempty"`
	SPDXKey   string `yaml:"spdx_license_key,omitempty"`
	Obsolete  bool   `yaml:"obsolete,omitempty"`

	// TextFile and SPDXFile locate the text payloads. Empty when the
	// license was built from inline text (tests).
	TextFile string `yaml:"-"`
	SPDXFile string `yaml:"-"`

	text     string
	spdxText string
}

// NewLicense returns a License with inline texts, bypassing file reads.
func NewLicense(key, text, spdxText string) *License {
	return &License{Key: key, text: text, spdxText: spdxText}
}

// Text returns the canonical license text, reading the text file on
// demand. A missing file yields an empty text, not an error: not every
// catalog entry carries a full text.
func (l *License) Text() (string, error) {
	return readOptional(l.text, l.TextFile)
}

// SPDXText returns the SPDX-style license text, if any.
func (l *License) SPDXText() (string, error) {
	if l.SPDXKey == "" && l.spdxText == "" {
		return "", nil
	}
	return readOptional(l.spdxText, l.SPDXFile)
}

func readOptional(inline, path string) (string, error) {
	if inline != "" || path == "" {
		return inline, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", &LoadError{Path: path, Err: err}
	}
	return string(data), nil
}

// RulesFromLicenses builds detection rules from license texts: one rule
// per primary text and one per SPDX text, each signaling exactly its
// source license key. Keys are visited in sorted order so rule precedence
// is deterministic.
func RulesFromLicenses(licenses map[string]*License) ([]*Rule, error) {
	keys := make([]string, 0, len(licenses))
	for k := range licenses {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var rules []*Rule
	for _, key := range keys {
		lic := licenses[key]
		text, err := lic.Text()
		if err != nil {
			return nil, err
		}
		if text != "" {
			r := &Rule{RID: -1, Licenses: []string{key}, TextFile: lic.TextFile, text: text}
			rules = append(rules, r)
		}
		spdx, err := lic.SPDXText()
		if err != nil {
			return nil, err
		}
		if spdx != "" {
			r := &Rule{RID: -1, Licenses: []string{key}, TextFile: lic.SPDXFile, text: spdx}
			rules = append(rules, r)
		}
	}
	return rules, nil
}

// CheckLicenses verifies that every license key referenced by a rule names
// a known catalog license.
func CheckLicenses(rules []*Rule, licenses map[string]*License) error {
	for _, r := range rules {
		for _, key := range r.Licenses {
			if _, ok := licenses[key]; !ok {
				return &LoadError{
					Path: r.Identifier(),
					Err:  fmt.Errorf("unknown license key %q", key),
				}
			}
		}
	}
	return nil
}
