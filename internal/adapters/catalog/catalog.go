// Package catalog loads licenses and detection rules from their on-disk
// layout: a licenses subtree of <key>.yml/<key>.LICENSE/<key>.SPDX triples
// and a rules subtree of <base>.yml/<base>.RULE pairs. Loading is
// deterministic: the same directory contents always produce the same
// catalog, and structural problems (duplicate keys, orphaned files) fail
// hard instead of silently shrinking the rule set.
package catalog

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/balusarakesh/dje-license-search/internal/domain/rule"
)

const (
	licenseTextExt = ".LICENSE"
	spdxTextExt    = ".SPDX"
	ruleTextExt    = ".RULE"
	metaExt        = ".yml"
)

// LoadLicenses walks dir and returns a mapping of key -> License, keyed by
// the metadata file base name. Entries marked obsolete are skipped.
// Duplicate base names anywhere in the subtree are a load error.
func LoadLicenses(dir string) (map[string]*rule.License, error) {
	licenses := make(map[string]*rule.License)
	seen := make(map[string]struct{})

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return &rule.LoadError{Path: path, Err: err}
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), metaExt) {
			return nil
		}
		key := strings.TrimSuffix(d.Name(), metaExt)
		// Keys are claimed on first sight so an obsolete entry still
		// shadows any later duplicate of the same base name.
		if _, dup := seen[key]; dup {
			return &rule.LoadError{Path: path, Err: fmt.Errorf("duplicate license key %q", key)}
		}
		seen[key] = struct{}{}

		data, err := os.ReadFile(path)
		if err != nil {
			return &rule.LoadError{Path: path, Err: err}
		}
		var lic rule.License
		if err := yaml.Unmarshal(data, &lic); err != nil {
			return &rule.LoadError{Path: path, Err: err}
		}
		if lic.Obsolete {
			return nil
		}

		lic.Key = key
		base := strings.TrimSuffix(path, metaExt)
		lic.TextFile = base + licenseTextExt
		lic.SPDXFile = base + spdxTextExt
		licenses[key] = &lic
		return nil
	})
	if err != nil {
		return nil, err
	}
	return licenses, nil
}

// LoadRules walks dir and returns the rules defined by <base>.yml +
// <base>.RULE pairs, in lexical path order. A metadata file without its
// text payload, or a text payload without metadata, is a load error.
func LoadRules(dir string) ([]*rule.Rule, error) {
	var metaFiles []string
	paired := make(map[string]struct{})

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return &rule.LoadError{Path: path, Err: err}
		}
		if d.IsDir() {
			return nil
		}
		switch {
		case strings.HasSuffix(d.Name(), metaExt):
			metaFiles = append(metaFiles, path)
			paired[strings.TrimSuffix(path, metaExt)] = struct{}{}
		case strings.HasSuffix(d.Name(), ruleTextExt):
			// Claimed below when its metadata shows up.
		default:
			return &rule.LoadError{Path: path, Err: fmt.Errorf("unknown file in rule directory")}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Second sweep: every .RULE needs its .yml counterpart.
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ruleTextExt) {
			return nil
		}
		if _, ok := paired[strings.TrimSuffix(path, ruleTextExt)]; !ok {
			return &rule.LoadError{Path: path, Err: fmt.Errorf("rule text without metadata file")}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(metaFiles)

	rules := make([]*rule.Rule, 0, len(metaFiles))
	for _, dataFile := range metaFiles {
		textFile := strings.TrimSuffix(dataFile, metaExt) + ruleTextExt
		if _, err := os.Stat(textFile); err != nil {
			return nil, &rule.LoadError{Path: dataFile, Err: fmt.Errorf("metadata without rule text file")}
		}
		r, err := rule.FromFiles(dataFile, textFile)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, nil
}

// Load assembles the full detection rule set from a license subtree and a
// rule subtree: license texts become maximal-coverage rules, hand-authored
// rules follow, duplicates are dropped and license references checked.
func Load(licenseDir, ruleDir string) ([]*rule.Rule, map[string]*rule.License, error) {
	licenses, err := LoadLicenses(licenseDir)
	if err != nil {
		return nil, nil, err
	}
	fromLicenses, err := rule.RulesFromLicenses(licenses)
	if err != nil {
		return nil, nil, err
	}
	handAuthored, err := LoadRules(ruleDir)
	if err != nil {
		return nil, nil, err
	}

	all := append(fromLicenses, handAuthored...)
	all, err = rule.Dedupe(all)
	if err != nil {
		return nil, nil, err
	}
	if err := rule.CheckLicenses(all, licenses); err != nil {
		return nil, nil, err
	}
	return all, licenses, nil
}
