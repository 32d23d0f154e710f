package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/balusarakesh/dje-license-search/internal/domain/rule"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadLicenses(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "mit.yml"), "short_name: MIT\nname: MIT License\n")
	writeFile(t, filepath.Join(dir, "mit.LICENSE"), "Permission is hereby granted, free of charge")
	writeFile(t, filepath.Join(dir, "old.yml"), "name: Old License\nobsolete: true\n")

	lics, err := LoadLicenses(dir)
	require.NoError(t, err)
	require.Len(t, lics, 1)

	mit := lics["mit"]
	require.NotNil(t, mit)
	assert.Equal(t, "mit", mit.Key)
	assert.Equal(t, "MIT", mit.ShortName)

	text, err := mit.Text()
	require.NoError(t, err)
	assert.Contains(t, text, "Permission is hereby granted")
}

func TestLoadLicenses_DuplicateKey(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a", "mit.yml"), "name: MIT\n")
	writeFile(t, filepath.Join(dir, "b", "mit.yml"), "name: MIT again\n")

	_, err := LoadLicenses(dir)
	require.Error(t, err)
	var le *rule.LoadError
	assert.ErrorAs(t, err, &le)
	assert.Contains(t, err.Error(), "duplicate license key")
}

func TestLoadLicenses_DuplicateOfObsoleteKey(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a", "mit.yml"), "name: MIT\nobsolete: true\n")
	writeFile(t, filepath.Join(dir, "b", "mit.yml"), "name: MIT again\n")

	_, err := LoadLicenses(dir)
	require.Error(t, err)
	var le *rule.LoadError
	assert.ErrorAs(t, err, &le)
	assert.Contains(t, err.Error(), "duplicate license key")
}

func TestLoadLicenses_Deterministic(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "mit.yml"), "name: MIT\n")
	writeFile(t, filepath.Join(dir, "bsd.yml"), "name: BSD\n")

	first, err := LoadLicenses(dir)
	require.NoError(t, err)
	second, err := LoadLicenses(dir)
	require.NoError(t, err)
	assert.Equal(t, len(first), len(second))
	for k := range first {
		assert.Contains(t, second, k)
	}
}

func TestLoadRules(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "mit_header.yml"), "licenses:\n  - mit\n")
	writeFile(t, filepath.Join(dir, "mit_header.RULE"), "Licensed under the MIT license")
	writeFile(t, filepath.Join(dir, "not_a_license.yml"), "notes: negative rule\n")
	writeFile(t, filepath.Join(dir, "not_a_license.RULE"), "this is not a license grant")

	rules, err := LoadRules(dir)
	require.NoError(t, err)
	require.Len(t, rules, 2)

	// Lexical order by path.
	assert.Equal(t, []string{"mit"}, rules[0].Licenses)
	assert.True(t, rules[1].Negative())
}

func TestLoadRules_OrphanMetadata(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "orphan.yml"), "licenses:\n  - mit\n")

	_, err := LoadRules(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "metadata without rule text")
}

func TestLoadRules_OrphanText(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "orphan.RULE"), "some rule text")

	_, err := LoadRules(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rule text without metadata")
}

func TestLoad_EndToEnd(t *testing.T) {
	root := t.TempDir()
	licDir := filepath.Join(root, "licenses")
	ruleDir := filepath.Join(root, "rules")

	writeFile(t, filepath.Join(licDir, "mit.yml"), "name: MIT License\n")
	writeFile(t, filepath.Join(licDir, "mit.LICENSE"), "Permission is hereby granted, free of charge")
	writeFile(t, filepath.Join(ruleDir, "mit_short.yml"), "licenses:\n  - mit\n")
	writeFile(t, filepath.Join(ruleDir, "mit_short.RULE"), "Released under the MIT license")

	rules, lics, err := Load(licDir, ruleDir)
	require.NoError(t, err)
	assert.Len(t, lics, 1)
	require.Len(t, rules, 2)
	assert.Equal(t, []string{"mit"}, rules[0].Licenses)
}

func TestLoad_UnknownLicenseKey(t *testing.T) {
	root := t.TempDir()
	licDir := filepath.Join(root, "licenses")
	ruleDir := filepath.Join(root, "rules")

	writeFile(t, filepath.Join(licDir, "mit.yml"), "name: MIT License\n")
	writeFile(t, filepath.Join(ruleDir, "bad.yml"), "licenses:\n  - gone-1.0\n")
	writeFile(t, filepath.Join(ruleDir, "bad.RULE"), "some text")

	_, _, err := Load(licDir, ruleDir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gone-1.0")
}
