// Package bbolt persists built index snapshots using bbolt (embedded
// B+ tree). A snapshot is keyed by the catalog tree checksum it was built
// from: loading with a different checksum is a miss, so a stale snapshot
// can never serve a modified catalog. Writes are transactional, a crash
// mid-write cannot corrupt a previously committed snapshot.
package bbolt

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/balusarakesh/dje-license-search/internal/domain/index"
	"github.com/balusarakesh/dje-license-search/internal/domain/rule"
)

// Bucket and key names.
var (
	bucketSnapshot = []byte("snapshot")
	keyChecksum    = []byte("checksum")
	keyRules       = []byte("rules")
)

// Store persists one index snapshot per database file.
type Store struct {
	db *bolt.DB
}

// NewStore opens (or creates) a bbolt database at the given path.
func NewStore(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("bbolt open: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying bbolt database.
func (s *Store) Close() error {
	return s.db.Close()
}

// ruleJSON is the serialized form of one indexed rule: the tokenized
// content plus the metadata needed to rebuild an equivalent rule without
// touching the catalog files.
type ruleJSON struct {
	Tokens          []string `json:"tokens"`
	Gaps            []int    `json:"gaps,omitempty"`
	Licenses        []string `json:"licenses,omitempty"`
	LicenseChoice   bool     `json:"license_choice,omitempty"`
	Notes           string   `json:"notes,omitempty"`
	ExpectedFailure bool     `json:"expected_failure,omitempty"`
	DataFile        string   `json:"data_file,omitempty"`
	TextFile        string   `json:"text_file,omitempty"`
}

// SaveIndex persists a snapshot of the index under the given catalog
// checksum, replacing any previous snapshot.
func (s *Store) SaveIndex(checksum string, ix *index.Index) error {
	if ix == nil {
		return fmt.Errorf("nil index")
	}

	serialized := make([]ruleJSON, 0, ix.Len())
	for _, r := range ix.Rules() {
		toks, err := r.Tokens()
		if err != nil {
			return err
		}
		var gaps []int
		for g := range r.Gaps() {
			gaps = append(gaps, g)
		}
		sort.Ints(gaps)
		serialized = append(serialized, ruleJSON{
			Tokens:          toks,
			Gaps:            gaps,
			Licenses:        r.Licenses,
			LicenseChoice:   r.LicenseChoice,
			Notes:           r.Notes,
			ExpectedFailure: r.ExpectedFailure,
			DataFile:        r.DataFile,
			TextFile:        r.TextFile,
		})
	}
	rulesJSON, err := json.Marshal(serialized)
	if err != nil {
		return fmt.Errorf("marshal rules: %w", err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(bucketSnapshot); err != nil && err != bolt.ErrBucketNotFound {
			return err
		}
		b, err := tx.CreateBucket(bucketSnapshot)
		if err != nil {
			return err
		}
		if err := b.Put(keyChecksum, []byte(checksum)); err != nil {
			return err
		}
		return b.Put(keyRules, rulesJSON)
	})
}

// LoadIndex rebuilds the index from the persisted snapshot. Returns
// nil, nil when no snapshot exists or the stored checksum differs, in
// which case the caller rebuilds from the catalog.
func (s *Store) LoadIndex(checksum string) (*index.Index, error) {
	var rulesJSON []byte
	var stored string

	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSnapshot)
		if b == nil {
			return nil
		}
		stored = string(b.Get(keyChecksum))
		// bbolt slices are only valid within the transaction.
		if v := b.Get(keyRules); v != nil {
			rulesJSON = make([]byte, len(v))
			copy(rulesJSON, v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if rulesJSON == nil || stored != checksum {
		return nil, nil
	}

	var serialized []ruleJSON
	if err := json.Unmarshal(rulesJSON, &serialized); err != nil {
		return nil, fmt.Errorf("unmarshal rules: %w", err)
	}

	rules := make([]*rule.Rule, 0, len(serialized))
	for _, rj := range serialized {
		meta := rule.Metadata{
			Licenses:        rj.Licenses,
			LicenseChoice:   rj.LicenseChoice,
			Notes:           rj.Notes,
			ExpectedFailure: rj.ExpectedFailure,
		}
		rules = append(rules, rule.Restored(rj.Tokens, rj.Gaps, meta, rj.DataFile, rj.TextFile))
	}
	return index.Build(rules)
}
