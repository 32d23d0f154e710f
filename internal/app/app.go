// Package app wires the catalog, index, and adapters into a scanning
// service. It owns index lifecycle: lazy one-time construction, optional
// persistence through the bbolt snapshot store, and invalidation when the
// catalog changes on disk.
package app

import (
	"fmt"
	"sync"
	"time"

	"github.com/balusarakesh/dje-license-search/internal/adapters/ahocorasick"
	"github.com/balusarakesh/dje-license-search/internal/adapters/bbolt"
	"github.com/balusarakesh/dje-license-search/internal/adapters/catalog"
	fsw "github.com/balusarakesh/dje-license-search/internal/adapters/fsnotify"
	"github.com/balusarakesh/dje-license-search/internal/adapters/matchcache"
	"github.com/balusarakesh/dje-license-search/internal/domain/index"
	"github.com/balusarakesh/dje-license-search/internal/domain/rule"
)

// Config locates the catalog and the optional snapshot database.
type Config struct {
	// LicenseDir holds <key>.LICENSE, <key>.SPDX and <key>.yml files.
	LicenseDir string
	// RuleDir holds <base>.RULE + <base>.yml pairs.
	RuleDir string
	// CacheDB is the bbolt snapshot path; empty disables persistence.
	CacheDB string
}

// Service is the top-level container. The index is built at most once per
// catalog state; every matcher call receives the index explicitly.
type Service struct {
	cfg Config

	mu        sync.Mutex
	once      *sync.Once
	ix        *index.Index
	ixErr     error
	licenses  map[string]*rule.License
	prefilter *ahocorasick.Prefilter

	cache   *matchcache.Cache
	watcher *fsw.Watcher
}

// NewService creates a service over the given catalog. Nothing is loaded
// until the first Index call.
func NewService(cfg Config) *Service {
	return &Service{
		cfg:   cfg,
		once:  new(sync.Once),
		cache: matchcache.New(),
	}
}

// Index returns the built index, constructing it on first use. Concurrent
// callers share one construction; a failed build is returned to all of
// them and retried only after Invalidate.
func (s *Service) Index() (*index.Index, error) {
	for {
		s.mu.Lock()
		once := s.once
		s.mu.Unlock()

		once.Do(func() { s.build(once) })

		s.mu.Lock()
		if s.once == once {
			ix, err := s.ix, s.ixErr
			s.mu.Unlock()
			return ix, err
		}
		// Invalidated while building; retry against the new slot.
		s.mu.Unlock()
	}
}

// Licenses returns the catalog licenses by key, loading them on first
// use alongside the index.
func (s *Service) Licenses() (map[string]*rule.License, error) {
	if _, err := s.Index(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.licenses == nil {
		// Snapshot hit: rules came from the store, licenses did not.
		lics, err := catalog.LoadLicenses(s.cfg.LicenseDir)
		if err != nil {
			return nil, err
		}
		s.licenses = lics
	}
	return s.licenses, nil
}

// build loads or constructs the index exactly once per catalog state.
// once identifies the lifecycle slot the build was started under; a result
// whose slot was invalidated mid-build is discarded, never committed.
func (s *Service) build(once *sync.Once) {
	start := time.Now()
	ix, lics, err := s.loadOrBuild()

	s.mu.Lock()
	if s.once != once {
		s.mu.Unlock()
		debugf("index build discarded: catalog changed during build")
		return
	}
	s.ix, s.ixErr = ix, err
	s.licenses = lics
	if err == nil {
		s.prefilter = ahocorasick.NewPrefilter(ix.Starters())
	}
	s.mu.Unlock()

	if err == nil {
		debugf("index ready: %d rules in %s", ix.Len(), time.Since(start).Round(time.Millisecond))
	}
}

func (s *Service) loadOrBuild() (*index.Index, map[string]*rule.License, error) {
	sum, err := TreeChecksum(s.cfg.LicenseDir, s.cfg.RuleDir)
	if err != nil {
		return nil, nil, err
	}

	if s.cfg.CacheDB != "" {
		store, err := bbolt.NewStore(s.cfg.CacheDB)
		if err != nil {
			return nil, nil, err
		}
		defer store.Close()

		ix, err := store.LoadIndex(sum)
		if err != nil {
			return nil, nil, err
		}
		if ix != nil {
			debugf("index snapshot hit (%s)", sum[:12])
			return ix, nil, nil
		}

		ix, lics, err := s.buildFromCatalog()
		if err != nil {
			return nil, nil, err
		}
		if err := store.SaveIndex(sum, ix); err != nil {
			return nil, nil, fmt.Errorf("save index snapshot: %w", err)
		}
		return ix, lics, nil
	}

	return s.buildFromCatalog()
}

func (s *Service) buildFromCatalog() (*index.Index, map[string]*rule.License, error) {
	rules, lics, err := catalog.Load(s.cfg.LicenseDir, s.cfg.RuleDir)
	if err != nil {
		return nil, nil, err
	}
	ix, err := index.Build(rules)
	if err != nil {
		return nil, nil, err
	}
	return ix, lics, nil
}

// Invalidate drops the built index and memoized results. The next Index
// call rebuilds from the catalog (or the snapshot, when still valid).
func (s *Service) Invalidate() {
	s.mu.Lock()
	s.once = new(sync.Once)
	s.ix, s.ixErr = nil, nil
	s.licenses = nil
	s.prefilter = nil
	s.mu.Unlock()
	s.cache.Flush()
	debugf("index invalidated")
}

// Watch starts monitoring the catalog directories, invalidating the index
// on any rule or license change. notify, when non-nil, runs after each
// invalidation. Stop releases the watcher.
func (s *Service) Watch(notify func()) error {
	w, err := fsw.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Watch([]string{s.cfg.LicenseDir, s.cfg.RuleDir}, func(path string) {
		debugf("catalog changed: %s", path)
		s.Invalidate()
		if notify != nil {
			notify()
		}
	}); err != nil {
		w.Stop() //nolint:errcheck // already failing
		return err
	}
	s.mu.Lock()
	s.watcher = w
	s.mu.Unlock()
	return nil
}

// Close stops the catalog watcher, if any.
func (s *Service) Close() error {
	s.mu.Lock()
	w := s.watcher
	s.watcher = nil
	s.mu.Unlock()
	if w != nil {
		return w.Stop()
	}
	return nil
}
