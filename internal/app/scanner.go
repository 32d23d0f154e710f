package app

import (
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/balusarakesh/dje-license-search/internal/domain/index"
)

// FileResult is the outcome of scanning one document. A failed file
// carries its error here instead of aborting the whole scan.
type FileResult struct {
	Location string
	Matches  []index.Match
	Err      error
}

// ScanFile matches a single document against the index, going through
// the per-file memoization cache. Strictly contiguous full-coverage scans
// are additionally pruned by the starter-phrase prefilter before any
// alignment work.
func (s *Service) ScanFile(location string, opts index.Options) ([]index.Match, error) {
	ix, err := s.Index()
	if err != nil {
		return nil, err
	}

	// Caller-supplied candidate sets are not part of the cache key, so
	// such scans bypass memoization entirely.
	memoize := opts.Candidates == nil

	variant := optionsVariant(opts)
	if memoize {
		if matches, ok := s.cache.Get(location, variant); ok {
			debugf("scan cache hit: %s", location)
			return matches, nil
		}
	}

	q, err := ix.QueryFile(location)
	if err != nil {
		return nil, err
	}

	if opts.Candidates == nil && opts.MinScore >= 100 && opts.MaxTokenDist == 0 {
		// A strictly aligned full match always contains its rule's
		// starter phrase contiguously, so the automaton pass is a
		// sound prune. Insertion-tolerant scans cannot use it.
		s.mu.Lock()
		pf := s.prefilter
		s.mu.Unlock()
		if pf != nil {
			cands := pf.Candidates(q.Normalized())
			if len(cands) == 0 {
				if memoize {
					s.cache.Put(location, variant, nil)
				}
				return nil, nil
			}
			opts.Candidates = cands
		}
	}

	start := time.Now()
	matches := ix.MatchQuery(q, opts)
	debugf("scan %s: %d matches in %s", location, len(matches), time.Since(start).Round(time.Microsecond))

	if memoize {
		s.cache.Put(location, variant, matches)
	}
	return matches, nil
}

// ScanFiles scans documents concurrently with at most jobs workers
// (NumCPU when jobs <= 0). Results keep the input order; per-file errors
// are recorded, not fatal. The index is built once up front so workers
// never race on construction.
func (s *Service) ScanFiles(locations []string, opts index.Options, jobs int) ([]FileResult, error) {
	if _, err := s.Index(); err != nil {
		return nil, err
	}
	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}
	if jobs > len(locations) {
		jobs = len(locations)
	}

	results := make([]FileResult, len(locations))
	work := make(chan int)
	var wg sync.WaitGroup

	for w := 0; w < jobs; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range work {
				loc := locations[i]
				matches, err := s.ScanFile(loc, opts)
				results[i] = FileResult{Location: loc, Matches: matches, Err: err}
			}
		}()
	}
	for i := range locations {
		work <- i
	}
	close(work)
	wg.Wait()

	return results, nil
}

// optionsVariant tags a matching configuration for cache keying.
func optionsVariant(opts index.Options) string {
	return fmt.Sprintf("%g|%t|%d", opts.MinScore, opts.CheckNegative, opts.MaxTokenDist)
}
