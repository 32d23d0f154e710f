package rule

import "fmt"

// LoadError reports a malformed or missing rule/license source: unreadable
// files, bad YAML, duplicate keys, orphaned file pairs, or a rule that has
// no effective tokens. Load errors abort index construction; a partially
// built index would silently under-detect.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("load: %v", e.Err)
	}
	return fmt.Sprintf("load %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// ValidationError reports an internal invariant violation, such as a gap
// surviving at a boundary position. It marks a defect, not a runtime
// condition to recover from.
type ValidationError struct {
	Rule string
	Msg  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid rule %s: %s", e.Rule, e.Msg)
}
