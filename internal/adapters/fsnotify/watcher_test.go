package fsnotify

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// waitForCallback waits up to timeout for the callback channel to receive
// a value.
func waitForCallback(ch <-chan string, timeout time.Duration) (string, bool) {
	select {
	case v := <-ch:
		return v, true
	case <-time.After(timeout):
		return "", false
	}
}

func startWatcher(t *testing.T, dirs []string) chan string {
	t.Helper()
	w, err := NewWatcher()
	require.NoError(t, err)
	t.Cleanup(func() { w.Stop() })

	changed := make(chan string, 10)
	require.NoError(t, w.Watch(dirs, func(path string) {
		changed <- path
	}))

	// Give the watcher time to start.
	time.Sleep(50 * time.Millisecond)
	return changed
}

func TestWatcherDetectsRuleEdit(t *testing.T) {
	dir := t.TempDir()
	ruleFile := filepath.Join(dir, "mit_1.RULE")
	require.NoError(t, os.WriteFile(ruleFile, []byte("mit license"), 0o644))

	changed := startWatcher(t, []string{dir})

	require.NoError(t, os.WriteFile(ruleFile, []byte("the mit license"), 0o644))

	path, ok := waitForCallback(changed, 2*time.Second)
	assert.True(t, ok, "expected callback for rule edit")
	assert.Equal(t, ruleFile, path)
}

func TestWatcherDetectsNewLicense(t *testing.T) {
	dir := t.TempDir()
	changed := startWatcher(t, []string{dir})

	licFile := filepath.Join(dir, "mit.LICENSE")
	require.NoError(t, os.WriteFile(licFile, []byte("MIT License"), 0o644))

	path, ok := waitForCallback(changed, 2*time.Second)
	assert.True(t, ok, "expected callback for new license")
	assert.Equal(t, licFile, path)
}

func TestWatcherIgnoresUnrelatedFiles(t *testing.T) {
	dir := t.TempDir()
	changed := startWatcher(t, []string{dir})

	require.NoError(t, os.WriteFile(filepath.Join(dir, "scratch.txt"), []byte("notes"), 0o644))

	_, ok := waitForCallback(changed, 300*time.Millisecond)
	assert.False(t, ok, "unrelated file must not trigger a callback")
}

func TestWatcherStopIsIdempotent(t *testing.T) {
	w, err := NewWatcher()
	require.NoError(t, err)
	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop())
}
