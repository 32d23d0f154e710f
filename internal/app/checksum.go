package app

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"path/filepath"
)

// TreeChecksum fingerprints catalog directories by path, size, and mtime
// of every file, in walk order (lexical, so deterministic). Any touched,
// added, or removed catalog file changes the sum; file contents are not
// read. Used to key index snapshots.
func TreeChecksum(dirs ...string) (string, error) {
	h := sha256.New()
	for _, dir := range dirs {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return err
			}
			fmt.Fprintf(h, "%s|%d|%d\n", path, info.Size(), info.ModTime().UnixNano())
			return nil
		})
		if err != nil {
			return "", fmt.Errorf("checksum %s: %w", dir, err)
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
