//go:build !darwin && !freebsd && !linux
// +build !darwin,!freebsd,!linux

package fs

import (
	"os"
	"path/filepath"
)

func fileKey(path string) (FileKey, error) {
	if _, err := os.Stat(path); err != nil {
		return FileKey{}, err
	}
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return FileKey{}, err
	}
	abs, err := filepath.Abs(resolved)
	if err != nil {
		return FileKey{}, err
	}
	return FileKey{path: abs}, nil
}
