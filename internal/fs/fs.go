package fs

// The resolver and the graph builder only see the file system through this
// interface. Tests use the in-memory implementation so they never depend on
// the host's path conventions or contents.

import (
	"errors"
	"strings"
)

type EntryKind uint8

const (
	DirEntry  EntryKind = 1
	FileEntry EntryKind = 2
)

type Entry struct {
	Kind EntryKind

	// The cleaned target path if this entry is a symbolic link
	Symlink string
}

// Two paths that name the same file on disk have equal keys. The graph
// builder uses this to parse a module once even when it is reached through
// different spellings of its path or through symlinks.
type FileKey struct {
	dev  uint64
	ino  uint64
	path string
}

var ErrNotExist = errors.New("no such file or directory")

type FS interface {
	// The returned map is immutable and is cached across invocations. Do not
	// mutate it.
	ReadDirectory(path string) (map[string]Entry, error)
	ReadFile(path string) (string, error)
	Key(path string) (FileKey, error)

	// This is part of the interface because the mock interface used for tests
	// should not depend on file system behavior (i.e. different slashes for
	// Windows) while the real interface should.
	Abs(path string) (string, bool)
	Dir(path string) string
	Base(path string) string
	Ext(path string) string
	Join(parts ...string) string
	Cwd() string
	Rel(base string, target string) (string, bool)
}

// Looks up a single name in a directory listing. Missing directories and
// missing names both report false.
func Lookup(fs FS, dir string, name string) (Entry, bool) {
	entries, err := fs.ReadDirectory(dir)
	if err != nil {
		return Entry{}, false
	}
	entry, ok := entries[name]
	return entry, ok
}

func IsFile(fs FS, path string) bool {
	entry, ok := Lookup(fs, fs.Dir(path), fs.Base(path))
	return ok && entry.Kind == FileEntry
}

func IsDir(fs FS, path string) bool {
	if dir := fs.Dir(path); dir == path {
		// The root always exists
		_, err := fs.ReadDirectory(path)
		return err == nil
	}
	entry, ok := Lookup(fs, fs.Dir(path), fs.Base(path))
	return ok && entry.Kind == DirEntry
}

// Shows a path relative to the working directory when that is shorter
func PrettyPath(fs FS, path string) string {
	if rel, ok := fs.Rel(fs.Cwd(), path); ok && !strings.HasPrefix(rel, "..") && len(rel) < len(path) {
		return rel
	}
	return path
}
