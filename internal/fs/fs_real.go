package fs

import (
	"os"
	"path/filepath"
	"sync"
)

type realFS struct {
	// Stores the file entries for directories we've listed before
	entriesMutex sync.RWMutex
	entries      map[string]entriesOrErr

	// For the current working directory
	cwd string
}

type entriesOrErr struct {
	entries map[string]Entry
	err     error
}

func realpath(path string) string {
	dir := filepath.Dir(path)
	if dir == path {
		return path
	}
	dir = realpath(dir)
	path = filepath.Join(dir, filepath.Base(path))
	if link, err := os.Readlink(path); err == nil {
		if filepath.IsAbs(link) {
			return link
		}
		return filepath.Join(dir, link)
	}
	return path
}

func RealFS() FS {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = ""
	} else {
		// Symlinks are resolved in the working directory for the same reason
		// they are resolved in input paths: relative paths in diagnostics are
		// computed between the two and must agree
		cwd = realpath(cwd)
	}
	return &realFS{
		entries: make(map[string]entriesOrErr),
		cwd:     cwd,
	}
}

func (fs *realFS) ReadDirectory(dir string) (map[string]Entry, error) {
	// First, check the cache
	fs.entriesMutex.RLock()
	cached, ok := fs.entries[dir]
	fs.entriesMutex.RUnlock()

	// Cache hit: stop now
	if ok {
		return cached.entries, cached.err
	}

	// Cache miss: read the directory entries
	names, err := readdir(dir)
	var entries map[string]Entry
	if err == nil {
		entries = make(map[string]Entry, len(names))
		for _, name := range names {
			if entry, ok := statEntry(dir, name); ok {
				entries[name] = entry
			}
		}
	}

	// Update the cache unconditionally. An inaccessible directory stays
	// inaccessible for the rest of the build.
	fs.entriesMutex.Lock()
	defer fs.entriesMutex.Unlock()
	fs.entries[dir] = entriesOrErr{entries: entries, err: err}
	return entries, err
}

func statEntry(dir string, name string) (Entry, bool) {
	entryPath := filepath.Join(dir, name)

	// Use "lstat" since we want information about symbolic links
	stat, err := os.Lstat(entryPath)
	if err != nil {
		return Entry{}, false
	}
	mode := stat.Mode()
	symlink := ""

	// Follow symlinks now so the cache contains the translation
	if (mode & os.ModeSymlink) != 0 {
		link, err := os.Readlink(entryPath)
		if err != nil {
			return Entry{}, false
		}
		if !filepath.IsAbs(link) {
			link = filepath.Join(dir, link)
		}
		symlink = filepath.Clean(link)

		// Re-run "lstat" on the symlink target
		stat2, err2 := os.Lstat(symlink)
		if err2 != nil {
			return Entry{}, false
		}
		mode = stat2.Mode()
		if (mode & os.ModeSymlink) != 0 {
			// Symlink chains are not supported
			return Entry{}, false
		}
	}

	if (mode & os.ModeDir) != 0 {
		return Entry{Kind: DirEntry, Symlink: symlink}, true
	}
	return Entry{Kind: FileEntry, Symlink: symlink}, true
}

func (fs *realFS) ReadFile(path string) (string, error) {
	buffer, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(buffer), nil
}

func (*realFS) Key(path string) (FileKey, error) {
	return fileKey(path)
}

func (*realFS) Abs(p string) (string, bool) {
	abs, err := filepath.Abs(p)
	return abs, err == nil
}

func (*realFS) Dir(p string) string {
	return filepath.Dir(p)
}

func (*realFS) Base(p string) string {
	return filepath.Base(p)
}

func (*realFS) Ext(p string) string {
	return filepath.Ext(p)
}

func (*realFS) Join(parts ...string) string {
	return filepath.Clean(filepath.Join(parts...))
}

func (fs *realFS) Cwd() string {
	return fs.cwd
}

func (*realFS) Rel(base string, target string) (string, bool) {
	if rel, err := filepath.Rel(base, target); err == nil {
		return rel, true
	}
	return "", false
}

func readdir(dirname string) ([]string, error) {
	f, err := os.Open(dirname)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return f.Readdirnames(-1)
}
