package fs

import (
	"fmt"
	"path"
	"strings"
)

type mockFS struct {
	dirs  map[string]map[string]Entry
	files map[string]string
	cwd   string
}

// Keys of "input" are absolute slash-separated paths
func MockFS(input map[string]string) FS {
	dirs := make(map[string]map[string]Entry)
	files := make(map[string]string)

	for k, v := range input {
		k = path.Clean(k)
		files[k] = v
		original := k

		// Build the directory map
		for {
			kDir := path.Dir(k)
			dir, ok := dirs[kDir]
			if !ok {
				dir = make(map[string]Entry)
				dirs[kDir] = dir
			}
			if kDir == k {
				break
			}
			if k == original {
				dir[path.Base(k)] = Entry{Kind: FileEntry}
			} else {
				dir[path.Base(k)] = Entry{Kind: DirEntry}
			}
			k = kDir
		}
	}

	return &mockFS{dirs: dirs, files: files, cwd: "/"}
}

func (fs *mockFS) ReadDirectory(path string) (map[string]Entry, error) {
	if dir, ok := fs.dirs[path]; ok {
		return dir, nil
	}
	return nil, fmt.Errorf("%s: %w", path, ErrNotExist)
}

func (fs *mockFS) ReadFile(path string) (string, error) {
	if contents, ok := fs.files[path]; ok {
		return contents, nil
	}
	return "", fmt.Errorf("%s: %w", path, ErrNotExist)
}

// There are no links in memory so the cleaned path is the identity
func (fs *mockFS) Key(p string) (FileKey, error) {
	p = path.Clean(p)
	if _, ok := fs.files[p]; !ok {
		return FileKey{}, fmt.Errorf("%s: %w", p, ErrNotExist)
	}
	return FileKey{path: p}, nil
}

func (fs *mockFS) Abs(p string) (string, bool) {
	return path.Clean(path.Join(fs.cwd, p)), true
}

func (*mockFS) Dir(p string) string {
	return path.Dir(p)
}

func (*mockFS) Base(p string) string {
	return path.Base(p)
}

func (*mockFS) Ext(p string) string {
	return path.Ext(p)
}

func (*mockFS) Join(parts ...string) string {
	return path.Clean(path.Join(parts...))
}

func (fs *mockFS) Cwd() string {
	return fs.cwd
}

func splitOnSlash(path string) (string, string) {
	if slash := strings.IndexByte(path, '/'); slash != -1 {
		return path[:slash], path[slash+1:]
	}
	return path, ""
}

func (*mockFS) Rel(base string, target string) (string, bool) {
	base = path.Clean(base)
	target = path.Clean(target)

	// Base cases
	if base == "" || base == "." {
		return target, true
	}
	if base == target {
		return ".", true
	}
	if base == "/" {
		return strings.TrimPrefix(target, "/"), true
	}

	// Find the common parent directory
	for {
		bHead, bTail := splitOnSlash(base)
		tHead, tTail := splitOnSlash(target)
		if bHead != tHead {
			break
		}
		base = bTail
		target = tTail
	}

	// Stop now if base is a subpath of target
	if base == "" {
		return target, true
	}

	// Traverse up to the common parent
	commonParent := strings.Repeat("../", strings.Count(base, "/")+1)

	// Stop now if target is a subpath of base
	if target == "" {
		return commonParent[:len(commonParent)-1], true
	}

	// Otherwise, down to the parent
	return commonParent + target, true
}
