package fs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/jspipe/jspipe/internal/test"
)

func TestBasic(t *testing.T) {
	fs := MockFS(map[string]string{
		"/README.md":    "// README.md",
		"/package.json": "// package.json",
		"/src/index.js": "// src/index.js",
		"/src/util.js":  "// src/util.js",
	})

	// Test a missing file
	_, err := fs.ReadFile("/missing.txt")
	if !errors.Is(err, ErrNotExist) {
		t.Fatalf("Unexpectedly found /missing.txt: %v", err)
	}

	// Test an existing file
	readme, err := fs.ReadFile("/README.md")
	if err != nil {
		t.Fatal("Expected to find /README.md")
	}
	test.AssertEqual(t, readme, "// README.md")

	// Test an existing nested file
	index, err := fs.ReadFile("/src/index.js")
	if err != nil {
		t.Fatal("Expected to find /src/index.js")
	}
	test.AssertEqual(t, index, "// src/index.js")

	// Test a missing directory
	if _, err := fs.ReadDirectory("/missing"); err == nil {
		t.Fatal("Unexpectedly found /missing")
	}

	// Test a nested directory
	src, err := fs.ReadDirectory("/src")
	if err != nil {
		t.Fatal("Expected to find /src")
	}
	if len(src) != 2 || src["index.js"].Kind != FileEntry || src["util.js"].Kind != FileEntry {
		t.Fatalf("Incorrect contents for /src: %v", src)
	}

	// Test the top-level directory
	slash, err := fs.ReadDirectory("/")
	if err != nil {
		t.Fatal("Expected to find /")
	}
	if len(slash) != 3 || slash["src"].Kind != DirEntry || slash["README.md"].Kind != FileEntry || slash["package.json"].Kind != FileEntry {
		t.Fatalf("Incorrect contents for /: %v", slash)
	}

	test.AssertEqual(t, IsFile(fs, "/src/util.js"), true)
	test.AssertEqual(t, IsFile(fs, "/src"), false)
	test.AssertEqual(t, IsDir(fs, "/src"), true)
	test.AssertEqual(t, IsDir(fs, "/"), true)
	test.AssertEqual(t, IsDir(fs, "/README.md"), false)
}

func TestMockKey(t *testing.T) {
	fs := MockFS(map[string]string{
		"/a/b.js": "",
	})

	key1, err := fs.Key("/a/b.js")
	if err != nil {
		t.Fatal(err)
	}
	key2, err := fs.Key("/a/../a/./b.js")
	if err != nil {
		t.Fatal(err)
	}
	test.AssertEqual(t, key1, key2)

	if _, err := fs.Key("/a/c.js"); !errors.Is(err, ErrNotExist) {
		t.Fatalf("Expected a missing file, got %v", err)
	}
}

func TestRel(t *testing.T) {
	fs := MockFS(map[string]string{})

	expect := func(a string, b string, c string) {
		t.Run(fmt.Sprintf("Rel(%q, %q) == %q", a, b, c), func(t *testing.T) {
			rel, ok := fs.Rel(a, b)
			if !ok {
				t.Fatalf("!ok")
			}
			if rel != c {
				t.Fatalf("Expected %q, got %q", c, rel)
			}
		})
	}

	expect("/a/b", "/a/b", ".")
	expect("/a/b", "/a/b/c", "c")
	expect("/a/b", "/a/b/c/d", "c/d")
	expect("/a/b/c", "/a/b", "..")
	expect("/a/b/c/d", "/a/b", "../..")
	expect("/a/b/c", "/a/b/x", "../x")
	expect("/a/b/c/d", "/a/b/x", "../../x")
	expect("/a/b/c", "/a/b/x/y", "../x/y")
	expect("/a/b/c/d", "/a/b/x/y", "../../x/y")
	expect("/", "/a/b", "a/b")
}

func TestPrettyPath(t *testing.T) {
	fs := MockFS(map[string]string{})
	test.AssertEqual(t, PrettyPath(fs, "/src/a.js"), "src/a.js")
}

func TestRealFS(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0775); err != nil {
		t.Fatal(err)
	}
	file := filepath.Join(dir, "sub", "file.js")
	if err := os.WriteFile(file, []byte("export let x = 1"), 0644); err != nil {
		t.Fatal(err)
	}

	fs := RealFS()

	entries, err := fs.ReadDirectory(dir)
	if err != nil {
		t.Fatal(err)
	}
	test.AssertEqual(t, entries["sub"].Kind, DirEntry)

	contents, err := fs.ReadFile(file)
	if err != nil {
		t.Fatal(err)
	}
	test.AssertEqual(t, contents, "export let x = 1")

	// Missing directories are cached as failures
	if _, err := fs.ReadDirectory(filepath.Join(dir, "missing")); err == nil {
		t.Fatal("Unexpectedly found the missing directory")
	}
	if _, err := fs.ReadDirectory(filepath.Join(dir, "missing")); err == nil {
		t.Fatal("Unexpectedly found the missing directory")
	}

	if runtime.GOOS == "windows" {
		return
	}

	// A symlink and its target have the same key
	link := filepath.Join(dir, "link.js")
	if err := os.Symlink(file, link); err != nil {
		t.Skipf("Cannot create a symlink: %s", err)
	}
	fileKey, err := fs.Key(file)
	if err != nil {
		t.Fatal(err)
	}
	linkKey, err := fs.Key(link)
	if err != nil {
		t.Fatal(err)
	}
	test.AssertEqual(t, fileKey, linkKey)

	entries, err = fs.ReadDirectory(dir)
	if err != nil {
		t.Fatal(err)
	}

	// The listing was cached before the link existed
	if _, ok := entries["link.js"]; ok {
		t.Fatal("Directory listing was not cached")
	}
}
