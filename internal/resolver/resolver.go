package resolver

// This implements the module resolution algorithm from node.js, which is
// described here: https://nodejs.org/api/modules.html#modules_all_together
//
// There are a few differences. Extensions are probed in the configured order,
// the "module" field of a package.json wins over "main", and configured
// externals are never looked up on disk.

import (
	"strings"
	"sync"

	"github.com/jspipe/jspipe/internal/config"
	"github.com/jspipe/jspipe/internal/fs"
	"github.com/jspipe/jspipe/internal/logger"
)

type Result struct {
	// For an external import this is the import path as written
	Path       logger.Path
	IsExternal bool
}

type Resolver struct {
	fs         fs.FS
	log        logger.Log
	extensions []string
	externals  map[string]bool

	// A nil entry means the directory has no usable package.json
	packageJSONMutex sync.Mutex
	packageJSONCache map[string]*packageJSON
}

func NewResolver(fs fs.FS, log logger.Log, options config.Options) *Resolver {
	return &Resolver{
		fs:               fs,
		log:              log,
		extensions:       options.Extensions(),
		externals:        options.ExternalModules,
		packageJSONCache: make(map[string]*packageJSON),
	}
}

// Entry points are resolved relative to the working directory. They can't be
// external.
func (r *Resolver) ResolveEntryPoint(path string) (Result, bool) {
	absolute, ok := r.fs.Abs(path)
	if !ok {
		return Result{}, false
	}
	if absolute, ok := r.loadAsFileOrDirectory(absolute); ok {
		return r.fileResult(absolute), true
	}
	return Result{}, false
}

func (r *Resolver) Resolve(sourceDir string, importPath string) (Result, bool) {
	if IsPackagePath(importPath) {
		if r.isExternal(importPath) {
			return Result{Path: logger.Path{Text: importPath}, IsExternal: true}, true
		}
		if absolute, ok := r.loadNodeModules(importPath, sourceDir); ok {
			return r.fileResult(absolute), true
		}
		return Result{}, false
	}

	if strings.HasPrefix(importPath, "/") {
		sourceDir = "/"
	}
	absolute, ok := r.fs.Abs(r.fs.Join(sourceDir, importPath))
	if !ok {
		return Result{}, false
	}
	if absolute, ok := r.loadAsFileOrDirectory(absolute); ok {
		return r.fileResult(absolute), true
	}
	return Result{}, false
}

func (r *Resolver) fileResult(absolute string) Result {
	return Result{Path: logger.Path{Text: absolute, Namespace: "file"}}
}

func (r *Resolver) PrettyPath(path string) string {
	return fs.PrettyPath(r.fs, path)
}

// Matches "pkg", "pkg/sub", "@scope/pkg" and "@scope/pkg/sub" against the
// configured package names
func (r *Resolver) isExternal(importPath string) bool {
	if r.externals[importPath] {
		return true
	}
	name, _ := packageName(importPath)
	return r.externals[name]
}

func packageName(importPath string) (string, string) {
	slash := strings.IndexByte(importPath, '/')
	if strings.HasPrefix(importPath, "@") && slash != -1 {
		if next := strings.IndexByte(importPath[slash+1:], '/'); next != -1 {
			slash += next + 1
		} else {
			slash = -1
		}
	}
	if slash == -1 {
		return importPath, ""
	}
	return importPath[:slash], importPath[slash+1:]
}

func IsPackagePath(path string) bool {
	return !strings.HasPrefix(path, "/") && !strings.HasPrefix(path, "./") &&
		!strings.HasPrefix(path, "../") && path != "." && path != ".."
}

func (r *Resolver) loadAsFile(path string) (string, bool) {
	if fs.IsFile(r.fs, path) {
		return path, true
	}

	for _, ext := range r.extensions {
		extPath := path + ext
		if fs.IsFile(r.fs, extPath) {
			return extPath, true
		}
	}

	return "", false
}

func (r *Resolver) loadAsIndex(path string) (string, bool) {
	for _, ext := range r.extensions {
		indexPath := r.fs.Join(path, "index"+ext)
		if fs.IsFile(r.fs, indexPath) {
			return indexPath, true
		}
	}
	return "", false
}

func (r *Resolver) packageJSONForDir(dir string) *packageJSON {
	r.packageJSONMutex.Lock()
	cached, ok := r.packageJSONCache[dir]
	r.packageJSONMutex.Unlock()
	if ok {
		return cached
	}

	var result *packageJSON
	if fs.IsFile(r.fs, r.fs.Join(dir, "package.json")) {
		result = r.parsePackageJSON(dir)
	}

	r.packageJSONMutex.Lock()
	defer r.packageJSONMutex.Unlock()
	r.packageJSONCache[dir] = result
	return result
}

func (r *Resolver) loadAsFileOrDirectory(path string) (string, bool) {
	if absolute, ok := r.loadAsFile(path); ok {
		return absolute, true
	}

	if !fs.IsDir(r.fs, path) {
		return "", false
	}

	if pkg := r.packageJSONForDir(path); pkg != nil {
		for _, field := range mainFields {
			mainPath, ok := pkg.absMainFields[field]
			if !ok {
				continue
			}
			if absolute, ok := r.loadAsFile(mainPath); ok {
				return absolute, true
			}
			if absolute, ok := r.loadAsIndex(mainPath); ok {
				return absolute, true
			}
		}
	}

	return r.loadAsIndex(path)
}

func (r *Resolver) loadNodeModules(path string, start string) (string, bool) {
	for {
		// Skip "node_modules" folders
		if r.fs.Base(start) != "node_modules" {
			if absolute, ok := r.loadAsFileOrDirectory(r.fs.Join(start, "node_modules", path)); ok {
				return absolute, true
			}
		}

		// Go to the parent directory, stopping at the file system root
		dir := r.fs.Dir(start)
		if start == dir {
			break
		}
		start = dir
	}

	return "", false
}
