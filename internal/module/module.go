// Package module implements grotsky's `import` builtin (spec.md §4.5):
// resolve a path relative to the importing file, compile it, run it in
// the shared VM under save/restore discipline, and hand the caller back
// a Native value whose properties are the finished module's top-level
// bindings.
//
// Grounded on the teacher's internal/module/module.go ModuleLoader shape
// (cache map + mutex, search-path resolution, load-and-compile); the
// teacher's own loader targets a different, export-list-based module
// system so the cache/resolve skeleton is kept and the loading body is
// rebuilt around grotsky's nested-function-body import semantics.
package module

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/singleflight"

	"grotsky/internal/compiler"
	"grotsky/internal/value"
	"grotsky/internal/vm"
)

// Loader resolves, compiles, caches, and runs grotsky source files
// imported via the `import` builtin.
type Loader struct {
	mu    sync.RWMutex
	cache map[string]value.Value

	// group collapses concurrent imports of the same resolved path into
	// one compile-and-run, even though the VM itself never executes two
	// module bodies at once: a native callback that spawns a goroutine
	// (e.g. the net module's accept-loop handler) must not be allowed to
	// race a second import of a module already mid-compile.
	group singleflight.Group
}

// NewLoader creates an empty loader.
func NewLoader() *Loader {
	return &Loader{cache: map[string]value.Value{}}
}

// Import resolves path relative to currentFile, compiles and runs it
// (caching by resolved absolute path), and returns a Native value whose
// properties are the module's top-level bindings. This is the function
// body backing the `import` builtin's `.module(path, currentFile)` method.
func (l *Loader) Import(machine *vm.VM, currentFile, path string) (value.Value, error) {
	resolved := resolvePath(currentFile, path)

	l.mu.RLock()
	if v, ok := l.cache[resolved]; ok {
		l.mu.RUnlock()
		// v is the cache's own share; this caller is about to bind it to
		// a new name (the `import` statement's variable), so it needs a
		// share of its own rather than silently sharing the cache's.
		value.Retain(v)
		return v, nil
	}
	l.mu.RUnlock()

	result, err, _ := l.group.Do(resolved, func() (interface{}, error) {
		l.mu.RLock()
		if v, ok := l.cache[resolved]; ok {
			l.mu.RUnlock()
			return v, nil
		}
		l.mu.RUnlock()

		source, err := os.ReadFile(resolved)
		if err != nil {
			return nil, fmt.Errorf("import %q: %w", path, err)
		}

		program, topLevelLocals, err := compiler.CompileSource(string(source), resolved)
		if err != nil {
			return nil, fmt.Errorf("import %q: %w", path, err)
		}

		exports, err := machine.RunModule(program, topLevelLocals)
		if err != nil {
			return nil, fmt.Errorf("import %q: %w", path, err)
		}

		v := value.NewNative(&value.NativeObj{Properties: exports})

		l.mu.Lock()
		l.cache[resolved] = v
		l.mu.Unlock()

		return v, nil
	})
	if err != nil {
		return value.Value{}, err
	}
	// result is the cache's own share: v was freshly constructed at rc=1
	// and that rc=1 belongs to l.cache going forward (the inner cache-hit
	// check above, inside the Do callback, also hands back that same
	// un-retained share for a duplicate caller that lost the race).
	// singleflight.Do may also be fanning this one result out to several
	// callers collapsed into the one in-flight compile; every caller
	// reaching this line — whether it deduped or triggered the compile
	// itself — needs its own retained share.
	v := result.(value.Value)
	value.Retain(v)
	return v, nil
}

// resolvePath resolves an import path relative to the file that issued
// it, falling back to the current working directory for the entry
// script (currentFile == ""). Name shadowing among concurrently-imported
// modules is the importing script's own responsibility (spec.md §4.5).
func resolvePath(currentFile, path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	base := "."
	if currentFile != "" {
		base = filepath.Dir(currentFile)
	}
	return filepath.Clean(filepath.Join(base, path))
}
