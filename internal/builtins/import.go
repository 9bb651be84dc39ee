package builtins

import (
	"grotsky/internal/module"
	"grotsky/internal/value"
	"grotsky/internal/vm"
)

// newImportModule wraps a *module.Loader as the `import` builtin: a
// single Native function named "module" that VisitImportStmt's
// compiled call site invokes as import.module(path, currentFile).
// currentFile travels with every call (rather than being captured once
// by this closure) so a module can itself import a path relative to its
// own directory, not the entry script's (spec.md §4.5).
func newImportModule(machine *vm.VM, loader *module.Loader) value.Value {
	return nativeModule(map[string]value.Value{
		"module": nativeFn("module", func(args []value.Value) (value.Value, error) {
			path, err := requireString(args, 0, "module")
			if err != nil {
				return value.Value{}, err
			}
			currentFile, err := requireString(args, 1, "module")
			if err != nil {
				return value.Value{}, err
			}
			return loader.Import(machine, currentFile, path)
		}),
	})
}
