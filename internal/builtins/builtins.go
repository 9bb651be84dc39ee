// Package builtins constructs grotsky's fixed set of built-in modules
// (spec.md §6, plus SPEC_FULL.md's additive db/crypto/time modules and
// net's websocket extension) as a `map[string]value.Value` ready to hand
// to vm.New. Each module is a Native value whose Properties map holds
// either plain data (process.argv) or NativeFn-backed callables.
//
// Grounded on the teacher's internal/module/module.go "createXModule"
// idiom (build an exports map, wrap it in the host's module value) and
// internal/vmregister/stdlib.go's native-function registration style for
// individual function bodies.
package builtins

import (
	"grotsky/internal/module"
	"grotsky/internal/value"
	"grotsky/internal/vm"
)

// New builds the builtin module table. The caller first hands its own
// (empty) table to vm.New(program, table) and copies the returned entries
// into it afterward, since a module's native functions (import in
// particular) need the *vm.VM pointer the table is itself being installed
// into.
func New(machine *vm.VM, argv []string) map[string]value.Value {
	loader := module.NewLoader()

	table := map[string]value.Value{
		"io":      newIOModule(),
		"strings": newStringsModule(),
		"type":    newTypeBuiltin(),
		"env":     newEnvModule(),
		"process": newProcessModule(argv),
		"lists":   newListsModule(),
		"net":     newNetModule(),
		"re":      newReModule(),
		"db":      newDBModule(),
		"crypto":  newCryptoModule(),
		"time":    newTimeModule(),
	}
	table["import"] = newImportModule(machine, loader)
	return table
}

func nativeFn(name string, fn func(args []value.Value) (value.Value, error)) value.Value {
	return value.NewFn(&value.FnObj{Name: name, Native: &value.NativeFn{Name: name, Fn: fn}})
}

func nativeModule(props map[string]value.Value) value.Value {
	return value.NewNative(&value.NativeObj{Properties: props})
}
