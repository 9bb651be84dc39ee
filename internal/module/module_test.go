package module

import (
	"os"
	"path/filepath"
	"testing"

	"grotsky/internal/bytecode"
	"grotsky/internal/value"
	"grotsky/internal/vm"
)

func newTestMachine() *vm.VM {
	program := &bytecode.Program{TopLevel: &bytecode.FnPrototype{Name: "<main>"}}
	return vm.New(program, map[string]value.Value{})
}

func TestImportExposesTopLevelBindings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "greeter.gr")
	if err := os.WriteFile(path, []byte("let greeting = \"hi\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	loader := NewLoader()
	machine := newTestMachine()

	mod, err := loader.Import(machine, "", path)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}

	native := value.AsNative(mod)
	got, ok := native.Properties["greeting"]
	if !ok {
		t.Fatalf("imported module missing exported binding %q", "greeting")
	}
	if value.AsString(got) != "hi" {
		t.Fatalf("greeting = %q, want %q", value.AsString(got), "hi")
	}
}

func TestImportCachesByResolvedPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "counter.gr")
	if err := os.WriteFile(path, []byte("let n = 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	loader := NewLoader()
	machine := newTestMachine()

	first, err := loader.Import(machine, "", path)
	if err != nil {
		t.Fatalf("first Import: %v", err)
	}
	second, err := loader.Import(machine, "", path)
	if err != nil {
		t.Fatalf("second Import: %v", err)
	}
	if value.AsNative(first) != value.AsNative(second) {
		t.Fatal("Import did not return the cached module on a second call")
	}
}

func TestImportRelativeToImportingFile(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "pkg")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	childPath := filepath.Join(sub, "child.gr")
	if err := os.WriteFile(childPath, []byte("let marker = 42\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	parentPath := filepath.Join(sub, "parent.gr")

	loader := NewLoader()
	machine := newTestMachine()

	mod, err := loader.Import(machine, parentPath, "./child.gr")
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	got := value.AsNative(mod).Properties["marker"]
	if value.AsNumber(got) != 42 {
		t.Fatalf("marker = %v, want 42", got)
	}
}
