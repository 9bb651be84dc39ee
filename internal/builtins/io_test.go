package builtins

import (
	"os"
	"path/filepath"
	"testing"

	"grotsky/internal/value"
)

func callNative(t *testing.T, mod value.Value, name string, args ...value.Value) (value.Value, error) {
	t.Helper()
	native := value.AsNative(mod)
	fnVal, ok := native.Properties[name]
	if !ok {
		t.Fatalf("module has no property %q", name)
	}
	return value.AsFn(fnVal).Native.Fn(args)
}

func TestIOWriteFileThenReadFile(t *testing.T) {
	mod := newIOModule()
	path := filepath.Join(t.TempDir(), "greeting.txt")

	if _, err := callNative(t, mod, "writeFile", value.String(path), value.String("hello")); err != nil {
		t.Fatalf("writeFile: %v", err)
	}

	got, err := callNative(t, mod, "readFile", value.String(path))
	if err != nil {
		t.Fatalf("readFile: %v", err)
	}
	if value.AsString(got) != "hello" {
		t.Fatalf("readFile: got %q, want %q", value.AsString(got), "hello")
	}
}

func TestIOFileExists(t *testing.T) {
	mod := newIOModule()
	dir := t.TempDir()
	present := filepath.Join(dir, "present.txt")
	if err := os.WriteFile(present, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := callNative(t, mod, "fileExists", value.String(present))
	if err != nil || !value.AsBool(got) {
		t.Fatalf("fileExists(present) = %v, %v; want true, nil", got, err)
	}

	got, err = callNative(t, mod, "fileExists", value.String(filepath.Join(dir, "missing.txt")))
	if err != nil || value.AsBool(got) {
		t.Fatalf("fileExists(missing) = %v, %v; want false, nil", got, err)
	}
}

func TestIOListDir(t *testing.T) {
	mod := newIOModule()
	dir := t.TempDir()
	for _, name := range []string{"a.gr", "b.gr"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	got, err := callNative(t, mod, "listDir", value.String(dir))
	if err != nil {
		t.Fatalf("listDir: %v", err)
	}
	if n := len(value.AsList(got).Elements); n != 2 {
		t.Fatalf("listDir: got %d entries, want 2", n)
	}
}

func TestIOReadFileMissing(t *testing.T) {
	mod := newIOModule()
	if _, err := callNative(t, mod, "readFile", value.String("/nonexistent/path.gr")); err == nil {
		t.Fatal("readFile on a missing path: want error, got nil")
	}
}
