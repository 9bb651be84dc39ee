package serialize

import (
	"bytes"
	"strings"
	"testing"

	"github.com/kr/pretty"

	"grotsky/internal/bytecode"
	"grotsky/internal/value"
)

func sampleProgram() *bytecode.Program {
	top := &bytecode.FnPrototype{
		Name:      "<main>",
		File:      "sample.gsky",
		Arity:     0,
		Registers: 2,
		Code: []bytecode.Instruction{
			bytecode.CreateABx(bytecode.OpLoadK, 0, 0),
			bytecode.CreateABC(bytecode.OpReturn, 0, 0, 0),
		},
		Lines: []int{1, 1},
	}
	fn := &bytecode.FnPrototype{
		Name:       "greet",
		File:       "sample.gsky",
		Arity:      1,
		IsVariadic: false,
		Registers:  3,
		Code: []bytecode.Instruction{
			bytecode.CreateABC(bytecode.OpGetUpval, 1, 0, 0),
			bytecode.CreateABC(bytecode.OpReturn, 1, 0, 0),
		},
		Lines:    []int{2, 3},
		Upvalues: []bytecode.UpvalueRef{{IsLocal: true, Index: 0}},
	}
	return &bytecode.Program{
		Constants:  []value.Value{value.String("hello"), value.Number(42), value.Bool(true), value.Nil()},
		Prototypes: []*bytecode.FnPrototype{fn},
		TopLevel:   top,
		Globals:    map[string]bool{"greet": true},
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	prog := sampleProgram()

	var buf bytes.Buffer
	if err := Write(&buf, prog); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	if len(got.Constants) != len(prog.Constants) {
		t.Fatalf("constants: got %d, want %d", len(got.Constants), len(prog.Constants))
	}
	if value.AsString(got.Constants[0]) != "hello" {
		t.Errorf("constants[0]: got %q, want %q", value.AsString(got.Constants[0]), "hello")
	}
	if value.AsNumber(got.Constants[1]) != 42 {
		t.Errorf("constants[1]: got %v, want 42", value.AsNumber(got.Constants[1]))
	}
	if !value.AsBool(got.Constants[2]) {
		t.Errorf("constants[2]: got false, want true")
	}
	if got.Constants[3].Kind != value.KindNil {
		t.Errorf("constants[3]: got %s, want nil", got.Constants[3].Kind)
	}

	if len(got.Prototypes) != 1 {
		t.Fatalf("prototypes: got %d, want 1", len(got.Prototypes))
	}
	if diff := pretty.Diff(prog.Prototypes[0], got.Prototypes[0]); len(diff) > 0 {
		t.Errorf("prototype round-trip mismatch:\n%s", strings.Join(diff, "\n"))
	}
	if diff := pretty.Diff(prog.TopLevel, got.TopLevel); len(diff) > 0 {
		t.Errorf("top-level round-trip mismatch:\n%s", strings.Join(diff, "\n"))
	}

	if !got.Globals["greet"] || len(got.Globals) != 1 {
		t.Errorf("globals mismatch: %v", got.Globals)
	}
}

func TestReadRejectsBadMagic(t *testing.T) {
	_, err := Read(bytes.NewReader([]byte{0, 1, 2, 3, 4, 5, 6, 7}))
	if err == nil {
		t.Fatal("expected an error for a bad magic header, got nil")
	}
}

func TestReadRejectsTruncatedInput(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, sampleProgram()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	truncated := buf.Bytes()[:buf.Len()-4]
	if _, err := Read(bytes.NewReader(truncated)); err == nil {
		t.Fatal("expected an error for truncated input, got nil")
	}
}
