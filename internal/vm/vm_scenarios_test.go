package vm_test

import (
	"testing"

	"github.com/kr/pretty"

	"grotsky/internal/compiler"
	"grotsky/internal/value"
	"grotsky/internal/vm"
)

// runSource compiles src as a standalone program and runs it to
// completion, returning its top-level Return value. Each scenario below
// ends with `return <expr>` rather than an `io.println` call, since
// io.println writes straight to the real stdout with no injectable
// writer — asserting on the returned Value avoids needing a builtin
// table at all.
func runSource(t *testing.T, src string) value.Value {
	t.Helper()
	program, _, err := compiler.CompileSource(src, "<test>")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	machine := vm.New(program, map[string]value.Value{})
	result, err := machine.Run()
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	return result
}

func TestTightCountedLoop(t *testing.T) {
	got := runSource(t, `
		let a = 0
		while a < 5 { a = a + 1 }
		return a
	`)
	if got.Kind != value.KindNumber || value.AsNumber(got) != 5 {
		t.Fatalf("got %# v, want number 5", pretty.Formatter(got))
	}
}

func TestClosureCapturesALocal(t *testing.T) {
	got := runSource(t, `
		fn mk() {
			let n = 0
			fn inc() { n = n + 1; return n }
			return inc
		}
		let f = mk()
		let a = f()
		let b = f()
		let c = f()
		return [a, b, c]
	`)
	if got.Kind != value.KindList {
		t.Fatalf("got %# v, want a list", pretty.Formatter(got))
	}
	want := []float64{1, 2, 3}
	elems := value.AsList(got).Elements
	if len(elems) != len(want) {
		t.Fatalf("got %d elements, want %d", len(elems), len(want))
	}
	for i, w := range want {
		if value.AsNumber(elems[i]) != w {
			t.Errorf("elems[%d] = %v, want %v", i, value.AsNumber(elems[i]), w)
		}
	}
}

func TestMethodDispatchThroughSuper(t *testing.T) {
	got := runSource(t, `
		class A { fn f() { return 1 } }
		class B < A { fn f() { return super.f() + 10 } }
		return B().f()
	`)
	if got.Kind != value.KindNumber || value.AsNumber(got) != 11 {
		t.Fatalf("got %# v, want number 11", pretty.Formatter(got))
	}
}

func TestTryCatchRecoversARegisterAfterAThrow(t *testing.T) {
	got := runSource(t, `
		let x = 1
		try { x = 1/0; x = 99 } catch e { x = x + 2 }
		return x
	`)
	if got.Kind != value.KindNumber || value.AsNumber(got) != 3 {
		t.Fatalf("got %# v, want number 3 (the body's second assignment must never run)", pretty.Formatter(got))
	}
}

func TestForInOverADictVisitsEveryEntryOnce(t *testing.T) {
	got := runSource(t, `
		let d = {"a": 1, "b": 2}
		let s = 0
		for k, v in d { s = s + v }
		return s
	`)
	if got.Kind != value.KindNumber || value.AsNumber(got) != 3 {
		t.Fatalf("got %# v, want number 3", pretty.Formatter(got))
	}
}

func TestOperatorOverloadDispatchesToAClassMethod(t *testing.T) {
	got := runSource(t, `
		class V {
			fn init(x) { this.x = x }
			fn add(o) { return V(this.x + o.x) }
		}
		return (V(2) + V(3)).x
	`)
	if got.Kind != value.KindNumber || value.AsNumber(got) != 5 {
		t.Fatalf("got %# v, want number 5", pretty.Formatter(got))
	}
}

// TestDictIndexAssignThenReadRoundTrips exercises spec.md §8's invariant
// `d[k] = v; d[k] == v` directly against the VM's OpSet/OpAccess opcodes.
func TestDictIndexAssignThenReadRoundTrips(t *testing.T) {
	got := runSource(t, `
		let d = {}
		d["k"] = 7
		return d["k"]
	`)
	if got.Kind != value.KindNumber || value.AsNumber(got) != 7 {
		t.Fatalf("got %# v, want number 7", pretty.Formatter(got))
	}
}
