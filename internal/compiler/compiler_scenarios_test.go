package compiler

import (
	"errors"
	"testing"

	"github.com/kr/pretty"

	"grotsky/internal/bytecode"
	grotskyerrors "grotsky/internal/errors"
)

func compileErrorKind(t *testing.T, src string) grotskyerrors.Kind {
	t.Helper()
	_, _, err := CompileSource(src, "<test>")
	if err == nil {
		t.Fatalf("CompileSource(%q): want an error, got nil", src)
	}
	var ce *grotskyerrors.CompileError
	if !errors.As(err, &ce) {
		t.Fatalf("CompileSource(%q): error %v is not a *errors.CompileError", src, err)
	}
	return ce.Kind
}

func TestReferencingAnUndefinedNameFails(t *testing.T) {
	got := compileErrorKind(t, `return undefinedThing`)
	if got != grotskyerrors.KindUndefinedVariable {
		t.Errorf("kind = %# v, want %# v", pretty.Formatter(got), pretty.Formatter(grotskyerrors.KindUndefinedVariable))
	}
}

func TestAssigningToAnUndeclaredGlobalFails(t *testing.T) {
	got := compileErrorKind(t, `neverDeclared = 1`)
	if got != grotskyerrors.KindUndefinedVariable {
		t.Errorf("kind = %# v, want %# v", pretty.Formatter(got), pretty.Formatter(grotskyerrors.KindUndefinedVariable))
	}
}

func TestSuperOutsideASubclassMethodFails(t *testing.T) {
	got := compileErrorKind(t, `
		class A { fn f() { return super.f() } }
	`)
	if got != grotskyerrors.KindCompile {
		t.Errorf("kind = %# v, want %# v", pretty.Formatter(got), pretty.Formatter(grotskyerrors.KindCompile))
	}
}

// TestWhileLoopBackEdgeLandsOnTheCondition pins DESIGN.md's resolution of
// the while-loop back-edge open question: the jump back to the top lands
// on the condition's own first instruction (compiled before OpTest), not
// the body's, so a falsified condition is re-evaluated every iteration
// rather than skipped once the loop is entered.
func TestWhileLoopBackEdgeLandsOnTheCondition(t *testing.T) {
	program, _, err := CompileSource(`
		let a = 0
		while a < 3 { a = a + 1 }
		return a
	`, "<test>")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	code := program.TopLevel.Code

	testPos := -1
	for i, instr := range code {
		if instr.OpCode() == bytecode.OpTest {
			testPos = i
			break
		}
	}
	if testPos < 0 {
		t.Fatalf("no OpTest instruction found in compiled while loop")
	}

	backEdgePos, backEdgeTarget := -1, -1
	for i := testPos + 1; i < len(code); i++ {
		if code[i].OpCode() != bytecode.OpJmp {
			continue
		}
		target := i + 1 + int(code[i].SBx())
		if target <= i {
			backEdgePos, backEdgeTarget = i, target
			break
		}
	}
	if backEdgePos < 0 {
		t.Fatalf("no backward jump found after the loop's OpTest")
	}
	if backEdgeTarget >= testPos {
		t.Errorf("back-edge targets instruction %d, want it to land at or before the condition's first instruction (< %d)", backEdgeTarget, testPos)
	}
}

func TestTopLevelLocalsAreExposedByName(t *testing.T) {
	_, topLevelLocals, err := CompileSource(`
		let exported = 1
		let alsoExported = 2
	`, "<test>")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	for _, name := range []string{"exported", "alsoExported"} {
		if _, ok := topLevelLocals[name]; !ok {
			t.Errorf("topLevelLocals missing %q: %v", name, topLevelLocals)
		}
	}
}
