package main

import (
	"testing"

	"grotsky/internal/value"
)

func TestExitCodeIntegerInRange(t *testing.T) {
	if got := exitCode(value.Number(7), false); got != 7 {
		t.Fatalf("exitCode(7) = %d, want 7", got)
	}
}

func TestExitCodeFractionalYieldsZero(t *testing.T) {
	if got := exitCode(value.Number(1.5), false); got != 0 {
		t.Fatalf("exitCode(1.5) = %d, want 0", got)
	}
}

func TestExitCodeOutOfRangeYieldsZero(t *testing.T) {
	if got := exitCode(value.Number(400), false); got != 0 {
		t.Fatalf("exitCode(400) = %d, want 0", got)
	}
	if got := exitCode(value.Number(-1), false); got != 0 {
		t.Fatalf("exitCode(-1) = %d, want 0", got)
	}
}

func TestExitCodeUncaughtExceptionYieldsZero(t *testing.T) {
	if got := exitCode(value.Nil(), true); got != 0 {
		t.Fatalf("exitCode(uncaught) = %d, want 0", got)
	}
}

func TestExitCodeNonNumberYieldsZero(t *testing.T) {
	if got := exitCode(value.String("ok"), false); got != 0 {
		t.Fatalf("exitCode(string) = %d, want 0", got)
	}
}

func TestSiblingWithExt(t *testing.T) {
	if got := siblingWithExt("script.gr", ".grc"); got != "script.grc" {
		t.Fatalf("siblingWithExt = %q, want %q", got, "script.grc")
	}
}

func TestIsEnvTrue(t *testing.T) {
	t.Setenv("GROTSKY_TEST_FLAG", "1")
	if !isEnvTrue("GROTSKY_TEST_FLAG") {
		t.Fatal("isEnvTrue(\"1\") = false, want true")
	}
	t.Setenv("GROTSKY_TEST_FLAG", "TRUE")
	if !isEnvTrue("GROTSKY_TEST_FLAG") {
		t.Fatal("isEnvTrue(\"TRUE\") = false, want true")
	}
	t.Setenv("GROTSKY_TEST_FLAG", "0")
	if isEnvTrue("GROTSKY_TEST_FLAG") {
		t.Fatal("isEnvTrue(\"0\") = true, want false")
	}
}
