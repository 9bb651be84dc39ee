package builtins

import (
	"testing"

	"grotsky/internal/value"
)

func TestStringsToUpperToLower(t *testing.T) {
	mod := newStringsModule()

	upper, err := callNative(t, mod, "toUpper", value.String("grotsky"))
	if err != nil || value.AsString(upper) != "GROTSKY" {
		t.Fatalf("toUpper: got %v, %v", upper, err)
	}

	lower, err := callNative(t, mod, "toLower", value.String("GROTSKY"))
	if err != nil || value.AsString(lower) != "grotsky" {
		t.Fatalf("toLower: got %v, %v", lower, err)
	}
}

func TestStringsOrdChrRoundTrip(t *testing.T) {
	mod := newStringsModule()

	code, err := callNative(t, mod, "ord", value.String("A"))
	if err != nil {
		t.Fatalf("ord: %v", err)
	}
	if value.AsNumber(code) != 65 {
		t.Fatalf("ord('A') = %v, want 65", value.AsNumber(code))
	}

	back, err := callNative(t, mod, "chr", code)
	if err != nil || value.AsString(back) != "A" {
		t.Fatalf("chr(65) = %v, %v; want \"A\", nil", back, err)
	}
}

func TestStringsSplit(t *testing.T) {
	mod := newStringsModule()

	got, err := callNative(t, mod, "split", value.String("a,b,c"), value.String(","))
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	elems := value.AsList(got).Elements
	if len(elems) != 3 || value.AsString(elems[1]) != "b" {
		t.Fatalf("split(\"a,b,c\", \",\") = %v", elems)
	}
}

func TestStringsCompare(t *testing.T) {
	mod := newStringsModule()

	got, err := callNative(t, mod, "compare", value.String("a"), value.String("b"))
	if err != nil || value.AsNumber(got) != -1 {
		t.Fatalf("compare(\"a\",\"b\") = %v, %v; want -1, nil", got, err)
	}
}
