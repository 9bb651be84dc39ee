package builtins

import (
	"testing"

	"grotsky/internal/value"
)

func TestListsPushPopRoundTrip(t *testing.T) {
	mod := newListsModule()
	list := value.NewList(nil)

	if _, err := callNative(t, mod, "push", list, value.Number(1)); err != nil {
		t.Fatalf("push: %v", err)
	}
	if _, err := callNative(t, mod, "push", list, value.Number(2)); err != nil {
		t.Fatalf("push: %v", err)
	}

	popped, err := callNative(t, mod, "pop", list)
	if err != nil {
		t.Fatalf("pop: %v", err)
	}
	if value.AsNumber(popped) != 2 {
		t.Fatalf("pop: got %v, want 2", value.AsNumber(popped))
	}
	if n := len(value.AsList(list).Elements); n != 1 {
		t.Fatalf("list length after pop: got %d, want 1", n)
	}
}

func TestListsPopEmptyThrows(t *testing.T) {
	mod := newListsModule()
	list := value.NewList(nil)

	if _, err := callNative(t, mod, "pop", list); err == nil {
		t.Fatal("pop on an empty list: want error, got nil")
	}
}
