package builtins

import (
	"grotsky/internal/errors"
	"grotsky/internal/value"
)

// newListsModule builds spec.md §6's `lists` module: push (mutates,
// returns the list), pop (mutates, throws if empty, returns the popped
// element) — matching spec §8's round-trip invariant
// `lists.push(L,x); lists.pop(L) == x`.
func newListsModule() value.Value {
	return nativeModule(map[string]value.Value{
		"push": nativeFn("push", func(args []value.Value) (value.Value, error) {
			if len(args) < 2 || args[0].Kind != value.KindList {
				return value.Value{}, errors.NewRuntimeError(errors.KindExpectedList, "push expects a list and a value")
			}
			l := value.AsList(args[0])
			value.Retain(args[1])
			l.Elements = append(l.Elements, args[1])
			value.Retain(args[0])
			return args[0], nil
		}),
		"pop": nativeFn("pop", func(args []value.Value) (value.Value, error) {
			if len(args) < 1 || args[0].Kind != value.KindList {
				return value.Value{}, errors.NewRuntimeError(errors.KindExpectedList, "pop expects a list")
			}
			l := value.AsList(args[0])
			if len(l.Elements) == 0 {
				return value.Value{}, errors.NewRuntimeError(errors.KindListEmpty, "pop: list is empty")
			}
			last := l.Elements[len(l.Elements)-1]
			l.Elements[len(l.Elements)-1] = value.Nil()
			l.Elements = l.Elements[:len(l.Elements)-1]
			return last, nil
		}),
	})
}
