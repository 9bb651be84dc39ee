package builtins

import "grotsky/internal/value"

// newTypeBuiltin builds spec.md §6's `type`: unlike the other builtins it
// is directly callable (not a module with sub-properties), returning the
// tag name of its single argument.
func newTypeBuiltin() value.Value {
	return nativeFn("type", func(args []value.Value) (value.Value, error) {
		if len(args) == 0 {
			return value.String("nil"), nil
		}
		return value.String(args[0].Kind.String()), nil
	})
}
