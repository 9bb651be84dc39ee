package builtins

import "grotsky/internal/value"

// newProcessModule builds spec.md §6's `process` module: argv, exactly as
// the launcher passes it. For `grotsky script.gr ...` it starts at the
// script path; a self-embedded executable passes its full argument vector,
// its own path first.
func newProcessModule(argv []string) value.Value {
	elems := make([]value.Value, len(argv))
	for i, a := range argv {
		elems[i] = value.String(a)
	}
	return nativeModule(map[string]value.Value{
		"argv": value.NewList(elems),
	})
}
