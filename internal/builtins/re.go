package builtins

import (
	"regexp"

	"grotsky/internal/errors"
	"grotsky/internal/value"
)

// newReModule builds spec.md §6's `re` module: find (list of matched
// strings), match (bool). Grounded on the teacher's internal/vmregister/
// stdlib.go regex_find/regex_match, which also reach straight for the
// standard library's regexp rather than a third-party engine — no pack
// repo carries one, so stdlib is the idiomatic choice here too.
func newReModule() value.Value {
	return nativeModule(map[string]value.Value{
		"find": nativeFn("find", func(args []value.Value) (value.Value, error) {
			pattern, err := requireString(args, 0, "find")
			if err != nil {
				return value.Value{}, err
			}
			text, err := requireString(args, 1, "find")
			if err != nil {
				return value.Value{}, err
			}
			re, compileErr := regexp.Compile(pattern)
			if compileErr != nil {
				return value.Value{}, errors.NewRuntimeError(errors.KindExpectedString, "find: bad pattern: %v", compileErr)
			}
			matches := re.FindAllString(text, -1)
			out := make([]value.Value, len(matches))
			for i, m := range matches {
				out[i] = value.String(m)
			}
			return value.NewList(out), nil
		}),
		"match": nativeFn("match", func(args []value.Value) (value.Value, error) {
			pattern, err := requireString(args, 0, "match")
			if err != nil {
				return value.Value{}, err
			}
			text, err := requireString(args, 1, "match")
			if err != nil {
				return value.Value{}, err
			}
			matched, matchErr := regexp.MatchString(pattern, text)
			if matchErr != nil {
				return value.Value{}, errors.NewRuntimeError(errors.KindExpectedString, "match: bad pattern: %v", matchErr)
			}
			return value.Bool(matched), nil
		}),
	})
}
