package builtins

import (
	"strconv"
	"strings"

	"grotsky/internal/errors"
	"grotsky/internal/value"
)

// newStringsModule builds spec.md §6's `strings` module: toLower, toUpper,
// ord, chr, asNumber, split, compare.
func newStringsModule() value.Value {
	return nativeModule(map[string]value.Value{
		"toLower": nativeFn("toLower", func(args []value.Value) (value.Value, error) {
			s, err := requireString(args, 0, "toLower")
			if err != nil {
				return value.Value{}, err
			}
			return value.String(strings.ToLower(s)), nil
		}),
		"toUpper": nativeFn("toUpper", func(args []value.Value) (value.Value, error) {
			s, err := requireString(args, 0, "toUpper")
			if err != nil {
				return value.Value{}, err
			}
			return value.String(strings.ToUpper(s)), nil
		}),
		"ord": nativeFn("ord", func(args []value.Value) (value.Value, error) {
			s, err := requireString(args, 0, "ord")
			if err != nil {
				return value.Value{}, err
			}
			if len(s) == 0 {
				return value.Value{}, errors.NewRuntimeError(errors.KindExpectedString, "ord: empty string")
			}
			r := []rune(s)[0]
			return value.Number(float64(r)), nil
		}),
		"chr": nativeFn("chr", func(args []value.Value) (value.Value, error) {
			n, err := requireNumber(args, 0, "chr")
			if err != nil {
				return value.Value{}, err
			}
			return value.String(string(rune(int(n)))), nil
		}),
		"asNumber": nativeFn("asNumber", func(args []value.Value) (value.Value, error) {
			s, err := requireString(args, 0, "asNumber")
			if err != nil {
				return value.Value{}, err
			}
			n, parseErr := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if parseErr != nil {
				return value.Value{}, errors.NewRuntimeError(errors.KindExpectedNumber, "asNumber: %q is not a number", s)
			}
			return value.Number(n), nil
		}),
		"split": nativeFn("split", func(args []value.Value) (value.Value, error) {
			s, err := requireString(args, 0, "split")
			if err != nil {
				return value.Value{}, err
			}
			sep, err := requireString(args, 1, "split")
			if err != nil {
				return value.Value{}, err
			}
			parts := strings.Split(s, sep)
			out := make([]value.Value, len(parts))
			for i, p := range parts {
				out[i] = value.String(p)
			}
			return value.NewList(out), nil
		}),
		"compare": nativeFn("compare", func(args []value.Value) (value.Value, error) {
			a, err := requireString(args, 0, "compare")
			if err != nil {
				return value.Value{}, err
			}
			b, err := requireString(args, 1, "compare")
			if err != nil {
				return value.Value{}, err
			}
			return value.Number(float64(strings.Compare(a, b))), nil
		}),
	})
}
