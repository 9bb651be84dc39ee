package builtins

import (
	stdtime "time"

	"github.com/ncruces/go-strftime"

	"grotsky/internal/errors"
	"grotsky/internal/value"
)

// newTimeModule builds SPEC_FULL.md's additive `time` module: now() (unix
// seconds) and format(t, layout) using C-strftime-style layouts via
// github.com/ncruces/go-strftime, a deliberate ergonomic choice over Go's
// reference-time layout strings for a C-like scripting language.
func newTimeModule() value.Value {
	return nativeModule(map[string]value.Value{
		"now": nativeFn("now", func(args []value.Value) (value.Value, error) {
			return value.Number(float64(stdtime.Now().Unix())), nil
		}),
		"format": nativeFn("format", func(args []value.Value) (value.Value, error) {
			unixSeconds, err := requireNumber(args, 0, "format")
			if err != nil {
				return value.Value{}, err
			}
			layout, err := requireString(args, 1, "format")
			if err != nil {
				return value.Value{}, err
			}
			t := stdtime.Unix(int64(unixSeconds), 0).UTC()
			out, fmtErr := strftime.Format(layout, t)
			if fmtErr != nil {
				return value.Value{}, errors.NewRuntimeError(errors.KindExpectedString, "format: %v", fmtErr)
			}
			return value.String(out), nil
		}),
	})
}
