package builtins

import (
	"os"

	"grotsky/internal/value"
)

// newEnvModule builds spec.md §6's `env` module: get(name), set(name,
// value).
func newEnvModule() value.Value {
	return nativeModule(map[string]value.Value{
		"get": nativeFn("get", func(args []value.Value) (value.Value, error) {
			name, err := requireString(args, 0, "get")
			if err != nil {
				return value.Value{}, err
			}
			v, ok := os.LookupEnv(name)
			if !ok {
				return value.Nil(), nil
			}
			return value.String(v), nil
		}),
		"set": nativeFn("set", func(args []value.Value) (value.Value, error) {
			name, err := requireString(args, 0, "set")
			if err != nil {
				return value.Value{}, err
			}
			val, err := requireString(args, 1, "set")
			if err != nil {
				return value.Value{}, err
			}
			if setErr := os.Setenv(name, val); setErr != nil {
				return value.Value{}, setErr
			}
			return value.Nil(), nil
		}),
	})
}
