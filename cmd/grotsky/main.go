// cmd/grotsky/main.go
package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	rtdebug "runtime/debug"
	"strings"

	"grotsky/internal/builtins"
	"grotsky/internal/bytecode"
	"grotsky/internal/compiler"
	"grotsky/internal/embedding"
	"grotsky/internal/errors"
	"grotsky/internal/repl"
	"grotsky/internal/serialize"
	"grotsky/internal/value"
	"grotsky/internal/vm"
)

const usage = `Usage:
    grotsky [script.gr | bytecode.grc]
    grotsky compile script.gr
    grotsky embed bytecode.grc
    grotsky repl
`

func main() {
	debug := isEnvTrue("GROTSKY_DEBUG")
	skipBacktrace := isEnvTrue("GROTSKY_SKIP_BACKTRACE")

	// A host-level panic (as opposed to a language exception the VM
	// already catches) only gets its Go stack trace printed under
	// GROTSKY_DEBUG, matching the original's panic hook being a no-op
	// unless that variable is set.
	defer func() {
		if r := recover(); r != nil {
			if debug {
				fmt.Fprintf(os.Stderr, "panic: %v\n%s", r, rtdebug.Stack())
			} else {
				fmt.Fprintf(os.Stderr, "panic: %v\n", r)
			}
			os.Exit(1)
		}
	}()

	if embedded, err := embedding.IsEmbedded(); err == nil && embedded {
		payload, err := embedding.ExecuteEmbedded()
		if err != nil {
			fatal(debug, err)
		}
		program, err := serialize.Read(bytes.NewReader(payload))
		if err != nil {
			fatal(debug, err)
		}
		// argv is not consumed by the launcher here: the script sees the
		// full os.Args through process.argv (spec.md §6).
		os.Exit(run(program, os.Args, skipBacktrace))
	}

	args := os.Args[1:]
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	switch args[0] {
	case "compile":
		if len(args) < 2 {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(1)
		}
		if err := compileCommand(args[1]); err != nil {
			fatal(debug, err)
		}
	case "embed":
		if len(args) < 2 {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(1)
		}
		if err := embedCommand(args[1]); err != nil {
			fatal(debug, err)
		}
	case "repl":
		verbose := len(args) > 1 && args[1] == "-v"
		repl.Start(os.Stdin, os.Stdout, verbose)
	default:
		os.Exit(runScript(args[0], args, skipBacktrace, debug))
	}
}

// runScript runs path, which is either grotsky source or a serialized
// bytecode blob — deserialization is attempted first, per spec.md §6.
func runScript(path string, argv []string, skipBacktrace, debug bool) int {
	raw, err := os.ReadFile(path)
	if err != nil {
		fatal(debug, err)
	}

	if program, serr := serialize.Read(bytes.NewReader(raw)); serr == nil {
		return run(program, argv, skipBacktrace)
	}

	program, _, cerr := compiler.CompileSource(string(raw), path)
	if cerr != nil {
		fatal(debug, cerr)
	}
	return run(program, argv, skipBacktrace)
}

// run wires a fresh VM (builtin table populated after construction, per
// internal/builtins.New's doc comment on the import-builtin chicken-and-
// egg problem) and executes program to completion, returning the
// derived process exit code.
func run(program *bytecode.Program, argv []string, skipBacktrace bool) int {
	builtinTable := map[string]value.Value{}
	machine := vm.New(program, builtinTable)
	machine.SkipBacktrace = skipBacktrace
	for name, v := range builtins.New(machine, argv) {
		builtinTable[name] = v
	}

	result, err := machine.Run()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitCode(value.Value{}, true)
	}
	return exitCode(result, false)
}

func compileCommand(scriptPath string) error {
	source, err := os.ReadFile(scriptPath)
	if err != nil {
		return err
	}
	program, _, err := compiler.CompileSource(string(source), scriptPath)
	if err != nil {
		return err
	}

	out, err := os.Create(siblingWithExt(scriptPath, ".grc"))
	if err != nil {
		return err
	}
	defer out.Close()
	return serialize.Write(out, program)
}

func embedCommand(bytecodePath string) error {
	payload, err := os.ReadFile(bytecodePath)
	if err != nil {
		return err
	}
	return embedding.EmbedFile(payload, siblingWithExt(bytecodePath, ".exe"))
}

func siblingWithExt(path, ext string) string {
	trimmed := strings.TrimSuffix(path, filepath.Ext(path))
	return trimmed + ext
}

func isEnvTrue(name string) bool {
	v := strings.ToLower(os.Getenv(name))
	return v == "1" || v == "true"
}

func fatal(debug bool, err error) {
	if debug {
		if st := errors.StackTrace(err); st != "" {
			fmt.Fprintln(os.Stderr, st)
		}
	}
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}

// exitCode derives the process exit code from the top-level return
// value: an integer Number in [0,256) becomes that code, anything else
// (fractional, out of range, or an uncaught exception) becomes 0 —
// spec.md §6/§9's documented rounding rule.
func exitCode(v value.Value, uncaught bool) int {
	if uncaught {
		return 0
	}
	if v.Kind != value.KindNumber {
		return 0
	}
	n := value.AsNumber(v)
	if n != float64(int(n)) {
		return 0
	}
	i := int(n)
	if i < 0 || i >= 256 {
		return 0
	}
	return i
}
