// Package repl implements grotsky's interactive `grotsky repl` prompt:
// read a line, compile it against a persistent Compiler (so a name bound
// on one line resolves on the next), run it against a persistent VM (so
// its value persists too), print whatever it throws.
//
// Grounded on the teacher's internal/repl/repl.go read-compile-run loop
// shape; generalized from "one fresh compiler+chunk per line" (which
// would forget every binding at the next prompt) to grotsky's
// session-spanning Compiler/VM per compiler.CompileLine's doc comment.
package repl

import (
	"bufio"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"grotsky/internal/builtins"
	"grotsky/internal/bytecode"
	"grotsky/internal/compiler"
	"grotsky/internal/value"
	"grotsky/internal/vm"
)

const replFile = "<repl>"

// Start runs the REPL loop against in/out until in hits EOF or the user
// types "exit". verbose prints a humanized elapsed-time after every
// top-level statement (`grotsky repl -v`).
func Start(in io.Reader, out io.Writer, verbose bool) {
	interactive := false
	if f, ok := in.(interface{ Fd() uintptr }); ok {
		interactive = isatty.IsTerminal(f.Fd())
	}

	program := &bytecode.Program{TopLevel: &bytecode.FnPrototype{Name: "<main>", File: replFile}}
	builtinTable := map[string]value.Value{}
	machine := vm.New(program, builtinTable)
	for name, v := range builtins.New(machine, nil) {
		builtinTable[name] = v
	}

	c := compiler.New(replFile)
	scanner := bufio.NewScanner(in)

	if interactive {
		fmt.Fprintln(out, "grotsky REPL | type 'exit' to quit")
	}

	for {
		if interactive {
			fmt.Fprint(out, ">>> ")
		}
		if !scanner.Scan() {
			return
		}
		line := scanner.Text()
		if line == "exit" {
			return
		}
		if line == "" {
			continue
		}

		start := time.Now()

		compiled, err := compiler.CompileLine(c, line)
		if err != nil {
			fmt.Fprintln(out, err)
			continue
		}

		_, err = machine.RunLine(compiled)
		if err != nil {
			fmt.Fprintln(out, err)
			continue
		}

		if verbose {
			fmt.Fprintf(out, "(%s)\n", humanize.Time(start))
		}
	}
}
