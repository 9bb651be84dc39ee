package compiler

import (
	"grotsky/internal/bytecode"
	"grotsky/internal/errors"
	"grotsky/internal/lexer"
	"grotsky/internal/parser"
)

// CompileSource runs the full lex/parse/compile pipeline over source,
// recovering the parser's panic/recover discipline (it panics with a
// *errors.CompileError on a syntax error, matching the teacher's
// main.go) into a normal Go error instead. topLevelLocals is the
// name->register mapping internal/module needs to expose a module's
// top-level bindings once it finishes running.
func CompileSource(source, file string) (program *bytecode.Program, topLevelLocals map[string]int, err error) {
	defer func() {
		if r := recover(); r != nil {
			if ce, ok := r.(*errors.CompileError); ok {
				err = ce
				return
			}
			if e, ok := r.(error); ok {
				err = e
				return
			}
			err = errors.NewCompileError(errors.KindSyntax, "panic during parse", file, 0, "")
		}
	}()

	scanner := lexer.NewScannerWithFile(source, file)
	tokens := scanner.ScanTokens()

	p := parser.NewParser(tokens, file)
	stmts := p.Parse()

	c := New(file)
	program, err = c.Compile(stmts)
	if err != nil {
		return nil, nil, err
	}
	return program, c.TopLevelLocals(), nil
}

// CompileLine compiles one more chunk of source against an already-
// existing Compiler, so a name bound as a global by a prior call stays
// resolvable (not "undefined variable") in this one — internal/repl's
// one persistent Compiler per session, one program per line. Errors left
// over from a previous failed line are cleared first so they can't leak
// into this one's result.
func CompileLine(c *Compiler, source string) (program *bytecode.Program, err error) {
	defer func() {
		if r := recover(); r != nil {
			if ce, ok := r.(*errors.CompileError); ok {
				err = ce
				return
			}
			if e, ok := r.(error); ok {
				err = e
				return
			}
			err = errors.NewCompileError(errors.KindSyntax, "panic during parse", c.file, 0, "")
		}
	}()

	scanner := lexer.NewScannerWithFile(source, c.file)
	tokens := scanner.ScanTokens()

	p := parser.NewParser(tokens, c.file)
	stmts := p.Parse()

	c.errs = nil
	return c.Compile(stmts)
}
