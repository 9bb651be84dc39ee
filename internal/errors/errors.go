// Package errors defines grotsky's two error propagation modes: compile-time
// diagnostics that terminate the process immediately, and the error-kind
// vocabulary used to build runtime exceptions the VM can catch.
package errors

import (
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// Kind names the well-known error categories a grotsky program can raise,
// either at compile time or at runtime.
type Kind string

const (
	KindSyntax               Kind = "SyntaxError"
	KindCompile              Kind = "CompileError"
	KindUndefinedVariable    Kind = "UndefinedVariable"
	KindUndefinedProperty    Kind = "UndefinedProperty"
	KindGlobalAlreadyDefined Kind = "GlobalAlreadyDefined"
	KindExpectedNumber       Kind = "ExpectedNumber"
	KindExpectedString       Kind = "ExpectedString"
	KindExpectedDict         Kind = "ExpectedDict"
	KindExpectedList         Kind = "ExpectedList"
	KindExpectedObject       Kind = "ExpectedObject"
	KindExpectedClass        Kind = "ExpectedClass"
	KindExpectedFunction     Kind = "ExpectedFunction"
	KindExpectedStep         Kind = "ExpectedStep"
	KindExpectedKey          Kind = "ExpectedKey"
	KindExpectedIndex        Kind = "ExpectedIndex"
	KindExpectedCollection   Kind = "ExpectedCollection"
	KindExpectedSuperclass   Kind = "ExpectedSuperclass"
	KindOnlyFunctionsCall    Kind = "OnlyFunctionsCallable"
	KindInvalidArgCount      Kind = "InvalidNumberOfArguments"
	KindUndefinedOperation   Kind = "UndefinedOperation"
	KindUndefinedOperator    Kind = "UndefinedOperator"
	KindCannotUnpack         Kind = "CannotUnpack"
	KindWrongNumberOfValues  Kind = "WrongNumberOfValues"
	KindMaxRecursion         Kind = "MaxRecursion"
	KindReadOnly             Kind = "ReadOnly"
	KindListEmpty            Kind = "ListEmpty"
	KindMethodNotFound       Kind = "MethodNotFound"
)

// CompileError is a one-line diagnostic: line number, lexeme, message.
// Compile-time errors never participate in try/catch; the CLI prints
// Error() and exits non-zero the moment one is produced.
type CompileError struct {
	Kind    Kind
	Message string
	File    string
	Line    int
	Lexeme  string
}

func (e *CompileError) Error() string {
	if e.Lexeme != "" {
		return fmt.Sprintf("%s:%d: %s: %s (near %q)", e.File, e.Line, e.Kind, e.Message, e.Lexeme)
	}
	return fmt.Sprintf("%s:%d: %s: %s", e.File, e.Line, e.Kind, e.Message)
}

// NewCompileError builds a syntax/compile diagnostic.
func NewCompileError(kind Kind, message, file string, line int, lexeme string) *CompileError {
	return &CompileError{Kind: kind, Message: message, File: file, Line: line, Lexeme: lexeme}
}

// RuntimeError is the Go-level error that the VM turns into a catchable
// language exception (a string surfaced through GetExcept). Wrapped with
// pkg/errors to record the Go-level stack at the failing call; the VM
// appends that stack to an uncaught exception's report unless
// GROTSKY_SKIP_BACKTRACE is set, and a caught exception's message carries
// only the kind and message.
type RuntimeError struct {
	Kind    Kind
	Message string
}

func (e *RuntimeError) Error() string { return string(e.Kind) + ": " + e.Message }

// NewRuntimeError constructs and stack-wraps a runtime error.
func NewRuntimeError(kind Kind, format string, args ...interface{}) error {
	return pkgerrors.WithStack(&RuntimeError{Kind: kind, Message: fmt.Sprintf(format, args...)})
}

// StackTrace returns the pkg/errors stack recorded in err, or "" if err
// carries none.
func StackTrace(err error) string {
	type stackTracer interface {
		StackTrace() pkgerrors.StackTrace
	}
	if st, ok := err.(stackTracer); ok {
		return fmt.Sprintf("%+v", st.StackTrace())
	}
	return ""
}
