// Package txscerr defines the error taxonomy used across the compilation
// pipeline. Every error carries the source line it was raised for.
package txscerr

import "fmt"

// Kind classifies a compilation error.
type Kind string

// Error kinds.
const (
	// ParsingError is raised by a dialect's lexer or parser.
	ParsingError Kind = "ParsingError"

	// IRError is raised while converting SIR to LIR, or by the
	// symbol table. MultipleDeclarations, Immutable and Undeclared
	// symbol-table failures are wrapped into IRError at the visitor
	// boundary.
	IRError Kind = "IRError"

	// IRImplicitPushError is raised when a statement produces a value
	// that would be implicitly pushed to the stack, and implicit
	// pushes are disabled.
	IRImplicitPushError Kind = "IRImplicitPushError"

	// IRStrictNumError is raised when a literal does not fit the
	// 4-byte strict-num range and strict numbers are required.
	IRStrictNumError Kind = "IRStrictNumError"

	// IRTypeError is raised on a type mismatch (e.g. using a byte
	// array where an integer is required).
	IRTypeError Kind = "IRTypeError"

	// DirectiveError is raised by an unrecognized compiler directive.
	DirectiveError Kind = "DirectiveError"
)

// Error is the error value threaded through the whole pipeline.
type Error struct {
	Kind    Kind
	Line    int
	Message string
}

func (e *Error) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s: %s", e.Line, e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// New builds an Error of the given kind at the given line.
func New(kind Kind, line int, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Line: line, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches line to an error, used at visitor boundaries where a
// lower-level failure (e.g. a symbol table error) needs a line number.
// An existing *Error keeps any line it already has and is re-tagged as
// an IRError only if it carries a symbol-table kind; its other kinds
// are kept. Any other error becomes an IRError.
func Wrap(line int, err error) *Error {
	if e, ok := err.(*Error); ok {
		if e.Line == 0 {
			e.Line = line
		}
		switch e.Kind {
		case MultipleDeclarations, Immutable, Undeclared:
			e.Kind = IRError
		}
		return e
	}
	return New(IRError, line, "%s", err.Error())
}

// Symbol-table specific sentinel kinds, wrapped into IRError by callers
// in package sir before being returned across the package boundary.
const (
	MultipleDeclarations Kind = "MultipleDeclarations"
	Immutable            Kind = "Immutable"
	Undeclared           Kind = "Undeclared"
)
