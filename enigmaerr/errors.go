// Package enigmaerr defines the error kinds shared by the workbench packages.
//
// Every failure returned by the engine wraps exactly one of the sentinels
// below, so callers can branch with errors.Is regardless of how much context
// was added on the way up.
package enigmaerr

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidName   = errors.New("enigma: invalid name")
	ErrDuplicateName = errors.New("enigma: duplicate name")
	ErrNonRenameable = errors.New("enigma: entry is not renameable")
	ErrUnknownOwner  = errors.New("enigma: unknown owner")

	ErrMappingParse = errors.New("enigma: mapping parse failure")
	ErrArchiveRead  = errors.New("enigma: archive read failure")
	ErrRegexSyntax  = errors.New("enigma: regex syntax failure")
	ErrDecompile    = errors.New("enigma: decompile failure")
	ErrMatchFile    = errors.New("enigma: match file failure")
)

// LineError is a parse failure tied to a 1-based line of some input file.
type LineError struct {
	Kind error
	Line int
	Err  error
}

func (e *LineError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%v on line %d", e.Kind, e.Line)
	}
	return fmt.Sprintf("%v on line %d: %v", e.Kind, e.Line, e.Err)
}

func (e *LineError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// AtLine builds a LineError of the given kind.
func AtLine(kind error, line int, format string, args ...any) error {
	return &LineError{Kind: kind, Line: line, Err: fmt.Errorf(format, args...)}
}

// ClassError is a failure scoped to a single class, e.g. a decompile error.
type ClassError struct {
	Kind  error
	Class string
	Err   error
}

func (e *ClassError) Error() string {
	return fmt.Sprintf("%v for class %s: %v", e.Kind, e.Class, e.Err)
}

func (e *ClassError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// ForClass builds a ClassError of the given kind.
func ForClass(kind error, class string, err error) error {
	return &ClassError{Kind: kind, Class: class, Err: err}
}

// LineOf returns the line number carried by err, or 0.
func LineOf(err error) int {
	var le *LineError
	if errors.As(err, &le) {
		return le.Line
	}
	return 0
}
