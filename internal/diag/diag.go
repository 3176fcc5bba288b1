// Package diag carries the toolchain's diagnostic sink and domain error kinds.
//
// Both binaries print recoverable diagnostics the same way: a single
// "[ERROR] ..." or "[WARN] ..." line to an io.Writer, gated by a Verbose flag
// for "[DEBUG] ...". Fatal failures at the top of cmd/longi and cmd/longc
// still go through log.Fatalf, matching how the teacher reports CLI failures.
package diag

import (
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
)

// Kind identifies which domain error class a diagnostic belongs to.
type Kind string

const (
	KindLex     Kind = "LexError"
	KindLoad    Kind = "LoadError"
	KindParse   Kind = "ParseError"
	KindRuntime Kind = "RuntimeError"
	KindIO      Kind = "IOError"
	KindFS      Kind = "FSError"
	KindCompile Kind = "CompileError"
)

// Error wraps a Kind with pkg/errors so callers keep a stack trace without
// having to thread one through every return path by hand.
type Error struct {
	Kind Kind
	Code string
	err  error
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s(%s): %v", e.Kind, e.Code, e.err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.err)
}

func (e *Error) Unwrap() error { return e.err }

// New builds a Kind-tagged error, stack-annotated via pkg/errors.
func New(kind Kind, code, format string, args ...any) *Error {
	return &Error{Kind: kind, Code: code, err: errors.Errorf(format, args...)}
}

// Wrap attaches a Kind and optional code to an existing error, preserving
// its stack if it already carries one.
func Wrap(kind Kind, code string, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Code: code, err: errors.WithStack(err)}
}

// Is reports whether err (or anything it wraps) carries the given Kind.
func Is(err error, kind Kind) bool {
	var de *Error
	for err != nil {
		if e, ok := err.(*Error); ok {
			de = e
			break
		}
		err = errors.Unwrap(err)
	}
	return de != nil && de.Kind == kind
}

// Sink is the runtime's diagnostic output — stderr in production, a
// bytes.Buffer in tests.
type Sink struct {
	Out     io.Writer
	Verbose bool
}

// NewSink returns a Sink writing to stderr.
func NewSink(verbose bool) *Sink {
	return &Sink{Out: os.Stderr, Verbose: verbose}
}

func (s *Sink) Errorf(format string, args ...any) {
	fmt.Fprintf(s.Out, "[ERROR] "+format+"\n", args...)
}

func (s *Sink) Warnf(format string, args ...any) {
	fmt.Fprintf(s.Out, "[WARN] "+format+"\n", args...)
}

func (s *Sink) Debugf(format string, args ...any) {
	if !s.Verbose {
		return
	}
	fmt.Fprintf(s.Out, "[DEBUG] "+format+"\n", args...)
}

// Report prints err through Errorf if non-nil, unwrapping *Error for a
// stable "[ERROR] Kind(code): message" shape.
func (s *Sink) Report(err error) {
	if err == nil {
		return
	}
	s.Errorf("%v", err)
}
