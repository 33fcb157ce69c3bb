package errors

import (
	"fmt"
	"io"
	"strings"

	"github.com/go-stack/stack"
)

// EngineError is the interface implemented by all errors the engine reports
// to its host.
type EngineError interface {
	error // Embed the standard error interface
	Pos() Position
	Kind() string // e.g., "Runtime", "Load", "Fatal"
	// Message returns the specific error message without position info.
	Message() string
	Unwrap() error // For error wrapping support (errors.Is/As)
}

// --- Concrete Error Types ---

// RuntimeError is an uncaught script exception surfaced to the host.
type RuntimeError struct {
	Position
	Msg   string
	Trace string // "\n\tat name (file:line)" lines, innermost first
	Cause error  // Underlying cause, if any
}

func (e *RuntimeError) Error() string {
	if e.File == "" {
		return fmt.Sprintf("Runtime Error: %s", e.Msg)
	}
	return fmt.Sprintf("Runtime Error at %s: %s", e.Position, e.Msg)
}
func (e *RuntimeError) Pos() Position   { return e.Position }
func (e *RuntimeError) Kind() string    { return "Runtime" }
func (e *RuntimeError) Message() string { return e.Msg }
func (e *RuntimeError) Unwrap() error   { return e.Cause }
func (e *RuntimeError) CausedBy(cause error) *RuntimeError {
	e.Cause = cause
	return e
}

// LoadError is raised while reading configuration or function units.
type LoadError struct {
	Position
	Msg   string
	Cause error // Underlying cause, if any
}

func (e *LoadError) Error() string {
	if e.Line == 0 {
		return fmt.Sprintf("Load Error in %s: %s", e.File, e.Msg)
	}
	return fmt.Sprintf("Load Error at %s: %s", e.Position, e.Msg)
}
func (e *LoadError) Pos() Position   { return e.Position }
func (e *LoadError) Kind() string    { return "Load" }
func (e *LoadError) Message() string { return e.Msg }
func (e *LoadError) Unwrap() error   { return e.Cause }
func (e *LoadError) CausedBy(cause error) *LoadError {
	e.Cause = cause
	return e
}

// FatalError reports a broken engine invariant: an uncaught throw with no
// handler, stack underflow, or try/environment stack overflow. The engine
// panics with it; it is never visible to scripts.
type FatalError struct {
	Position
	Msg    string
	Trace  string     // script call trace at the time of failure
	Caller stack.Call // Go call site that detected the failure
}

// NewFatalError records the Go call site skip frames above the caller.
func NewFatalError(msg, trace string, skip int) *FatalError {
	return &FatalError{Msg: msg, Trace: trace, Caller: stack.Caller(skip + 1)}
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("Fatal Error: %s (detected at %+v)", e.Msg, e.Caller)
}
func (e *FatalError) Pos() Position   { return e.Position }
func (e *FatalError) Kind() string    { return "Fatal" }
func (e *FatalError) Message() string { return e.Msg }
func (e *FatalError) Unwrap() error   { return nil }

// --- Error Reporting ---

// DisplayErrors writes a list of engine errors to w, each followed by its
// script stack trace when one is known.
func DisplayErrors(w io.Writer, errs []EngineError) {
	for _, err := range errs {
		pos := err.Pos()
		if pos.File != "" {
			fmt.Fprintf(w, "%s Error at %s: %s\n", err.Kind(), pos, err.Message())
		} else {
			fmt.Fprintf(w, "%s Error: %s\n", err.Kind(), err.Message())
		}
		var trace string
		switch e := err.(type) {
		case *RuntimeError:
			trace = e.Trace
		case *FatalError:
			trace = e.Trace
		}
		if trace != "" {
			fmt.Fprintf(w, "%s\n", strings.TrimPrefix(trace, "\n"))
		}
		fmt.Fprintln(w)
	}
}
