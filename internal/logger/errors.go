package logger

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
)

// WrappedError annotates an error with the operation that failed and the
// source location that reported it.
type WrappedError struct {
	op     string
	err    error
	caller string
}

func (e *WrappedError) Error() string {
	if e.err == nil {
		return e.op
	}
	return e.op + ": " + e.err.Error()
}

func (e *WrappedError) Unwrap() error {
	return e.err
}

// Caller returns the file:line that wrapped the error.
func (e *WrappedError) Caller() string {
	return e.caller
}

// WrapError records op and the calling location on err. A nil err stays nil.
func WrapError(err error, op string) error {
	if err == nil {
		return nil
	}
	caller := "unknown"
	if _, file, line, ok := runtime.Caller(1); ok {
		caller = fmt.Sprintf("%s:%d", trimPath(file, 2), line)
	}
	return &WrappedError{op: op, err: err, caller: caller}
}

// WithError renders err as an "error" group carrying its message, type,
// direct cause and, for wrapped errors, the caller.
func WithError(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}

	attrs := []any{
		slog.String("message", err.Error()),
		slog.String("type", fmt.Sprintf("%T", err)),
	}
	if cause := errors.Unwrap(err); cause != nil {
		attrs = append(attrs, slog.String("cause", cause.Error()))
	}
	var we *WrappedError
	if errors.As(err, &we) {
		attrs = append(attrs, slog.String("caller", we.caller))
	}
	return slog.Group("error", attrs...)
}

// WithStack renders the calling goroutine's stack, runtime frames omitted.
func WithStack() slog.Attr {
	var pcs [32]uintptr
	n := runtime.Callers(2, pcs[:])

	var lines []string
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.File, "runtime/") {
			lines = append(lines, fmt.Sprintf("%s:%d %s", trimPath(frame.File, 3), frame.Line, frame.Function))
		}
		if !more {
			break
		}
	}
	return slog.String("stack", strings.Join(lines, "\n"))
}

// trimPath keeps the last n elements of a slash separated path.
func trimPath(path string, n int) string {
	parts := strings.Split(path, "/")
	if len(parts) <= n {
		return path
	}
	return strings.Join(parts[len(parts)-n:], "/")
}
