package bench

import "fmt"

// ErrorKind classifies driver failures.
type ErrorKind string

const (
	KindCompileFailed  ErrorKind = "CompileFailed"
	KindRunFailed      ErrorKind = "RunFailed"
	KindTimeout        ErrorKind = "Timeout"
	KindParseFailed    ErrorKind = "ParseFailed"
	KindFixtureMissing ErrorKind = "FixtureMissing"
)

// Error is a failure tied to a test case and, optionally, a size.
type Error struct {
	Kind ErrorKind
	Case string
	Size int
	Err  error
}

func (e *Error) Error() string {
	where := e.Case
	if e.Size > 0 {
		where = fmt.Sprintf("%s (size %d)", e.Case, e.Size)
	}
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", where, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", where, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
