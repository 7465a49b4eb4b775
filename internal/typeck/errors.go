package typeck

import "fmt"

// Code classifies checker errors.
type Code uint8

const (
	CodeUnknownName Code = iota + 1
	CodeDuplicateName
	CodeTypeMismatch
	CodeArity
	CodeMalformed
	CodeNoEntry
)

func (c Code) String() string {
	switch c {
	case CodeUnknownName:
		return "unknown name"
	case CodeDuplicateName:
		return "duplicate name"
	case CodeTypeMismatch:
		return "type mismatch"
	case CodeArity:
		return "arity mismatch"
	case CodeMalformed:
		return "malformed"
	case CodeNoEntry:
		return "no entry"
	default:
		return "unknown"
	}
}

// Error is a checker diagnostic.
type Error struct {
	Code Code
	Func string
	Msg  string
}

func (e *Error) Error() string {
	if e.Func != "" {
		return fmt.Sprintf("%s: %s: %s", e.Func, e.Code, e.Msg)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

func errorf(code Code, fn, format string, args ...any) *Error {
	return &Error{Code: code, Func: fn, Msg: fmt.Sprintf(format, args...)}
}
