package codegen

import "fmt"

// Kind classifies recoverable code generation errors.
type Kind uint8

const (
	KindNoMainFn Kind = iota + 1
	KindInvalidMainFn
	KindStaticRedefined
	KindVariableNotFound
	KindType
)

func (k Kind) String() string {
	switch k {
	case KindNoMainFn:
		return "no-main-fn"
	case KindInvalidMainFn:
		return "invalid-main-fn"
	case KindStaticRedefined:
		return "static-redefined"
	case KindVariableNotFound:
		return "variable-not-found"
	case KindType:
		return "type"
	default:
		return "unknown"
	}
}

// Error is the recoverable error returned by the generator. Internal
// contract violations panic instead.
type Error struct {
	Kind Kind
	Name string // offending name, if any
	Err  error  // checker error for KindType
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindNoMainFn:
		return "no main function"
	case KindInvalidMainFn:
		return "invalid main function signature"
	case KindStaticRedefined:
		return fmt.Sprintf("static `%s` already defined", e.Name)
	case KindVariableNotFound:
		return fmt.Sprintf("variable `%s` not found", e.Name)
	case KindType:
		if e.Err != nil {
			return e.Err.Error()
		}
		return "type error"
	default:
		return "codegen error"
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches sentinels by kind, and by name when the target carries one.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Name == "" || t.Name == e.Name)
}

var (
	ErrNoMainFn         = &Error{Kind: KindNoMainFn}
	ErrInvalidMainFn    = &Error{Kind: KindInvalidMainFn}
	ErrStaticRedefined  = &Error{Kind: KindStaticRedefined}
	ErrVariableNotFound = &Error{Kind: KindVariableNotFound}
	ErrType             = &Error{Kind: KindType}
)
