// Package hostfn turns Go functions into native entry points that lowered
// code can call as externs.
//
// Only int32 parameters and an int32 or absent result are accepted. Those
// are the host-side forms of the i32 and void prototypes; bool parameters
// are rejected because the native ABI leaves the upper bits of an i1
// argument undefined.
package hostfn

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/ebitengine/purego"

	"jitcore/internal/typeck"
)

// ErrSignature reports a Go function that has no native counterpart.
var ErrSignature = errors.New("unsupported host function signature")

var int32Type = reflect.TypeFor[int32]()

// Func is a Go function exposed at a C-ABI address. Callback addresses are
// never reclaimed, so create one Func per host function and reuse it.
type Func struct {
	ret    typeck.Type
	params []typeck.Type
	addr   uintptr
}

// New wraps fn, which must be a func of int32 params returning int32 or
// nothing.
func New(fn any) (*Func, error) {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return nil, fmt.Errorf("%w: %T is not a function", ErrSignature, fn)
	}
	ret, params, err := signatureOf(v.Type(), 0)
	if err != nil {
		return nil, err
	}
	return &Func{ret: ret, params: params, addr: purego.NewCallback(fn)}, nil
}

func (f *Func) Return() typeck.Type   { return f.ret }
func (f *Func) Params() []typeck.Type { return f.params }
func (f *Func) Addr() uintptr         { return f.addr }

// signatureOf maps t to a typed signature, ignoring the first skip params.
func signatureOf(t reflect.Type, skip int) (typeck.Type, []typeck.Type, error) {
	if t.IsVariadic() {
		return typeck.Type{}, nil, fmt.Errorf("%w: variadic %s", ErrSignature, t)
	}
	params := make([]typeck.Type, 0, t.NumIn()-skip)
	for i := skip; i < t.NumIn(); i++ {
		if t.In(i) != int32Type {
			return typeck.Type{}, nil, fmt.Errorf("%w: parameter %d of %s is %s, want int32", ErrSignature, i-skip, t, t.In(i))
		}
		params = append(params, typeck.I32)
	}
	switch t.NumOut() {
	case 0:
		return typeck.Void, params, nil
	case 1:
		if t.Out(0) != int32Type {
			return typeck.Type{}, nil, fmt.Errorf("%w: result of %s is %s, want int32", ErrSignature, t, t.Out(0))
		}
		return typeck.I32, params, nil
	default:
		return typeck.Type{}, nil, fmt.Errorf("%w: %s has %d results", ErrSignature, t, t.NumOut())
	}
}
