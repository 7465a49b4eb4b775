package hostfn

import (
	"fmt"
	"reflect"
	"runtime/cgo"
	"sync"

	"github.com/ebitengine/purego"

	"jitcore/internal/typeck"
)

// Closure is a Go closure reached through a shared per-signature
// trampoline. The trampoline receives the closure's handle as its leading
// pointer-sized argument, so pass Addr and Userdata to
// ModuleGen.AddExternUserdata.
type Closure struct {
	ret      typeck.Type
	params   []typeck.Type
	addr     uintptr
	handle   cgo.Handle
	released bool
}

// NewClosure wraps fn, which follows the same rules as New. Unlike New it
// does not consume a callback slot per function.
func NewClosure(fn any) (*Closure, error) {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return nil, fmt.Errorf("%w: %T is not a function", ErrSignature, fn)
	}
	ret, params, err := signatureOf(v.Type(), 0)
	if err != nil {
		return nil, err
	}
	return &Closure{
		ret:    ret,
		params: params,
		addr:   trampolines.addr(len(params), ret.Kind == typeck.TypeI32),
		handle: cgo.NewHandle(v),
	}, nil
}

func (c *Closure) Return() typeck.Type   { return c.ret }
func (c *Closure) Params() []typeck.Type { return c.params }

// Addr is the trampoline address, shared by closures of equal signature.
func (c *Closure) Addr() uintptr { return c.addr }

// Userdata identifies this closure to the trampoline.
func (c *Closure) Userdata() uintptr { return uintptr(c.handle) }

// Release frees the handle. Native code must not call the closure
// afterwards.
func (c *Closure) Release() {
	if c.released {
		return
	}
	c.released = true
	c.handle.Delete()
}

type trampolineKey struct {
	arity  int
	result bool
}

type trampolineCache struct {
	mu    sync.Mutex
	addrs map[trampolineKey]uintptr
}

var trampolines = &trampolineCache{addrs: make(map[trampolineKey]uintptr)}

func (tc *trampolineCache) addr(arity int, result bool) uintptr {
	key := trampolineKey{arity: arity, result: result}
	tc.mu.Lock()
	defer tc.mu.Unlock()
	if a, ok := tc.addrs[key]; ok {
		return a
	}
	a := purego.NewCallback(trampoline(arity, result).Interface())
	tc.addrs[key] = a
	return a
}

// trampoline builds func(uintptr, int32 x arity) [int32] forwarding to the
// closure named by its first argument.
func trampoline(arity int, result bool) reflect.Value {
	in := make([]reflect.Type, 0, arity+1)
	in = append(in, reflect.TypeFor[uintptr]())
	for range arity {
		in = append(in, int32Type)
	}
	var out []reflect.Type
	if result {
		out = []reflect.Type{int32Type}
	}
	return reflect.MakeFunc(reflect.FuncOf(in, out, false), dispatch)
}

func dispatch(args []reflect.Value) []reflect.Value {
	h := cgo.Handle(uintptr(args[0].Uint()))
	fn, ok := h.Value().(reflect.Value)
	if !ok {
		panic(fmt.Sprintf("hostfn: userdata %#x is not a closure", uintptr(h)))
	}
	return fn.Call(args[1:])
}
