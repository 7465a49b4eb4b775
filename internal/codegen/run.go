package codegen

import (
	"fmt"

	"tinygo.org/x/go-llvm"

	"jitcore/internal/trace"
	"jitcore/internal/typeck"
)

// Result is what a JIT-executed function returned.
type Result struct {
	// Bits holds the zero-extended integer result.
	Bits     uint64
	Width    int
	HasValue bool
}

// Int32 reinterprets the result as a signed 32-bit value.
func (r Result) Int32() int32 { return int32(uint32(r.Bits)) }

// Bool reports whether the result is non-zero.
func (r Result) Bool() bool { return r.Bits != 0 }

func (r Result) String() string {
	switch {
	case !r.HasValue:
		return "()"
	case r.Width == 1:
		return fmt.Sprint(r.Bool())
	default:
		return fmt.Sprint(r.Int32())
	}
}

// Run verifies the module and executes main with no arguments. Functions
// that declare parameters receive whatever the native ABI leaves in place.
// After Run the module can no longer be extended.
func (m *ModuleGen) Run(main typeck.FuncID) Result {
	if m.closed {
		panic("codegen: use of closed module generator")
	}
	span := trace.Begin(m.tracer, trace.ScopeDriver, "run", 0)
	defer span.End("")

	idx := m.opts.Timer.Begin("verify")
	m.verifyModule()
	m.opts.Timer.End(idx, "")

	ref := m.functions.Get(main)
	hb := trace.StartHeartbeat(m.tracer, m.opts.Heartbeat)
	idx = m.opts.Timer.Begin("run")
	m.executed = true
	gv := m.engine.RunFunction(ref.Fn, nil)
	m.opts.Timer.End(idx, "")
	hb.Stop()
	defer gv.Dispose()

	ret := ref.Type.ReturnType()
	if ret.TypeKind() != llvm.IntegerTypeKind {
		return Result{}
	}
	width := ret.IntTypeWidth()
	bits := gv.Int(false)
	if width < 64 {
		bits &= 1<<width - 1
	}
	return Result{Bits: bits, Width: width, HasValue: true}
}

// RunMain runs the function named "main". See RunEntry.
func (m *ModuleGen) RunMain() (Result, error) { return m.RunEntry("main") }

// RunEntry runs the named function, which must take no parameters and
// return i32, bool or nothing. A missing "main" is reported as NoMainFn;
// any other missing name as VariableNotFound.
func (m *ModuleGen) RunEntry(name string) (Result, error) {
	id, ok := m.types.Lookup(name)
	if !ok {
		if name == "main" {
			return Result{}, &Error{Kind: KindNoMainFn}
		}
		return Result{}, &Error{Kind: KindVariableNotFound, Name: name}
	}
	f := m.types.Function(id)
	if f.IsExtern || len(f.Params) != 0 {
		return Result{}, &Error{Kind: KindInvalidMainFn, Name: f.Name}
	}
	switch m.types.GetType(f.Returns).Kind {
	case typeck.TypeI32, typeck.TypeBool, typeck.TypeVoid, typeck.TypeNever:
	default:
		return Result{}, &Error{Kind: KindInvalidMainFn, Name: f.Name}
	}
	return m.Run(id), nil
}
