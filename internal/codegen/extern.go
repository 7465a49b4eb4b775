package codegen

import (
	"errors"
	"fmt"

	"tinygo.org/x/go-llvm"

	"jitcore/internal/trace"
	"jitcore/internal/typeck"
)

// HostFunc is a native-callable host function with a typed signature.
type HostFunc interface {
	Return() typeck.Type
	Params() []typeck.Type
	// Addr is the C-ABI entry point.
	Addr() uintptr
}

// AddExtern makes fn callable from lowered code under name.
func (m *ModuleGen) AddExtern(name string, fn HostFunc) error {
	return m.addExtern(name, fn.Addr(), 0, false, fn.Return(), fn.Params())
}

// AddExternUserdata registers a host entry point that expects userdata as a
// leading pointer-sized argument. Lowered code calls it with the typed
// parameters only; the wrapper supplies userdata.
func (m *ModuleGen) AddExternUserdata(name string, fnPtr, userdata uintptr, ret typeck.Type, params []typeck.Type) error {
	return m.addExtern(name, fnPtr, userdata, true, ret, params)
}

// addExtern emits a wrapper named after the extern. The wrapper has the
// typed prototype and forwards to the host address baked in as a constant.
func (m *ModuleGen) addExtern(name string, fnPtr, userdata uintptr, withUserdata bool, ret typeck.Type, params []typeck.Type) error {
	m.mustBeWritable()
	if _, taken := m.types.Lookup(name); taken {
		return &Error{Kind: KindStaticRedefined, Name: name}
	}
	span := trace.Begin(m.tracer, trace.ScopeFunc, "extern:"+name, 0)
	defer span.End("")

	wrapperTy := m.prototype(ret, params)
	targetTy := wrapperTy
	if withUserdata {
		targetParams := append([]llvm.Type{m.word}, wrapperTy.ParamTypes()...)
		targetTy = llvm.FunctionType(wrapperTy.ReturnType(), targetParams, false)
	}

	id, err := m.types.AddExtern(name, ret, params)
	if err != nil {
		if errors.Is(err, typeck.ErrNameTaken) {
			return &Error{Kind: KindStaticRedefined, Name: name}
		}
		return err
	}
	wrapper := llvm.AddFunction(m.module, name, wrapperTy)
	// internal, so a wrapper named like a libc symbol never resolves to it
	wrapper.SetLinkage(llvm.InternalLinkage)
	m.functions.Set(id, FunctionRef{Fn: wrapper, Type: wrapperTy})

	entry := m.ctx.AddBasicBlock(wrapper, "entry")
	m.builder.SetInsertPointAtEnd(entry)
	target := m.hostTarget(fnPtr, targetTy)

	args := make([]llvm.Value, 0, len(params)+1)
	if withUserdata {
		args = append(args, llvm.ConstInt(m.word, uint64(userdata), false))
	}
	args = append(args, wrapper.Params()...)

	switch targetTy.ReturnType().TypeKind() {
	case llvm.IntegerTypeKind:
		result := m.builder.CreateCall(targetTy, target, args, "call-fn-ptr")
		m.builder.CreateRet(result)
	case llvm.VoidTypeKind:
		m.builder.CreateCall(targetTy, target, args, "")
		m.builder.CreateRetVoid()
	default:
		panic(fmt.Sprintf("codegen: extern %s: unsupported return type %s", name, targetTy.ReturnType()))
	}
	m.verifyFunction(wrapper, name)
	return nil
}

// hostTarget materializes a host address as a callable pointer. The
// pointer is typed after the callee so typed-pointer LLVM builds verify.
func (m *ModuleGen) hostTarget(fnPtr uintptr, targetTy llvm.Type) llvm.Value {
	ptrTy := llvm.PointerType(targetTy, 0)
	return m.builder.CreateIntToPtr(llvm.ConstInt(m.word, uint64(fnPtr), false), ptrTy, "wrapped-fn-ptr")
}
