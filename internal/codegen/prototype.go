package codegen

import (
	"tinygo.org/x/go-llvm"

	"jitcore/internal/typeck"
)

// paramType maps a typed parameter to its native type. Zero-sized and
// function-typed parameters have no native form and are dropped.
func (m *ModuleGen) paramType(t typeck.Type) (llvm.Type, bool) {
	switch t.Kind {
	case typeck.TypeI32:
		return m.ctx.Int32Type(), true
	case typeck.TypeBool:
		return m.ctx.Int1Type(), true
	default:
		return llvm.Type{}, false
	}
}

func (m *ModuleGen) returnType(t typeck.Type) llvm.Type {
	if nt, ok := m.paramType(t); ok {
		return nt
	}
	return m.ctx.VoidType()
}

// valueType is the in-memory type of a non-function binding. Void and never
// values are carried as the empty struct.
func (m *ModuleGen) valueType(t typeck.Type) llvm.Type {
	if nt, ok := m.paramType(t); ok {
		return nt
	}
	return m.unit
}

func (m *ModuleGen) unitValue() llvm.Value { return llvm.ConstNull(m.unit) }

// prototype builds the native function type for a typed signature.
func (m *ModuleGen) prototype(ret typeck.Type, params []typeck.Type) llvm.Type {
	native := make([]llvm.Type, 0, len(params))
	for _, p := range params {
		if nt, ok := m.paramType(p); ok {
			native = append(native, nt)
		}
	}
	return llvm.FunctionType(m.returnType(ret), native, false)
}

func (m *ModuleGen) signature(f *typeck.Function) (typeck.Type, []typeck.Type) {
	params := make([]typeck.Type, len(f.Params))
	for i, p := range f.Params {
		params[i] = m.types.GetType(p)
	}
	return m.types.GetType(f.Returns), params
}

// nativeParamIndex maps typed parameter index i of f to its position in
// the native prototype. ok is false when the parameter was dropped.
func (m *ModuleGen) nativeParamIndex(f *typeck.Function, i int) (int, bool) {
	if _, ok := m.paramType(m.types.GetType(f.Params[i])); !ok {
		return 0, false
	}
	idx := 0
	for _, p := range f.Params[:i] {
		if _, ok := m.paramType(m.types.GetType(p)); ok {
			idx++
		}
	}
	return idx, true
}
