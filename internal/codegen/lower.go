package codegen

import (
	"fmt"

	"tinygo.org/x/go-llvm"

	"jitcore/internal/trace"
	"jitcore/internal/typeck"
)

// funcLowerer carries the state for one function body.
type funcLowerer struct {
	m   *ModuleGen
	f   *typeck.Function
	ref FunctionRef
}

// lowerFunction emits the body of f into its registered stub. Stack slots
// go to a dedicated "allocas" block so they dominate every use; that block
// is closed with a branch to the entry block only after the body is done.
func (m *ModuleGen) lowerFunction(f *typeck.Function, parent uint64) {
	name := nativeName(f)
	span := trace.Begin(m.tracer, trace.ScopeFunc, "lower:"+name, parent)
	defer span.End("")

	ref := m.functions.Get(f.ID)
	prologue := m.ctx.AddBasicBlock(ref.Fn, "allocas")
	m.allocaBuilder.SetInsertPointAtEnd(prologue)

	m.tmps.Clear()
	m.vars.Clear()
	m.blocks.Clear()
	m.tmps.Reserve(len(f.Temporaries))
	m.vars.Reserve(len(f.Variables))
	m.blocks.Reserve(len(f.Blocks))

	for i := range f.Blocks {
		id := f.Blocks[i].ID
		label := "entry"
		if id != 0 {
			label = fmt.Sprintf("bb%d", id)
		}
		m.blocks.Set(id, m.ctx.AddBasicBlock(ref.Fn, label))
	}

	fl := &funcLowerer{m: m, f: f, ref: ref}
	for i := range f.Blocks {
		bb := &f.Blocks[i]
		m.builder.SetInsertPointAtEnd(m.blocks.Get(bb.ID))
		for j := range bb.Stmts {
			st := trace.Begin(m.tracer, trace.ScopeStmt, bb.Stmts[j].Kind.String(), span.ID())
			fl.lowerStmt(&bb.Stmts[j])
			if st.ID() != 0 {
				st.End(fmt.Sprintf("bb%d.%d", bb.ID, j))
			}
		}
	}

	m.allocaBuilder.CreateBr(m.blocks.Get(0))
	fl.checkSlots()
	m.verifyFunction(ref.Fn, name)
}

func (fl *funcLowerer) fatalf(format string, args ...any) {
	panic(fmt.Sprintf("codegen: %s: %s", nativeName(fl.f), fmt.Sprintf(format, args...)))
}

func (fl *funcLowerer) value(id typeck.TmpID) llvm.Value {
	v, ok := fl.m.tmps.Get(id).AsValue()
	if !ok {
		fl.fatalf("t%d is a function reference, expected a value", id)
	}
	return v
}

func (fl *funcLowerer) tmpType(id typeck.TmpID) typeck.Type {
	return fl.m.types.GetType(fl.f.Tmp(id))
}

func (fl *funcLowerer) lowerStmt(s *typeck.Statement) {
	m := fl.m
	b := m.builder
	switch s.Kind {
	case typeck.StmtLet:
		slot := m.tmps.Get(s.Let.Src)
		if v, ok := slot.AsValue(); ok {
			ptr := m.allocaBuilder.CreateAlloca(v.Type(), fmt.Sprintf("v%d", s.Let.Dst))
			b.CreateStore(v, ptr)
			m.vars.Set(s.Let.Dst, valueSlot(ptr))
			return
		}
		m.vars.Set(s.Let.Dst, slot)

	case typeck.StmtStore:
		ptr, ok := m.vars.Get(s.Store.Dst).AsValue()
		if !ok {
			fl.fatalf("store into function binding v%d", s.Store.Dst)
		}
		b.CreateStore(fl.value(s.Store.Src), ptr)

	case typeck.StmtLoad:
		slot := m.vars.Get(s.Load.Src)
		ptr, ok := slot.AsValue()
		if !ok {
			m.tmps.Set(s.Load.Dst, slot)
			return
		}
		ty := m.valueType(m.types.GetType(fl.f.Var(s.Load.Src)))
		m.tmps.Set(s.Load.Dst, valueSlot(b.CreateLoad(ty, ptr, fmt.Sprintf("t%d", s.Load.Dst))))

	case typeck.StmtExtern, typeck.StmtFunc:
		m.tmps.Set(s.Ref.Dst, funcSlot(m.functions.Get(s.Ref.Src)))

	case typeck.StmtConst:
		m.tmps.Set(s.Const.Dst, valueSlot(m.constValue(s.Const.Value)))

	case typeck.StmtBinExpr:
		lhs := fl.value(s.Bin.Lhs)
		rhs := fl.value(s.Bin.Rhs)
		v := m.lowerBinary(fl.tmpType(s.Bin.Lhs), s.Bin.Op, lhs, rhs)
		m.tmps.Set(s.Bin.Dst, valueSlot(v))

	case typeck.StmtCall:
		callee, ok := m.tmps.Get(s.Call.Func).AsFunc()
		if !ok {
			fl.fatalf("call through t%d which is not a function reference", s.Call.Func)
		}
		args := make([]llvm.Value, 0, len(s.Call.Args))
		for _, a := range s.Call.Args {
			v, isValue := m.tmps.Get(a).AsValue()
			if !isValue {
				fl.fatalf("cannot pass function t%d as an argument", a)
			}
			// zero-sized arguments were dropped from the prototype
			if _, native := m.paramType(fl.tmpType(a)); !native {
				continue
			}
			args = append(args, v)
		}
		if callee.Type.ReturnType().TypeKind() == llvm.VoidTypeKind {
			b.CreateCall(callee.Type, callee.Fn, args, "")
			m.tmps.Set(s.Call.Dst, m.callResult(fl.tmpType(s.Call.Dst), m.unitValue()))
			return
		}
		ret := b.CreateCall(callee.Type, callee.Fn, args, fmt.Sprintf("t%d", s.Call.Dst))
		m.tmps.Set(s.Call.Dst, valueSlot(ret))

	case typeck.StmtParam:
		idx, ok := m.nativeParamIndex(fl.f, s.Param.Index)
		if !ok {
			m.tmps.Set(s.Param.Dst, valueSlot(m.unitValue()))
			return
		}
		m.tmps.Set(s.Param.Dst, valueSlot(fl.ref.Fn.Param(idx)))

	case typeck.StmtReturn:
		v := fl.value(s.Return.Value)
		if fl.ref.Type.ReturnType().TypeKind() == llvm.VoidTypeKind {
			b.CreateRetVoid()
			return
		}
		b.CreateRet(v)

	case typeck.StmtReturnVoid:
		b.CreateRetVoid()

	case typeck.StmtJump:
		b.CreateBr(m.blocks.Get(s.Jump.Target))

	case typeck.StmtCondJump:
		b.CreateCondBr(fl.value(s.Branch.Cond), m.blocks.Get(s.Branch.Then), m.blocks.Get(s.Branch.Else))

	default:
		fl.fatalf("unsupported statement %s", s.Kind)
	}
}

// callResult binds the result of a void native call. A function-typed
// destination would need a reference we cannot produce from a call.
func (m *ModuleGen) callResult(dst typeck.Type, unit llvm.Value) Slot {
	if dst.IsFunc() {
		panic(fmt.Sprintf("codegen: call result of type %s has no native form", dst))
	}
	return valueSlot(unit)
}

func (m *ModuleGen) constValue(c typeck.ConstLiteral) llvm.Value {
	switch c.Kind {
	case typeck.ConstI32:
		return llvm.ConstInt(m.ctx.Int32Type(), uint64(int64(c.Int)), true)
	case typeck.ConstBool:
		var bit uint64
		if c.Bool {
			bit = 1
		}
		return llvm.ConstInt(m.ctx.Int1Type(), bit, false)
	case typeck.ConstUnit:
		return m.unitValue()
	default:
		panic(fmt.Sprintf("codegen: unknown constant kind %d", c.Kind))
	}
}

// checkSlots asserts that every bound slot agrees with its static type:
// function types are references, all others are values.
func (fl *funcLowerer) checkSlots() {
	for i, tid := range fl.f.Temporaries {
		slot, ok := fl.m.tmps.Lookup(typeck.DenseID[typeck.TmpID](i))
		if !ok {
			continue
		}
		fl.checkSlot(slot, fl.m.types.GetType(tid), fmt.Sprintf("t%d", i))
	}
	for i, tid := range fl.f.Variables {
		slot, ok := fl.m.vars.Lookup(typeck.DenseID[typeck.VarID](i))
		if !ok {
			continue
		}
		fl.checkSlot(slot, fl.m.types.GetType(tid), fmt.Sprintf("v%d", i))
	}
}

func (fl *funcLowerer) checkSlot(slot Slot, t typeck.Type, what string) {
	if t.IsFunc() != (slot.Kind == SlotFunc) {
		fl.fatalf("%s of type %s bound as the wrong slot kind", what, t)
	}
}
