package codegen

import (
	"bytes"
	"strings"
	"testing"

	"tinygo.org/x/go-llvm"

	"jitcore/internal/typeck"
)

func TestPrototypeDropsZeroSizedParams(t *testing.T) {
	m := newGen(t, DefaultOptions())
	tests := []struct {
		name   string
		ret    typeck.Type
		params []typeck.Type
		want   []llvm.TypeKind
		retK   llvm.TypeKind
	}{
		{name: "scalars", ret: typeck.I32, params: []typeck.Type{typeck.I32, typeck.Bool}, want: []llvm.TypeKind{llvm.IntegerTypeKind, llvm.IntegerTypeKind}, retK: llvm.IntegerTypeKind},
		{name: "mixed", ret: typeck.Void, params: []typeck.Type{typeck.Void, typeck.I32, typeck.FuncType(0), typeck.Never}, want: []llvm.TypeKind{llvm.IntegerTypeKind}, retK: llvm.VoidTypeKind},
		{name: "never", ret: typeck.Never, retK: llvm.VoidTypeKind},
		{name: "bool result", ret: typeck.Bool, retK: llvm.IntegerTypeKind},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ty := m.prototype(tt.ret, tt.params)
			if k := ty.ReturnType().TypeKind(); k != tt.retK {
				t.Errorf("return kind = %v, want %v", k, tt.retK)
			}
			params := ty.ParamTypes()
			if len(params) != len(tt.want) {
				t.Fatalf("params = %d, want %d", len(params), len(tt.want))
			}
			for i, p := range params {
				if p.TypeKind() != tt.want[i] {
					t.Errorf("param %d kind = %v, want %v", i, p.TypeKind(), tt.want[i])
				}
			}
		})
	}
}

func TestParamIndexSkipsDroppedParams(t *testing.T) {
	m := newGen(t, DefaultOptions())
	p := typeck.NewProgram().SetEntry("main")
	pick := p.Func("pick", typeck.I32, typeck.Void, typeck.I32, typeck.Bool, typeck.I32)
	second := pick.Param(3)
	first := pick.Param(1)
	pick.Return(pick.Bin(first, typeck.OpSub, second))

	main := p.Func("main", typeck.I32)
	unit := main.Temp(typeck.Void)
	main.Emit(typeck.Const(unit, typeck.UnitLit()))
	main.Return(main.Call(main.Ref("pick"), typeck.I32, unit, main.Const(50), main.ConstBool(true), main.Const(8)))

	if res := m.Run(mustAdd(t, m, p)); res.Int32() != 42 {
		t.Fatalf("pick = %v, want 42", res)
	}
}

func TestFunctionSlotsStayReferences(t *testing.T) {
	m := newGen(t, DefaultOptions())
	p := typeck.NewProgram()
	seven := p.Func("seven", typeck.I32)
	seven.Return(seven.Const(7))

	f := p.Func("main", typeck.I32)
	ref := f.Ref("seven")
	v := f.Let(ref)
	loaded := f.Load(v)
	n := f.Let(f.Call(loaded, typeck.I32))
	f.Return(f.Bin(f.Load(n), typeck.OpAdd, f.Const(1)))
	p.SetEntry("main")

	id := mustAdd(t, m, p)
	fn := m.types.Function(id)
	for i, tid := range fn.Temporaries {
		slot := m.tmps.Get(typeck.TmpID(i))
		if isFunc := m.types.GetType(tid).IsFunc(); isFunc != (slot.Kind == SlotFunc) {
			t.Errorf("t%d: function type %v bound as slot kind %d", i, isFunc, slot.Kind)
		}
	}
	for i, tid := range fn.Variables {
		slot := m.vars.Get(typeck.VarID(i))
		if isFunc := m.types.GetType(tid).IsFunc(); isFunc != (slot.Kind == SlotFunc) {
			t.Errorf("v%d: function type %v bound as slot kind %d", i, isFunc, slot.Kind)
		}
	}
	if got, _ := m.vars.Get(v).AsFunc(); got.Fn != m.functions.Get(0).Fn {
		t.Errorf("function variable does not name seven")
	}
	if res := m.Run(id); res.Int32() != 8 {
		t.Fatalf("result = %v, want 8", res)
	}
}

// Every alloca lives in the prologue, which branches to entry last.
func TestAllocasStayInPrologue(t *testing.T) {
	m := newGen(t, DefaultOptions())
	p := typeck.NewProgram()
	f := p.Func("main", typeck.I32)
	x := f.Let(f.Const(1))
	loop := f.NewBlock()
	done := f.NewBlock()
	f.Jump(loop)
	f.SetBlock(loop)
	y := f.Let(f.Bin(f.Load(x), typeck.OpMul, f.Const(2)))
	f.Store(x, f.Load(y))
	f.Branch(f.Bin(f.Load(x), typeck.OpLt, f.Const(100)), loop, done)
	f.SetBlock(done)
	f.Return(f.Load(x))
	id := mustAdd(t, m, p)

	block := ""
	var prologue []string
	for _, line := range strings.Split(m.IR(), "\n") {
		if line != "" && !strings.HasPrefix(line, " ") && strings.Contains(line, ":") && !strings.HasPrefix(line, ";") {
			block = line[:strings.Index(line, ":")]
			continue
		}
		trimmed := strings.TrimSpace(line)
		if strings.Contains(trimmed, "= alloca ") && block != "allocas" {
			t.Errorf("alloca outside prologue in %s: %s", block, trimmed)
		}
		if block == "allocas" && trimmed != "" && trimmed != "}" {
			prologue = append(prologue, trimmed)
		}
	}
	if len(prologue) != 3 {
		t.Fatalf("prologue = %q, want two allocas and a branch", prologue)
	}
	if last := prologue[len(prologue)-1]; last != "br label %entry" {
		t.Errorf("prologue ends with %q, want branch to entry", last)
	}
	if res := m.Run(id); res.Int32() != 128 {
		t.Fatalf("result = %v, want 128", res)
	}
}

func TestInvalidOperationPanics(t *testing.T) {
	m := newGen(t, DefaultOptions())
	fn := &typeck.Function{
		Name:        "bad",
		Returns:     m.types.Intern(typeck.Bool),
		Temporaries: []typeck.TypeID{m.types.Intern(typeck.Bool), m.types.Intern(typeck.Bool)},
		Blocks: []typeck.Block{{ID: 0, Stmts: []typeck.Statement{
			typeck.Const(0, typeck.BoolLit(true)),
			typeck.BinExpr(1, 0, typeck.OpAdd, 0),
			typeck.Return(1),
		}}},
	}
	msg := expectPanic(t, func() { _, _ = m.Add(&typeck.Prebuilt{Funcs: []*typeck.Function{fn}}) })
	if !strings.Contains(msg, "invalid operation: bool + bool") {
		t.Errorf("panic = %q", msg)
	}
}

func TestCallThroughValuePanics(t *testing.T) {
	m := newGen(t, DefaultOptions())
	i32 := m.types.Intern(typeck.I32)
	fn := &typeck.Function{
		Name:        "bad",
		Returns:     i32,
		Temporaries: []typeck.TypeID{i32, i32},
		Blocks: []typeck.Block{{ID: 0, Stmts: []typeck.Statement{
			typeck.Const(0, typeck.IntLit(1)),
			typeck.Call(1, 0),
			typeck.Return(1),
		}}},
	}
	msg := expectPanic(t, func() { _, _ = m.Add(&typeck.Prebuilt{Funcs: []*typeck.Function{fn}}) })
	if !strings.Contains(msg, "not a function reference") {
		t.Errorf("panic = %q", msg)
	}
}

func TestFunctionArgumentPanics(t *testing.T) {
	m := newGen(t, DefaultOptions())
	i32 := m.types.Intern(typeck.I32)
	id := &typeck.Function{
		Name:        "id",
		Params:      []typeck.TypeID{i32},
		Returns:     i32,
		Temporaries: []typeck.TypeID{i32},
		Blocks: []typeck.Block{{ID: 0, Stmts: []typeck.Statement{
			typeck.Param(0, 0),
			typeck.Return(0),
		}}},
	}
	caller := &typeck.Function{
		Name:        "caller",
		Returns:     i32,
		Temporaries: []typeck.TypeID{m.types.Intern(typeck.FuncType(0)), i32},
		Blocks: []typeck.Block{{ID: 0, Stmts: []typeck.Statement{
			typeck.Func(0, 0),
			typeck.Call(1, 0, 0),
			typeck.Return(1),
		}}},
	}
	msg := expectPanic(t, func() {
		_, _ = m.Add(&typeck.Prebuilt{Funcs: []*typeck.Function{id, caller}, Entry: 1})
	})
	if !strings.Contains(msg, "cannot pass function t0 as an argument") {
		t.Errorf("panic = %q", msg)
	}
}

func TestVerificationFailureDumpsModule(t *testing.T) {
	var dump bytes.Buffer
	opts := DefaultOptions()
	opts.FatalOutput = &dump
	m := newGen(t, opts)
	i32 := m.types.Intern(typeck.I32)
	fn := &typeck.Function{
		Name:        "mismatched",
		Returns:     m.types.Intern(typeck.Bool),
		Temporaries: []typeck.TypeID{i32},
		Blocks: []typeck.Block{{ID: 0, Stmts: []typeck.Statement{
			typeck.Const(0, typeck.IntLit(1)),
			typeck.Return(0),
		}}},
	}
	msg := expectPanic(t, func() { _, _ = m.Add(&typeck.Prebuilt{Funcs: []*typeck.Function{fn}}) })
	if !strings.Contains(msg, "invalid fn mismatched") {
		t.Errorf("panic = %q", msg)
	}
	if !strings.Contains(dump.String(), "LLVM IR:") || !strings.Contains(dump.String(), "@mismatched") {
		t.Errorf("module not dumped before panic:\n%s", dump.String())
	}
}

func TestFunctionBindingMisusePanics(t *testing.T) {
	tests := []struct {
		name  string
		build func(i32, fnTy typeck.TypeID) *typeck.Function
		want  string
	}{
		{
			name: "store into function binding",
			build: func(i32, fnTy typeck.TypeID) *typeck.Function {
				return &typeck.Function{
					Name:        "s",
					Returns:     i32,
					Variables:   []typeck.TypeID{fnTy},
					Temporaries: []typeck.TypeID{fnTy, i32},
					Blocks: []typeck.Block{{ID: 0, Stmts: []typeck.Statement{
						typeck.Func(0, 0),
						typeck.Let(0, 0),
						typeck.Const(1, typeck.IntLit(3)),
						typeck.Store(0, 1),
						typeck.Return(1),
					}}},
				}
			},
			want: "store into function binding v0",
		},
		{
			name: "branch on function value",
			build: func(i32, fnTy typeck.TypeID) *typeck.Function {
				return &typeck.Function{
					Name:        "b",
					Returns:     i32,
					Temporaries: []typeck.TypeID{fnTy, i32},
					Blocks: []typeck.Block{
						{ID: 0, Stmts: []typeck.Statement{
							typeck.Func(0, 0),
							typeck.CondJump(0, 1, 1),
						}},
						{ID: 1, Stmts: []typeck.Statement{
							typeck.Const(1, typeck.IntLit(0)),
							typeck.Return(1),
						}},
					},
				}
			},
			want: "t0 is a function reference, expected a value",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newGen(t, DefaultOptions())
			i32 := m.types.Intern(typeck.I32)
			fn := tt.build(i32, m.types.Intern(typeck.FuncType(0)))
			msg := expectPanic(t, func() { _, _ = m.Add(&typeck.Prebuilt{Funcs: []*typeck.Function{fn}}) })
			if !strings.Contains(msg, tt.want) {
				t.Errorf("panic = %q, want %q", msg, tt.want)
			}
		})
	}
}
