package codegen

import (
	"errors"
	"strings"
	"testing"

	"jitcore/internal/trace"
	"jitcore/internal/typeck"
)

func newGen(t *testing.T, opts Options) *ModuleGen {
	t.Helper()
	m, err := New(opts).Module()
	if err != nil {
		t.Fatalf("create module: %v", err)
	}
	t.Cleanup(m.Close)
	return m
}

func mustAdd(t *testing.T, m *ModuleGen, src typeck.Source) typeck.FuncID {
	t.Helper()
	id, err := m.Add(src)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	return id
}

// expectPanic runs fn and returns the recovered panic message.
func expectPanic(t *testing.T, fn func()) string {
	t.Helper()
	var msg string
	func() {
		defer func() {
			r := recover()
			if r == nil {
				t.Fatalf("expected panic")
			}
			msg, _ = r.(string)
		}()
		fn()
	}()
	return msg
}

// Block 0 computes 5 + 7 and discards it.
func TestDiscardedArithmetic(t *testing.T) {
	m := newGen(t, DefaultOptions())
	p := typeck.NewProgram()
	f := p.Func("main", typeck.Void)
	f.Bin(f.Const(5), typeck.OpAdd, f.Const(7))
	f.ReturnVoid()

	id := mustAdd(t, m, p)
	if !strings.Contains(m.IR(), "define void @main()") {
		t.Errorf("IR missing main:\n%s", m.IR())
	}
	if res := m.Run(id); res.HasValue {
		t.Errorf("void function produced %v", res)
	}
}

func TestConditionalTakesElse(t *testing.T) {
	m := newGen(t, DefaultOptions())
	p := typeck.NewProgram()
	f := p.Func("main", typeck.I32)
	cond := f.Bin(f.ConstBool(true), typeck.OpAnd, f.ConstBool(false))
	then := f.NewBlock()
	els := f.NewBlock()
	f.Branch(cond, then, els)
	f.SetBlock(then).Return(f.Const(1))
	f.SetBlock(els).Return(f.Const(2))

	res := m.Run(mustAdd(t, m, p))
	if !res.HasValue || res.Int32() != 2 {
		t.Fatalf("result = %v, want 2 from the else branch", res)
	}
}

func TestReturnValues(t *testing.T) {
	tests := []struct {
		name  string
		build func(p *typeck.Program)
		want  string
	}{
		{
			name: "negative i32",
			build: func(p *typeck.Program) {
				f := p.Func("main", typeck.I32)
				f.Return(f.Const(-7))
			},
			want: "-7",
		},
		{
			name: "bool",
			build: func(p *typeck.Program) {
				f := p.Func("main", typeck.Bool)
				f.Return(f.Bin(f.Const(3), typeck.OpLe, f.Const(3)))
			},
			want: "true",
		},
		{
			name: "bool equality",
			build: func(p *typeck.Program) {
				f := p.Func("main", typeck.Bool)
				f.Return(f.Bin(f.ConstBool(true), typeck.OpNeq, f.ConstBool(true)))
			},
			want: "false",
		},
		{
			name: "unit through void",
			build: func(p *typeck.Program) {
				id := p.Func("unit", typeck.Void, typeck.Void)
				id.Return(id.Param(0))
				f := p.Func("main", typeck.Void)
				unit := f.Temp(typeck.Void)
				f.Emit(typeck.Const(unit, typeck.UnitLit()))
				f.Return(f.Call(f.Ref("unit"), typeck.Void, unit))
				p.SetEntry("main")
			},
			want: "()",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newGen(t, DefaultOptions())
			p := typeck.NewProgram()
			tt.build(p)
			if got := m.Run(mustAdd(t, m, p)).String(); got != tt.want {
				t.Errorf("result = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestLoopWithVariables(t *testing.T) {
	m := newGen(t, DefaultOptions())
	p := typeck.NewProgram()
	f := p.Func("main", typeck.I32)
	sum := f.Let(f.Const(0))
	i := f.Let(f.Const(1))
	head := f.NewBlock()
	body := f.NewBlock()
	done := f.NewBlock()
	f.Jump(head)

	f.SetBlock(head)
	f.Branch(f.Bin(f.Load(i), typeck.OpLe, f.Const(10)), body, done)

	f.SetBlock(body)
	f.Store(sum, f.Bin(f.Load(sum), typeck.OpAdd, f.Load(i)))
	f.Store(i, f.Bin(f.Load(i), typeck.OpAdd, f.Const(1)))
	f.Jump(head)

	f.SetBlock(done)
	f.Return(f.Load(sum))

	if res := m.Run(mustAdd(t, m, p)); res.Int32() != 55 {
		t.Fatalf("sum = %v, want 55", res)
	}
}

func TestRecursion(t *testing.T) {
	m := newGen(t, DefaultOptions())
	p := typeck.NewProgram().SetEntry("main")

	main := p.Func("main", typeck.I32)
	main.Return(main.Call(main.Ref("fact"), typeck.I32, main.Const(5)))

	fact := p.Func("fact", typeck.I32, typeck.I32)
	n := fact.Param(0)
	base := fact.NewBlock()
	step := fact.NewBlock()
	fact.Branch(fact.Bin(n, typeck.OpLe, fact.Const(1)), base, step)
	fact.SetBlock(base).Return(fact.Const(1))
	fact.SetBlock(step)
	prev := fact.Call(fact.Ref("fact"), typeck.I32, fact.Bin(n, typeck.OpSub, fact.Const(1)))
	fact.Return(fact.Bin(n, typeck.OpMul, prev))

	if res := m.Run(mustAdd(t, m, p)); res.Int32() != 120 {
		t.Fatalf("fact(5) = %v, want 120", res)
	}
}

func TestMutualRecursion(t *testing.T) {
	m := newGen(t, DefaultOptions())
	p := typeck.NewProgram().SetEntry("main")
	for _, def := range []struct{ name, other string }{{"even", "odd"}, {"odd", "even"}} {
		f := p.Func(def.name, typeck.Bool, typeck.I32)
		n := f.Param(0)
		zero := f.NewBlock()
		rec := f.NewBlock()
		f.Branch(f.Bin(n, typeck.OpEq, f.Const(0)), zero, rec)
		f.SetBlock(zero).Return(f.ConstBool(def.name == "even"))
		f.SetBlock(rec)
		f.Return(f.Call(f.Ref(def.other), typeck.Bool, f.Bin(n, typeck.OpSub, f.Const(1))))
	}
	main := p.Func("main", typeck.Bool)
	main.Return(main.Call(main.Ref("odd"), typeck.Bool, main.Const(7)))

	if res := m.Run(mustAdd(t, m, p)); !res.HasValue || !res.Bool() || res.Width != 1 {
		t.Fatalf("odd(7) = %+v, want true", res)
	}
}

func TestRepeatedAddDoesNotRelower(t *testing.T) {
	m := newGen(t, DefaultOptions())
	lib := typeck.NewProgram()
	seven := lib.Func("seven", typeck.I32)
	seven.Return(seven.Const(7))
	mustAdd(t, m, lib)
	if m.lowered != 1 {
		t.Fatalf("lowered = %d after first add, want 1", m.lowered)
	}

	p := typeck.NewProgram()
	f := p.Func("main", typeck.I32)
	f.Return(f.Bin(f.Call(f.Ref("seven"), typeck.I32), typeck.OpMul, f.Const(6)))
	id := mustAdd(t, m, p)
	if strings.Count(m.IR(), "allocas:") != 2 {
		t.Errorf("expected one prologue per function:\n%s", m.IR())
	}
	if res := m.Run(id); res.Int32() != 42 {
		t.Fatalf("result = %v, want 42", res)
	}
}

func TestAddTypeError(t *testing.T) {
	m := newGen(t, DefaultOptions())
	p := typeck.NewProgram()
	f := p.Func("main", typeck.I32)
	f.Return(f.ConstBool(true))

	_, err := m.Add(p)
	if !errors.Is(err, ErrType) {
		t.Fatalf("err = %v, want ErrType", err)
	}
	var te *typeck.Error
	if !errors.As(err, &te) || te.Code != typeck.CodeTypeMismatch {
		t.Fatalf("err = %v, want wrapped type mismatch", err)
	}
	if strings.Contains(m.IR(), "@main") {
		t.Errorf("failed add left native code behind")
	}
}

func TestLookup(t *testing.T) {
	m := newGen(t, DefaultOptions())
	p := typeck.NewProgram()
	p.Func("helper", typeck.Void).ReturnVoid()
	want := mustAdd(t, m, p)

	if got, err := m.Lookup("helper"); err != nil || got != want {
		t.Errorf("Lookup(helper) = %d, %v", got, err)
	}
	_, err := m.Lookup("nope")
	if !errors.Is(err, ErrVariableNotFound) {
		t.Fatalf("err = %v, want ErrVariableNotFound", err)
	}
	if err.Error() != "variable `nope` not found" {
		t.Errorf("message = %q", err.Error())
	}
}

func TestRunMain(t *testing.T) {
	tests := []struct {
		name  string
		build func(p *typeck.Program)
		err   error
		want  int32
	}{
		{
			name: "valid",
			build: func(p *typeck.Program) {
				f := p.Func("main", typeck.I32)
				f.Return(f.Const(3))
			},
			want: 3,
		},
		{
			name:  "missing",
			build: func(p *typeck.Program) { p.Func("start", typeck.Void).ReturnVoid() },
			err:   ErrNoMainFn,
		},
		{
			name: "takes parameters",
			build: func(p *typeck.Program) {
				f := p.Func("main", typeck.I32, typeck.I32)
				f.Return(f.Param(0))
			},
			err: ErrInvalidMainFn,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newGen(t, DefaultOptions())
			p := typeck.NewProgram()
			tt.build(p)
			mustAdd(t, m, p)
			res, err := m.RunMain()
			if tt.err != nil {
				if !errors.Is(err, tt.err) {
					t.Fatalf("err = %v, want %v", err, tt.err)
				}
				return
			}
			if err != nil {
				t.Fatalf("run main: %v", err)
			}
			if res.Int32() != tt.want {
				t.Errorf("result = %v, want %d", res, tt.want)
			}
		})
	}
}

func TestRunEntry(t *testing.T) {
	m := newGen(t, DefaultOptions())
	p := typeck.NewProgram()
	f := p.Func("start", typeck.Bool)
	f.Return(f.ConstBool(true))
	mustAdd(t, m, p)

	if _, err := m.RunEntry("begin"); !errors.Is(err, ErrVariableNotFound) {
		t.Fatalf("err = %v, want ErrVariableNotFound", err)
	}
	res, err := m.RunEntry("start")
	if err != nil {
		t.Fatalf("run start: %v", err)
	}
	if res.String() != "true" {
		t.Errorf("result = %v, want true", res)
	}
}

func TestAddAfterRunPanics(t *testing.T) {
	m := newGen(t, DefaultOptions())
	p := typeck.NewProgram()
	p.Func("main", typeck.Void).ReturnVoid()
	m.Run(mustAdd(t, m, p))

	next := typeck.NewProgram()
	next.Func("late", typeck.Void).ReturnVoid()
	msg := expectPanic(t, func() { _, _ = m.Add(next) })
	if !strings.Contains(msg, "already executed") {
		t.Errorf("panic = %q", msg)
	}
}

func TestTraceSpans(t *testing.T) {
	for _, level := range []trace.Level{trace.LevelDetail, trace.LevelDebug} {
		t.Run(level.String(), func(t *testing.T) {
			ring := trace.NewRingTracer(256, level)
			opts := DefaultOptions()
			opts.Tracer = ring
			m := newGen(t, opts)
			p := typeck.NewProgram()
			f := p.Func("main", typeck.I32)
			f.Return(f.Const(1))
			m.Run(mustAdd(t, m, p))

			seen := map[string]bool{}
			var stmts []string
			for _, ev := range ring.Snapshot() {
				if ev.Kind != trace.KindSpanEnd {
					continue
				}
				seen[ev.Name] = true
				if ev.Scope == trace.ScopeStmt {
					stmts = append(stmts, ev.Name+"@"+ev.Detail)
				}
			}
			for _, name := range []string{"add", "prototypes", "lower:main", "run"} {
				if !seen[name] {
					t.Errorf("no completed span %q in %v", name, seen)
				}
			}
			want := ""
			if level == trace.LevelDebug {
				want = "const@bb0.0,return@bb0.1"
			}
			if got := strings.Join(stmts, ","); got != want {
				t.Errorf("statement spans = %q, want %q", got, want)
			}
		})
	}
}

func TestRejectedAddLeavesModuleUntouched(t *testing.T) {
	m := newGen(t, DefaultOptions())
	void := m.types.Intern(typeck.Void)
	leaf := func(name string) *typeck.Function {
		return &typeck.Function{
			Name:    name,
			Returns: void,
			Blocks:  []typeck.Block{{ID: 0, Stmts: []typeck.Statement{typeck.ReturnVoid()}}},
		}
	}

	_, err := m.Add(&typeck.Prebuilt{Funcs: []*typeck.Function{leaf("dup"), leaf("dup")}})
	if !errors.Is(err, ErrType) {
		t.Fatalf("err = %v, want ErrType", err)
	}
	if n := len(m.Types().Functions()); n != 0 {
		t.Errorf("module kept %d functions", n)
	}
	if _, err := m.Lookup("dup"); !errors.Is(err, ErrVariableNotFound) {
		t.Errorf("dup still bound: %v", err)
	}

	mustAdd(t, m, &typeck.Prebuilt{Funcs: []*typeck.Function{leaf("other")}})
	if strings.Contains(m.IR(), "@dup") {
		t.Errorf("rejected function lowered:\n%s", m.IR())
	}
	mustAdd(t, m, &typeck.Prebuilt{Funcs: []*typeck.Function{leaf("dup")}})
	if !strings.Contains(m.IR(), "define void @dup()") {
		t.Errorf("dup missing after a clean add:\n%s", m.IR())
	}
}
