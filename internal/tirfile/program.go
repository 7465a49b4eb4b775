package tirfile

import (
	"fmt"

	"jitcore/internal/typeck"
)

// Program converts f into a checkable program. Operand ranges and types
// are left to the checker.
func (f *File) Program() (*typeck.Program, error) {
	if len(f.Funcs) == 0 {
		return nil, fmt.Errorf("no functions")
	}
	p := typeck.NewProgram()
	if f.Entry != "" {
		p.SetEntry(f.Entry)
	}
	for fi := range f.Funcs {
		if err := f.Funcs[fi].build(p); err != nil {
			name := f.Funcs[fi].Name
			if name == "" {
				name = fmt.Sprintf("#%d", fi)
			}
			return nil, fmt.Errorf("func %s: %w", name, err)
		}
	}
	return p, nil
}

func parseTypes(names []string) ([]typeck.Type, error) {
	out := make([]typeck.Type, len(names))
	for i, n := range names {
		t, err := typeck.ParseType(n)
		if err != nil {
			return nil, err
		}
		out[i] = t
	}
	return out, nil
}

func (fn *Func) build(p *typeck.Program) error {
	ret, err := typeck.ParseType(fn.Returns)
	if err != nil {
		return fmt.Errorf("returns: %w", err)
	}
	params, err := parseTypes(fn.Params)
	if err != nil {
		return fmt.Errorf("params: %w", err)
	}
	vars, err := parseTypes(fn.Vars)
	if err != nil {
		return fmt.Errorf("vars: %w", err)
	}
	temps, err := parseTypes(fn.Temps)
	if err != nil {
		return fmt.Errorf("temps: %w", err)
	}

	b := p.Func(fn.Name, ret, params...)
	for _, t := range vars {
		b.Var(t)
	}
	for _, t := range temps {
		b.Temp(t)
	}
	for bi := range fn.Blocks {
		b.SetBlock(b.NewBlock())
		for si := range fn.Blocks[bi].Stmts {
			if err := fn.Blocks[bi].Stmts[si].emit(b); err != nil {
				return fmt.Errorf("bb%d: stmt %d: %w", bi, si, err)
			}
		}
	}
	return nil
}

func (s *Stmt) emit(b *typeck.FuncBuilder) error {
	kind, ok := typeck.ParseStmtKind(s.Op)
	if !ok {
		return fmt.Errorf("unknown op %q", s.Op)
	}
	dst := typeck.TmpID(s.Dst)
	switch kind {
	case typeck.StmtLet:
		b.Emit(typeck.Let(typeck.VarID(s.Dst), typeck.TmpID(s.Src)))
	case typeck.StmtStore:
		b.Emit(typeck.Store(typeck.VarID(s.Dst), typeck.TmpID(s.Src)))
	case typeck.StmtLoad:
		b.Emit(typeck.Load(dst, typeck.VarID(s.Src)))
	case typeck.StmtFunc, typeck.StmtExtern:
		if s.Name == "" {
			return fmt.Errorf("%s needs a name", s.Op)
		}
		if kind == typeck.StmtFunc {
			b.FuncRef(dst, s.Name)
		} else {
			b.ExternRef(dst, s.Name)
		}
	case typeck.StmtConst:
		lit, err := s.literal()
		if err != nil {
			return err
		}
		b.Emit(typeck.Const(dst, lit))
	case typeck.StmtBinExpr:
		op, err := typeck.ParseBinaryOp(s.BinOp)
		if err != nil {
			return err
		}
		b.Emit(typeck.BinExpr(dst, typeck.TmpID(s.Lhs), op, typeck.TmpID(s.Rhs)))
	case typeck.StmtCall:
		args := make([]typeck.TmpID, len(s.Args))
		for i, a := range s.Args {
			args[i] = typeck.TmpID(a)
		}
		b.Emit(typeck.Call(dst, typeck.TmpID(s.Callee), args...))
	case typeck.StmtParam:
		b.Emit(typeck.Param(dst, s.Index))
	case typeck.StmtReturn:
		b.Emit(typeck.Return(typeck.TmpID(s.Src)))
	case typeck.StmtReturnVoid:
		b.Emit(typeck.ReturnVoid())
	case typeck.StmtJump:
		b.Emit(typeck.Jump(typeck.BlockID(s.Target)))
	case typeck.StmtCondJump:
		b.Emit(typeck.CondJump(typeck.TmpID(s.Cond), typeck.BlockID(s.Then), typeck.BlockID(s.Else)))
	}
	return nil
}

func (s *Stmt) literal() (typeck.ConstLiteral, error) {
	switch {
	case s.Int != nil && s.Bool != nil:
		return typeck.ConstLiteral{}, fmt.Errorf("const has both int and bool")
	case s.Int != nil:
		return typeck.IntLit(*s.Int), nil
	case s.Bool != nil:
		return typeck.BoolLit(*s.Bool), nil
	default:
		return typeck.UnitLit(), nil
	}
}

// ExternNames lists the distinct extern names f references, in first-use
// order.
func (f *File) ExternNames() []string {
	var names []string
	seen := make(map[string]bool)
	for fi := range f.Funcs {
		for bi := range f.Funcs[fi].Blocks {
			for _, s := range f.Funcs[fi].Blocks[bi].Stmts {
				kind, ok := typeck.ParseStmtKind(s.Op)
				if !ok || kind != typeck.StmtExtern || s.Name == "" || seen[s.Name] {
					continue
				}
				seen[s.Name] = true
				names = append(names, s.Name)
			}
		}
	}
	return names
}
