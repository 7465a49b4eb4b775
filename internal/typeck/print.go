package typeck

import (
	"fmt"
	"io"
	"strings"
)

// Dump writes a human-readable listing of every function in m.
func Dump(w io.Writer, m *Module) error {
	if w == nil || m == nil {
		return nil
	}
	if _, err := fmt.Fprintf(w, "funcs=%d\n", len(m.Functions())); err != nil {
		return err
	}
	for _, f := range m.Functions() {
		if f == nil {
			continue
		}
		if err := dumpFunc(w, m, f); err != nil {
			return err
		}
	}
	return nil
}

func dumpFunc(w io.Writer, m *Module, f *Function) error {
	params := make([]string, len(f.Params))
	for i, p := range f.Params {
		params[i] = m.GetType(p).String()
	}
	kw := "fn"
	if f.IsExtern {
		kw = "extern fn"
	}
	fmt.Fprintf(w, "\n%s %s#%d(%s) -> %s", kw, displayName(f), f.ID, strings.Join(params, ", "), m.GetType(f.Returns))
	if f.IsExtern {
		_, err := fmt.Fprintln(w)
		return err
	}
	fmt.Fprintln(w, ":")
	if len(f.Variables) > 0 {
		fmt.Fprintln(w, "  vars:")
		for i, t := range f.Variables {
			fmt.Fprintf(w, "    v%d: %s\n", i, m.GetType(t))
		}
	}
	if len(f.Temporaries) > 0 {
		fmt.Fprintln(w, "  temps:")
		for i, t := range f.Temporaries {
			fmt.Fprintf(w, "    t%d: %s\n", i, m.GetType(t))
		}
	}
	for i := range f.Blocks {
		bb := &f.Blocks[i]
		fmt.Fprintf(w, "  bb%d:\n", bb.ID)
		for j := range bb.Stmts {
			if _, err := fmt.Fprintf(w, "    %s\n", FormatStmt(&bb.Stmts[j])); err != nil {
				return err
			}
		}
	}
	return nil
}

// FormatStmt renders one statement.
func FormatStmt(s *Statement) string {
	switch s.Kind {
	case StmtLet:
		return fmt.Sprintf("let v%d = t%d", s.Let.Dst, s.Let.Src)
	case StmtStore:
		return fmt.Sprintf("v%d = t%d", s.Store.Dst, s.Store.Src)
	case StmtLoad:
		return fmt.Sprintf("t%d = v%d", s.Load.Dst, s.Load.Src)
	case StmtExtern:
		return fmt.Sprintf("t%d = extern #%d", s.Ref.Dst, s.Ref.Src)
	case StmtFunc:
		return fmt.Sprintf("t%d = func #%d", s.Ref.Dst, s.Ref.Src)
	case StmtConst:
		return fmt.Sprintf("t%d = const %s", s.Const.Dst, s.Const.Value)
	case StmtBinExpr:
		return fmt.Sprintf("t%d = t%d %s t%d", s.Bin.Dst, s.Bin.Lhs, s.Bin.Op, s.Bin.Rhs)
	case StmtCall:
		args := make([]string, len(s.Call.Args))
		for i, a := range s.Call.Args {
			args[i] = fmt.Sprintf("t%d", a)
		}
		return fmt.Sprintf("t%d = call t%d(%s)", s.Call.Dst, s.Call.Func, strings.Join(args, ", "))
	case StmtParam:
		return fmt.Sprintf("t%d = param %d", s.Param.Dst, s.Param.Index)
	case StmtReturn:
		return fmt.Sprintf("return t%d", s.Return.Value)
	case StmtReturnVoid:
		return "return"
	case StmtJump:
		return fmt.Sprintf("jump bb%d", s.Jump.Target)
	case StmtCondJump:
		return fmt.Sprintf("if t%d then bb%d else bb%d", s.Branch.Cond, s.Branch.Then, s.Branch.Else)
	default:
		return "<invalid>"
	}
}
