package typeck

import (
	"errors"
	"fmt"

	"golang.org/x/text/unicode/norm"
)

// Validate checks the structural invariants the backend relies on: dense
// block ids, one terminator per block, and slot ids within the declared
// tables. It does not re-run type checking.
func Validate(m *Module) error {
	if m == nil {
		return nil
	}
	var errs []error
	for _, f := range m.Functions() {
		if f == nil || f.IsExtern {
			continue
		}
		if err := validateFunc(m, f); err != nil {
			errs = append(errs, fmt.Errorf("function %s: %w", displayName(f), err))
		}
	}
	return errors.Join(errs...)
}

func displayName(f *Function) string {
	if f.Name != "" {
		return f.Name
	}
	return fmt.Sprintf("fn.%d", f.ID)
}

func validateFunc(m *Module, f *Function) error {
	var errs []error
	if len(f.Blocks) == 0 {
		return errors.New("no blocks")
	}
	typeOK := func(id TypeID) bool { return id >= 0 && int(id) < m.Types() }
	for i, t := range f.Temporaries {
		if !typeOK(t) {
			errs = append(errs, fmt.Errorf("t%d: invalid type id %d", i, t))
		}
	}
	for i, t := range f.Variables {
		if !typeOK(t) {
			errs = append(errs, fmt.Errorf("v%d: invalid type id %d", i, t))
		}
	}
	if !typeOK(f.Returns) {
		errs = append(errs, fmt.Errorf("invalid return type id %d", f.Returns))
	}

	tmpOK := func(id TmpID) bool { return id >= 0 && int(id) < len(f.Temporaries) }
	varOK := func(id VarID) bool { return id >= 0 && int(id) < len(f.Variables) }
	blockOK := func(id BlockID) bool { return id >= 0 && int(id) < len(f.Blocks) }
	funcOK := func(id FuncID) bool { return m.Function(id) != nil }

	for bi := range f.Blocks {
		bb := &f.Blocks[bi]
		if int(bb.ID) != bi {
			errs = append(errs, fmt.Errorf("bb%d: block carries id %d", bi, bb.ID))
		}
		if bb.Terminator() == nil {
			errs = append(errs, fmt.Errorf("bb%d: unterminated block", bi))
		}
		for si := range bb.Stmts {
			s := &bb.Stmts[si]
			if s.IsTerminator() && si != len(bb.Stmts)-1 {
				errs = append(errs, fmt.Errorf("bb%d: %s is not the last statement", bi, s.Kind))
			}
			var bad []string
			check := func(ok bool, what string) {
				if !ok {
					bad = append(bad, what)
				}
			}
			switch s.Kind {
			case StmtLet:
				check(varOK(s.Let.Dst), "dst")
				check(tmpOK(s.Let.Src), "src")
			case StmtStore:
				check(varOK(s.Store.Dst), "dst")
				check(tmpOK(s.Store.Src), "src")
			case StmtLoad:
				check(tmpOK(s.Load.Dst), "dst")
				check(varOK(s.Load.Src), "src")
			case StmtExtern, StmtFunc:
				check(tmpOK(s.Ref.Dst), "dst")
				check(funcOK(s.Ref.Src), "func")
			case StmtConst:
				check(tmpOK(s.Const.Dst), "dst")
			case StmtBinExpr:
				check(tmpOK(s.Bin.Dst), "dst")
				check(tmpOK(s.Bin.Lhs), "lhs")
				check(tmpOK(s.Bin.Rhs), "rhs")
			case StmtCall:
				check(tmpOK(s.Call.Dst), "dst")
				check(tmpOK(s.Call.Func), "func")
				for _, a := range s.Call.Args {
					check(tmpOK(a), "arg")
				}
			case StmtParam:
				check(tmpOK(s.Param.Dst), "dst")
				check(s.Param.Index >= 0 && s.Param.Index < len(f.Params), "index")
			case StmtReturn:
				check(tmpOK(s.Return.Value), "value")
			case StmtJump:
				check(blockOK(s.Jump.Target), "target")
			case StmtCondJump:
				check(tmpOK(s.Branch.Cond), "cond")
				check(blockOK(s.Branch.Then), "then")
				check(blockOK(s.Branch.Else), "else")
			}
			for _, what := range bad {
				errs = append(errs, fmt.Errorf("bb%d: %s: %s out of range", bi, s.Kind, what))
			}
		}
	}
	return errors.Join(errs...)
}

// Prebuilt is a Source of functions that were checked elsewhere. Check only
// validates their structure before appending them.
type Prebuilt struct {
	Funcs []*Function
	Entry int
}

// Check appends the functions and returns the id of Funcs[Entry].
func (p *Prebuilt) Check(m *Module) (FuncID, error) {
	if p.Entry < 0 || p.Entry >= len(p.Funcs) {
		return NoFuncID, errorf(CodeNoEntry, "", "entry index %d out of range", p.Entry)
	}
	// Names are checked up front so a rejected batch never binds any of
	// them and leaves nothing behind for a later Add to lower.
	local := make(map[string]bool, len(p.Funcs))
	for i, f := range p.Funcs {
		if f == nil {
			return NoFuncID, errorf(CodeMalformed, "", "function #%d is nil", i)
		}
		if f.IsExtern {
			return NoFuncID, errorf(CodeMalformed, f.Name, "externs must be registered with AddExtern")
		}
		if f.Name == "" {
			continue
		}
		key := norm.NFC.String(f.Name)
		if local[key] {
			return NoFuncID, errorf(CodeDuplicateName, f.Name, "function defined twice")
		}
		if _, taken := m.Lookup(f.Name); taken {
			return NoFuncID, errorf(CodeDuplicateName, f.Name, "name already bound in module")
		}
		local[key] = true
	}

	staged := NewModule()
	for _, f := range m.Functions() {
		staged.funcs = append(staged.funcs, f)
	}
	staged.types = m.types
	for _, f := range p.Funcs {
		cp := *f
		staged.appendFunc(&cp)
	}
	if err := Validate(staged); err != nil {
		return NoFuncID, errorf(CodeMalformed, "", "%v", err)
	}
	entry := NoFuncID
	for i, f := range p.Funcs {
		id, err := m.AddFunction(f)
		if err != nil {
			panic(fmt.Errorf("typeck: prebuilt %s: %w", displayName(f), err))
		}
		if i == p.Entry {
			entry = id
		}
	}
	return entry, nil
}
