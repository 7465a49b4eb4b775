package typeck

import (
	"slices"

	"golang.org/x/text/unicode/norm"
)

type signature struct {
	ret    Type
	params []Type
	extern bool
}

// Check resolves names, infers function-typed slots and type checks every
// function of p, then appends them to m. m is unchanged on error.
func (p *Program) Check(m *Module) (FuncID, error) {
	if len(p.funcs) == 0 {
		return NoFuncID, errorf(CodeNoEntry, "", "program has no functions")
	}
	base := len(m.Functions())
	local := make(map[string]FuncID, len(p.funcs))
	for i, fb := range p.funcs {
		if fb.name == "" {
			continue
		}
		key := norm.NFC.String(fb.name)
		if _, dup := local[key]; dup {
			return NoFuncID, errorf(CodeDuplicateName, fb.name, "function defined twice")
		}
		if _, taken := m.Lookup(fb.name); taken {
			return NoFuncID, errorf(CodeDuplicateName, fb.name, "name already bound in module")
		}
		local[key] = DenseID[FuncID](base + i)
	}

	sigs := func(id FuncID) (signature, bool) {
		if i := int(id) - base; i >= 0 && i < len(p.funcs) {
			fb := p.funcs[i]
			return signature{ret: fb.ret, params: fb.params}, true
		}
		f := m.Function(id)
		if f == nil {
			return signature{}, false
		}
		sig := signature{ret: m.GetType(f.Returns), extern: f.IsExtern}
		for _, pt := range f.Params {
			sig.params = append(sig.params, m.GetType(pt))
		}
		return sig, true
	}
	resolve := func(name string) (FuncID, bool) {
		if id, ok := local[norm.NFC.String(name)]; ok {
			return id, true
		}
		return m.Lookup(name)
	}

	checked := make([]*checkedFunc, 0, len(p.funcs))
	for _, fb := range p.funcs {
		cf, err := fb.check(resolve, sigs)
		if err != nil {
			return NoFuncID, err
		}
		checked = append(checked, cf)
	}

	entry := p.entry
	if entry == "" {
		entry = p.funcs[0].name
	}
	entryID, ok := local[norm.NFC.String(entry)]
	if !ok {
		return NoFuncID, errorf(CodeNoEntry, entry, "entry function not defined by program")
	}

	for _, cf := range checked {
		f := cf.intern(m)
		if _, err := m.AddFunction(f); err != nil {
			return NoFuncID, errorf(CodeDuplicateName, f.Name, "%v", err)
		}
	}
	return entryID, nil
}

type checkedFunc struct {
	name   string
	ret    Type
	params []Type
	vars   []Type
	tmps   []Type
	blocks []Block
}

func (cf *checkedFunc) intern(m *Module) *Function {
	f := &Function{
		Name:        cf.name,
		Returns:     m.Intern(cf.ret),
		Params:      make([]TypeID, len(cf.params)),
		Variables:   make([]TypeID, len(cf.vars)),
		Temporaries: make([]TypeID, len(cf.tmps)),
		Blocks:      cf.blocks,
	}
	for i, t := range cf.params {
		f.Params[i] = m.Intern(t)
	}
	for i, t := range cf.vars {
		f.Variables[i] = m.Intern(t)
	}
	for i, t := range cf.tmps {
		f.Temporaries[i] = m.Intern(t)
	}
	return f
}

func (b *FuncBuilder) check(resolve func(string) (FuncID, bool), sigs func(FuncID) (signature, bool)) (*checkedFunc, error) {
	cf := &checkedFunc{
		name:   b.name,
		ret:    b.ret,
		params: b.params,
		vars:   slices.Clone(b.vars),
		tmps:   slices.Clone(b.tmps),
		blocks: make([]Block, len(b.blocks)),
	}
	for i, stmts := range b.blocks {
		cf.blocks[i] = Block{ID: DenseID[BlockID](i), Stmts: slices.Clone(stmts)}
	}
	for _, ref := range b.refs {
		id, ok := resolve(ref.name)
		if !ok {
			return nil, errorf(CodeUnknownName, b.name, "%q is not defined", ref.name)
		}
		stmt := &cf.blocks[ref.block].Stmts[ref.stmt]
		sig, _ := sigs(id)
		if stmt.Kind == StmtExtern && !sig.extern {
			return nil, errorf(CodeUnknownName, b.name, "%q is not an extern", ref.name)
		}
		if stmt.Kind == StmtFunc && sig.extern {
			return nil, errorf(CodeUnknownName, b.name, "%q is an extern, not a function", ref.name)
		}
		stmt.Ref.Src = id
	}
	if len(cf.blocks) == 0 {
		return nil, errorf(CodeMalformed, b.name, "function has no blocks")
	}
	if err := cf.checkShape(); err != nil {
		return nil, err
	}
	cf.inferFuncSlots()
	if err := cf.checkTypes(sigs); err != nil {
		return nil, err
	}
	return cf, nil
}

// checkShape verifies id ranges and terminator placement before any type
// lookups index into the slot tables.
func (cf *checkedFunc) checkShape() error {
	tmpOK := func(id TmpID) bool { return id >= 0 && int(id) < len(cf.tmps) }
	varOK := func(id VarID) bool { return id >= 0 && int(id) < len(cf.vars) }
	blockOK := func(id BlockID) bool { return id >= 0 && int(id) < len(cf.blocks) }

	for bi := range cf.blocks {
		bb := &cf.blocks[bi]
		if bb.Terminator() == nil {
			return errorf(CodeMalformed, cf.name, "bb%d: block does not end in a terminator", bi)
		}
		for si := range bb.Stmts {
			s := &bb.Stmts[si]
			if s.IsTerminator() && si != len(bb.Stmts)-1 {
				return errorf(CodeMalformed, cf.name, "bb%d: %s before end of block", bi, s.Kind)
			}
			ok := true
			switch s.Kind {
			case StmtLet:
				ok = varOK(s.Let.Dst) && tmpOK(s.Let.Src)
			case StmtStore:
				ok = varOK(s.Store.Dst) && tmpOK(s.Store.Src)
			case StmtLoad:
				ok = tmpOK(s.Load.Dst) && varOK(s.Load.Src)
			case StmtExtern, StmtFunc:
				ok = tmpOK(s.Ref.Dst)
			case StmtConst:
				ok = tmpOK(s.Const.Dst)
			case StmtBinExpr:
				ok = tmpOK(s.Bin.Dst) && tmpOK(s.Bin.Lhs) && tmpOK(s.Bin.Rhs)
			case StmtCall:
				ok = tmpOK(s.Call.Dst) && tmpOK(s.Call.Func)
				for _, a := range s.Call.Args {
					ok = ok && tmpOK(a)
				}
			case StmtParam:
				ok = tmpOK(s.Param.Dst) && s.Param.Index >= 0 && s.Param.Index < len(cf.params)
			case StmtReturn:
				ok = tmpOK(s.Return.Value)
			case StmtJump:
				ok = blockOK(s.Jump.Target)
			case StmtCondJump:
				ok = tmpOK(s.Branch.Cond) && blockOK(s.Branch.Then) && blockOK(s.Branch.Else)
			}
			if !ok {
				return errorf(CodeMalformed, cf.name, "bb%d: %s references an undeclared slot", bi, s.Kind)
			}
		}
	}
	return nil
}

func unresolved(t Type) bool { return t.Kind == TypeFunc && t.Func == NoFuncID }

// inferFuncSlots binds unresolved function types from the statements that
// define them, iterating until no slot changes.
func (cf *checkedFunc) inferFuncSlots() {
	for changed := true; changed; {
		changed = false
		for bi := range cf.blocks {
			for si := range cf.blocks[bi].Stmts {
				s := &cf.blocks[bi].Stmts[si]
				switch s.Kind {
				case StmtExtern, StmtFunc:
					if unresolved(cf.tmps[s.Ref.Dst]) {
						cf.tmps[s.Ref.Dst] = FuncType(s.Ref.Src)
						changed = true
					}
				case StmtLet:
					if unresolved(cf.vars[s.Let.Dst]) && !unresolved(cf.tmps[s.Let.Src]) {
						cf.vars[s.Let.Dst] = cf.tmps[s.Let.Src]
						changed = true
					}
				case StmtLoad:
					if unresolved(cf.tmps[s.Load.Dst]) && !unresolved(cf.vars[s.Load.Src]) {
						cf.tmps[s.Load.Dst] = cf.vars[s.Load.Src]
						changed = true
					}
				}
			}
		}
	}
}

func (cf *checkedFunc) checkTypes(sigs func(FuncID) (signature, bool)) error {
	mismatch := func(bi int, s *Statement, want, got Type) error {
		return errorf(CodeTypeMismatch, cf.name, "bb%d: %s: expected %s, found %s", bi, s.Kind, want, got)
	}
	for i, t := range cf.tmps {
		if unresolved(t) {
			return errorf(CodeTypeMismatch, cf.name, "cannot infer function type of t%d", i)
		}
	}
	for i, t := range cf.vars {
		if unresolved(t) {
			return errorf(CodeTypeMismatch, cf.name, "cannot infer function type of v%d", i)
		}
	}

	for bi := range cf.blocks {
		for si := range cf.blocks[bi].Stmts {
			s := &cf.blocks[bi].Stmts[si]
			switch s.Kind {
			case StmtLet:
				if cf.vars[s.Let.Dst] != cf.tmps[s.Let.Src] {
					return mismatch(bi, s, cf.vars[s.Let.Dst], cf.tmps[s.Let.Src])
				}
			case StmtStore:
				if cf.vars[s.Store.Dst].IsFunc() {
					return errorf(CodeTypeMismatch, cf.name, "bb%d: cannot assign to function binding v%d", bi, s.Store.Dst)
				}
				if cf.vars[s.Store.Dst] != cf.tmps[s.Store.Src] {
					return mismatch(bi, s, cf.vars[s.Store.Dst], cf.tmps[s.Store.Src])
				}
			case StmtLoad:
				if cf.tmps[s.Load.Dst] != cf.vars[s.Load.Src] {
					return mismatch(bi, s, cf.vars[s.Load.Src], cf.tmps[s.Load.Dst])
				}
			case StmtExtern, StmtFunc:
				if want := FuncType(s.Ref.Src); cf.tmps[s.Ref.Dst] != want {
					return mismatch(bi, s, want, cf.tmps[s.Ref.Dst])
				}
			case StmtConst:
				if want := s.Const.Value.Type(); cf.tmps[s.Const.Dst] != want {
					return mismatch(bi, s, want, cf.tmps[s.Const.Dst])
				}
			case StmtBinExpr:
				lhs, rhs := cf.tmps[s.Bin.Lhs], cf.tmps[s.Bin.Rhs]
				if lhs.IsFunc() {
					return errorf(CodeTypeMismatch, cf.name, "bb%d: cannot operate on a function value", bi)
				}
				if lhs != rhs {
					return mismatch(bi, s, lhs, rhs)
				}
				if want := s.Bin.Op.ResultType(lhs); cf.tmps[s.Bin.Dst] != want {
					return mismatch(bi, s, want, cf.tmps[s.Bin.Dst])
				}
			case StmtCall:
				callee := cf.tmps[s.Call.Func]
				if !callee.IsFunc() {
					return errorf(CodeTypeMismatch, cf.name, "bb%d: cannot call a value of type %s", bi, callee)
				}
				sig, ok := sigs(callee.Func)
				if !ok {
					return errorf(CodeUnknownName, cf.name, "bb%d: call to unknown function #%d", bi, callee.Func)
				}
				if len(sig.params) != len(s.Call.Args) {
					return errorf(CodeArity, cf.name, "bb%d: call expects %d arguments, found %d", bi, len(sig.params), len(s.Call.Args))
				}
				for ai, a := range s.Call.Args {
					if cf.tmps[a].IsFunc() {
						return errorf(CodeTypeMismatch, cf.name, "bb%d: cannot pass a function as argument %d", bi, ai)
					}
					if cf.tmps[a] != sig.params[ai] {
						return mismatch(bi, s, sig.params[ai], cf.tmps[a])
					}
				}
				want := sig.ret
				if want == Never {
					want = Void
				}
				if got := cf.tmps[s.Call.Dst]; got != want && got != sig.ret {
					return mismatch(bi, s, sig.ret, got)
				}
			case StmtParam:
				if want := cf.params[s.Param.Index]; cf.tmps[s.Param.Dst] != want {
					return mismatch(bi, s, want, cf.tmps[s.Param.Dst])
				}
			case StmtReturn:
				if got := cf.tmps[s.Return.Value]; got != cf.ret {
					return mismatch(bi, s, cf.ret, got)
				}
			case StmtReturnVoid:
				if !cf.ret.IsZeroSized() {
					return mismatch(bi, s, cf.ret, Void)
				}
			case StmtCondJump:
				if got := cf.tmps[s.Branch.Cond]; got != Bool {
					return mismatch(bi, s, Bool, got)
				}
			}
		}
	}
	return nil
}
