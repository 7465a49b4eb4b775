package typeck

// Program is a hand-assembled Source: functions are described with typed
// slots and statements, and name references are resolved when checked.
type Program struct {
	funcs []*FuncBuilder
	entry string
}

// NewProgram returns an empty program.
func NewProgram() *Program {
	return &Program{}
}

// SetEntry names the function Check returns. It defaults to the first one.
func (p *Program) SetEntry(name string) *Program {
	p.entry = name
	return p
}

// Func starts a new function.
func (p *Program) Func(name string, ret Type, params ...Type) *FuncBuilder {
	fb := &FuncBuilder{
		name:   name,
		ret:    ret,
		params: params,
		cur:    NoBlockID,
	}
	p.funcs = append(p.funcs, fb)
	return fb
}

type pendingRef struct {
	block BlockID
	stmt  int
	name  string
}

// FuncBuilder assembles one function. Statements are appended to the
// current block; the first Emit opens block 0 if none exists.
type FuncBuilder struct {
	name   string
	ret    Type
	params []Type
	vars   []Type
	tmps   []Type
	blocks [][]Statement
	refs   []pendingRef
	cur    BlockID
}

// Name returns the function name.
func (b *FuncBuilder) Name() string { return b.name }

// Temp declares a temporary of type t.
func (b *FuncBuilder) Temp(t Type) TmpID {
	b.tmps = append(b.tmps, t)
	return DenseID[TmpID](len(b.tmps) - 1)
}

// Var declares a variable of type t.
func (b *FuncBuilder) Var(t Type) VarID {
	b.vars = append(b.vars, t)
	return DenseID[VarID](len(b.vars) - 1)
}

// TempType returns the declared type of a temporary.
func (b *FuncBuilder) TempType(id TmpID) Type { return b.tmps[id] }

// NewBlock appends an empty block without switching to it.
func (b *FuncBuilder) NewBlock() BlockID {
	b.blocks = append(b.blocks, nil)
	id := DenseID[BlockID](len(b.blocks) - 1)
	if b.cur == NoBlockID {
		b.cur = id
	}
	return id
}

// SetBlock makes id the current block.
func (b *FuncBuilder) SetBlock(id BlockID) *FuncBuilder {
	b.cur = id
	return b
}

// Emit appends s to the current block.
func (b *FuncBuilder) Emit(s Statement) *FuncBuilder {
	if b.cur == NoBlockID {
		b.NewBlock()
	}
	b.blocks[b.cur] = append(b.blocks[b.cur], s)
	return b
}

func (b *FuncBuilder) emitRef(kind StmtKind, dst TmpID, name string) {
	b.Emit(Statement{Kind: kind, Ref: RefStmt{Dst: dst, Src: NoFuncID}})
	b.refs = append(b.refs, pendingRef{block: b.cur, stmt: len(b.blocks[b.cur]) - 1, name: name})
}

// FuncRef emits a Func statement resolving name at check time.
func (b *FuncBuilder) FuncRef(dst TmpID, name string) *FuncBuilder {
	b.emitRef(StmtFunc, dst, name)
	return b
}

// ExternRef emits an Extern statement resolving name at check time.
func (b *FuncBuilder) ExternRef(dst TmpID, name string) *FuncBuilder {
	b.emitRef(StmtExtern, dst, name)
	return b
}

// Ref binds a fresh temporary to the defined function name.
func (b *FuncBuilder) Ref(name string) TmpID {
	t := b.Temp(Fn)
	b.FuncRef(t, name)
	return t
}

// ExternFn binds a fresh temporary to the extern function name.
func (b *FuncBuilder) ExternFn(name string) TmpID {
	t := b.Temp(Fn)
	b.ExternRef(t, name)
	return t
}

// Const binds a fresh i32 temporary to v.
func (b *FuncBuilder) Const(v int32) TmpID {
	t := b.Temp(I32)
	b.Emit(Const(t, IntLit(v)))
	return t
}

// ConstBool binds a fresh bool temporary to v.
func (b *FuncBuilder) ConstBool(v bool) TmpID {
	t := b.Temp(Bool)
	b.Emit(Const(t, BoolLit(v)))
	return t
}

// Bin applies op and returns the result temporary.
func (b *FuncBuilder) Bin(lhs TmpID, op BinaryOp, rhs TmpID) TmpID {
	t := b.Temp(op.ResultType(b.tmps[lhs]))
	b.Emit(BinExpr(t, lhs, op, rhs))
	return t
}

// Call calls fn and returns a temporary of type ret.
func (b *FuncBuilder) Call(fn TmpID, ret Type, args ...TmpID) TmpID {
	t := b.Temp(ret)
	b.Emit(Call(t, fn, args...))
	return t
}

// Param binds a fresh temporary to parameter i.
func (b *FuncBuilder) Param(i int) TmpID {
	t := b.Temp(b.params[i])
	b.Emit(Param(t, i))
	return t
}

// Let binds a fresh variable to src.
func (b *FuncBuilder) Let(src TmpID) VarID {
	v := b.Var(b.tmps[src])
	b.Emit(Let(v, src))
	return v
}

// Store overwrites v with src.
func (b *FuncBuilder) Store(v VarID, src TmpID) *FuncBuilder {
	return b.Emit(Store(v, src))
}

// Load reads v into a fresh temporary.
func (b *FuncBuilder) Load(v VarID) TmpID {
	t := b.Temp(b.vars[v])
	b.Emit(Load(t, v))
	return t
}

func (b *FuncBuilder) Return(v TmpID) *FuncBuilder { return b.Emit(Return(v)) }
func (b *FuncBuilder) ReturnVoid() *FuncBuilder    { return b.Emit(ReturnVoid()) }
func (b *FuncBuilder) Jump(to BlockID) *FuncBuilder {
	return b.Emit(Jump(to))
}

func (b *FuncBuilder) Branch(cond TmpID, then, els BlockID) *FuncBuilder {
	return b.Emit(CondJump(cond, then, els))
}
