package typeck

// StmtKind enumerates typed IR statement kinds.
type StmtKind uint8

const (
	// StmtLet binds a variable to a fresh slot holding a temporary.
	StmtLet StmtKind = iota
	// StmtStore overwrites a variable's slot.
	StmtStore
	// StmtLoad reads a variable into a temporary.
	StmtLoad
	// StmtExtern binds a temporary to a registered extern function.
	StmtExtern
	// StmtFunc binds a temporary to a defined function.
	StmtFunc
	// StmtConst binds a temporary to a literal.
	StmtConst
	// StmtBinExpr applies a binary operator.
	StmtBinExpr
	// StmtCall calls a function value.
	StmtCall
	// StmtParam binds a temporary to an incoming parameter.
	StmtParam
	// StmtReturn returns a value.
	StmtReturn
	// StmtReturnVoid returns nothing.
	StmtReturnVoid
	// StmtJump transfers control unconditionally.
	StmtJump
	// StmtCondJump transfers control on a boolean.
	StmtCondJump
)

var stmtNames = [...]string{
	StmtLet:        "let",
	StmtStore:      "store",
	StmtLoad:       "load",
	StmtExtern:     "extern",
	StmtFunc:       "func",
	StmtConst:      "const",
	StmtBinExpr:    "binexpr",
	StmtCall:       "call",
	StmtParam:      "param",
	StmtReturn:     "return",
	StmtReturnVoid: "return_void",
	StmtJump:       "jump",
	StmtCondJump:   "cond_jump",
}

func (k StmtKind) String() string {
	if int(k) < len(stmtNames) {
		return stmtNames[k]
	}
	return "invalid"
}

// ParseStmtKind is the inverse of StmtKind.String.
func ParseStmtKind(s string) (StmtKind, bool) {
	for i, name := range stmtNames {
		if name == s {
			return StmtKind(i), true
		}
	}
	return 0, false
}

// Statement is one typed IR statement. Only the field matching Kind is set.
type Statement struct {
	Kind StmtKind

	Let    LetStmt
	Store  StoreStmt
	Load   LoadStmt
	Ref    RefStmt
	Const  ConstStmt
	Bin    BinStmt
	Call   CallStmt
	Param  ParamStmt
	Return ReturnStmt
	Jump   JumpStmt
	Branch BranchStmt
}

type LetStmt struct {
	Dst VarID
	Src TmpID
}

type StoreStmt struct {
	Dst VarID
	Src TmpID
}

type LoadStmt struct {
	Dst TmpID
	Src VarID
}

// RefStmt is shared by StmtExtern and StmtFunc.
type RefStmt struct {
	Dst TmpID
	Src FuncID
}

type ConstStmt struct {
	Dst   TmpID
	Value ConstLiteral
}

type BinStmt struct {
	Dst TmpID
	Lhs TmpID
	Op  BinaryOp
	Rhs TmpID
}

type CallStmt struct {
	Dst  TmpID
	Func TmpID
	Args []TmpID
}

type ParamStmt struct {
	Dst   TmpID
	Index int
}

type ReturnStmt struct {
	Value TmpID
}

type JumpStmt struct {
	Target BlockID
}

type BranchStmt struct {
	Cond TmpID
	Then BlockID
	Else BlockID
}

// IsTerminator reports whether s ends a block.
func (s *Statement) IsTerminator() bool {
	switch s.Kind {
	case StmtReturn, StmtReturnVoid, StmtJump, StmtCondJump:
		return true
	}
	return false
}

// Successors lists the blocks s may transfer control to.
func (s *Statement) Successors() []BlockID {
	switch s.Kind {
	case StmtJump:
		return []BlockID{s.Jump.Target}
	case StmtCondJump:
		return []BlockID{s.Branch.Then, s.Branch.Else}
	}
	return nil
}

func Let(dst VarID, src TmpID) Statement {
	return Statement{Kind: StmtLet, Let: LetStmt{Dst: dst, Src: src}}
}

func Store(dst VarID, src TmpID) Statement {
	return Statement{Kind: StmtStore, Store: StoreStmt{Dst: dst, Src: src}}
}

func Load(dst TmpID, src VarID) Statement {
	return Statement{Kind: StmtLoad, Load: LoadStmt{Dst: dst, Src: src}}
}

func Extern(dst TmpID, src FuncID) Statement {
	return Statement{Kind: StmtExtern, Ref: RefStmt{Dst: dst, Src: src}}
}

func Func(dst TmpID, src FuncID) Statement {
	return Statement{Kind: StmtFunc, Ref: RefStmt{Dst: dst, Src: src}}
}

func Const(dst TmpID, v ConstLiteral) Statement {
	return Statement{Kind: StmtConst, Const: ConstStmt{Dst: dst, Value: v}}
}

func BinExpr(dst, lhs TmpID, op BinaryOp, rhs TmpID) Statement {
	return Statement{Kind: StmtBinExpr, Bin: BinStmt{Dst: dst, Lhs: lhs, Op: op, Rhs: rhs}}
}

func Call(dst, fn TmpID, args ...TmpID) Statement {
	return Statement{Kind: StmtCall, Call: CallStmt{Dst: dst, Func: fn, Args: args}}
}

func Param(dst TmpID, index int) Statement {
	return Statement{Kind: StmtParam, Param: ParamStmt{Dst: dst, Index: index}}
}

func Return(v TmpID) Statement {
	return Statement{Kind: StmtReturn, Return: ReturnStmt{Value: v}}
}

func ReturnVoid() Statement {
	return Statement{Kind: StmtReturnVoid}
}

func Jump(target BlockID) Statement {
	return Statement{Kind: StmtJump, Jump: JumpStmt{Target: target}}
}

func CondJump(cond TmpID, then, els BlockID) Statement {
	return Statement{Kind: StmtCondJump, Branch: BranchStmt{Cond: cond, Then: then, Else: els}}
}
