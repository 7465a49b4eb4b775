package typeck

import (
	"fmt"
	"strconv"
)

// ConstKind tags a literal.
type ConstKind uint8

const (
	ConstI32 ConstKind = iota
	ConstBool
	ConstUnit
)

// ConstLiteral is a compile-time literal.
type ConstLiteral struct {
	Kind ConstKind
	Int  int32
	Bool bool
}

func IntLit(v int32) ConstLiteral { return ConstLiteral{Kind: ConstI32, Int: v} }
func BoolLit(v bool) ConstLiteral { return ConstLiteral{Kind: ConstBool, Bool: v} }
func UnitLit() ConstLiteral       { return ConstLiteral{Kind: ConstUnit} }

// Type returns the static type of the literal.
func (c ConstLiteral) Type() Type {
	switch c.Kind {
	case ConstI32:
		return I32
	case ConstBool:
		return Bool
	default:
		return Void
	}
}

func (c ConstLiteral) String() string {
	switch c.Kind {
	case ConstI32:
		return strconv.FormatInt(int64(c.Int), 10)
	case ConstBool:
		return strconv.FormatBool(c.Bool)
	default:
		return "()"
	}
}

// BinaryOp is a binary operator as resolved by the checker.
type BinaryOp uint8

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpRem
	OpEq
	OpNeq
	OpLt
	OpLe
	OpGt
	OpGe
	OpAnd
	OpOr
)

var opNames = [...]string{
	OpAdd: "+",
	OpSub: "-",
	OpMul: "*",
	OpDiv: "/",
	OpRem: "%",
	OpEq:  "==",
	OpNeq: "!=",
	OpLt:  "<",
	OpLe:  "<=",
	OpGt:  ">",
	OpGe:  ">=",
	OpAnd: "and",
	OpOr:  "or",
}

func (op BinaryOp) String() string {
	if int(op) < len(opNames) {
		return opNames[op]
	}
	return fmt.Sprintf("op(%d)", uint8(op))
}

// ParseBinaryOp is the inverse of BinaryOp.String.
func ParseBinaryOp(s string) (BinaryOp, error) {
	for i, name := range opNames {
		if name == s {
			return BinaryOp(i), nil
		}
	}
	return 0, fmt.Errorf("unknown operator %q", s)
}

// IsComparison reports whether op yields a bool.
func (op BinaryOp) IsComparison() bool {
	switch op {
	case OpEq, OpNeq, OpLt, OpLe, OpGt, OpGe:
		return true
	}
	return false
}

// ResultType returns the type of applying op to operands of type operand.
func (op BinaryOp) ResultType(operand Type) Type {
	if op.IsComparison() {
		return Bool
	}
	return operand
}
