package codegen

import (
	"fmt"

	"tinygo.org/x/go-llvm"

	"jitcore/internal/typeck"
)

var i32Predicates = map[typeck.BinaryOp]llvm.IntPredicate{
	typeck.OpEq:  llvm.IntEQ,
	typeck.OpNeq: llvm.IntNE,
	typeck.OpLt:  llvm.IntSLT,
	typeck.OpLe:  llvm.IntSLE,
	typeck.OpGt:  llvm.IntSGT,
	typeck.OpGe:  llvm.IntSGE,
}

// lowerBinary emits op over two values of operand type t. Arithmetic on i32
// wraps; division and remainder are signed and trap on zero at run time.
func (m *ModuleGen) lowerBinary(t typeck.Type, op typeck.BinaryOp, lhs, rhs llvm.Value) llvm.Value {
	b := m.builder
	switch t.Kind {
	case typeck.TypeI32:
		switch op {
		case typeck.OpAdd:
			return b.CreateAdd(lhs, rhs, "builtin-i32-add")
		case typeck.OpSub:
			return b.CreateSub(lhs, rhs, "builtin-i32-sub")
		case typeck.OpMul:
			return b.CreateMul(lhs, rhs, "builtin-i32-mul")
		case typeck.OpDiv:
			return b.CreateSDiv(lhs, rhs, "builtin-i32-div")
		case typeck.OpRem:
			return b.CreateSRem(lhs, rhs, "builtin-i32-rem")
		}
		if pred, ok := i32Predicates[op]; ok {
			if op == typeck.OpGt && m.opts.LegacyGreaterThan {
				pred = llvm.IntSLT
			}
			return b.CreateICmp(pred, lhs, rhs, "builtin-i32-"+predicateName(pred))
		}
	case typeck.TypeBool:
		switch op {
		case typeck.OpAnd:
			return b.CreateAnd(lhs, rhs, "builtin-bool-and")
		case typeck.OpOr:
			return b.CreateOr(lhs, rhs, "builtin-bool-or")
		case typeck.OpEq:
			return b.CreateICmp(llvm.IntEQ, lhs, rhs, "builtin-bool-eq")
		case typeck.OpNeq:
			return b.CreateICmp(llvm.IntNE, lhs, rhs, "builtin-bool-neq")
		}
	}
	panic(fmt.Sprintf("codegen: invalid operation: %s %s %s", t, op, t))
}

func predicateName(p llvm.IntPredicate) string {
	switch p {
	case llvm.IntEQ:
		return "eq"
	case llvm.IntNE:
		return "neq"
	case llvm.IntSLT:
		return "lt"
	case llvm.IntSLE:
		return "le"
	case llvm.IntSGT:
		return "gt"
	case llvm.IntSGE:
		return "ge"
	default:
		return "cmp"
	}
}
