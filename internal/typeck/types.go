package typeck

import (
	"fmt"

	"fortio.org/safecast"
)

type TypeID int32
type FuncID int32
type VarID int32
type TmpID int32
type BlockID int32

const (
	NoTypeID  TypeID  = -1
	NoFuncID  FuncID  = -1
	NoVarID   VarID   = -1
	NoTmpID   TmpID   = -1
	NoBlockID BlockID = -1
)

// TypeKind is the closed set of types the checker produces.
type TypeKind uint8

const (
	TypeInvalid TypeKind = iota
	TypeI32
	TypeBool
	TypeVoid
	TypeNever
	TypeFunc
)

// Type is a resolved type. Function types carry the id of the function they
// denote; NoFuncID marks a function type whose target is not yet resolved.
type Type struct {
	Kind TypeKind
	Func FuncID
}

var (
	I32   = Type{Kind: TypeI32, Func: NoFuncID}
	Bool  = Type{Kind: TypeBool, Func: NoFuncID}
	Void  = Type{Kind: TypeVoid, Func: NoFuncID}
	Never = Type{Kind: TypeNever, Func: NoFuncID}
	// Fn is an unresolved function type; the checker binds it to a concrete
	// function from the statement that defines the slot.
	Fn = Type{Kind: TypeFunc, Func: NoFuncID}
)

// FuncType returns the type of the function value id.
func FuncType(id FuncID) Type {
	return Type{Kind: TypeFunc, Func: id}
}

// IsFunc reports whether t is a function type.
func (t Type) IsFunc() bool { return t.Kind == TypeFunc }

// IsZeroSized reports whether values of t carry no data.
func (t Type) IsZeroSized() bool {
	return t.Kind == TypeVoid || t.Kind == TypeNever
}

func (t Type) String() string {
	switch t.Kind {
	case TypeI32:
		return "i32"
	case TypeBool:
		return "bool"
	case TypeVoid:
		return "void"
	case TypeNever:
		return "never"
	case TypeFunc:
		if t.Func == NoFuncID {
			return "fn"
		}
		return fmt.Sprintf("fn#%d", t.Func)
	default:
		return "invalid"
	}
}

// ParseType converts a type name as printed by Type.String.
func ParseType(s string) (Type, error) {
	switch s {
	case "i32":
		return I32, nil
	case "bool":
		return Bool, nil
	case "void", "":
		return Void, nil
	case "never":
		return Never, nil
	case "fn":
		return Fn, nil
	default:
		return Type{}, fmt.Errorf("unknown type %q", s)
	}
}

// Index returns the slice index of a dense id.
func (id TypeID) Index() int  { return int(id) }
func (id FuncID) Index() int  { return int(id) }
func (id VarID) Index() int   { return int(id) }
func (id TmpID) Index() int   { return int(id) }
func (id BlockID) Index() int { return int(id) }

// DenseID converts a slice length or index into a typed id.
func DenseID[T ~int32](n int) T {
	v, err := safecast.Conv[int32](n)
	if err != nil {
		panic(fmt.Errorf("id overflow: %w", err))
	}
	return T(v)
}
