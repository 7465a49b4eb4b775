package typeck

import (
	"errors"
	"fmt"

	"golang.org/x/text/unicode/norm"
)

// ErrNameTaken is returned when a function name is already bound.
var ErrNameTaken = errors.New("name already bound")

// Block is a straight-line statement list ending in one terminator.
type Block struct {
	ID    BlockID
	Stmts []Statement
}

// Terminator returns the last statement if it ends the block.
func (b *Block) Terminator() *Statement {
	if b == nil || len(b.Stmts) == 0 {
		return nil
	}
	last := &b.Stmts[len(b.Stmts)-1]
	if !last.IsTerminator() {
		return nil
	}
	return last
}

// Function is one typed function. Blocks[i].ID == BlockID(i).
type Function struct {
	ID       FuncID
	Name     string
	Params   []TypeID
	Returns  TypeID
	IsExtern bool

	Variables   []TypeID
	Temporaries []TypeID
	Blocks      []Block
}

// Var returns the type of variable id.
func (f *Function) Var(id VarID) TypeID { return f.Variables[id] }

// Tmp returns the type of temporary id.
func (f *Function) Tmp(id TmpID) TypeID { return f.Temporaries[id] }

// NumBlocks returns the number of basic blocks.
func (f *Function) NumBlocks() int { return len(f.Blocks) }

// Module owns the interned types and every checked function.
type Module struct {
	types     []Type
	typeIndex map[Type]TypeID
	funcs     []*Function
	names     map[string]FuncID
}

// NewModule returns an empty module with the builtin types interned.
func NewModule() *Module {
	m := &Module{
		typeIndex: make(map[Type]TypeID),
		names:     make(map[string]FuncID),
	}
	for _, t := range []Type{I32, Bool, Void, Never} {
		m.Intern(t)
	}
	return m
}

// Intern returns the id of t, adding it on first use.
func (m *Module) Intern(t Type) TypeID {
	if id, ok := m.typeIndex[t]; ok {
		return id
	}
	id := DenseID[TypeID](len(m.types))
	m.types = append(m.types, t)
	m.typeIndex[t] = id
	return id
}

// GetType resolves a type id.
func (m *Module) GetType(id TypeID) Type {
	if id < 0 || int(id) >= len(m.types) {
		panic(fmt.Sprintf("typeck: type id %d out of range", id))
	}
	return m.types[id]
}

// Types returns the number of interned types.
func (m *Module) Types() int { return len(m.types) }

// Functions returns all functions in id order.
func (m *Module) Functions() []*Function { return m.funcs }

// Function returns the function with the given id.
func (m *Module) Function(id FuncID) *Function {
	if id < 0 || int(id) >= len(m.funcs) {
		return nil
	}
	return m.funcs[id]
}

// Lookup resolves a function by name.
func (m *Module) Lookup(name string) (FuncID, bool) {
	id, ok := m.names[norm.NFC.String(name)]
	return id, ok
}

// AddExtern registers a host function signature under name.
func (m *Module) AddExtern(name string, ret Type, params []Type) (FuncID, error) {
	key := norm.NFC.String(name)
	if _, ok := m.names[key]; ok {
		return NoFuncID, fmt.Errorf("%w: %s", ErrNameTaken, name)
	}
	f := &Function{
		Name:     name,
		Returns:  m.Intern(ret),
		IsExtern: true,
		Params:   make([]TypeID, 0, len(params)),
	}
	for _, p := range params {
		f.Params = append(f.Params, m.Intern(p))
	}
	id := m.appendFunc(f)
	m.names[key] = id
	return id, nil
}

// AddFunction appends a checked function and binds its name, if any.
func (m *Module) AddFunction(f *Function) (FuncID, error) {
	if f == nil {
		return NoFuncID, errors.New("nil function")
	}
	key := norm.NFC.String(f.Name)
	if f.Name != "" {
		if _, ok := m.names[key]; ok {
			return NoFuncID, fmt.Errorf("%w: %s", ErrNameTaken, f.Name)
		}
	}
	id := m.appendFunc(f)
	if f.Name != "" {
		m.names[key] = id
	}
	return id, nil
}

func (m *Module) appendFunc(f *Function) FuncID {
	id := DenseID[FuncID](len(m.funcs))
	f.ID = id
	m.funcs = append(m.funcs, f)
	return id
}

// Process runs the checker over src and returns its entry function.
func (m *Module) Process(src Source) (FuncID, error) {
	if src == nil {
		return NoFuncID, &Error{Code: CodeMalformed, Msg: "nil source"}
	}
	return src.Check(m)
}

// Source is anything the checker can lower into typed functions.
type Source interface {
	Check(m *Module) (FuncID, error)
}
