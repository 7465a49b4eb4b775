// Package tirfile reads and writes typed programs as files.
//
// A program is written by hand as TOML and can be packed into a compact
// msgpack form (.tirpack). Both decode into File, which converts to a
// typeck.Program for checking.
package tirfile

// File is a serializable typed program.
type File struct {
	// Schema is set on packed files only.
	Schema uint16 `toml:"-" msgpack:"schema"`
	Entry  string `toml:"entry,omitempty" msgpack:"entry,omitempty"`
	Funcs  []Func `toml:"func" msgpack:"funcs"`
}

// Func describes one function. Types are written as i32, bool, void,
// never or fn.
type Func struct {
	Name    string   `toml:"name" msgpack:"name"`
	Params  []string `toml:"params,omitempty" msgpack:"params,omitempty"`
	Returns string   `toml:"returns,omitempty" msgpack:"returns,omitempty"`
	Vars    []string `toml:"vars,omitempty" msgpack:"vars,omitempty"`
	Temps   []string `toml:"temps,omitempty" msgpack:"temps,omitempty"`
	Blocks  []Block  `toml:"block" msgpack:"blocks"`
}

// Block is an ordered statement list; its id is its position.
type Block struct {
	Stmts []Stmt `toml:"stmt" msgpack:"stmts"`
}

// Stmt is one statement. Op selects which operand fields are read:
//
//	let, store        dst (var), src (temp)
//	load              dst (temp), src (var)
//	func, extern      dst, name
//	const             dst, int | bool | neither for unit
//	binexpr           dst, lhs, binop, rhs
//	call              dst, callee, args
//	param             dst, index
//	return            src
//	return_void
//	jump              target
//	cond_jump         cond, then, else
type Stmt struct {
	Op     string  `toml:"op" msgpack:"op"`
	Dst    int32   `toml:"dst,omitempty" msgpack:"dst,omitempty"`
	Src    int32   `toml:"src,omitempty" msgpack:"src,omitempty"`
	Name   string  `toml:"name,omitempty" msgpack:"name,omitempty"`
	Int    *int32  `toml:"int,omitempty" msgpack:"int,omitempty"`
	Bool   *bool   `toml:"bool,omitempty" msgpack:"bool,omitempty"`
	Lhs    int32   `toml:"lhs,omitempty" msgpack:"lhs,omitempty"`
	BinOp  string  `toml:"binop,omitempty" msgpack:"binop,omitempty"`
	Rhs    int32   `toml:"rhs,omitempty" msgpack:"rhs,omitempty"`
	Callee int32   `toml:"callee,omitempty" msgpack:"callee,omitempty"`
	Args   []int32 `toml:"args,omitempty" msgpack:"args,omitempty"`
	Index  int     `toml:"index,omitempty" msgpack:"index,omitempty"`
	Target int32   `toml:"target,omitempty" msgpack:"target,omitempty"`
	Cond   int32   `toml:"cond,omitempty" msgpack:"cond,omitempty"`
	Then   int32   `toml:"then,omitempty" msgpack:"then,omitempty"`
	Else   int32   `toml:"else,omitempty" msgpack:"else,omitempty"`
}
