package codegen

import "tinygo.org/x/go-llvm"

// FunctionRef is a native function together with its prototype. Calls
// through a ref are always direct.
type FunctionRef struct {
	Fn   llvm.Value
	Type llvm.Type
}

// SlotKind tells the two Slot cases apart.
type SlotKind uint8

const (
	SlotValue SlotKind = iota + 1
	SlotFunc
)

// Slot is the compiled form of a temporary or variable. Function-typed
// bindings are always SlotFunc; everything else is SlotValue. For
// variables a SlotValue holds the stack address, not the value.
type Slot struct {
	Kind  SlotKind
	Value llvm.Value
	Func  FunctionRef
}

func valueSlot(v llvm.Value) Slot    { return Slot{Kind: SlotValue, Value: v} }
func funcSlot(ref FunctionRef) Slot { return Slot{Kind: SlotFunc, Func: ref} }

// AsValue returns the native value if the slot holds one.
func (s Slot) AsValue() (llvm.Value, bool) {
	return s.Value, s.Kind == SlotValue
}

// AsFunc returns the function reference if the slot holds one.
func (s Slot) AsFunc() (FunctionRef, bool) {
	return s.Func, s.Kind == SlotFunc
}
