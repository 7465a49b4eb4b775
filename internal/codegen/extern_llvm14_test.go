//go:build llvm14

package codegen

import (
	"testing"

	"jitcore/internal/typeck"
)

// Pointers are typed before LLVM 15, so the call target must point at the
// callee's function type.
func TestHostTargetPointsAtSignature(t *testing.T) {
	m := newGen(t, DefaultOptions())
	sigTy := m.prototype(typeck.I32, []typeck.Type{typeck.I32})
	target := m.hostTarget(0x1000, sigTy)
	if elem := target.Type().ElementType(); elem != sigTy {
		t.Fatalf("host target points at %v, want %v", elem, sigTy)
	}
}
