package codegen

import (
	"fmt"

	"tinygo.org/x/go-llvm"

	"jitcore/internal/trace"
)

// verifyFunction checks one native function. A failure means the lowering
// produced bad IR, so the module is dumped and the process panics.
func (m *ModuleGen) verifyFunction(fn llvm.Value, name string) {
	if err := llvm.VerifyFunction(fn, llvm.PrintMessageAction); err != nil {
		m.fatalIR(fmt.Sprintf("invalid fn %s", name), err)
	}
}

func (m *ModuleGen) verifyModule() {
	if err := llvm.VerifyModule(m.module, llvm.ReturnStatusAction); err != nil {
		m.fatalIR("invalid module", err)
	}
}

func (m *ModuleGen) fatalIR(what string, err error) {
	trace.Point(m.tracer, trace.ScopeDriver, "verify-failed", what, 0)
	_ = m.tracer.Flush()
	fmt.Fprintf(m.opts.FatalOutput, "LLVM IR:\n\n%s\n", m.module.String())
	panic(fmt.Sprintf("codegen: %s: %v", what, err))
}
