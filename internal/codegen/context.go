package codegen

import (
	"fmt"
	"sync"

	"tinygo.org/x/go-llvm"
)

// The native context is shared by every generator in the process and is
// never disposed. Native values handed out by one generator stay valid for
// as long as the process runs.
var (
	nativeOnce sync.Once
	nativeCtx  llvm.Context
	nativeErr  error
)

func nativeContext() (llvm.Context, error) {
	nativeOnce.Do(func() {
		llvm.LinkInMCJIT()
		if err := llvm.InitializeNativeTarget(); err != nil {
			nativeErr = fmt.Errorf("initialize native target: %w", err)
			return
		}
		if err := llvm.InitializeNativeAsmPrinter(); err != nil {
			nativeErr = fmt.Errorf("initialize native asm printer: %w", err)
			return
		}
		nativeCtx = llvm.NewContext()
	})
	return nativeCtx, nativeErr
}
