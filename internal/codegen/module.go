package codegen

import (
	"fmt"
	"io"
	"os"
	"time"

	"tinygo.org/x/go-llvm"

	"jitcore/internal/idmap"
	"jitcore/internal/observ"
	"jitcore/internal/trace"
	"jitcore/internal/typeck"
)

// Options tunes a generator.
type Options struct {
	// OptLevel is the MCJIT optimization level, 0 through 3.
	OptLevel uint
	// LegacyGreaterThan lowers i32 `>` as signed less-than, which is what
	// the first release of the backend emitted.
	LegacyGreaterThan bool
	ModuleName        string
	Tracer            trace.Tracer
	Timer             *observ.Timer
	// Heartbeat is the liveness interval while JIT code runs; 0 disables.
	Heartbeat time.Duration
	// FatalOutput receives the module IR before a verification panic.
	// Defaults to stderr.
	FatalOutput io.Writer
}

// DefaultOptions returns aggressive optimization and no tracing.
func DefaultOptions() Options {
	return Options{OptLevel: 3, ModuleName: "<run>"}
}

// CodeGen hands out module generators sharing one native context.
type CodeGen struct {
	opts Options
}

// New returns a CodeGen using opts for every module it creates.
func New(opts Options) *CodeGen {
	if opts.ModuleName == "" {
		opts.ModuleName = "<run>"
	}
	if opts.OptLevel > 3 {
		opts.OptLevel = 3
	}
	if opts.Tracer == nil {
		opts.Tracer = trace.Nop
	}
	if opts.FatalOutput == nil {
		opts.FatalOutput = os.Stderr
	}
	return &CodeGen{opts: opts}
}

// Module creates an empty native module with its own JIT engine.
func (cg *CodeGen) Module() (*ModuleGen, error) {
	ctx, err := nativeContext()
	if err != nil {
		return nil, err
	}
	mod := ctx.NewModule(cg.opts.ModuleName)
	engineOpts := llvm.NewMCJITCompilerOptions()
	engineOpts.SetMCJITOptimizationLevel(cg.opts.OptLevel)
	engine, err := llvm.NewMCJITCompiler(mod, engineOpts)
	if err != nil {
		mod.Dispose()
		return nil, fmt.Errorf("create JIT engine: %w", err)
	}
	ptrSize := engine.TargetData().PointerSize()
	return &ModuleGen{
		ctx:           ctx,
		module:        mod,
		builder:       ctx.NewBuilder(),
		allocaBuilder: ctx.NewBuilder(),
		engine:        engine,
		word:          ctx.IntType(ptrSize * 8),
		unit:          ctx.StructType(nil, false),
		types:         typeck.NewModule(),
		opts:          cg.opts,
		tracer:        cg.opts.Tracer,
	}, nil
}

// ModuleGen lowers typed functions into one native module and runs them.
// It is not safe for concurrent use.
type ModuleGen struct {
	ctx           llvm.Context
	module        llvm.Module
	builder       llvm.Builder
	allocaBuilder llvm.Builder
	engine        llvm.ExecutionEngine
	word          llvm.Type
	unit          llvm.Type

	types     *typeck.Module
	functions idmap.Map[typeck.FuncID, FunctionRef]
	// functions with an index below lowered already have a native body
	lowered int

	// per-function state, cleared between bodies
	tmps   idmap.Map[typeck.TmpID, Slot]
	vars   idmap.Map[typeck.VarID, Slot]
	blocks idmap.Map[typeck.BlockID, llvm.BasicBlock]

	opts   Options
	tracer trace.Tracer

	executed bool
	closed   bool
}

// Types exposes the typed module backing the generator.
func (m *ModuleGen) Types() *typeck.Module { return m.types }

// IR renders the native module as text.
func (m *ModuleGen) IR() string { return m.module.String() }

// Add checks src, lowers every function it introduced and returns the
// entry function id. Functions from earlier calls are left untouched.
func (m *ModuleGen) Add(src typeck.Source) (typeck.FuncID, error) {
	m.mustBeWritable()
	span := trace.Begin(m.tracer, trace.ScopeDriver, "add", 0)
	defer span.End("")

	idx := m.opts.Timer.Begin("check")
	entry, err := m.types.Process(src)
	m.opts.Timer.End(idx, "")
	if err != nil {
		return typeck.NoFuncID, &Error{Kind: KindType, Err: err}
	}

	funcs := m.types.Functions()
	m.functions.Reserve(len(funcs))
	pending := funcs[m.lowered:]

	idx = m.opts.Timer.Begin("prototypes")
	protoSpan := trace.Begin(m.tracer, trace.ScopePass, "prototypes", span.ID())
	for _, f := range pending {
		if f.IsExtern {
			continue
		}
		ret, params := m.signature(f)
		ty := m.prototype(ret, params)
		fn := llvm.AddFunction(m.module, nativeName(f), ty)
		m.functions.Set(f.ID, FunctionRef{Fn: fn, Type: ty})
	}
	protoSpan.End("")
	m.opts.Timer.End(idx, fmt.Sprintf("%d functions", len(pending)))

	for _, f := range pending {
		if f.IsExtern {
			continue
		}
		idx = m.opts.Timer.Begin("lower:" + f.Name)
		m.lowerFunction(f, span.ID())
		m.opts.Timer.End(idx, fmt.Sprintf("%d blocks", f.NumBlocks()))
	}
	m.lowered = len(funcs)
	return entry, nil
}

// Lookup resolves a function or extern by name.
func (m *ModuleGen) Lookup(name string) (typeck.FuncID, error) {
	id, ok := m.types.Lookup(name)
	if !ok {
		return typeck.NoFuncID, &Error{Kind: KindVariableNotFound, Name: name}
	}
	return id, nil
}

// Close releases the engine, which owns the module, and both builders.
// The shared native context stays alive.
func (m *ModuleGen) Close() {
	if m.closed {
		return
	}
	m.closed = true
	m.builder.Dispose()
	m.allocaBuilder.Dispose()
	m.engine.Dispose()
}

// The engine loads the module on first execution; code added afterwards
// would never be emitted.
func (m *ModuleGen) mustBeWritable() {
	if m.closed {
		panic("codegen: use of closed module generator")
	}
	if m.executed {
		panic("codegen: module already executed; add code to a new module generator")
	}
}

func nativeName(f *typeck.Function) string {
	if f.Name != "" {
		return f.Name
	}
	return fmt.Sprintf("fn.%d", f.ID)
}
