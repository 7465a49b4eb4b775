package main

import (
	"fmt"
	"io"

	"jitcore/internal/codegen"
	"jitcore/internal/hostfn"
)

// hostLib is the set of Go functions every program may call as externs.
type hostLib struct {
	closures []*hostfn.Closure
}

// builtinExterns returns the builtins keyed by name, writing to out and errOut.
func builtinExterns(out, errOut io.Writer) map[string]any {
	return map[string]any{
		"print":      func(v int32) { fmt.Fprintln(out, v) },
		"eprint":     func(v int32) { fmt.Fprintln(errOut, v) },
		"print_bool": func(v int32) { fmt.Fprintln(out, v != 0) },
		"abs": func(v int32) int32 {
			if v < 0 {
				return -v
			}
			return v
		},
		"min": func(a, b int32) int32 { return min(a, b) },
		"max": func(a, b int32) int32 { return max(a, b) },
	}
}

// register installs the builtins the program references into m.
func (h *hostLib) register(m *codegen.ModuleGen, names []string, out, errOut io.Writer) error {
	builtins := builtinExterns(out, errOut)
	for _, name := range names {
		fn, ok := builtins[name]
		if !ok {
			continue
		}
		c, err := hostfn.NewClosure(fn)
		if err != nil {
			return fmt.Errorf("builtin %s: %w", name, err)
		}
		h.closures = append(h.closures, c)
		if err := m.AddExternUserdata(name, c.Addr(), c.Userdata(), c.Return(), c.Params()); err != nil {
			return err
		}
	}
	return nil
}

// release frees the closure handles. Call only after the module is done
// running.
func (h *hostLib) release() {
	for _, c := range h.closures {
		c.Release()
	}
	h.closures = nil
}
