package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"jitcore/internal/codegen"
	"jitcore/internal/tirfile"
)

var runEntry string

func init() {
	runCmd.Flags().StringVar(&runEntry, "entry", "", "function to run (default: the file's entry, then [run].entry)")
}

var runCmd = &cobra.Command{
	Use:   "run <file>",
	Short: "Check, compile and execute a program",
	Args:  cobra.ExactArgs(1),
	RunE:  runProgram,
}

func runProgram(cmd *cobra.Command, args []string) error {
	s, cleanup, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer cleanup()
	defer s.dumpOnPanic(cmd.ErrOrStderr())

	gen, file, err := compileFile(cmd, s, args[0])
	if err != nil {
		return err
	}
	defer gen.close()

	entry := file.Entry
	if runEntry != "" {
		entry = runEntry
	}
	res, err := gen.m.RunEntry(entry)
	if err != nil {
		return err
	}
	if res.HasValue {
		fmt.Fprintln(cmd.OutOrStdout(), res)
	}
	if s.timings {
		fmt.Fprint(cmd.ErrOrStderr(), s.timer.Summary())
	}
	return nil
}

// compiled is a module holding one program and its host builtins.
type compiled struct {
	m   *codegen.ModuleGen
	lib hostLib
}

func (c *compiled) close() {
	c.m.Close()
	c.lib.release()
}

// compileFile loads path, registers the builtins it references and adds
// it to a fresh module. The file's entry falls back to [run].entry.
func compileFile(cmd *cobra.Command, s *session, path string) (*compiled, *tirfile.File, error) {
	idx := s.timer.Begin("load")
	file, err := tirfile.Load(path)
	s.timer.End(idx, filepath.Base(path))
	if err != nil {
		return nil, nil, err
	}
	if file.Entry == "" {
		file.Entry = s.cfg.Run.Entry
	}
	prog, err := file.Program()
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}

	m, err := codegen.New(s.generatorOptions(filepath.Base(path))).Module()
	if err != nil {
		return nil, nil, err
	}
	c := &compiled{m: m}
	if err := c.lib.register(m, file.ExternNames(), cmd.OutOrStdout(), cmd.ErrOrStderr()); err != nil {
		c.close()
		return nil, nil, err
	}
	if _, err := m.Add(prog); err != nil {
		c.close()
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, file, nil
}
