package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"jitcore/internal/typeck"
)

var dumpWhat string

func init() {
	dumpCmd.Flags().StringVar(&dumpWhat, "what", "all", "what to print (typed|ir|all)")
}

var dumpCmd = &cobra.Command{
	Use:   "dump <file>",
	Short: "Print the checked program and its native IR without running it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		what := strings.ToLower(dumpWhat)
		switch what {
		case "typed", "ir", "all":
		default:
			return fmt.Errorf("unsupported --what %q (must be typed, ir or all)", dumpWhat)
		}

		s, cleanup, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer cleanup()
		defer s.dumpOnPanic(cmd.ErrOrStderr())

		gen, _, err := compileFile(cmd, s, args[0])
		if err != nil {
			return err
		}
		defer gen.close()

		out := cmd.OutOrStdout()
		header := color.New(color.FgCyan, color.Bold)
		if what != "ir" {
			header.Fprintln(out, "; typed")
			if err := typeck.Dump(out, gen.m.Types()); err != nil {
				return err
			}
		}
		if what != "typed" {
			header.Fprintln(out, "; native")
			fmt.Fprint(out, gen.m.IR())
		}
		return nil
	},
}
