package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"jitcore/internal/version"
)

var rootCmd = &cobra.Command{
	Use:           "jitc",
	Short:         "JIT runner for typed IR programs",
	Long:          `jitc checks typed IR programs, lowers them to native code and runs them in-process`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

func init() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(packCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().String("config", "", "config file (default: nearest jitc.toml)")
	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().Bool("timings", false, "show timing information")
	rootCmd.PersistentFlags().String("trace", "", "trace level (off|error|phase|detail|debug)")
	rootCmd.PersistentFlags().String("trace-mode", "", "trace storage (stream|ring); ring dumps on panic")
	rootCmd.PersistentFlags().String("trace-output", "", "trace output file (- for stderr)")
	rootCmd.PersistentFlags().String("trace-format", "", "trace format (auto|text|ndjson)")
	rootCmd.PersistentFlags().Duration("trace-heartbeat", 0, "heartbeat interval while JIT code runs (0 disables)")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		mode, err := cmd.Flags().GetString("color")
		if err != nil {
			return fmt.Errorf("failed to get color flag: %w", err)
		}
		return applyColorMode(mode)
	}
}

// main executes the root command. A failing command exits with status 1.
func main() {
	if err := rootCmd.Execute(); err != nil {
		color.New(color.FgRed, color.Bold).Fprint(os.Stderr, "error: ")
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func applyColorMode(mode string) error {
	switch mode {
	case "", "auto":
		color.NoColor = !isTerminal(os.Stdout)
	case "on":
		color.NoColor = false
	case "off":
		color.NoColor = true
	default:
		return fmt.Errorf("invalid --color value %q (expected auto|on|off)", mode)
	}
	return nil
}

// isTerminal reports whether f is attached to a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
