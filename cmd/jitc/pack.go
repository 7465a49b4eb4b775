package main

import (
	"fmt"
	"runtime"
	"slices"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"jitcore/internal/tirfile"
)

var (
	packJobs  int
	packCheck bool
)

func init() {
	packCmd.Flags().IntVarP(&packJobs, "jobs", "j", 0, "parallel workers (default: GOMAXPROCS)")
	packCmd.Flags().BoolVar(&packCheck, "check", true, "reject files that do not build into a program")
}

var packCmd = &cobra.Command{
	Use:   "pack <file.toml>...",
	Short: "Convert TOML programs into packed " + tirfile.PackExt + " files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		written, err := packFiles(args, packJobs, packCheck)
		for _, p := range written {
			fmt.Fprintf(cmd.OutOrStdout(), "packed %s\n", p)
		}
		return err
	},
}

// packFiles packs each source next to itself and returns the written
// paths in argument order, along with the first failure.
func packFiles(paths []string, jobs int, check bool) ([]string, error) {
	for _, path := range paths {
		if tirfile.IsPack(path) {
			return nil, fmt.Errorf("%s: already packed", path)
		}
	}
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	out := make([]string, len(paths))
	g := new(errgroup.Group)
	g.SetLimit(jobs)
	for i, path := range paths {
		g.Go(func() error {
			f, err := tirfile.Load(path)
			if err != nil {
				return err
			}
			if check {
				if _, err := f.Program(); err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
			}
			dst := tirfile.PackPath(path)
			if err := tirfile.WritePack(dst, f); err != nil {
				return fmt.Errorf("%s: %w", dst, err)
			}
			out[i] = dst
			return nil
		})
	}
	err := g.Wait()
	return slices.DeleteFunc(out, func(s string) bool { return s == "" }), err
}
