package main

import (
	"cmp"
	"encoding/json"
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"

	"jitcore/internal/version"
)

// buildInfo is what `jitc version` reports. Commit and date are only
// filled when asked for.
type buildInfo struct {
	Tool      string `json:"tool"`
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
	GitCommit string `json:"git_commit,omitempty"`
	BuildDate string `json:"build_date,omitempty"`
}

var versionFlags struct {
	format string
	hash   bool
	date   bool
	full   bool
}

func init() {
	f := versionCmd.Flags()
	f.StringVar(&versionFlags.format, "format", "pretty", "output format (pretty|json)")
	f.BoolVar(&versionFlags.hash, "hash", false, "include the git commit")
	f.BoolVar(&versionFlags.date, "date", false, "include the build date")
	f.BoolVar(&versionFlags.full, "full", false, "include everything recorded at build time")
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show jitc build information",
	RunE: func(cmd *cobra.Command, args []string) error {
		info := collectBuildInfo(versionFlags.hash || versionFlags.full, versionFlags.date || versionFlags.full)
		out := cmd.OutOrStdout()
		switch strings.ToLower(versionFlags.format) {
		case "pretty":
			fmt.Fprintf(out, "jitc %s (%s)\n", version.Colored(), info.GoVersion)
			if info.GitCommit != "" {
				fmt.Fprintf(out, "commit: %s\n", info.GitCommit)
			}
			if info.BuildDate != "" {
				fmt.Fprintf(out, "built:  %s\n", info.BuildDate)
			}
			return nil
		case "json":
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(info)
		default:
			return fmt.Errorf("unsupported format %q (must be pretty or json)", versionFlags.format)
		}
	},
}

// collectBuildInfo prefers ldflags values and falls back to the VCS
// settings the go tool stamps into the binary.
func collectBuildInfo(hash, date bool) buildInfo {
	info := buildInfo{Tool: "jitc", Version: strings.TrimSpace(version.Version), GoVersion: runtime.Version()}
	if info.Version == "" {
		info.Version = "dev"
	}
	if !hash && !date {
		return info
	}
	commit, built := strings.TrimSpace(version.GitCommit), strings.TrimSpace(version.BuildDate)
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			switch {
			case s.Key == "vcs.revision" && commit == "":
				commit = s.Value
			case s.Key == "vcs.time" && built == "":
				built = s.Value
			}
		}
	}
	if hash {
		info.GitCommit = cmp.Or(commit, "unknown")
	}
	if date {
		info.BuildDate = cmp.Or(built, "unknown")
	}
	return info
}
