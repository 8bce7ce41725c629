package cmd

import (
	"fmt"
	"io"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Set via -ldflags at build time, e.g.
//
//	go build -ldflags "-X github.com/abhisek/edusarthi/cmd.version=v0.3.0 \
//	  -X github.com/abhisek/edusarthi/cmd.commit=$(git rev-parse --short HEAD) \
//	  -X github.com/abhisek/edusarthi/cmd.date=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
var (
	version = "(devel)"
	commit  = ""
	date    = ""
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version, commit and build date",
	Run: func(cmd *cobra.Command, args []string) {
		printVersion(cmd.OutOrStdout())
	},
}

func printVersion(w io.Writer) {
	rev, built := commit, date
	// Builds without ldflags still carry VCS stamps from the go tool.
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			switch {
			case s.Key == "vcs.revision" && rev == "":
				rev = s.Value
				if len(rev) > 12 {
					rev = rev[:12]
				}
			case s.Key == "vcs.time" && built == "":
				built = s.Value
			}
		}
	}
	if rev == "" {
		rev = "unknown"
	}
	if built == "" {
		built = "unknown"
	}

	fmt.Fprintln(w, "edusarthi", version)
	fmt.Fprintf(w, "  commit: %s\n", rev)
	fmt.Fprintf(w, "  built:  %s\n", built)
	fmt.Fprintf(w, "  go:     %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
