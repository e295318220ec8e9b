package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"pascope/internal/version"
)

// errFindings signals that analysis finished but reported errors; the
// diagnostics are already printed.
var errFindings = errors.New("analysis reported errors")

var rootCmd = &cobra.Command{
	Use:   "pascope",
	Short: "Scope and symbol resolution for Pascal projects",
	Long: `pascope binds every identifier occurrence of a Pascal project to the
declaration it denotes. It reads unit models (*.unit.toml) produced by a
parser and reports resolutions and diagnostics.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
}

func init() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(graphCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(cleanCmd)
	rootCmd.AddCommand(versionCmd)

	pf := rootCmd.PersistentFlags()
	pf.String("color", "auto", "colorize output (auto|on|off)")
	pf.Bool("quiet", false, "suppress non-essential output")
	pf.Bool("timings", false, "show timing information")
	pf.Int("max-diagnostics", 0, "maximum number of diagnostics per unit (0 = manifest setting)")
	pf.String("config", "", "settings file (toml, yaml or json)")
	pf.String("trace", "", "trace output file (- for stderr)")
	pf.String("trace-level", "off", "trace level (off|error|phase|detail|debug)")
	pf.String("trace-mode", "stream", "trace storage (stream|ring|both)")
	pf.Duration("trace-heartbeat", 0, "emit a heartbeat event at this interval")
	pf.String("cpu-profile", "", "write a CPU profile to file")
	pf.String("mem-profile", "", "write a heap profile to file on exit")
	pf.String("runtime-trace", "", "write a Go runtime trace to file")
}

func main() {
	err := rootCmd.Execute()
	stopProfiling()
	traceCleanup()
	if err != nil {
		if !errors.Is(err, errFindings) {
			fmt.Fprintf(os.Stderr, "pascope: %v\n", err)
		}
		os.Exit(1)
	}
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
