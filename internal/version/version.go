// Package version carries build metadata for the pascope CLI.
package version

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Overridable at build time via -ldflags "-X pascope/internal/version.Version=...".
var (
	Version    = "0.3.0-dev"
	GitCommit  = ""
	GitMessage = ""
	BuildDate  = ""
)

var (
	majorColor = color.New(color.FgYellow, color.Bold)
	minorColor = color.New(color.FgGreen, color.Bold)
	patchColor = color.New(color.FgBlue, color.Bold)
)

// Colored renders Version with each numeric part in its own color. Colors
// follow color.NoColor, so the result is plain when output is not a TTY.
func Colored() string {
	core, suffix, _ := strings.Cut(Version, "-")
	parts := strings.SplitN(core, ".", 3)
	if len(parts) != 3 {
		return Version
	}
	out := majorColor.Sprint(parts[0]) + "." + minorColor.Sprint(parts[1]) + "." + patchColor.Sprint(parts[2])
	if suffix != "" {
		out += "-" + suffix
	}
	return out
}

// Write prints the version banner and whatever build metadata is known.
func Write(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "pascope %s\n", Colored()); err != nil {
		return err
	}
	for _, kv := range [][2]string{{"commit", GitCommit}, {"message", GitMessage}, {"built", BuildDate}} {
		if kv[1] == "" {
			continue
		}
		if _, err := fmt.Fprintf(w, "  %-8s %s\n", kv[0]+":", kv[1]); err != nil {
			return err
		}
	}
	return nil
}
