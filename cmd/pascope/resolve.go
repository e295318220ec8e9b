package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"pascope/internal/diag"
	"pascope/internal/diagfmt"
	"pascope/internal/driver"
	"pascope/internal/observ"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve [dir|pascope.toml]",
	Short: "Bind every occurrence of a project to its declaration",
	Long: `Resolve loads the project manifest (searched upwards from dir when no
file is given), binds every identifier occurrence of every unit model and
prints diagnostics. --bindings adds the occurrence to declaration report.
The exit status is 1 when any error diagnostic was produced.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runResolve,
}

func init() {
	f := resolveCmd.Flags()
	f.String("format", "pretty", "output format (pretty|json|short)")
	f.String("bindings", "off", "resolution report (off|all|unbound)")
	f.Bool("candidates", false, "list candidate declarations in the resolution report")
	f.String("paths", "auto", "path display (auto|absolute|relative|basename)")
	f.Int("jobs", 0, "max parallel workers (0 = manifest setting or GOMAXPROCS)")
	f.Bool("report-unresolved", false, "emit info diagnostics for unbound occurrences")
	f.Bool("disk-cache", false, "reuse resolutions stored in the user cache directory")
	f.Bool("with-notes", false, "include diagnostic notes")
	f.Int("context", 0, "source lines shown above each diagnostic")
	f.String("ui", "auto", "progress display (auto|on|off)")
}

// resolveReport is the JSON document written by --format json.
type resolveReport struct {
	Project     string                     `json:"project"`
	Diagnostics diagfmt.DiagnosticsOutput  `json:"diagnostics"`
	Resolutions *diagfmt.ResolutionsOutput `json:"resolutions,omitempty"`
	Cache       *cacheReport               `json:"cache,omitempty"`
	Timings     *observ.Report             `json:"timings,omitempty"`
}

type cacheReport struct {
	Hits   int `json:"hits"`
	Misses int `json:"misses"`
}

type resolveOutput struct {
	format   string
	bindings string
	pathMode diagfmt.PathMode
}

func readResolveOutput() (resolveOutput, error) {
	out := resolveOutput{
		format:   strings.ToLower(cfg.GetString("format")),
		bindings: strings.ToLower(cfg.GetString("bindings")),
	}
	switch out.format {
	case "pretty", "json", "short":
	default:
		return out, fmt.Errorf("unknown format %q (expected pretty|json|short)", out.format)
	}
	switch out.bindings {
	case "off", "all", "unbound":
	default:
		return out, fmt.Errorf("unknown --bindings value %q (expected off|all|unbound)", out.bindings)
	}
	mode, ok := diagfmt.ParsePathMode(cfg.GetString("paths"))
	if !ok {
		return out, fmt.Errorf("unknown --paths value %q", cfg.GetString("paths"))
	}
	out.pathMode = mode
	return out, nil
}

func runResolve(cmd *cobra.Command, args []string) error {
	path := "."
	if len(args) == 1 {
		path = args[0]
	}
	output, err := readResolveOutput()
	if err != nil {
		return err
	}
	ui, err := readUIMode(cfg.GetString("ui"))
	if err != nil {
		return err
	}
	quiet := cfg.GetBool("quiet")

	opts := driver.Options{
		Path:             path,
		Jobs:             cfg.GetInt("jobs"),
		MaxDiagnostics:   cfg.GetInt("max-diagnostics"),
		ReportUnresolved: cfg.GetBool("report-unresolved"),
		DiskCache:        cfg.GetBool("disk-cache"),
		Timings:          cfg.GetBool("timings"),
	}

	var res *driver.Result
	if output.format == "pretty" && !quiet && shouldUseTUI(ui) {
		res, err = analyzeWithUI(cmd.Context(), "resolving "+path, opts)
	} else {
		res, err = driver.Analyze(cmd.Context(), opts)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if output.format == "json" {
		err = writeResolveJSON(out, res, output)
	} else {
		err = writeResolveText(out, res, output, quiet)
	}
	if err != nil {
		return err
	}
	if output.format != "json" {
		errOut := cmd.ErrOrStderr()
		if !quiet {
			printCacheStats(errOut, res)
		}
		printTimings(errOut, res)
	}
	if res.HasErrors() {
		return errFindings
	}
	return nil
}

func (o resolveOutput) resolutionOpts() diagfmt.ResolutionOpts {
	return diagfmt.ResolutionOpts{
		PathMode:   o.pathMode,
		Unbound:    o.bindings == "unbound",
		Candidates: cfg.GetBool("candidates"),
	}
}

func writeResolveText(w io.Writer, res *driver.Result, o resolveOutput, quiet bool) error {
	if o.bindings != "off" {
		if err := diagfmt.ResolutionText(w, res.Records(), res.FileSet, o.resolutionOpts()); err != nil {
			return err
		}
	}
	bag := res.Diagnostics()
	if quiet {
		bag.Filter(func(d diag.Diagnostic) bool { return d.Severity == diag.SevError })
	}
	if o.format == "short" {
		return diagfmt.Short(w, bag, res.FileSet, o.pathMode)
	}
	return diagfmt.Pretty(w, bag, res.FileSet, diagfmt.PrettyOpts{
		Color:     colorEnabled(),
		Context:   cfg.GetInt("context"),
		PathMode:  o.pathMode,
		ShowNotes: cfg.GetBool("with-notes"),
	})
}

func writeResolveJSON(w io.Writer, res *driver.Result, o resolveOutput) error {
	report := resolveReport{
		Project: res.Manifest.Project.Name,
		Diagnostics: diagfmt.BuildDiagnosticsOutput(res.Diagnostics(), res.FileSet, diagfmt.JSONOpts{
			IncludePositions: true,
			PathMode:         o.pathMode,
			IncludeNotes:     cfg.GetBool("with-notes"),
		}),
	}
	if o.bindings != "off" {
		r := diagfmt.BuildResolutionsOutput(res.Records(), res.FileSet, o.resolutionOpts())
		report.Resolutions = &r
	}
	if res.CacheHits+res.CacheMisses > 0 {
		report.Cache = &cacheReport{Hits: res.CacheHits, Misses: res.CacheMisses}
	}
	if res.Timer != nil {
		t := res.Timer.Report()
		report.Timings = &t
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
