package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"pascope/internal/diagfmt"
	"pascope/internal/driver"
)

var graphCmd = &cobra.Command{
	Use:   "graph [dir|pascope.toml]",
	Short: "Print the unit build order",
	Long: `Graph loads the unit models of a project and prints the topological
batches of its interface dependencies. Units in one batch do not depend on
each other. Units caught in an interface cycle are listed last.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runGraph,
}

func init() {
	graphCmd.Flags().String("format", "text", "output format (text|json)")
}

type graphReport struct {
	Project string     `json:"project"`
	Batches [][]string `json:"batches"`
	Cycles  []string   `json:"cycles,omitempty"`
	Deps    []unitDeps `json:"deps"`
}

type unitDeps struct {
	Unit string   `json:"unit"`
	Uses []string `json:"uses,omitempty"`
}

func runGraph(cmd *cobra.Command, args []string) error {
	path := "."
	if len(args) == 1 {
		path = args[0]
	}
	format := strings.ToLower(cfg.GetString("format"))
	if format != "text" && format != "json" {
		return fmt.Errorf("unknown format %q (expected text|json)", format)
	}
	res, err := driver.Plan(cmd.Context(), driver.Options{Path: path, Timings: cfg.GetBool("timings")})
	if err != nil {
		return err
	}

	report := buildGraphReport(res)
	out := cmd.OutOrStdout()
	if format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	} else {
		writeGraphText(out, report)
		if !cfg.GetBool("quiet") {
			if err := diagfmt.Short(cmd.ErrOrStderr(), res.Diagnostics(), res.FileSet, diagfmt.PathModeRelative); err != nil {
				return err
			}
		}
		printTimings(cmd.ErrOrStderr(), res)
	}
	if res.HasErrors() {
		return errFindings
	}
	return nil
}

func buildGraphReport(res *driver.Result) graphReport {
	report := graphReport{Project: res.Manifest.Project.Name}
	for _, batch := range res.Topo.Batches {
		report.Batches = append(report.Batches, res.Index.Names(batch))
	}
	if res.Topo.Cyclic {
		report.Cycles = res.Index.Names(res.Topo.Cycles)
	}
	for _, id := range res.Topo.BuildOrder() {
		report.Deps = append(report.Deps, unitDeps{
			Unit: res.Index.IDToName[id],
			Uses: res.Index.Names(res.Graph.Deps[id]),
		})
	}
	return report
}

func writeGraphText(w io.Writer, r graphReport) {
	for i, batch := range r.Batches {
		fmt.Fprintf(w, "%d: %s\n", i+1, strings.Join(batch, ", "))
	}
	if len(r.Cycles) > 0 {
		fmt.Fprintf(w, "cycle: %s\n", strings.Join(r.Cycles, ", "))
	}
}
