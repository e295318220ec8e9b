package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"pascope/internal/project"
)

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Write a pascope.toml manifest",
	Long: `Init writes a pascope.toml manifest skeleton into dir (the current
directory by default), creating the directory when it does not exist. An
existing manifest is never overwritten.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	initCmd.Flags().String("name", "", "project name (default: directory name)")
	initCmd.Flags().StringSlice("implicit", []string{"System"}, "units every unit uses implicitly")
}

func runInit(cmd *cobra.Command, args []string) error {
	target := "."
	if len(args) == 1 {
		target = args[0]
	}
	target, err := filepath.Abs(target)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(target, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", target, err)
	}

	m := project.DefaultManifest(target)
	if name := strings.TrimSpace(cfg.GetString("name")); name != "" {
		m.Project.Name = name
	}
	m.Analysis.ImplicitUnits = cfg.GetStringSlice("implicit")
	m.Analysis.MaxDiagnostics = 100

	path := filepath.Join(target, project.ManifestName)
	if err := project.WriteManifest(path, m); err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%s already exists", path)
		}
		return err
	}
	if !cfg.GetBool("quiet") {
		fmt.Fprintf(cmd.OutOrStdout(), "created %s\n", path)
	}
	return nil
}
