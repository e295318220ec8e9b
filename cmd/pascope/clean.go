package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"pascope/internal/driver"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove cached resolutions",
	Long:  "Remove every entry of the resolution cache kept in the user cache directory.",
	Args:  cobra.NoArgs,
	RunE:  runClean,
}

func runClean(cmd *cobra.Command, _ []string) error {
	cache, err := driver.OpenDiskCache("pascope")
	if err != nil {
		return err
	}
	if err := cache.DropAll(); err != nil {
		return fmt.Errorf("failed to clear %q: %w", cache.Dir(), err)
	}
	if !cfg.GetBool("quiet") {
		fmt.Fprintf(cmd.OutOrStdout(), "cleared %s\n", cache.Dir())
	}
	return nil
}
