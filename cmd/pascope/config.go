package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// cfg merges command flags, PASCOPE_* environment variables and the
// optional --config file. Explicit flags win over the environment, which
// wins over the file.
var cfg = viper.New()

func loadConfig(cmd *cobra.Command, _ []string) error {
	cfg.SetEnvPrefix("PASCOPE")
	cfg.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	cfg.AutomaticEnv()
	if err := cfg.BindPFlags(cmd.Root().PersistentFlags()); err != nil {
		return fmt.Errorf("bind flags: %w", err)
	}
	if err := cfg.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("bind flags: %w", err)
	}
	if path := cfg.GetString("config"); path != "" {
		cfg.SetConfigFile(path)
		if err := cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}
	}
	if err := applyColor(cfg.GetString("color")); err != nil {
		return err
	}
	if err := setupTracing(cmd); err != nil {
		return err
	}
	return setupProfiling()
}

func applyColor(mode string) error {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", "auto":
		color.NoColor = !isTerminal(os.Stdout)
	case "on", "always":
		color.NoColor = false
	case "off", "never":
		color.NoColor = true
	default:
		return fmt.Errorf("invalid --color value %q (expected auto|on|off)", mode)
	}
	return nil
}

// colorEnabled reports whether renderers should emit ANSI colors.
func colorEnabled() bool { return !color.NoColor }
