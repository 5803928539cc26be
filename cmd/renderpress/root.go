package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vistaforge/renderpress/config"
)

var rootCmd = &cobra.Command{
	Use:   "renderpress",
	Short: "Batch transform architectural renderings from a manifest",
	Long: `renderpress crops, grades, retouches, and resizes architectural
renderings according to a declarative YAML manifest.  Each declared output
variant runs as an independent task; one failure never stops the rest.`,
	SilenceUsage: true,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringP("manifest", "m", "", "Manifest path (default config/view_selects.yml)")
	flags.StringP("input-dir", "i", "", "Directory holding source renders (default input)")
	flags.StringP("output-dir", "o", "", "Directory outputs are written to (default output)")
	flags.Int("workers", 0, "Worker pool size (default: number of CPUs)")
	flags.Int("quality", 0, "Default encode quality 1-100 (default 95)")
	flags.Int("max-decode-dim", 0, "Cap a decoded source's longer edge in pixels (0 = no cap)")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.Bool("log-json", false, "Emit JSON logs instead of text")
}

// buildConfig resolves the effective configuration from defaults plus flags.
func buildConfig(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()

	if v, _ := cmd.Flags().GetString("manifest"); v != "" {
		cfg.ManifestPath = v
	}
	if v, _ := cmd.Flags().GetString("input-dir"); v != "" {
		cfg.InputDir = v
	}
	if v, _ := cmd.Flags().GetString("output-dir"); v != "" {
		cfg.OutputDir = v
	}
	if v, _ := cmd.Flags().GetInt("workers"); v > 0 {
		cfg.WorkerCount = v
	}
	if v, _ := cmd.Flags().GetInt("quality"); v > 0 {
		cfg.DefaultQuality = v
	}
	if v, _ := cmd.Flags().GetInt("max-decode-dim"); v > 0 {
		cfg.MaxDecodeDim = v
	}
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		cfg.LogLevel = v
	}

	if err := config.Validate(cfg); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// buildSlog constructs the process logger from the logging flags.
func buildSlog(cmd *cobra.Command, cfg config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	if jsonLogs, _ := cmd.Flags().GetBool("log-json"); jsonLogs {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
