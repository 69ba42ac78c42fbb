package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"grayblend/internal/config"
	"grayblend/internal/packager"
)

var (
	// appConfig is resolved in PersistentPreRunE before any subcommand runs.
	appConfig *config.Config
	// configUsed is the file appConfig was read from, if any.
	configUsed string
	cfgFile    string
)

var rootCmd = &cobra.Command{
	Use:   "grayblend",
	Short: "grayblend - blend images towards grayscale",
	Long: `grayblend converts images to PNG with their colours blended towards grayscale
by a chosen intensity (0 keeps the original, 100 is fully gray).

A single input yields one PNG; several inputs are packed into a zip archive.

Examples:
  grayblend convert photo.jpg -g 42
  grayblend convert ./holiday -g 80 -o out
  grayblend preview photo.jpg -g 60
  grayblend serve --port 8080`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, used, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		appConfig = cfg
		configUsed = used
		slog.SetDefault(newLogger(cmd.ErrOrStderr(), cfg))
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is search in ., $HOME, $XDG_CONFIG_HOME/grayblend, /etc/grayblend)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output (equivalent to --log-level=debug)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
}

// flagKeys maps configuration keys to the flag that overrides them. A key
// is bound only when the running command defines the flag.
var flagKeys = map[string]string{
	"verbose":                 "verbose",
	"log_level":               "log-level",
	"intensity":               "intensity",
	"workers":                 "workers",
	"output.dir":              "output",
	"server.host":             "host",
	"server.port":             "port",
	"server.cors_origin":      "cors-origin",
	"server.max_upload_mb":    "max-upload-size",
	"server.max_files":        "max-files",
	"server.timeout_sec":      "timeout",
	"server.shutdown_timeout": "shutdown-timeout",
}

// loadConfig builds a fresh viper instance per invocation so that flags of
// one command never leak into another.
func loadConfig(cmd *cobra.Command) (*config.Config, string, error) {
	v := viper.New()
	for key, name := range flagKeys {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, "", fmt.Errorf("bind --%s: %w", name, err)
			}
		}
	}

	loader := config.NewLoader(v)
	cfg, err := loader.LoadWithFile(cfgFile)
	if err != nil {
		return nil, "", fmt.Errorf("error loading configuration: %w", err)
	}

	if f := cmd.Flags().Lookup("no-orient"); f != nil && f.Changed && f.Value.String() == "true" {
		cfg.AutoOrient = false
	}
	return cfg, loader.ConfigFileUsed(), nil
}

func newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	var level slog.Level
	switch cfg.SlogLevel() {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

func packagerOptions(cfg *config.Config) packager.Options {
	return packager.Options{
		Intensity:  cfg.Intensity,
		Workers:    cfg.Workers,
		AutoOrient: cfg.AutoOrient,
		MaxPixels:  cfg.MaxPixels,
		Logger:     slog.Default(),
	}
}
