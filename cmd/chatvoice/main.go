// Command chatvoice is a Discord bot that reads Vietnamese chat messages
// aloud in a voice channel.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MrWong99/chatvoice/internal/config"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var (
	configPath string

	// Set by the root command before any subcommand runs.
	cfg      *config.Config
	logLevel = new(slog.LevelVar)

	rootCmd = &cobra.Command{
		Use:           "chatvoice",
		Short:         "Read Vietnamese Discord chat aloud in voice channels",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			loaded, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			cfg = loaded
			logLevel.Set(slogLevel(cfg.Server.LogLevel))
			slog.SetDefault(newLogger(os.Stderr, cfg.Server.LogFormat, logLevel))
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml",
		"path to the YAML configuration file; a missing file means defaults plus environment")
	rootCmd.AddCommand(serveCmd, normalizeCmd, voicesCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "chatvoice: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig loads path. Unlike a broken file, a missing one is not an
// error: the bot can run from the environment alone.
func loadConfig(path string) (*config.Config, error) {
	c, err := config.Load(path)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	return config.LoadFromReader(strings.NewReader(""))
}
