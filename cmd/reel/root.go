package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/reel/internal/cli"
	"github.com/aretw0/reel/internal/config"
	"github.com/aretw0/reel/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "reel",
	Short: "reel turns a math concept into a narrated animation",
	Long: `reel plans scenes with an LLM, renders them with Manim, reviews and narrates
the result, then muxes speech into the final video.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringP("config", "c", "", "Config file (default ./reel.yaml or ~/.config/reel/reel.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "", "Log format: auto, text, json")
}

// loadConfig resolves the configuration, letting explicit flags win over every other source.
func loadConfig(cmd *cobra.Command, bindings map[string]string) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	loader := config.NewLoader(path)
	v := loader.Viper()

	bindings["log.level"] = "log-level"
	bindings["log.format"] = "log-format"
	for key, flag := range bindings {
		if f := cmd.Flags().Lookup(flag); f != nil && f.Changed {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, err
			}
		}
	}
	return loader.Load()
}

// loadApp loads the configuration and wires the generator.
func loadApp(cmd *cobra.Command, bindings map[string]string) (*cli.App, error) {
	cfg, err := loadConfig(cmd, bindings)
	if err != nil {
		return nil, err
	}
	logger := logging.New(cfg.Log)
	slog.SetDefault(logger)
	return cli.Build(cfg, logger)
}
