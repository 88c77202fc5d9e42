package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lazyreader/textbookd/internal/api"
	"github.com/lazyreader/textbookd/internal/config"
	"github.com/lazyreader/textbookd/internal/home"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage textbookd configuration",
}

var configInitForce bool

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file",
	Long: `Write a default config file to the home directory.

The generated file documents every setting. API keys can reference
environment variables with ${VAR} syntax so secrets stay out of the file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := getHome()
		if err != nil {
			return err
		}

		if h.ConfigExists() && !configInitForce {
			return fmt.Errorf("config already exists at %s (use --force to overwrite)", h.ConfigPath())
		}

		if err := config.WriteDefault(h.ConfigPath()); err != nil {
			return err
		}

		fmt.Printf("Wrote default config to %s\n", h.ConfigPath())
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := getHome()
		if err != nil {
			return err
		}

		cfg := loadConfig(h)
		if cfg == nil {
			cfg = config.DefaultConfig()
		}
		return api.Output(cfg)
	},
}

// loadConfig resolves the config file (--config flag, then the home
// directory) and loads it. Returns nil when no config could be loaded.
func loadConfig(h *home.Dir) *config.Config {
	path := cfgFile
	if path == "" && h.ConfigExists() {
		path = h.ConfigPath()
	}
	cm, err := config.NewManager(path)
	if err != nil {
		return nil
	}
	return cm.Get()
}

func init() {
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "Overwrite an existing config file")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}
