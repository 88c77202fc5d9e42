package main

import (
	"github.com/spf13/cobra"

	"github.com/lazyreader/textbookd/internal/api"
	"github.com/lazyreader/textbookd/version"
)

var (
	cfgFile      string
	homeDir      string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "textbookd",
	Short: "Textbook structure extraction service",
	Long: `textbookd turns textbook PDFs into structured, page-addressable books.

It detects the table of contents with a naive Bayes page classifier,
parses it into chapters and sections with an LLM, and serves page text
(embedded or OCRed) plus the extracted structure over an HTTP API.`,
	Version: version.GitRelease,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.textbookd/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "textbookd home directory (default: ~/.textbookd)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)

	// Set output format before any command runs
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		api.SetOutputFormat(outputFormat)
	}

	rootCmd.AddCommand(versionCmd)
}
