package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/lazyreader/textbookd/internal/config"
	"github.com/lazyreader/textbookd/internal/home"
	"github.com/lazyreader/textbookd/internal/server"
)

var (
	serveHost string
	servePort string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the textbookd server",
	Long: `Start the textbookd HTTP server.

The server opens the sqlite database under the home directory, starts the
background job workers, and (when auto-start is configured) brings up the
MinerU OCR container. On shutdown (Ctrl+C or SIGTERM) everything is stopped
in reverse order.

The server provides:
  - /health - Basic server health check
  - /ready  - Readiness check (includes database status)
  - /api    - Book, page, extraction and job routes
  - /swagger - Interactive API documentation

Examples:
  textbookd serve                    # Start on default port 8080
  textbookd serve --port 3000        # Start on custom port
  textbookd serve --host 0.0.0.0     # Bind to all interfaces`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		// Set up logger
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))

		// Get home directory
		h, err := home.New(homeDir)
		if err != nil {
			return err
		}
		if err := h.EnsureExists(); err != nil {
			return err
		}

		// Config lookup order: --config, then the home directory, then
		// the manager's own search path.
		path := cfgFile
		if path == "" && h.ConfigExists() {
			path = h.ConfigPath()
		}
		cm, err := config.NewManager(path)
		if err != nil {
			return err
		}

		srv, err := server.New(server.Config{
			Host:          serveHost,
			Port:          servePort,
			Home:          h,
			ConfigManager: cm,
			Logger:        logger,
		})
		if err != nil {
			return err
		}

		// Start server (blocks until shutdown)
		return srv.Start(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "127.0.0.1", "Host to bind to")
	serveCmd.Flags().StringVar(&servePort, "port", "8080", "Port to listen on")

	rootCmd.AddCommand(serveCmd)
}
