package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/lazyreader/textbookd/internal/home"
	"github.com/lazyreader/textbookd/internal/ocrsvc"
)

var ocrCmd = &cobra.Command{
	Use:   "ocr",
	Short: "Manage the MinerU OCR container",
	Long: `Manage the MinerU OCR container lifecycle.

MinerU converts rendered page images to text for scanned books without an
embedded text layer. It runs in a Docker container with work files under
~/.textbookd/mineru/.

Examples:
  textbookd ocr start   # Start the MinerU container
  textbookd ocr stop    # Stop the container
  textbookd ocr status  # Check container status
  textbookd ocr logs    # View container logs`,
}

var ocrStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the MinerU container",
	Long: `Start the MinerU container.

If the container doesn't exist, it will be created and started.
If it exists but is stopped, it will be started.
If it's already running, this is a no-op.

The first start pulls the image and loads the OCR models, which can take
several minutes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		h, err := getHome()
		if err != nil {
			return err
		}

		mgr, err := getOCRManager(h)
		if err != nil {
			return err
		}
		defer mgr.Close()

		fmt.Println("Starting MinerU...")
		if err := mgr.Start(ctx); err != nil {
			return fmt.Errorf("failed to start MinerU: %w", err)
		}

		fmt.Printf("MinerU is running at %s\n", mgr.URL())
		return nil
	},
}

var ocrStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the MinerU container",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		h, err := getHome()
		if err != nil {
			return err
		}

		mgr, err := getOCRManager(h)
		if err != nil {
			return err
		}
		defer mgr.Close()

		fmt.Println("Stopping MinerU...")
		if err := mgr.Stop(ctx); err != nil {
			return fmt.Errorf("failed to stop MinerU: %w", err)
		}

		fmt.Println("MinerU stopped")
		return nil
	},
}

var ocrStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show MinerU container status",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		h, err := getHome()
		if err != nil {
			return err
		}

		mgr, err := getOCRManager(h)
		if err != nil {
			return err
		}
		defer mgr.Close()

		status, err := mgr.Status(ctx)
		if err != nil {
			return fmt.Errorf("failed to get status: %w", err)
		}

		switch status {
		case ocrsvc.StatusRunning:
			fmt.Printf("Status: %s\n", status)
			fmt.Printf("URL: %s\n", mgr.URL())
		case ocrsvc.StatusStopped:
			fmt.Printf("Status: %s (use 'textbookd ocr start' to start)\n", status)
		case ocrsvc.StatusNotFound:
			fmt.Printf("Status: %s (use 'textbookd ocr start' to create)\n", status)
		default:
			fmt.Printf("Status: %s\n", status)
		}

		return nil
	},
}

var ocrLogsTail string

var ocrLogsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show MinerU container logs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		h, err := getHome()
		if err != nil {
			return err
		}

		mgr, err := getOCRManager(h)
		if err != nil {
			return err
		}
		defer mgr.Close()

		logs, err := mgr.Logs(ctx, ocrLogsTail)
		if err != nil {
			return fmt.Errorf("failed to get logs: %w", err)
		}

		fmt.Print(logs)
		return nil
	},
}

var ocrRemoveCmd = &cobra.Command{
	Use:   "remove",
	Short: "Remove the MinerU container",
	Long: `Remove the MinerU container.

This stops and removes the container. Work files under ~/.textbookd/mineru/
are NOT deleted - only the container is removed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		h, err := getHome()
		if err != nil {
			return err
		}

		mgr, err := getOCRManager(h)
		if err != nil {
			return err
		}
		defer mgr.Close()

		fmt.Println("Removing MinerU container...")
		if err := mgr.Remove(ctx); err != nil {
			return fmt.Errorf("failed to remove container: %w", err)
		}

		fmt.Println("MinerU container removed")
		return nil
	},
}

var ocrWaitCmd = &cobra.Command{
	Use:   "wait",
	Short: "Wait for MinerU to be ready",
	Long: `Wait for MinerU to be ready to accept requests.

Useful in scripts to ensure the OCR models are loaded before submitting
extraction jobs.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		h, err := getHome()
		if err != nil {
			return err
		}

		mgr, err := getOCRManager(h)
		if err != nil {
			return err
		}
		defer mgr.Close()

		timeout, _ := cmd.Flags().GetDuration("timeout")
		fmt.Printf("Waiting for MinerU (timeout: %s)...\n", timeout)

		if err := mgr.WaitReady(ctx, timeout); err != nil {
			return fmt.Errorf("MinerU not ready: %w", err)
		}

		fmt.Println("MinerU is ready")
		return nil
	},
}

func init() {
	ocrCmd.AddCommand(ocrStartCmd)
	ocrCmd.AddCommand(ocrStopCmd)
	ocrCmd.AddCommand(ocrStatusCmd)
	ocrCmd.AddCommand(ocrLogsCmd)
	ocrCmd.AddCommand(ocrRemoveCmd)
	ocrCmd.AddCommand(ocrWaitCmd)

	ocrLogsCmd.Flags().StringVar(&ocrLogsTail, "tail", "100", "Number of lines to show from the end")
	ocrWaitCmd.Flags().Duration("timeout", 2*time.Minute, "Timeout waiting for MinerU")

	rootCmd.AddCommand(ocrCmd)
}

// getHome returns the home directory manager.
func getHome() (*home.Dir, error) {
	h, err := home.New(homeDir)
	if err != nil {
		return nil, err
	}
	if err := h.EnsureExists(); err != nil {
		return nil, fmt.Errorf("failed to create home directory: %w", err)
	}
	return h, nil
}

// getOCRManager creates a DockerManager with the standard config, honoring
// the config file's ocr_service section when present.
func getOCRManager(h *home.Dir) (*ocrsvc.DockerManager, error) {
	dataPath := filepath.Join(h.Path(), "mineru")
	if err := os.MkdirAll(dataPath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dockerCfg := ocrsvc.DockerConfig{DataPath: dataPath}
	if cfg := loadConfig(h); cfg != nil {
		dockerCfg.ContainerName = cfg.OCRService.ContainerName
		dockerCfg.Image = cfg.OCRService.Image
		dockerCfg.HostPort = cfg.OCRService.Port
	}

	return ocrsvc.NewDockerManager(dockerCfg)
}
