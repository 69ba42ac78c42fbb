package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"grayblend/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP conversion API",
	Long: `Start an HTTP server exposing the converter.

Endpoints:
  POST /v1/convert  multipart "images" files, optional "intensity" field
  POST /v1/preview  blended PNG of the first uploaded image
  GET  /v1/ws       WebSocket batches with live progress
  GET  /health      health check
  GET  /metrics     Prometheus metrics

Examples:
  grayblend serve
  grayblend serve --host 0.0.0.0 --port 3000`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := appConfig
		logger := slog.Default()

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		serverConfig := server.Config{
			Host:        cfg.Server.Host,
			Port:        cfg.Server.Port,
			CORSOrigin:  cfg.Server.CORSOrigin,
			MaxUploadMB: int64(cfg.Server.MaxUploadMB),
			MaxFiles:    cfg.Server.MaxFiles,
			TimeoutSec:  cfg.Server.TimeoutSec,
			Intensity:   cfg.Intensity,
			Workers:     cfg.Workers,
			AutoOrient:  cfg.AutoOrient,
			MaxPixels:   cfg.MaxPixels,
			Logger:      logger,
		}

		apiServer, err := server.NewServer(serverConfig)
		if err != nil {
			return fmt.Errorf("failed to initialize server: %w", err)
		}

		mux := http.NewServeMux()
		apiServer.SetupRoutes(mux)

		// Writes cover the whole batch, so they get the processing timeout
		// plus headroom for sending the artifact.
		timeout := time.Duration(cfg.Server.TimeoutSec) * time.Second
		httpServer := &http.Server{
			Addr:              serverConfig.Addr(),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       timeout,
			WriteTimeout:      2 * timeout,
		}

		go func() {
			logger.Info("Starting grayblend server", "host", cfg.Server.Host, "port", cfg.Server.Port)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Server error", "error", err)
				cancel()
			}
		}()

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
		defer signal.Stop(sigChan)

		select {
		case sig := <-sigChan:
			logger.Info("Received shutdown signal", "signal", sig.String())
		case <-ctx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		shutdownTimeout := time.Duration(cfg.Server.ShutdownTimeout) * time.Second
		logger.Info("Starting graceful shutdown", "timeout", shutdownTimeout.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", "error", err)
			return err
		}
		logger.Info("Graceful shutdown completed")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("host", "H", "localhost", "server host")
	serveCmd.Flags().IntP("port", "p", 8080, "server port")
	serveCmd.Flags().String("cors-origin", "*", "CORS allowed origin")
	serveCmd.Flags().Int("max-upload-size", 50, "maximum request size in MB")
	serveCmd.Flags().Int("max-files", 100, "maximum images per request")
	serveCmd.Flags().Int("timeout", 60, "processing timeout in seconds")
	serveCmd.Flags().Int("shutdown-timeout", 10, "shutdown timeout in seconds")
	serveCmd.Flags().IntP("intensity", "g", 100, "default intensity when a request omits it")
	serveCmd.Flags().Int("workers", 0, "parallel workers per batch (0 = one per CPU)")
	serveCmd.Flags().Bool("no-orient", false, "ignore EXIF orientation")
}
