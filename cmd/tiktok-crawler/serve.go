package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"tiktok-crawler-go/internal/api"
	"tiktok-crawler-go/internal/config"
	"tiktok-crawler-go/internal/logger"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API for triggering runs and browsing records.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := config.AppConfig.APIAddr
		if cmd.Flags().Changed("addr") {
			addr = serveAddr
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		manager := api.NewTaskManager()
		srv := &http.Server{
			Addr:              addr,
			Handler:           api.NewServer(manager).Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		errCh := make(chan error, 1)
		go func() {
			logger.Info("starting api server", "addr", addr)
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("api server failed", "err", err)
				return exitError{code: 1, err: err}
			}
			return nil
		case <-ctx.Done():
		}

		logger.Info("shutting down api server")
		manager.Stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return exitError{code: exitInterrupted}
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "listen address (default: API_ADDR)")
	rootCmd.AddCommand(serveCmd)
}
