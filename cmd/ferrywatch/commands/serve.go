package commands

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/user/ferry-watch/internal/api"
	"github.com/user/ferry-watch/internal/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serves on-demand checks, health and metrics over HTTP.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		server := api.NewServer(a.cfg.ServerPort, config.Seconds(a.cfg.CheckTimeout), a.newChecker(), a.recorders, a.metrics, a.logger)

		errCh := make(chan error, 1)
		go func() {
			if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			return err
		case <-cmd.Context().Done():
		}

		a.logger.Info("shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			a.logger.Error("server forced to shutdown", zap.Error(err))
			return err
		}
		a.logger.Info("server exiting")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
