package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/user/ferry-watch/internal/config"
	"github.com/user/ferry-watch/internal/inspect"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Loads the booking page and reports which form selectors match.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		br, err := a.launcher.Launch(cmd.Context())
		if err != nil {
			return fmt.Errorf("launch browser: %w", err)
		}
		defer func() {
			if err := br.Close(); err != nil {
				a.logger.Warn("browser close failed", zap.Error(err))
			}
		}()

		report, err := inspect.Run(cmd.Context(), br, inspect.Config{
			URL:    a.cfg.BookingURL,
			Settle: config.Millis(a.cfg.InitialSettleMS),
			Ports:  []string{a.cfg.DeparturePort, a.cfg.ArrivalPort},
		}, a.artifacts, a.logger)
		if err != nil {
			return err
		}
		inspect.Render(cmd.OutOrStdout(), report)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}
