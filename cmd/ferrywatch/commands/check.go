package commands

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Runs one availability check and notifies if a ferry is bookable.",
	RunE:  runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

// runCheck exits non-zero only when the check could not run at all; an
// unsuccessful booking flow is a completed run.
func runCheck(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	result, err := a.newChecker().Run(cmd.Context())
	if err != nil {
		a.logger.Error("availability check error", zap.Error(err))
		return err
	}
	a.logger.Info("availability check finished",
		zap.String("outcome", result.Outcome()),
		zap.Bool("available", result.Available),
	)
	return nil
}
