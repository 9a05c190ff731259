package cmd

import (
	"context"
	"log"

	"github.com/spf13/cobra"

	"surplus-relay.com/surplus-relay/internal/services"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Expire overdue items and release stale carrier assignments once",
	Long:  "Runs a single sweep and exits; intended for cron when the server's own sweeper is not running",
	RunE: func(cmd *cobra.Command, args []string) error {
		a := newApp()
		defer a.close()

		sweeper := services.NewSweeperService(a.claims, a.dispatch, a.cfg.SweepInterval(), a.cfg.AssignmentTimeout())
		expired, released := sweeper.RunOnce(cmd.Context())

		ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout())
		defer cancel()
		a.emitter.Shutdown(ctx)

		log.Printf("sweep finished: %d items expired, %d assignments released", expired, released)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sweepCmd)
}
