package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/propcheck/internal/core/recurrence"
	"github.com/example/propcheck/internal/wire"
)

// SchedulerCmd returns the scheduler command
func SchedulerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scheduler",
		Short: "Run or inspect checklist generation",
	}
	cmd.AddCommand(schedulerRunCmd())
	cmd.AddCommand(schedulerStatusCmd())
	return cmd
}

func schedulerRunCmd() *cobra.Command {
	var asOf string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one generation cycle now",
		Long: `Evaluate every active schedule and create the instances that are due.
Safe to run repeatedly or alongside "propcheck serve": an occurrence is
never generated twice.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var date *time.Time
			if asOf != "" {
				d, err := recurrence.ParseDate(asOf)
				if err != nil {
					return fmt.Errorf("--as-of must be YYYY-MM-DD: %w", err)
				}
				date = &d
			}

			result, err := wire.SchedulerAdapter().Run(cmd.Context(), date)
			if err != nil {
				return err
			}
			if result.Failed > 0 {
				fmt.Println("\nInspect failures with: propcheck ledger list --status failed")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&asOf, "as-of", "", "Evaluate as of this date (YYYY-MM-DD) instead of today")
	return cmd
}

func schedulerStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show scheduler loop state for this process",
		RunE: func(cmd *cobra.Command, args []string) error {
			wire.SchedulerAdapter().Status()
			fmt.Printf("\nFor a running server: curl http://%s/v1/scheduler\n", wire.Config().Admin.Addr)
			return nil
		},
	}
}
