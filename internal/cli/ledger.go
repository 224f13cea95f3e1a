package cli

import (
	"github.com/spf13/cobra"

	"github.com/example/propcheck/internal/ports/primary"
	"github.com/example/propcheck/internal/wire"
)

// LedgerCmd returns the ledger command
func LedgerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect and replay generation ledger rows",
	}
	cmd.AddCommand(ledgerListCmd())
	cmd.AddCommand(ledgerReplayCmd())
	return cmd
}

func ledgerListCmd() *cobra.Command {
	var filters primary.GenerationFilters

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List generation attempts",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := wire.SchedulerAdapter().ListGenerations(cmd.Context(), filters)
			return err
		},
	}

	cmd.Flags().StringVarP(&filters.Status, "status", "s", "", "Filter by status (pending, created, failed)")
	cmd.Flags().StringVar(&filters.TemplateID, "template", "", "Filter by template")
	cmd.Flags().StringVar(&filters.PropertyID, "property", "", "Filter by property")
	cmd.Flags().IntVarP(&filters.Limit, "limit", "n", 50, "Maximum rows")
	return cmd
}

func ledgerReplayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "replay [generation-id]",
		Short: "Retry a failed generation",
		Long: `Reopen a failed ledger row and generate its instance again. Fix the cause
first (add items, reactivate the template or property); the attempt counter
records every try.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := wire.SchedulerAdapter().Replay(cmd.Context(), args[0], actorFrom(cmd))
			return err
		},
	}
}
