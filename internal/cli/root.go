// Package cli defines the propcheck cobra commands.
package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/example/propcheck/internal/ctxutil"
	"github.com/example/propcheck/internal/version"
	"github.com/example/propcheck/internal/wire"
)

// RootCmd returns the propcheck root command with every subcommand attached.
func RootCmd() *cobra.Command {
	var (
		configPath string
		actor      string
	)

	root := &cobra.Command{
		Use:     "propcheck",
		Short:   "Recurring property checklists: scheduling, inspection and approval",
		Version: version.String(),
		Long: `propcheck generates checklist instances from recurring templates, tracks
each instance through inspection, and runs per-item approval before sign-off.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := wire.Configure(configPath); err != nil {
				return err
			}
			cmd.SetContext(ctxutil.WithActor(cmd.Context(), resolveActor(actor)))
			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.propcheck/config.yaml)")
	root.PersistentFlags().StringVar(&actor, "actor", "", "user recorded on changes (default $PROPCHECK_ACTOR, then $USER)")

	root.AddCommand(InitCmd())
	root.AddCommand(ServeCmd())
	root.AddCommand(SchedulerCmd())
	root.AddCommand(LedgerCmd())
	root.AddCommand(TemplateCmd())
	root.AddCommand(PropertyCmd())
	root.AddCommand(ChecklistCmd())
	root.AddCommand(ApprovalCmd())
	root.AddCommand(AuditCmd())
	return root
}

func resolveActor(flag string) string {
	if flag != "" {
		return flag
	}
	if v := os.Getenv("PROPCHECK_ACTOR"); v != "" {
		return v
	}
	return os.Getenv("USER")
}
