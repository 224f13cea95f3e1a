package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/example/propcheck/internal/ports/primary"
	"github.com/example/propcheck/internal/wire"
)

// AuditCmd returns the audit command
func AuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Read the audit trail",
	}

	var filters primary.AuditFilters
	list := &cobra.Command{
		Use:   "list",
		Short: "List recorded events, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			events, err := wire.AuditService().ListEvents(cmd.Context(), filters)
			if err != nil {
				return err
			}
			if len(events) == 0 {
				fmt.Println("No events recorded.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "TIME\tEVENT\tSUBJECT\tACTOR\tDETAIL")
			fmt.Fprintln(w, "----\t-----\t-------\t-----\t------")
			for _, e := range events {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", e.CreatedAt, e.EventType, e.SubjectID, e.Actor, e.Payload)
			}
			return w.Flush()
		},
	}
	list.Flags().StringVar(&filters.SubjectID, "subject", "", "Checklist, response or generation ID")
	list.Flags().StringVarP(&filters.EventType, "type", "t", "", "Event type, e.g. checklist.status_changed")
	list.Flags().IntVarP(&filters.Limit, "limit", "n", 50, "Maximum rows")

	cmd.AddCommand(list)
	return cmd
}
