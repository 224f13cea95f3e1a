package cli

import (
	"github.com/spf13/cobra"

	"github.com/example/propcheck/internal/core/checklist"
	"github.com/example/propcheck/internal/ports/primary"
	"github.com/example/propcheck/internal/wire"
)

// ChecklistCmd returns the checklist command
func ChecklistCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "checklist",
		Aliases: []string{"cl"},
		Short:   "Work checklist instances through their lifecycle",
		Long: `Lifecycle: pending → in_progress → completed → approved, with rejected
reopening to in_progress on the next edit. Recording the first response starts
a pending checklist; answering every required item completes it.`,
	}
	cmd.AddCommand(checklistCreateCmd())
	cmd.AddCommand(checklistListCmd())
	cmd.AddCommand(checklistShowCmd())
	cmd.AddCommand(checklistRecordCmd())
	cmd.AddCommand(checklistRemoveCmd())
	for _, action := range []checklist.Action{checklist.ActionStart, checklist.ActionComplete, checklist.ActionApprove, checklist.ActionReject} {
		cmd.AddCommand(checklistTransitionCmd(action))
	}
	return cmd
}

func checklistCreateCmd() *cobra.Command {
	var req primary.CreateChecklistRequest

	cmd := &cobra.Command{
		Use:   "create [template-id] [property-id]",
		Short: "Create a one-off checklist outside the schedule",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.TemplateID = args[0]
			req.PropertyID = args[1]
			req.Actor = actorFrom(cmd)
			_, err := wire.ChecklistAdapter().Create(cmd.Context(), req)
			return err
		},
	}

	cmd.Flags().StringVar(&req.AssigneeID, "assignee", "", "User to assign")
	cmd.Flags().StringVar(&req.DueAt, "due", "", "Due date YYYY-MM-DD or RFC3339 (default now)")
	return cmd
}

func checklistListCmd() *cobra.Command {
	var filters primary.ChecklistFilters

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List checklists",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := wire.ChecklistAdapter().List(cmd.Context(), filters)
			return err
		},
	}

	cmd.Flags().StringVarP(&filters.Status, "status", "s", "", "Filter by status")
	cmd.Flags().StringVar(&filters.PropertyID, "property", "", "Filter by property")
	cmd.Flags().StringVar(&filters.TemplateID, "template", "", "Filter by template")
	cmd.Flags().StringVar(&filters.AssigneeID, "assignee", "", "Filter by assignee")
	cmd.Flags().IntVarP(&filters.Limit, "limit", "n", 50, "Maximum rows")
	return cmd
}

func checklistShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [checklist-id]",
		Short: "Show a checklist with its items and responses",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := wire.ChecklistAdapter().Show(cmd.Context(), args[0])
			return err
		},
	}
}

func checklistRecordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "record [checklist-id] [item] [value]",
		Short: "Record a response for an item (by position or ID)",
		Long: `Record or replace an item's response. Values are parsed by item type:
boolean accepts yes/no, number a decimal, file and photo a storage key,
signature the signer's name. Re-recording an approval-required item sends it
back for review.`,
		Example: `  propcheck checklist record TI-001 1 yes
  propcheck checklist record TI-001 3 1042.5`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := wire.ChecklistAdapter().Record(cmd.Context(), args[0], args[1], args[2], actorFrom(cmd))
			return err
		},
	}
}

func checklistRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove [checklist-id] [item]",
		Short: "Remove an item's response",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return wire.ChecklistAdapter().Remove(cmd.Context(), args[0], args[1], actorFrom(cmd))
		},
	}
}

func checklistTransitionCmd(action checklist.Action) *cobra.Command {
	shorts := map[checklist.Action]string{
		checklist.ActionStart:    "Mark a pending checklist in progress",
		checklist.ActionComplete: "Complete a checklist once required items are answered",
		checklist.ActionApprove:  "Approve a completed checklist (all approval items approved)",
		checklist.ActionReject:   "Reject a completed checklist (needs a rejected item)",
	}

	return &cobra.Command{
		Use:   string(action) + " [checklist-id]",
		Short: shorts[action],
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := wire.ChecklistAdapter().Transition(cmd.Context(), args[0], string(action), actorFrom(cmd))
			return err
		},
	}
}
