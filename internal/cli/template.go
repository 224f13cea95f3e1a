package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/propcheck/internal/adapters/filesystem"
	"github.com/example/propcheck/internal/core/checklist"
	"github.com/example/propcheck/internal/core/recurrence"
	"github.com/example/propcheck/internal/ports/primary"
	"github.com/example/propcheck/internal/wire"
)

// TemplateCmd returns the template command
func TemplateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "template",
		Short: "Manage checklist templates and their schedules",
	}
	cmd.AddCommand(templateCreateCmd())
	cmd.AddCommand(templateListCmd())
	cmd.AddCommand(templateShowCmd())
	cmd.AddCommand(templateAddItemCmd())
	cmd.AddCommand(templateAssignCmd())
	cmd.AddCommand(templateUnassignCmd())
	cmd.AddCommand(templateScheduleCmd())
	cmd.AddCommand(templatePreviewCmd())
	cmd.AddCommand(templateImportCmd())
	cmd.AddCommand(templateSetActiveCmd("activate", "Resume generation for a template", true))
	cmd.AddCommand(templateSetActiveCmd("deactivate", "Stop generation for a template; existing instances are kept", false))
	return cmd
}

func templateCreateCmd() *cobra.Command {
	var req primary.CreateTemplateRequest

	cmd := &cobra.Command{
		Use:   "create [name]",
		Short: "Create an empty template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Name = args[0]
			tpl, err := wire.TemplateService().CreateTemplate(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Printf("✓ Created template %s: %s\n", tpl.ID, tpl.Name)
			fmt.Printf("  Policy: %s\n", tpl.AssignmentPolicy)
			return nil
		},
	}

	cmd.Flags().StringVarP(&req.Description, "description", "d", "", "Template description")
	cmd.Flags().StringVar(&req.AssignmentPolicy, "policy", "none", "Assignment policy (none, primary, least_loaded)")
	return cmd
}

func templateListCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := wire.TemplateAdapter().List(cmd.Context(), !all)
			return err
		},
	}

	cmd.Flags().BoolVarP(&all, "all", "a", false, "Include inactive templates")
	return cmd
}

func templateShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [template-id]",
		Short: "Show a template with items, schedule and properties",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := wire.TemplateAdapter().Show(cmd.Context(), args[0])
			return err
		},
	}
}

func templateAddItemCmd() *cobra.Command {
	var (
		req      primary.AddItemRequest
		itemType string
	)

	cmd := &cobra.Command{
		Use:   "add-item [template-id] [text]",
		Short: "Append an item to a template",
		Long: `Append an item. Instances that already exist keep their own copy of the
template's items; only future instances see the new item.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := checklist.ParseItemType(itemType)
			if err != nil {
				return err
			}
			req.TemplateID = args[0]
			req.Text = args[1]
			req.ItemType = t

			item, err := wire.TemplateService().AddItem(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Printf("✓ Added item %d to %s: %s (%s)\n", item.Position, item.TemplateID, item.Text, item.ItemType)
			return nil
		},
	}

	cmd.Flags().StringVarP(&itemType, "type", "t", "boolean", "Item type (text, number, boolean, file, photo, signature)")
	cmd.Flags().StringVarP(&req.Description, "description", "d", "", "Guidance for the inspector")
	cmd.Flags().BoolVarP(&req.Required, "required", "r", false, "Item must be answered before completion")
	cmd.Flags().BoolVar(&req.ApprovalRequired, "approval", false, "Response needs reviewer approval")
	return cmd
}

func templateAssignCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "assign [template-id] [property-id...]",
		Short: "Generate this template's schedule for properties",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, propertyID := range args[1:] {
				if err := wire.TemplateService().AssignProperty(cmd.Context(), args[0], propertyID); err != nil {
					return err
				}
				fmt.Printf("✓ %s assigned to %s\n", args[0], propertyID)
			}
			return nil
		},
	}
}

func templateUnassignCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unassign [template-id] [property-id]",
		Short: "Stop generating this template for a property",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := wire.TemplateService().UnassignProperty(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Printf("✓ %s unassigned from %s\n", args[0], args[1])
			return nil
		},
	}
}

func templateScheduleCmd() *cobra.Command {
	var (
		sf       filesystem.ScheduleFile
		disabled bool
	)

	cmd := &cobra.Command{
		Use:   "schedule [template-id]",
		Short: "Set a template's recurrence rule",
		Example: `  propcheck template schedule TPL-001 --frequency weekly --days mon,thu --time 09:00 --start 2026-03-02
  propcheck template schedule TPL-002 --frequency monthly --day-of-month last --lead-days 3 --auto-assign`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			enabled := !disabled
			sf.Enabled = &enabled
			if sf.StartDate == "" {
				sf.StartDate = recurrence.FormatDate(time.Now())
			}

			def, err := sf.Definition()
			if err != nil {
				return err
			}
			if err := wire.TemplateService().SaveSchedule(cmd.Context(), args[0], def); err != nil {
				return err
			}
			fmt.Printf("✓ Schedule saved for %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVarP(&sf.Frequency, "frequency", "f", "", "daily, weekly, biweekly, monthly, quarterly or yearly")
	cmd.Flags().IntVar(&sf.Interval, "interval", 1, "Repeat every N periods")
	cmd.Flags().StringVar(&sf.DaysOfWeek, "days", "", "Weekdays for weekly schedules, e.g. mon,thu")
	cmd.Flags().StringVar(&sf.DayOfMonth, "day-of-month", "", "1-31 or last; short months clamp to their last day")
	cmd.Flags().StringVar(&sf.TimeOfDay, "time", "", "Due time HH:MM")
	cmd.Flags().StringVar(&sf.TimeZone, "tz", "", "IANA time zone (default: the property's)")
	cmd.Flags().StringVar(&sf.StartDate, "start", "", "First possible occurrence YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&sf.EndDate, "end", "", "Last possible occurrence YYYY-MM-DD")
	cmd.Flags().IntVar(&sf.LeadTimeDays, "lead-days", 0, "Generate this many days before the due date")
	cmd.Flags().BoolVar(&sf.AutoAssign, "auto-assign", false, "Assign instances using the template's policy")
	cmd.Flags().BoolVar(&disabled, "disabled", false, "Save the rule without generating")
	cmd.MarkFlagRequired("frequency")
	return cmd
}

func templatePreviewCmd() *cobra.Command {
	var (
		after string
		count int
	)

	cmd := &cobra.Command{
		Use:   "preview [template-id]",
		Short: "Show upcoming occurrences of a template's schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			from := recurrence.DateOf(time.Now())
			if after != "" {
				d, err := recurrence.ParseDate(after)
				if err != nil {
					return fmt.Errorf("--after must be YYYY-MM-DD: %w", err)
				}
				from = d
			}
			_, err := wire.TemplateAdapter().Preview(cmd.Context(), args[0], from, count)
			return err
		},
	}

	cmd.Flags().StringVar(&after, "after", "", "Start after this date YYYY-MM-DD (default today)")
	cmd.Flags().IntVarP(&count, "count", "n", 10, "Number of occurrences")
	return cmd
}

func templateImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import [file.yaml]",
		Short: "Create a template with items, schedule and properties from YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := filesystem.LoadTemplateFile(args[0])
			if err != nil {
				return err
			}
			_, err = wire.TemplateAdapter().Import(cmd.Context(), *req)
			return err
		},
	}
}

func templateSetActiveCmd(verb, short string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " [template-id]",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := wire.TemplateService().SetTemplateActive(cmd.Context(), args[0], active); err != nil {
				return err
			}
			fmt.Printf("✓ Template %s %sd\n", args[0], verb)
			return nil
		},
	}
}
