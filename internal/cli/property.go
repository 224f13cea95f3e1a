package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/example/propcheck/internal/ports/primary"
	"github.com/example/propcheck/internal/wire"
)

// PropertyCmd returns the property command
func PropertyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "property",
		Short: "Manage properties and their staff",
	}
	cmd.AddCommand(propertyCreateCmd())
	cmd.AddCommand(propertyListCmd())
	cmd.AddCommand(propertySetActiveCmd("activate", "Resume generation for a property", true))
	cmd.AddCommand(propertySetActiveCmd("deactivate", "Stop generation for a property; existing instances are kept", false))
	cmd.AddCommand(propertyStaffCmd())
	return cmd
}

func propertyCreateCmd() *cobra.Command {
	var req primary.CreatePropertyRequest

	cmd := &cobra.Command{
		Use:   "create [name]",
		Short: "Create a property",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Name = args[0]
			p, err := wire.PropertyService().CreateProperty(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Printf("✓ Created property %s: %s (%s)\n", p.ID, p.Name, p.TimeZone)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.TimeZone, "tz", "UTC", "IANA time zone schedules are evaluated in")
	return cmd
}

func propertyListCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List properties",
		RunE: func(cmd *cobra.Command, args []string) error {
			properties, err := wire.PropertyService().ListProperties(cmd.Context(), !all)
			if err != nil {
				return err
			}
			if len(properties) == 0 {
				fmt.Println("No properties found.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tTIME ZONE\tACTIVE")
			fmt.Fprintln(w, "--\t----\t---------\t------")
			for _, p := range properties {
				fmt.Fprintf(w, "%s\t%s\t%s\t%v\n", p.ID, p.Name, p.TimeZone, p.Active)
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVarP(&all, "all", "a", false, "Include inactive properties")
	return cmd
}

func propertySetActiveCmd(verb, short string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " [property-id]",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := wire.PropertyService().SetPropertyActive(cmd.Context(), args[0], active); err != nil {
				return err
			}
			fmt.Printf("✓ Property %s %sd\n", args[0], verb)
			return nil
		},
	}
}

func propertyStaffCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "staff",
		Short: "Manage property staff used for auto-assignment",
	}

	var req primary.AddStaffRequest
	add := &cobra.Command{
		Use:   "add [property-id] [user-id]",
		Short: "Add a staff member",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.PropertyID = args[0]
			req.UserID = args[1]
			if err := wire.PropertyService().AddStaff(cmd.Context(), req); err != nil {
				return err
			}
			fmt.Printf("✓ %s added to %s\n", req.UserID, req.PropertyID)
			return nil
		},
	}
	add.Flags().StringVar(&req.Role, "role", "", "Staff role (default inspector)")
	add.Flags().BoolVar(&req.Primary, "primary", false, "Primary contact, preferred by the primary policy")

	list := &cobra.Command{
		Use:   "list [property-id]",
		Short: "List a property's staff",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			staff, err := wire.PropertyService().ListStaff(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(staff) == 0 {
				fmt.Println("No staff assigned.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "USER\tROLE\tPRIMARY")
			fmt.Fprintln(w, "----\t----\t-------")
			for _, s := range staff {
				fmt.Fprintf(w, "%s\t%s\t%v\n", s.UserID, s.Role, s.Primary)
			}
			return w.Flush()
		},
	}

	cmd.AddCommand(add, list)
	return cmd
}
