package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/example/propcheck/internal/core/approval"
	"github.com/example/propcheck/internal/ports/primary"
	"github.com/example/propcheck/internal/wire"
)

// ApprovalCmd returns the approval command
func ApprovalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "approval",
		Short: "Review individual responses",
		Long: `Responses to approval-required items are reviewed one by one. A checklist
can be approved only when every such response is approved, and rejected only
when at least one is rejected. Response IDs are shown by "checklist show".`,
	}
	cmd.AddCommand(approvalSubmitCmd())
	cmd.AddCommand(approvalSetCmd())
	cmd.AddCommand(approvalAttachCmd())
	cmd.AddCommand(approvalCommentCmd())
	cmd.AddCommand(approvalCommentsCmd())
	return cmd
}

func approvalSubmitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "submit [response-id]",
		Short: "Send a response for review",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := wire.ApprovalService().SubmitForApproval(cmd.Context(), args[0], actorFrom(cmd))
			if err != nil {
				return err
			}
			fmt.Printf("✓ Response %s is %s\n", resp.ID, resp.ApprovalStatus)
			return nil
		},
	}
}

func approvalSetCmd() *cobra.Command {
	var notes string

	cmd := &cobra.Command{
		Use:   "set [response-id] [approved|rejected]",
		Short: "Record a review outcome",
		Long: `Record a review outcome. Rejection notes become the checklist's rejection
notes when the checklist is rejected. Approved responses are final until the
value is changed.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			outcome, err := approval.ParseOutcome(args[1])
			if err != nil {
				return err
			}
			resp, err := wire.ApprovalService().SetApproval(cmd.Context(), args[0], outcome, notes, actorFrom(cmd))
			if err != nil {
				return err
			}

			c := color.New(color.FgGreen)
			if outcome == approval.StatusRejected {
				c = color.New(color.FgRed)
			}
			fmt.Printf("✓ Response %s %s by %s\n", resp.ID, c.Sprint(resp.ApprovalStatus), resp.ApprovedBy)
			return nil
		},
	}

	cmd.Flags().StringVarP(&notes, "notes", "m", "", "Reviewer notes")
	return cmd
}

func approvalAttachCmd() *cobra.Command {
	var req primary.AddAttachmentRequest

	cmd := &cobra.Command{
		Use:   "attach [response-id] [file-name]",
		Short: "Record evidence stored by the file service",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.ResponseID = args[0]
			req.FileName = args[1]
			req.Actor = actorFrom(cmd)
			if req.StorageKey == "" {
				req.StorageKey = req.FileName
			}

			att, err := wire.ApprovalService().AddAttachment(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Printf("✓ Attached %s to %s (%s)\n", att.FileName, att.ResponseID, att.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.StorageKey, "key", "", "Storage key (default: file name)")
	cmd.Flags().StringVar(&req.ContentType, "type", "", "MIME type")
	cmd.Flags().Int64Var(&req.SizeBytes, "size", 0, "Size in bytes")
	return cmd
}

func approvalCommentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "comment [response-id] [text]",
		Short: "Comment on a response",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := wire.ApprovalService().AddComment(cmd.Context(), args[0], args[1], actorFrom(cmd))
			if err != nil {
				return err
			}
			fmt.Printf("✓ Comment %s added\n", c.ID)
			return nil
		},
	}
}

func approvalCommentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "comments [response-id]",
		Short: "Show a response's comments and attachments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			service := wire.ApprovalService()

			comments, err := service.ListComments(ctx, args[0])
			if err != nil {
				return err
			}
			attachments, err := service.ListAttachments(ctx, args[0])
			if err != nil {
				return err
			}

			if len(comments) == 0 {
				fmt.Println("No comments.")
			}
			for _, c := range comments {
				fmt.Printf("%s  %s: %s\n", c.CreatedAt, c.Author, c.Body)
			}

			if len(attachments) > 0 {
				fmt.Println()
				w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
				fmt.Fprintln(w, "FILE\tTYPE\tSIZE\tKEY\tBY")
				fmt.Fprintln(w, "----\t----\t----\t---\t--")
				for _, a := range attachments {
					fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", a.FileName, orDash(a.ContentType), a.SizeBytes, a.StorageKey, a.UploadedBy)
				}
				return w.Flush()
			}
			return nil
		},
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
