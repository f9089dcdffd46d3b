package cli

import (
	"fmt"
	"strings"

	"accounting-core/internal/app"

	"github.com/spf13/cobra"
)

func newDraftCmd(rt *Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "draft <event description>",
		Aliases: []string{"propose"},
		Short:   "Ask the AI assistant to propose a journal entry",
		Long: `Sends the described business event and the chart of accounts to the AI assistant
and prints the proposed entry with its validation result. Nothing is saved unless
--commit is given, in which case a valid proposal is stored as a DRAFT entry.`,
		Example: `  ledger draft "Paid October office rent of 1500 from the bank account"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			event := strings.Join(args, " ")
			commit, _ := cmd.Flags().GetBool("commit")
			key, _ := cmd.Flags().GetString("idempotency-key")

			return rt.withService(cmd.Context(), func(svc app.ApplicationService) error {
				result, err := svc.DraftJournal(cmd.Context(), event)
				if err != nil {
					return fmt.Errorf("agent error: %w", err)
				}
				if result.IsClarification {
					fmt.Fprintln(cmd.ErrOrStderr(), "AI needs clarification:", result.ClarificationMessage)
					return rt.printJSON(result)
				}
				if err := rt.printJSON(result); err != nil {
					return err
				}
				if !commit {
					return nil
				}
				if result.Validation != nil && !result.Validation.Valid {
					return fmt.Errorf("proposal is not valid, nothing saved")
				}
				entry, err := svc.CommitProposal(cmd.Context(), *result.Proposal, key)
				if err != nil {
					return err
				}
				return rt.printJSON(entry)
			})
		},
	}
	cmd.Flags().Bool("commit", false, "Save a valid proposal as a DRAFT entry")
	cmd.Flags().String("idempotency-key", "", "Key that makes a repeated commit a no-op")
	return cmd
}
