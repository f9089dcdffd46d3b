package cli

import (
	"fmt"

	"accounting-core/internal/app"

	"github.com/spf13/cobra"
)

func newJournalCmd(rt *Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "journal",
		Aliases: []string{"je"},
		Short:   "Validate, create, post and reverse journal entries",
	}
	cmd.AddCommand(
		newJournalValidateCmd(rt),
		newJournalCreateCmd(rt),
		newJournalEditCmd(rt),
		newJournalPostCmd(rt),
		newJournalReverseCmd(rt),
		newJournalShowCmd(rt),
	)
	return cmd
}

func newJournalValidateCmd(rt *Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "validate",
		Aliases: []string{"val"},
		Short:   "Check that proposed lines balance, without saving",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var req app.JournalRequest
			if err := rt.readInput(cmd, &req); err != nil {
				return err
			}
			return rt.withService(cmd.Context(), func(svc app.ApplicationService) error {
				report, err := svc.ValidateJournal(cmd.Context(), req)
				if err != nil {
					return err
				}
				if err := rt.printJSON(report); err != nil {
					return err
				}
				if !report.Valid {
					return fmt.Errorf("journal entry is not valid")
				}
				return nil
			})
		},
	}
	cmd.Flags().StringP("file", "f", "", "Read the entry from this file instead of stdin")
	return cmd
}

func newJournalCreateCmd(rt *Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Save a balanced entry as DRAFT",
		Example: `  echo '{"transaction_date":"2026-05-02","description":"Cash sale","lines":[
    {"account_code":"1000","debit":"100.00"},{"account_code":"4000","credit":"100.00"}]}' | ledger journal create --post`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var req app.JournalRequest
			if err := rt.readInput(cmd, &req); err != nil {
				return err
			}
			post, _ := cmd.Flags().GetBool("post")
			return rt.withService(cmd.Context(), func(svc app.ApplicationService) error {
				entry, err := svc.CreateJournalEntry(cmd.Context(), req)
				if err != nil {
					return err
				}
				if post {
					if entry, err = svc.PostJournalEntry(cmd.Context(), entry.ID); err != nil {
						return err
					}
				}
				return rt.printJSON(entry)
			})
		},
	}
	cmd.Flags().StringP("file", "f", "", "Read the entry from this file instead of stdin")
	cmd.Flags().Bool("post", false, "Post the entry immediately after creating it")
	return cmd
}

func newJournalEditCmd(rt *Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Replace the lines of a DRAFT entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseEntryID(args[0])
			if err != nil {
				return err
			}
			var lines []app.JournalLineInput
			if err := rt.readInput(cmd, &lines); err != nil {
				return err
			}
			return rt.withService(cmd.Context(), func(svc app.ApplicationService) error {
				entry, err := svc.EditJournalLines(cmd.Context(), id, lines)
				if err != nil {
					return err
				}
				return rt.printJSON(entry)
			})
		},
	}
	cmd.Flags().StringP("file", "f", "", "Read the lines from this file instead of stdin")
	return cmd
}

func newJournalPostCmd(rt *Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "post <id>",
		Short: "Post a DRAFT entry to the ledger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseEntryID(args[0])
			if err != nil {
				return err
			}
			return rt.withService(cmd.Context(), func(svc app.ApplicationService) error {
				entry, err := svc.PostJournalEntry(cmd.Context(), id)
				if err != nil {
					return err
				}
				return rt.printJSON(entry)
			})
		},
	}
}

func newJournalReverseCmd(rt *Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reverse <id>",
		Short: "Cancel a POSTED entry by posting its mirror",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseEntryID(args[0])
			if err != nil {
				return err
			}
			reason, _ := cmd.Flags().GetString("reason")
			return rt.withService(cmd.Context(), func(svc app.ApplicationService) error {
				res, err := svc.ReverseJournalEntry(cmd.Context(), id, reason)
				if err != nil {
					return err
				}
				return rt.printJSON(res)
			})
		},
	}
	cmd.Flags().String("reason", "", "Reason recorded on the reversal entry")
	return cmd
}

func newJournalShowCmd(rt *Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print one journal entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseEntryID(args[0])
			if err != nil {
				return err
			}
			return rt.withService(cmd.Context(), func(svc app.ApplicationService) error {
				entry, err := svc.GetJournalEntry(cmd.Context(), id)
				if err != nil {
					return err
				}
				return rt.printJSON(entry)
			})
		},
	}
}
