package cli

import (
	"fmt"
	"io"
	"strings"

	"accounting-core/internal/app"

	"github.com/spf13/cobra"
)

func newBalancesCmd(rt *Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "balances",
		Aliases: []string{"bal"},
		Short:   "Print the trial balance",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			asJSON, _ := cmd.Flags().GetBool("json")
			return rt.withService(cmd.Context(), func(svc app.ApplicationService) error {
				result, err := svc.GetTrialBalance(cmd.Context())
				if err != nil {
					return fmt.Errorf("failed to get balances: %w", err)
				}
				if asJSON {
					return rt.printJSON(result)
				}
				printTrialBalance(rt.Stdout, result)
				return nil
			})
		},
	}
	cmd.Flags().Bool("json", false, "Print JSON instead of a table")
	return cmd
}

func printTrialBalance(w io.Writer, result *app.TrialBalanceResult) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("=", 78))
	fmt.Fprintf(w, "  %-74s\n", "TRIAL BALANCE")
	fmt.Fprintf(w, "  Company  : %s - %s\n", result.CompanyCode, result.CompanyName)
	fmt.Fprintf(w, "  Currency : %s\n", result.Currency)
	fmt.Fprintln(w, strings.Repeat("=", 78))
	fmt.Fprintf(w, "  %-8s %-30s %11s %11s %11s\n", "CODE", "NAME", "DEBIT", "CREDIT", "BALANCE")
	fmt.Fprintln(w, strings.Repeat("-", 78))
	for _, b := range result.Accounts {
		fmt.Fprintf(w, "  %-8s %-30s %11s %11s %11s\n",
			b.Code, b.Name, b.Debit.StringFixed(2), b.Credit.StringFixed(2), b.Balance.StringFixed(2))
	}
	fmt.Fprintln(w, strings.Repeat("-", 78))
	fmt.Fprintf(w, "  %-8s %-30s %11s %11s\n", "", "TOTAL", result.TotalDebit.StringFixed(2), result.TotalCredit.StringFixed(2))
	fmt.Fprintln(w, strings.Repeat("=", 78))
}
