package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"accounting-core/internal/app"
	"accounting-core/internal/core"
	"accounting-core/internal/ledger"
	"accounting-core/internal/logger"

	"github.com/spf13/cobra"
)

func newCalcCmd(rt *Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calc",
		Short: "Calculate line amounts, VAT and totals for a document",
		Long: `Reads a document as JSON and prints every line result and the document totals.

VAT types are loaded from the company's ledger, or from --vat-types to calculate
without a database.`,
		Example: `  echo '{"method":"exclusive","lines":[{"quantity":"2","unit_price":"50","discount":"0","vat_type_id":1}]}' | ledger calc
  ledger calc --file invoice.json --vat-types vat_types.json --method inclusive`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var req app.CalculateDocumentRequest
			if err := rt.readInput(cmd, &req); err != nil {
				return err
			}
			if method, _ := cmd.Flags().GetString("method"); method != "" {
				req.Method = method
			}

			run := func(svc app.ApplicationService) error {
				res, err := svc.CalculateDocument(cmd.Context(), req)
				if err != nil {
					return err
				}
				return rt.printJSON(res)
			}

			if path, _ := cmd.Flags().GetString("vat-types"); path != "" {
				svc, err := offlineService(rt, path)
				if err != nil {
					return err
				}
				return run(svc)
			}
			return rt.withService(cmd.Context(), run)
		},
	}
	cmd.Flags().StringP("file", "f", "", "Read the document from this file instead of stdin")
	cmd.Flags().String("method", "", "inclusive or exclusive (overrides the request and CALCULATION_METHOD)")
	cmd.Flags().String("vat-types", "", "JSON file with the VAT types to use instead of the database")
	return cmd
}

// offlineService calculates against VAT types read from a file and an empty in-memory ledger.
func offlineService(rt *Runtime, path string) (app.ApplicationService, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read VAT types: %w", err)
	}
	var types []core.VATType
	if err := json.Unmarshal(data, &types); err != nil {
		return nil, fmt.Errorf("invalid VAT types file %s: %w", path, err)
	}
	company := core.Company{CompanyCode: rt.Config.Ledger.CompanyCode}
	book := ledger.NewMemoryStore(company, nil, types)
	return app.NewAppService(book, nil, options(rt.Config), logger.WithComponent("calc")), nil
}
