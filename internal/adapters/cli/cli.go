// Package cli is the command-line adapter over app.ApplicationService.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"accounting-core/internal/ai"
	"accounting-core/internal/app"
	"accounting-core/internal/config"
	"accounting-core/internal/db"
	"accounting-core/internal/ledger"
	"accounting-core/internal/logger"

	"github.com/spf13/cobra"
)

var version = "0.3.0"

// ServiceFactory opens an application service for the configured company.
// The returned func releases its resources.
type ServiceFactory func(ctx context.Context, cfg *config.Config) (app.ApplicationService, func(), error)

// Runtime is shared by every command of one invocation.
type Runtime struct {
	Config     *config.Config
	Stdin      io.Reader
	Stdout     io.Writer
	NewService ServiceFactory
	Migrate    func(databaseURL string, down bool) error
}

// NewRuntime wires the production dependencies.
func NewRuntime() *Runtime {
	return &Runtime{
		Stdin:      os.Stdin,
		Stdout:     os.Stdout,
		NewService: OpenPostgresService,
		Migrate: func(url string, down bool) error {
			if down {
				return db.MigrateDown(url)
			}
			return db.Migrate(url)
		},
	}
}

// OpenPostgresService connects to DATABASE_URL and scopes the service to COMPANY_CODE.
func OpenPostgresService(ctx context.Context, cfg *config.Config) (app.ApplicationService, func(), error) {
	if err := cfg.RequireDatabase(); err != nil {
		return nil, nil, err
	}
	pool, err := db.NewPool(ctx, cfg.Database.URL)
	if err != nil {
		return nil, nil, err
	}
	store, err := ledger.NewPostgresStore(ctx, pool, cfg.Ledger.CompanyCode)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}

	var drafter ai.Drafter
	if cfg.OpenAI.APIKey != "" {
		drafter = ai.NewAgent(cfg.OpenAI.APIKey, cfg.OpenAI.Model, logger.WithComponent("ai"))
	}
	svc := app.NewAppService(store, drafter, options(cfg), logger.WithComponent("app"))
	return svc, pool.Close, nil
}

func options(cfg *config.Config) app.Options {
	return app.Options{Method: cfg.Ledger.CalculationMethod, Tolerance: cfg.Ledger.BalanceTolerance}
}

// NewRootCommand builds the command tree.
func NewRootCommand(rt *Runtime) *cobra.Command {
	root := &cobra.Command{
		Use:   "ledger",
		Short: "Document calculation and double-entry journal engine",
		Long: `ledger computes VAT and totals for invoices, bills and estimates, and keeps
a double-entry journal with a DRAFT -> POSTED -> REVERSED lifecycle.

Configuration is read from the environment and an optional env file:
  DATABASE_URL        - Postgres connection string
  COMPANY_CODE        - company the ledger is scoped to (default 1000)
  CALCULATION_METHOD  - inclusive or exclusive (default exclusive)
  BALANCE_TOLERANCE   - accepted debit/credit difference (default 0.01)
  OPENAI_API_KEY      - enables the draft command`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(file)
			if err != nil {
				return err
			}
			if company, _ := cmd.Flags().GetString("company"); company != "" {
				cfg.Ledger.CompanyCode = company
			}
			if err := logger.Setup(cfg.GetLoggerConfig()); err != nil {
				return err
			}
			rt.Config = cfg
			return nil
		},
	}

	root.PersistentFlags().String("config", ".env", "Env file with configuration values")
	root.PersistentFlags().String("company", "", "Company code (overrides COMPANY_CODE)")

	root.AddCommand(
		newCalcCmd(rt),
		newJournalCmd(rt),
		newBalancesCmd(rt),
		newDraftCmd(rt),
		newMigrateCmd(rt),
	)
	return root
}

// Execute runs the CLI and reports a failed command on stderr.
func Execute(rt *Runtime) error {
	log := logger.WithComponent("cmd")
	if err := NewRootCommand(rt).Execute(); err != nil {
		log.Debug().Err(err).Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// withService opens the service for one command and closes it afterwards.
func (rt *Runtime) withService(ctx context.Context, fn func(app.ApplicationService) error) error {
	svc, closeFn, err := rt.NewService(ctx, rt.Config)
	if err != nil {
		return err
	}
	if closeFn != nil {
		defer closeFn()
	}
	return fn(svc)
}

// readInput decodes JSON from the --file flag, or stdin when it is empty or "-".
func (rt *Runtime) readInput(cmd *cobra.Command, v any) error {
	var r io.Reader = rt.Stdin
	if path, _ := cmd.Flags().GetString("file"); path != "" && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open input: %w", err)
		}
		defer f.Close()
		r = f
	}
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON input: %w", err)
	}
	return nil
}

func (rt *Runtime) printJSON(v any) error {
	enc := json.NewEncoder(rt.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseEntryID(arg string) (int, error) {
	id, err := strconv.Atoi(arg)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid entry id %q", arg)
	}
	return id, nil
}
