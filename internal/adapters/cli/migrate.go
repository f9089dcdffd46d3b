package cli

import (
	"fmt"

	"accounting-core/internal/logger"

	"github.com/spf13/cobra"
)

func newMigrateCmd(rt *Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:       "migrate [up|down]",
		Short:     "Apply or roll back the database schema",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down"},
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logger.WithComponent("migrate")
			if err := rt.Config.RequireDatabase(); err != nil {
				return err
			}
			down := len(args) == 1 && args[0] == "down"
			if err := rt.Migrate(rt.Config.Database.URL, down); err != nil {
				return err
			}
			direction := "up"
			if down {
				direction = "down"
			}
			log.Info().Str("direction", direction).Msg("migrations applied")
			fmt.Fprintf(rt.Stdout, "Migrations %s complete.\n", direction)
			return nil
		},
	}
	return cmd
}
