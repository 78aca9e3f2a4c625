// Command cellarctl runs maintenance tasks against a cellarbook database.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"cellarbook/infrastructure/config"
	"cellarbook/infrastructure/sqlite"

	"github.com/spf13/cobra"
)

type rootOptions struct {
	configFile string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "cellarctl",
		Short:         "Maintenance commands for cellarbook",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configFile, "config", "", "path to a config file (defaults to $CELLARBOOK_CONFIG)")

	root.AddCommand(newMigrateCmd(opts))
	root.AddCommand(newSeedAdminCmd(opts))
	root.AddCommand(newTTBCmd(opts))
	return root
}

// open loads configuration, installs the logger and returns a migrated
// database.
func (o *rootOptions) open(ctx context.Context) (*config.Config, *sqlite.DB, error) {
	cfg, err := config.Load(o.configFile)
	if err != nil {
		return nil, nil, err
	}
	slog.SetDefault(cfg.NewLogger())

	db, err := sqlite.OpenDB(cfg.SQLitePath)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", cfg.SQLitePath, err)
	}
	if err := sqlite.ApplyMigrations(ctx, db, cfg.MigrationsDir); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("apply migrations: %w", err)
	}
	return cfg, db, nil
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "cellarctl:", err)
		os.Exit(1)
	}
}
