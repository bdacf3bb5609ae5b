// Package cli implements the cqrs-schema command line tool.
package cli

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/AntonStoeckl/cqrs-es-go/config"
	"github.com/AntonStoeckl/cqrs-es-go/postgresstore"
)

// DatabaseOpener connects to the database described by the config.
type DatabaseOpener func(ctx context.Context, cfg config.PostgresConfig) (*postgresstore.Database, func(), error)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	EventTable string
	ViewTable  string

	openDatabase DatabaseOpener
}

// NewRootCommand creates the root command of cqrs-schema.
func NewRootCommand() *cobra.Command {
	return newRootCommand(func(ctx context.Context, cfg config.PostgresConfig) (*postgresstore.Database, func(), error) {
		return cfg.OpenDatabase(ctx)
	})
}

func newRootCommand(openDatabase DatabaseOpener) *cobra.Command {
	opts := &RootOptions{openDatabase: openDatabase}

	cmd := &cobra.Command{
		Use:   "cqrs-schema",
		Short: "Manage the Postgres schema of the event store",
		Long: `Print, create or drop the events and views tables used by postgresstore.

create and drop read the connection from CQRS_POSTGRES_DSN and the table names
from CQRS_POSTGRES_EVENT_TABLE and CQRS_POSTGRES_VIEW_TABLE. The table flags override them.`,
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.EventTable, "event-table", "", "events table name (overrides CQRS_POSTGRES_EVENT_TABLE)")
	cmd.PersistentFlags().StringVar(&opts.ViewTable, "view-table", "", "views table name (overrides CQRS_POSTGRES_VIEW_TABLE)")

	cmd.AddCommand(NewPrintCommand(opts))
	cmd.AddCommand(NewCreateCommand(opts))
	cmd.AddCommand(NewDropCommand(opts))

	return cmd
}

// tableNames resolves the table names, flags win over the config.
func (o *RootOptions) tableNames(cfg config.PostgresConfig) (eventTable string, viewTable string) {
	eventTable, viewTable = cfg.EventTable, cfg.ViewTable

	if o.EventTable != "" {
		eventTable = o.EventTable
	}

	if o.ViewTable != "" {
		viewTable = o.ViewTable
	}

	return eventTable, viewTable
}

// tableOptions returns the postgresstore options for the resolved table names, unset names keep the defaults.
func (o *RootOptions) tableOptions(cfg config.PostgresConfig) []postgresstore.Option {
	eventTable, viewTable := o.tableNames(cfg)

	var options []postgresstore.Option
	if eventTable != "" {
		options = append(options, postgresstore.WithEventTableName(eventTable))
	}

	if viewTable != "" {
		options = append(options, postgresstore.WithViewTableName(viewTable))
	}

	return options
}

func (o *RootOptions) logger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelInfo
	if o.Verbose {
		level = slog.LevelDebug
	}

	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}
