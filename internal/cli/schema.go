package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AntonStoeckl/cqrs-es-go/config"
	"github.com/AntonStoeckl/cqrs-es-go/postgresstore"
)

// ErrDropNotConfirmed is returned by drop without --yes.
var ErrDropNotConfirmed = errors.New("dropping the schema deletes all events, confirm with --yes")

// NewPrintCommand creates the print command.
func NewPrintCommand(rootOpts *RootOptions) *cobra.Command {
	var drop bool

	cmd := &cobra.Command{
		Use:          "print",
		Short:        "Print the schema DDL",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			options := rootOpts.tableOptions(config.PostgresConfig{})

			render := postgresstore.CreateSchemaSQL
			if drop {
				render = postgresstore.DropSchemaSQL
			}

			ddl, err := render(options...)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), ddl)

			return err
		},
	}

	cmd.Flags().BoolVar(&drop, "drop", false, "print the drop statements instead")

	return cmd
}

// NewCreateCommand creates the create command.
func NewCreateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "create",
		Short:        "Create the events and views tables if they do not exist",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSchema(cmd, rootOpts, "schema created", func(database *postgresstore.Database, options []postgresstore.Option) error {
				return database.CreateSchema(cmd.Context(), options...)
			})
		},
	}
}

// NewDropCommand creates the drop command.
func NewDropCommand(rootOpts *RootOptions) *cobra.Command {
	var confirmed bool

	cmd := &cobra.Command{
		Use:          "drop",
		Short:        "Drop the events and views tables",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !confirmed {
				return ErrDropNotConfirmed
			}

			return runSchema(cmd, rootOpts, "schema dropped", func(database *postgresstore.Database, options []postgresstore.Option) error {
				return database.DropSchema(cmd.Context(), options...)
			})
		},
	}

	cmd.Flags().BoolVar(&confirmed, "yes", false, "confirm dropping all tables")

	return cmd
}

func runSchema(
	cmd *cobra.Command,
	opts *RootOptions,
	doneMsg string,
	apply func(database *postgresstore.Database, options []postgresstore.Option) error,
) error {
	logger := opts.logger(cmd)

	cfg, err := config.LoadPostgresConfig()
	if err != nil {
		return err
	}

	database, closeDatabase, err := opts.openDatabase(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer closeDatabase()

	eventTable, viewTable := opts.tableNames(cfg)
	logger.Debug("applying schema", "event_table", eventTable, "view_table", viewTable)

	if err := apply(database, opts.tableOptions(cfg)); err != nil {
		logger.Error("applying schema failed", "error", err.Error())
		return err
	}

	logger.Info(doneMsg, "event_table", eventTable, "view_table", viewTable)

	return nil
}
