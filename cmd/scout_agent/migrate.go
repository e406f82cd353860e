package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newMigrateCmd(root *rootOptions) *cobra.Command {
	var reset bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, root)
			if err != nil {
				return err
			}
			database, err := connectDatabase(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer database.Close()

			if reset {
				if err := database.DropSchema(cmd.Context()); err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Dropped existing tables")
			}
			if err := database.Migrate(cmd.Context()); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Schema is up to date")
			return nil
		},
	}
	cmd.Flags().BoolVar(&reset, "reset", false, "Drop all tables before applying the schema")
	cmd.Flags().String("db-url", "", "PostgreSQL URL (defaults to DATABASE_URL)")
	return cmd
}
