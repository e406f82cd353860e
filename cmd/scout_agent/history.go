package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/idea-scout/internal/db"
	"github.com/jonathan/idea-scout/internal/observability"
)

func newHistoryCmd(root *rootOptions) *cobra.Command {
	var (
		session string
		limit   int
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List the jobs of a session",
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

			return printHistory(cmd.Context(), database, observability.NewPrinter(cmd.OutOrStdout()), session, limit)
		},
	}
	cmd.Flags().StringVar(&session, "session", "", "Session ID (required)")
	cmd.Flags().IntVar(&limit, "limit", db.DefaultSessionJobsLimit, "Maximum jobs to show")
	cmd.Flags().String("db-url", "", "PostgreSQL URL (defaults to DATABASE_URL)")
	_ = cmd.MarkFlagRequired("session")
	return cmd
}

func printHistory(ctx context.Context, store db.Store, printer *observability.Printer, rawSession string, limit int) error {
	sessionID, err := uuid.Parse(rawSession)
	if err != nil {
		return fmt.Errorf("invalid --session: %w", err)
	}
	if _, err := store.GetSession(ctx, sessionID); err != nil {
		return fmt.Errorf("session %s: %w", sessionID, err)
	}
	jobs, err := store.ListSessionJobs(ctx, sessionID, limit)
	if err != nil {
		return err
	}
	printer.PrintJobs(jobs)
	return nil
}
