package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jonathan/idea-scout/internal/pipeline"
	"github.com/jonathan/idea-scout/internal/server"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the REST API server",
		Long:  `Start an HTTP server that accepts evaluation jobs and streams their progress.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, root)
		},
	}
	cmd.Flags().Int("port", 8080, "Port to listen on")
	cmd.Flags().Bool("debate", true, "Use the three-persona debate instead of the devil's-advocate pivot loop")
	cmd.Flags().String("db-url", "", "PostgreSQL URL (defaults to DATABASE_URL; in-memory when empty)")
	return cmd
}

func runServe(cmd *cobra.Command, root *rootOptions) error {
	cfg, err := loadConfig(cmd, root)
	if err != nil {
		return err
	}
	if err := requireServices(cfg); err != nil {
		return err
	}
	if err := cfg.Session.Validate(); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, closeDeps, err := buildDeps(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeDeps()

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()
	if cfg.DatabaseURL == "" {
		logger.Warn("serving without DATABASE_URL; jobs are lost on restart")
	}

	graph := pipeline.NewGraph(pipeline.GraphOptions{DebateMode: cfg.Analysis.DebateMode, Recorder: store}, deps)
	srv, err := server.New(server.Options{
		Port:          cfg.Server.Port,
		JobsPerMinute: cfg.Server.JobsPerMinute,
		Session:       cfg.Session,
		Logger:        logger,
	}, store, pipeline.NewRunner(store, graph, logger))
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	return srv.Start(ctx)
}
