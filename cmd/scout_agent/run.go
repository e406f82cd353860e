package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jonathan/idea-scout/internal/db"
	"github.com/jonathan/idea-scout/internal/observability"
	"github.com/jonathan/idea-scout/internal/pipeline"
	"github.com/jonathan/idea-scout/internal/pipeline/steps"
	"github.com/jonathan/idea-scout/internal/types"
)

type runOptions struct {
	output    string
	sessionID string
	quiet     bool
	verbose   bool
}

func newRunCmd(root *rootOptions) *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run <idea>",
		Short: "Evaluate one business idea end-to-end",
		Long: `Validates the idea, researches its market and competitors, evaluates it and
writes the final report. Configuration comes from --config, the environment
(GEMINI_API_KEY, GOOGLE_SEARCH_API_KEY, GOOGLE_SEARCH_CX, ...) and the flags below.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.verbose = root.verbose
			return runIdeaCmd(cmd, root, opts, args[0])
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Write the report to this file instead of stdout")
	cmd.Flags().StringVar(&opts.sessionID, "session", "", "Attach the job to an existing session ID")
	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "Suppress progress output")
	cmd.Flags().Bool("debate", true, "Use the three-persona debate instead of the devil's-advocate pivot loop")
	cmd.Flags().Int("threshold", 5, "Scores strictly above this pass")
	cmd.Flags().Int("max-pivots", 3, "Maximum pivot attempts in devil's-advocate mode")
	cmd.Flags().Int("max-competitors", 5, "Competitor pages to scrape (0 disables scraping)")
	cmd.Flags().Bool("use-browser", false, "Re-render thin pages in headless Chrome")
	cmd.Flags().String("api-key", "", "Gemini API key (defaults to GEMINI_API_KEY)")
	cmd.Flags().String("db-url", "", "PostgreSQL URL (defaults to DATABASE_URL; in-memory when empty)")
	return cmd
}

func runIdeaCmd(cmd *cobra.Command, root *rootOptions, opts *runOptions, idea string) error {
	if err := (&types.RunRequest{Idea: idea}).Validate(); err != nil {
		return fmt.Errorf("invalid idea: %w", err)
	}

	cfg, err := loadConfig(cmd, root)
	if err != nil {
		return err
	}
	if err := requireServices(cfg); err != nil {
		return err
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

	_, err = executeRun(ctx, runEnv{
		deps:       deps,
		store:      store,
		debateMode: cfg.Analysis.DebateMode,
		logger:     logger,
		out:        cmd.OutOrStdout(),
	}, idea, opts)
	return err
}

// runEnv is everything executeRun needs, built by the command or by tests.
type runEnv struct {
	deps       *steps.Deps
	store      db.Store
	debateMode bool
	logger     logrus.FieldLogger
	out        io.Writer
}

// executeRun evaluates idea and prints the outcome. A run that ends in
// anything but completed is returned as an error after its output is shown.
func executeRun(ctx context.Context, env runEnv, idea string, opts *runOptions) (*types.RunResult, error) {
	printer := observability.NewPrinter(env.out)

	sessionID, err := resolveSession(ctx, env.store, opts.sessionID)
	if err != nil {
		return nil, err
	}

	graph := pipeline.NewGraph(pipeline.GraphOptions{DebateMode: env.debateMode, Recorder: env.store}, env.deps)
	runner := pipeline.NewRunner(env.store, graph, env.logger)

	var progress pipeline.ProgressCallback
	if !opts.quiet {
		progress = func(ev pipeline.ProgressEvent) {
			printer.PrintProgress(ev.Node, ev.Status, ev.Message)
		}
	}

	result, err := runner.Run(ctx, sessionID, idea, progress)
	if err != nil {
		return nil, err
	}
	printer.PrintResult(result)

	jobID, err := uuid.Parse(result.JobID)
	if err != nil {
		return result, fmt.Errorf("invalid job id %q: %w", result.JobID, err)
	}
	if pivots, err := env.store.ListPivots(ctx, jobID); err == nil {
		printer.PrintPivots(pivots)
	}
	if opts.verbose {
		if jobSteps, err := env.store.ListJobSteps(ctx, jobID); err == nil {
			printer.PrintSteps(jobSteps)
		}
	}

	if result.Status != types.StatusCompleted {
		return result, fmt.Errorf("run ended with status %s: %s", result.Status, result.Error)
	}

	job, err := env.store.GetJob(ctx, jobID)
	if err != nil {
		return result, fmt.Errorf("failed to load job: %w", err)
	}
	if job.FinalReport == nil {
		return result, errors.New("job completed without a report")
	}
	if opts.output == "" {
		printer.PrintReport(*job.FinalReport)
		return result, nil
	}
	if err := os.WriteFile(opts.output, []byte(*job.FinalReport), 0644); err != nil {
		return result, fmt.Errorf("failed to write report: %w", err)
	}
	_, _ = fmt.Fprintf(env.out, "Report written to %s\n", opts.output)
	return result, nil
}

// resolveSession returns the requested session or creates a new one.
func resolveSession(ctx context.Context, store db.Store, raw string) (uuid.UUID, error) {
	if raw == "" {
		session, err := store.CreateSession(ctx)
		if err != nil {
			return uuid.Nil, err
		}
		return session.ID, nil
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid --session: %w", err)
	}
	session, err := store.GetSession(ctx, id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("session %s: %w", id, err)
	}
	return session.ID, nil
}
