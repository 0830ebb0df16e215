package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/mcqrouter/internal/config"
	"github.com/fyrsmithlabs/mcqrouter/internal/output"
	"github.com/fyrsmithlabs/mcqrouter/internal/question"
)

var submissionPath string

// solveCmd runs the batched pipeline over a question file.
var solveCmd = &cobra.Command{
	Use:   "solve <questions.json>",
	Short: "Answer a question file in batches and write the submission",
	Long: `Route every question to a domain, answer each domain in batches, and
write a "qid,answer" CSV in input order.

With the journal enabled, questions answered by an earlier run are not
asked again.

Examples:
  # Write submission.csv next to the binary
  mcqrouter solve data/public_test.json

  # Choose the output file
  mcqrouter solve --output out/answers.csv data/public_test.json`,
	Args: cobra.ExactArgs(1),
	RunE: runSolve,
}

func init() {
	solveCmd.Flags().StringVarP(&submissionPath, "output", "o", "", "submission CSV path (default from config)")
}

func runSolve(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if submissionPath != "" {
		cfg.Output.SubmissionPath = submissionPath
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeApp(a)

	qs, err := question.LoadFile(args[0], a.logger.Named("question"))
	if err != nil {
		return err
	}

	p, err := a.pipeline(args[0])
	if err != nil {
		return err
	}

	a.logger.Info(ctx, "solving", zap.Int("questions", len(qs)), zap.String("input", args[0]))
	rep, runErr := p.Solve(ctx, qs)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return fmt.Errorf("solve: %w", runErr)
	}

	if err := output.WriteFile(cfg.Output.SubmissionPath, completeRows(qs, rep.Rows), output.WriteAnswers); err != nil {
		return err
	}
	a.logger.Info(ctx, "submission written",
		zap.String("run_id", rep.RunID),
		zap.String("path", cfg.Output.SubmissionPath),
		zap.Int("defaults", rep.Missing),
		zap.Int("reused", rep.Reused),
	)
	if runErr != nil {
		return fmt.Errorf("solve interrupted: %w", runErr)
	}
	return nil
}

// completeRows returns one row per question in input order. Questions with
// no row get the default answer and zero time.
func completeRows(qs []question.Question, rows []output.Row) []output.Row {
	byQID := make(map[string]output.Row, len(rows))
	for _, r := range rows {
		byQID[r.QID] = r
	}
	out := make([]output.Row, len(qs))
	for i, q := range qs {
		r, ok := byQID[q.QID]
		if !ok || !question.InRange(r.Answer, q.MaxLetter()) {
			r = output.Row{QID: q.QID, Answer: question.DefaultAnswer}
		}
		out[i] = r
	}
	return out
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func closeApp(a *app) {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout.Duration())
	defer cancel()
	if err := a.Close(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "shutdown:", err)
	}
}
