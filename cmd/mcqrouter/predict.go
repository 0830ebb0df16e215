package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/mcqrouter/internal/config"
	"github.com/fyrsmithlabs/mcqrouter/internal/output"
	"github.com/fyrsmithlabs/mcqrouter/internal/question"
)

var (
	predictSubmission string
	predictTiming     string
)

// predictCmd answers one question per call and records latency.
var predictCmd = &cobra.Command{
	Use:   "predict <questions.json>",
	Short: "Answer questions one at a time and write answers plus timings",
	Long: `Answer each question with its own model call and write two CSVs:
"qid,answer" and "qid,answer,time".

Examples:
  mcqrouter predict data/private_test.json
  mcqrouter predict --output a.csv --timing t.csv data/private_test.json`,
	Args: cobra.ExactArgs(1),
	RunE: runPredict,
}

func init() {
	predictCmd.Flags().StringVarP(&predictSubmission, "output", "o", "", "submission CSV path (default from config)")
	predictCmd.Flags().StringVar(&predictTiming, "timing", "", "timing CSV path (default from config)")
}

func runPredict(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if predictSubmission != "" {
		cfg.Output.SubmissionPath = predictSubmission
	}
	if predictTiming != "" {
		cfg.Output.TimingPath = predictTiming
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

	rep, sum, runErr := p.Predict(ctx, qs)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return fmt.Errorf("predict: %w", runErr)
	}

	rows := completeRows(qs, rep.Rows)
	if err := output.WriteFile(cfg.Output.SubmissionPath, rows, output.WriteAnswers); err != nil {
		return err
	}
	if err := output.WriteFile(cfg.Output.TimingPath, rows, output.WriteTimings); err != nil {
		return err
	}
	a.logger.Info(ctx, "predictions written",
		zap.String("run_id", rep.RunID),
		zap.String("submission", cfg.Output.SubmissionPath),
		zap.String("timing", cfg.Output.TimingPath),
		zap.Int("answered", sum.Count),
		zap.Duration("average", sum.Average),
	)
	if runErr != nil {
		return fmt.Errorf("predict interrupted: %w", runErr)
	}
	return nil
}
