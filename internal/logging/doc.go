// Package logging provides structured logging for mcqrouter runs.
//
// # Overview
//
// The package wraps Zap with:
//   - A custom Trace level (-2, below Debug)
//   - Stdout output plus an optional OpenTelemetry bridge
//   - Automatic context fields (trace_id, run.id, question.id, question.domain)
//   - Redaction of API keys and bearer tokens
//   - Level-aware sampling (errors never sampled)
//
// # Usage
//
//	cfg := logging.NewDefaultConfig()
//	logger, err := logging.NewLogger(cfg, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer logger.Sync()
//
//	ctx = logging.WithRunID(ctx, runID)
//	ctx = logging.WithQuestion(ctx, "q1", "STEM")
//	logger.Warn(ctx, "answer out of range, defaulting", zap.String("raw", "Z"))
//
// Output:
//
//	{
//	  "ts": "2026-10-16T10:15:30Z",
//	  "level": "warn",
//	  "msg": "answer out of range, defaulting",
//	  "run.id": "7d0c...",
//	  "question.id": "q1",
//	  "question.domain": "STEM",
//	  "raw": "Z"
//	}
//
// # Testing
//
// Use TestLogger for assertions:
//
//	tl := logging.NewTestLogger()
//	tl.Warn(ctx, "batch attempt failed")
//	tl.AssertLogged(t, zapcore.WarnLevel, "batch attempt failed")
//
// Logger is safe for concurrent use. Child loggers (With, Named) do not
// affect the parent.
package logging
