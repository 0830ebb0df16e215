// Mcqrouter answers Vietnamese multiple-choice questions with a routed,
// batched language-model pipeline.
//
// Usage:
//
//	# Answer a question file and write submission.csv
//	mcqrouter solve questions.json
//
//	# Answer one at a time and also write per-question latency
//	mcqrouter predict --config mcqrouter.yaml questions.json
//
//	# Serve single questions over HTTP
//	mcqrouter serve
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// configPath is an optional YAML or TOML file; MCQ_ variables still apply.
	configPath string
	// version information (set via ldflags during build)
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "mcqrouter",
	Short: "Answer multiple-choice questions with routed LLM calls",
	Long: `mcqrouter classifies each question into a domain, picks a model tier and
prompt strategy for it, optionally retrieves supporting passages, and asks
the model for a single answer letter per question.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (yaml or toml)")
	rootCmd.AddCommand(solveCmd)
	rootCmd.AddCommand(predictCmd)
	rootCmd.AddCommand(serveCmd)
}
