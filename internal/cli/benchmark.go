package cli

import (
	"encoding/json"
	"fmt"

	"github.com/khanglvm/cofounder-hub/internal/analysis"
	"github.com/khanglvm/cofounder-hub/internal/benchmark"
	"github.com/khanglvm/cofounder-hub/internal/search"
	"github.com/spf13/cobra"
)

// NewBenchmarkCmd creates the 'benchmark' command for context token efficiency.
func NewBenchmarkCmd(g *GlobalOptions) *cobra.Command {
	var jsonOutput bool
	var iterations int

	cmd := &cobra.Command{
		Use:     "benchmark",
		Aliases: []string{"bench"},
		Short:   "Compare prompt context: full history vs retrieval",
		Long: `Run a context efficiency benchmark over the stored analyses comparing:

FULL HISTORY:
  Every stored analysis of a collection pasted into the prompt.

RETRIEVAL:
  The top-k records the retriever selects for a repeat request,
  truncated to the configured token budget.

Token counts use the same BPE encoding as context truncation.`,
		Example: `  # Run benchmark over the current history
  cofounder benchmark

  # Average retrieval latency over 10 runs, as JSON
  cofounder benchmark --iterations 10 --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := g.newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			if !app.Store.Enabled() {
				return fmt.Errorf("history store unavailable: %s", app.Config.DBPath())
			}

			tokenizer := search.NewTokenizer()
			result, err := benchmark.Run(cmd.Context(), app.Store, app.Retriever, tokenizer,
				analysis.Collections, benchmark.Options{
					K:          app.Config.Retrieval.K,
					MaxTokens:  app.Config.Retrieval.MaxTokens,
					Iterations: iterations,
				})
			if err != nil {
				return err
			}
			result.Encoding = tokenizer.Encoding()

			out := cmd.OutOrStdout()
			if jsonOutput {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}
			fmt.Fprintln(out)
			fmt.Fprint(out, benchmark.FormatResult(result))
			fmt.Fprintln(out)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "Output as JSON")
	cmd.Flags().IntVarP(&iterations, "iterations", "n", 3, "Retrievals per collection for latency")

	return cmd
}
