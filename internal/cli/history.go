package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/khanglvm/cofounder-hub/internal/analysis"
	"github.com/khanglvm/cofounder-hub/internal/storage"
	"github.com/spf13/cobra"
)

// NewHistoryCmd creates the 'history' command group.
func NewHistoryCmd(g *GlobalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect or clear stored analyses",
		Long: `Stored analyses are grouped in one collection per analysis type:
  ` + strings.Join(analysis.Collections, "\n  "),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistorySummary(cmd, g)
		},
	}

	cmd.AddCommand(newHistoryListCmd(g))
	cmd.AddCommand(newHistoryClearCmd(g))
	cmd.AddCommand(newHistoryExportCmd(g))
	return cmd
}

// openStore opens the history store without wiring the rest of the app.
func (g *GlobalOptions) openStore() (*storage.SQLiteStorage, error) {
	cfg, err := g.loadConfig()
	if err != nil {
		return nil, err
	}
	st := storage.NewStorage(cfg.DBPath(), NewLogger(cfg.Logging, nopWriter{}))
	if err := st.Init(); err != nil {
		return nil, fmt.Errorf("open history store %s: %w", cfg.DBPath(), err)
	}
	return st, nil
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

func checkCollection(name string) error {
	if !analysis.IsCollection(name) {
		return fmt.Errorf("unknown collection %q (one of: %s)", name, strings.Join(analysis.Collections, ", "))
	}
	return nil
}

func runHistorySummary(cmd *cobra.Command, g *GlobalOptions) error {
	st, err := g.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	stats, err := st.Collections(cmd.Context())
	if err != nil {
		return err
	}
	counts := make(map[string]int, len(stats))
	for _, s := range stats {
		counts[s.Collection] = s.Records
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "History (%s):\n\n", st.Path())
	for _, c := range analysis.Collections {
		fmt.Fprintf(out, "  %-32s %d\n", c, counts[c])
	}
	return nil
}

func newHistoryListCmd(g *GlobalOptions) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "list <collection>",
		Aliases: []string{"ls"},
		Short:   "List the stored analyses of a collection",
		Example: `  cofounder history list swot_analysis
  cofounder history ls news_overview --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkCollection(args[0]); err != nil {
				return err
			}
			st, err := g.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			records, err := st.List(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(records)
			}
			if len(records) == 0 {
				fmt.Fprintf(out, "No stored analyses in %s.\n", args[0])
				return nil
			}
			fmt.Fprintf(out, "%s (%d):\n\n", args[0], len(records))
			for _, rec := range records {
				fmt.Fprintf(out, "  %s  %s\n", rec.ID, rec.CreatedAt.Local().Format("2006-01-02 15:04"))
				fmt.Fprintf(out, "    Input:    %s\n", rec.InputSummary)
				fmt.Fprintf(out, "    Response: %s\n\n", preview(rec.ResponseSummary, 120))
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "Output as JSON")
	return cmd
}

func newHistoryClearCmd(g *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "clear <collection>",
		Aliases: []string{"rm"},
		Short:   "Delete every stored analysis of a collection",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkCollection(args[0]); err != nil {
				return err
			}
			st, err := g.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			n, err := st.Count(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := st.Clear(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Cleared %d analyses from %s\n", n, args[0])
			return nil
		},
	}
}

func preview(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
