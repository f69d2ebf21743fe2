package cli

import (
	"errors"
	"fmt"

	"github.com/khanglvm/cofounder-hub/internal/analysis"
	"github.com/khanglvm/cofounder-hub/internal/config"
	"github.com/khanglvm/cofounder-hub/internal/storage"
	"github.com/spf13/cobra"
)

// NewVerifyCmd creates the 'verify' command.
func NewVerifyCmd(g *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Verify configuration and the history store",
		Long: `Check that the configuration is valid and that the history database
can be opened, then report per-collection record counts.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			cfg, err := config.LoadOrDefault(g.ConfigPath)
			if err != nil {
				return err
			}
			if g.LogLevel != "" {
				cfg.Logging.Level = g.LogLevel
			}

			fmt.Fprintln(out, "Configuration:")
			if err := cfg.Validate(); err != nil {
				var fe *config.FieldError
				for _, e := range unwrapAll(err) {
					if errors.As(e, &fe) {
						fmt.Fprintf(out, "  ✗ %s: %s\n", fe.Field, fe.Reason)
					} else {
						fmt.Fprintf(out, "  ✗ %v\n", e)
					}
				}
				return fmt.Errorf("configuration is invalid")
			}
			fmt.Fprintf(out, "  ✓ provider %s, model %s\n", cfg.LLM.Provider, cfg.LLM.Model)
			if cfg.Embedding.Enabled {
				fmt.Fprintf(out, "  ✓ embeddings %s\n", cfg.Embedding.Model)
			} else {
				fmt.Fprintln(out, "  - embeddings disabled (keyword retrieval only)")
			}
			if cfg.Events.NATSURL != "" {
				fmt.Fprintf(out, "  ✓ events to %s (%s)\n", cfg.Events.NATSURL, cfg.Events.Subject)
			}

			fmt.Fprintln(out, "\nHistory:")
			st := storage.NewStorage(cfg.DBPath(), NewLogger(cfg.Logging, nopWriter{}))
			if err := st.Init(); err != nil {
				fmt.Fprintf(out, "  ✗ %s: %v\n", cfg.DBPath(), err)
				return fmt.Errorf("history store unavailable")
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
			fmt.Fprintf(out, "  ✓ %s\n", st.Path())
			for _, c := range analysis.Collections {
				fmt.Fprintf(out, "    %-32s %d\n", c, counts[c])
			}
			return nil
		},
	}
}

// unwrapAll flattens an errors.Join tree.
func unwrapAll(err error) []error {
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		var out []error
		for _, e := range j.Unwrap() {
			out = append(out, unwrapAll(e)...)
		}
		return out
	}
	return []error{err}
}
