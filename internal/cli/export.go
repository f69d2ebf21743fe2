package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/khanglvm/cofounder-hub/internal/storage"
	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"
)

// newHistoryExportCmd creates the 'history export' command.
func newHistoryExportCmd(g *GlobalOptions) *cobra.Command {
	var format string
	var output string

	cmd := &cobra.Command{
		Use:   "export <collection>",
		Short: "Export stored analyses for offline grep/jq searching",
		Long: `Write every stored analysis of a collection to a file or stdout.

Default format: JSONL (one record per line).`,
		Example: `  # Export SWOT history as JSONL to stdout
  cofounder history export swot_analysis

  # Export as a JSON array to a file
  cofounder history export news_overview --format json --output news.json

Grep usage examples:
  # Find analyses mentioning a region
  cofounder history export market_size_estimation | grep -i vietnam | jq -r '.id'

  # List record ids with their dates
  cofounder history export competitor_analysis | jq -r '[.id, .created_at] | @tsv'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkCollection(args[0]); err != nil {
				return err
			}
			if format != "json" && format != "jsonl" {
				return fmt.Errorf("unsupported format %q (json or jsonl)", format)
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

			if output == "" {
				return writeHistory(cmd.OutOrStdout(), records, format)
			}
			if err := exportHistory(records, output, format); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "✓ Exported %d analyses to %s\n", len(records), output)
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "jsonl", "Output format: json or jsonl")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output path (default: stdout)")

	return cmd
}

// exportHistory writes records to path while holding an exclusive lock.
func exportHistory(records []storage.HistoryRecord, path, format string) error {
	lockFile, err := acquireFileLock(path)
	if err != nil {
		return fmt.Errorf("failed to acquire file lock: %w", err)
	}
	defer releaseFileLock(lockFile)

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer file.Close()

	return writeHistory(file, records, format)
}

// writeHistory encodes records as a JSON array or as JSONL.
func writeHistory(w io.Writer, records []storage.HistoryRecord, format string) error {
	encoder := json.NewEncoder(w)

	if format == "json" {
		if records == nil {
			records = []storage.HistoryRecord{}
		}
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(records); err != nil {
			return fmt.Errorf("failed to encode records: %w", err)
		}
		return nil
	}

	for _, rec := range records {
		if err := encoder.Encode(rec); err != nil {
			return fmt.Errorf("failed to encode record: %w", err)
		}
	}
	return nil
}

// acquireFileLock acquires an exclusive lock on the export file.
func acquireFileLock(path string) (*os.File, error) {
	lockPath := path + ".lock"
	lockFile, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file: %w", err)
	}

	// Non-blocking
	err = unix.Flock(int(lockFile.Fd()), unix.LOCK_EX|unix.LOCK_NB)
	if err != nil {
		lockFile.Close()
		return nil, fmt.Errorf("failed to acquire lock (another export in progress?): %w", err)
	}

	return lockFile, nil
}

// releaseFileLock releases the file lock and removes the lock file.
func releaseFileLock(lockFile *os.File) error {
	if lockFile == nil {
		return nil
	}

	lockPath := lockFile.Name()
	unix.Flock(int(lockFile.Fd()), unix.LOCK_UN)
	lockFile.Close()

	return os.Remove(lockPath)
}
