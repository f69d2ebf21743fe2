package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/khanglvm/cofounder-hub/internal/version"
	"github.com/spf13/cobra"
)

// NewVersionCmd creates the 'version' command.
func NewVersionCmd() *cobra.Command {
	var check bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "cofounder %s\n", version.GetVersion())
			if !check {
				return nil
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
			defer cancel()
			latest, err := version.NewChecker(nil).CheckUpdate(ctx, version.Version)
			if err != nil {
				return err
			}
			if latest == "" {
				fmt.Fprintln(out, "✓ Up to date")
			} else {
				fmt.Fprintf(out, "A newer release is available: %s\n", latest)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&check, "check", false, "Check GitHub for a newer release")
	return cmd
}
