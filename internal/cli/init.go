package cli

import (
	"fmt"
	"os"

	"github.com/khanglvm/cofounder-hub/internal/config"
	"github.com/spf13/cobra"
)

// NewInitCmd creates the 'init' command, which writes a default config file.
func NewInitCmd(g *GlobalOptions) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		Long: `Write the default configuration to ~/.cofounder/config.yaml
(or the path given with --config).

API keys are best supplied through the environment (OPENAI_API_KEY,
GEMINI_API_KEY, COFOUNDER_LLM_API_KEY) rather than stored in the file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := g.ConfigPath
			if path == "" {
				p, err := config.GetDefaultConfigPath()
				if err != nil {
					return err
				}
				path = p
			}

			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("config already exists: %s (use --force to overwrite)", path)
			}

			if err := config.Save(config.NewConfig(), path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote default config to %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing config")
	return cmd
}
