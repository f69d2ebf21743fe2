package cli

import (
	"github.com/khanglvm/cofounder-hub/internal/version"
	"github.com/spf13/cobra"
)

// NewRootCmd builds the cofounder command tree.
func NewRootCmd() *cobra.Command {
	g := &GlobalOptions{}

	rootCmd := &cobra.Command{
		Use:   "cofounder",
		Short: "AI business-analysis API with retrieval over past analyses",
		Long: `cofounder serves AI-generated business analyses over HTTP:
  • SWOT analysis with generated assumptions
  • Market size estimation (TAM, SAM, SOM)
  • Business model recommendation
  • Competitor analysis grounded in web search
  • Sector news overview with sentiment counts

Every result is stored per analysis type and the most relevant past
analyses are fed back into later prompts as reference context.`,
		Version:       version.GetVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&g.ConfigPath, "config", "c", "", "Config file (default ~/.cofounder/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&g.LogLevel, "log-level", "", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(NewServeCmd(g))
	rootCmd.AddCommand(NewAnalyzeCmd(g))
	rootCmd.AddCommand(NewMCPCmd(g))
	rootCmd.AddCommand(NewHistoryCmd(g))
	rootCmd.AddCommand(NewBenchmarkCmd(g))
	rootCmd.AddCommand(NewInitCmd(g))
	rootCmd.AddCommand(NewVerifyCmd(g))
	rootCmd.AddCommand(NewVersionCmd())

	return rootCmd
}
