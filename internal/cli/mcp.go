package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/khanglvm/cofounder-hub/internal/mcp"
	"github.com/spf13/cobra"
)

// NewMCPCmd creates the 'mcp' command, which serves the analyses as MCP
// tools over stdio.
func NewMCPCmd(g *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the analyses as MCP tools (stdio transport)",
		Long: `Run an MCP server on stdin/stdout exposing:
  • swot_analysis, market_size, business_model
  • competitor_analysis, news_overview
  • history_list

Logs go to stderr so stdout carries only JSON-RPC.`,
		Example: `  # Register with an MCP client
  {"command": "cofounder", "args": ["mcp"]}`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			app, err := g.newApp(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			srv := mcp.NewServer(app.Service, app.Store, app.Logger, mcp.WithRequestTimeout(app.Config.Server.RequestTimeout))
			app.Logger.Info("mcp server ready", "provider", app.Generator.Provider(), "model", app.Generator.Model())
			return srv.Run(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}
