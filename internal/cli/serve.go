package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// NewServeCmd creates the 'serve' command for running the HTTP API.
func NewServeCmd(g *GlobalOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the analysis HTTP API",
		Long: `Start the cofounder HTTP API.

Analysis endpoints (POST, JSON body):
  • /swot_analysis/analyze/        - SWOT analysis
  • /market_size/estimate/         - TAM/SAM/SOM estimate
  • /business_model/recommend/     - Business model recommendation
  • /competitor_analysis/analyze/  - Competitor analysis
  • /news_overview/overview/       - Sector news overview

Also served: /api/history, /healthz and /metrics.
The server shuts down gracefully on SIGINT/SIGTERM.`,
		Example: `  cofounder serve
  cofounder serve --addr 127.0.0.1:9000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), g, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.addr)")

	return cmd
}

// runServe serves until a termination signal arrives.
func runServe(parent context.Context, g *GlobalOptions, addr string) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	app, err := g.newApp(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			app.Logger.Warn("error during cleanup", "error", err)
		}
	}()

	if addr == "" {
		addr = app.Config.Server.Addr
	}
	app.Logger.Info("starting cofounder",
		"addr", addr,
		"provider", app.Generator.Provider(),
		"model", app.Generator.Model(),
		"history", app.Store.Enabled())

	if err := app.Server().ListenAndServe(ctx, addr); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	app.Logger.Info("shutdown complete")
	return nil
}
