package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/khanglvm/cofounder-hub/internal/analysis"
	"github.com/spf13/cobra"
)

// NewAnalyzeCmd creates the 'analyze' command group, which runs one
// analysis in-process and prints the result.
func NewAnalyzeCmd(g *GlobalOptions) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run an analysis without starting the server",
		Long: `Run one analysis in-process using the configured model, history store
and web search, then print the result.`,
		Example: `  cofounder analyze swot --industry "Food delivery" --description "Meal kits for students"
  cofounder analyze market-size --industry EdTech --region Vietnam --target-market "High schools"
  cofounder analyze competitors Stripe Adyen https://squareup.com
  cofounder analyze news fintech --json`,
	}
	cmd.PersistentFlags().BoolVarP(&jsonOutput, "json", "j", false, "Output as JSON")

	cmd.AddCommand(newAnalyzeSWOTCmd(g, &jsonOutput))
	cmd.AddCommand(newAnalyzeMarketSizeCmd(g, &jsonOutput))
	cmd.AddCommand(newAnalyzeBusinessModelCmd(g, &jsonOutput))
	cmd.AddCommand(newAnalyzeCompetitorsCmd(g, &jsonOutput))
	cmd.AddCommand(newAnalyzeNewsCmd(g, &jsonOutput))

	return cmd
}

// runAnalysis wires the app, runs fn and prints its response.
func runAnalysis[Resp any](cmd *cobra.Command, g *GlobalOptions, jsonOutput bool,
	fn func(ctx context.Context, svc *analysis.Service) (Resp, error),
	text func(w io.Writer, resp Resp)) error {

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	app, err := g.newApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, cancel := context.WithTimeout(ctx, app.Config.Server.RequestTimeout)
	defer cancel()

	resp, err := fn(ctx, app.Service)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}
	text(out, resp)
	return nil
}

func printWarnings(w io.Writer, warnings []string) {
	if len(warnings) > 0 {
		fmt.Fprintf(w, "\nWarnings: %s\n", strings.Join(warnings, ", "))
	}
}

func newAnalyzeSWOTCmd(g *GlobalOptions, jsonOutput *bool) *cobra.Command {
	var req analysis.SWOTRequest
	cmd := &cobra.Command{
		Use:   "swot",
		Short: "SWOT analysis of a business idea",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalysis(cmd, g, *jsonOutput,
				func(ctx context.Context, svc *analysis.Service) (*analysis.SWOTResponse, error) {
					return svc.SWOT(ctx, req)
				},
				func(w io.Writer, resp *analysis.SWOTResponse) {
					fmt.Fprintf(w, "Assumptions\n\n%s\n\nSWOT Analysis\n\n%s\n", resp.GeneratedAssumptions, resp.SWOTResult)
					printWarnings(w, resp.Warnings)
				})
		},
	}
	cmd.Flags().StringVar(&req.Industry, "industry", "", "Industry (required)")
	cmd.Flags().StringVar(&req.BusinessDescription, "description", "", "Business description (required)")
	return cmd
}

func newAnalyzeMarketSizeCmd(g *GlobalOptions, jsonOutput *bool) *cobra.Command {
	var req analysis.MarketSizeRequest
	cmd := &cobra.Command{
		Use:   "market-size",
		Short: "Estimate TAM, SAM and SOM",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalysis(cmd, g, *jsonOutput,
				func(ctx context.Context, svc *analysis.Service) (*analysis.MarketSizeResponse, error) {
					return svc.MarketSize(ctx, req)
				},
				func(w io.Writer, resp *analysis.MarketSizeResponse) {
					fmt.Fprintln(w, resp.MarketSizeResult)
					printWarnings(w, resp.Warnings)
				})
		},
	}
	cmd.Flags().StringVar(&req.Industry, "industry", "", "Industry (required)")
	cmd.Flags().StringVar(&req.Region, "region", "", "Region (required)")
	cmd.Flags().StringVar(&req.TargetMarket, "target-market", "", "Target market (required)")
	cmd.Flags().StringVar(&req.CustomerSegment, "customer-segment", "", "Customer segment")
	cmd.Flags().Float64Var(&req.AverageSellingPrice, "asp", 0, "Average selling price in USD")
	return cmd
}

func newAnalyzeBusinessModelCmd(g *GlobalOptions, jsonOutput *bool) *cobra.Command {
	var req analysis.BusinessModelRequest
	cmd := &cobra.Command{
		Use:   "business-model",
		Short: "Recommend monetization models",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalysis(cmd, g, *jsonOutput,
				func(ctx context.Context, svc *analysis.Service) (*analysis.BusinessModelResponse, error) {
					return svc.BusinessModel(ctx, req)
				},
				func(w io.Writer, resp *analysis.BusinessModelResponse) {
					fmt.Fprintln(w, resp.BusinessModelResult)
					printWarnings(w, resp.Warnings)
				})
		},
	}
	cmd.Flags().StringVar(&req.Industry, "industry", "", "Industry (required)")
	cmd.Flags().StringVar(&req.TargetMarket, "target-market", "", "Target market (required)")
	cmd.Flags().StringVar(&req.BusinessDescription, "description", "", "Business description (required)")
	return cmd
}

func newAnalyzeCompetitorsCmd(g *GlobalOptions, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "competitors <competitor> [competitor] [competitor]",
		Short: "Compare up to three competitors (names or https URLs)",
		Args:  cobra.RangeArgs(1, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			var req analysis.CompetitorRequest
			targets := []*string{&req.Competitor1, &req.Competitor2, &req.Competitor3}
			for i, a := range args {
				*targets[i] = a
			}
			return runAnalysis(cmd, g, *jsonOutput,
				func(ctx context.Context, svc *analysis.Service) (*analysis.CompetitorResponse, error) {
					return svc.Competitors(ctx, req)
				},
				func(w io.Writer, resp *analysis.CompetitorResponse) {
					fmt.Fprintln(w, resp.CompetitorAnalysisResult)
					printWarnings(w, resp.Warnings)
				})
		},
	}
}

func newAnalyzeNewsCmd(g *GlobalOptions, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "news <sector>",
		Short: "Overview of recent news in a sector",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := analysis.NewsRequest{Sector: args[0]}
			return runAnalysis(cmd, g, *jsonOutput,
				func(ctx context.Context, svc *analysis.Service) (*analysis.NewsResponse, error) {
					return svc.News(ctx, req)
				},
				func(w io.Writer, resp *analysis.NewsResponse) {
					fmt.Fprintf(w, "Articles: %d (%s)\n\n%s\n", resp.NumArticles, resp.SentimentCounts, resp.NewsOverviewResult)
					printWarnings(w, resp.Warnings)
				})
		},
	}
}
