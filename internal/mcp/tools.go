package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/khanglvm/cofounder-hub/internal/analysis"
	"github.com/khanglvm/cofounder-hub/internal/storage"
)

// ErrUnknownCollection is returned by history_list for an unknown collection.
var ErrUnknownCollection = errors.New("unknown collection")

var toolOrder = []string{
	"swot_analysis",
	"market_size",
	"business_model",
	"competitor_analysis",
	"news_overview",
	"history_list",
}

func stringProp(desc string) map[string]any {
	return map[string]any{"type": "string", "description": desc}
}

func schema(props map[string]any, required ...string) map[string]any {
	s := map[string]any{"type": "object", "properties": props}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

func (s *Server) buildTools() map[string]tool {
	tools := map[string]tool{
		"swot_analysis": {
			def: map[string]any{
				"name": "swot_analysis",
				"description": `SWOT analysis of a business idea.

First generates market assumptions for the idea, then a SWOT analysis
(strengths, weaknesses, opportunities, threats) that builds on them.`,
				"inputSchema": schema(map[string]any{
					"business_description": stringProp("What the business does"),
					"industry":             stringProp("Industry, e.g. 'Food delivery'"),
				}, "business_description", "industry"),
			},
			call: bind(s.analyzer.SWOT),
		},
		"market_size": {
			def: map[string]any{
				"name":        "market_size",
				"description": "Estimate TAM, SAM and SOM for a target market in a region.",
				"inputSchema": schema(map[string]any{
					"industry":         stringProp("Industry"),
					"region":           stringProp("Geographic region, e.g. 'Vietnam'"),
					"target_market":    stringProp("Target market"),
					"customer_segment": stringProp("Customer segment (optional)"),
					"average_selling_price": map[string]any{
						"type":        "number",
						"description": "Average selling price in USD (optional)",
					},
				}, "industry", "region", "target_market"),
			},
			call: bind(s.analyzer.MarketSize),
		},
		"business_model": {
			def: map[string]any{
				"name":        "business_model",
				"description": "Recommend monetization models for a business in a target market.",
				"inputSchema": schema(map[string]any{
					"industry":             stringProp("Industry"),
					"target_market":        stringProp("Target market"),
					"business_description": stringProp("What the business does"),
				}, "industry", "target_market", "business_description"),
			},
			call: bind(s.analyzer.BusinessModel),
		},
		"competitor_analysis": {
			def: map[string]any{
				"name": "competitor_analysis",
				"description": `Compare up to three competitors.

Each competitor is a company name or an https URL. Names are looked up with
web search; URLs are fetched and their main content is used as evidence.`,
				"inputSchema": schema(map[string]any{
					"competitor_1": stringProp("First competitor (name or URL)"),
					"competitor_2": stringProp("Second competitor (optional)"),
					"competitor_3": stringProp("Third competitor (optional)"),
				}, "competitor_1"),
			},
			call: bind(s.analyzer.Competitors),
		},
		"news_overview": {
			def: map[string]any{
				"name":        "news_overview",
				"description": "Overview of recent news in a sector with Positive/Negative/Neutral sentiment counts.",
				"inputSchema": schema(map[string]any{
					"sector": stringProp("Sector, e.g. 'fintech'"),
				}, "sector"),
			},
			call: bind(s.analyzer.News),
		},
	}

	if s.history != nil {
		tools["history_list"] = tool{
			def: map[string]any{
				"name":        "history_list",
				"description": "List stored analyses of one collection, oldest first.",
				"inputSchema": schema(map[string]any{
					"collection": map[string]any{
						"type":        "string",
						"description": "Analysis collection",
						"enum":        analysis.Collections,
					},
				}, "collection"),
			},
			call: s.historyList,
		}
	}

	return tools
}

func (s *Server) historyList(ctx context.Context, args json.RawMessage) (any, error) {
	var params struct {
		Collection string `json:"collection"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	if !analysis.IsCollection(params.Collection) {
		return nil, fmt.Errorf("%w %q (one of: %s)", ErrUnknownCollection,
			params.Collection, strings.Join(analysis.Collections, ", "))
	}

	records, err := s.history.List(ctx, params.Collection)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []storage.HistoryRecord{}
	}
	return records, nil
}
