package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/khanglvm/cofounder-hub/internal/analysis"
	"github.com/khanglvm/cofounder-hub/internal/storage"
)

type fakeAnalyzer struct {
	lastMarket analysis.MarketSizeRequest
	err        error
}

func (f *fakeAnalyzer) SWOT(_ context.Context, req analysis.SWOTRequest) (*analysis.SWOTResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return &analysis.SWOTResponse{Industry: req.Industry, BusinessDescription: req.BusinessDescription,
		GeneratedAssumptions: "assumptions", SWOTResult: "swot"}, f.err
}

func (f *fakeAnalyzer) MarketSize(_ context.Context, req analysis.MarketSizeRequest) (*analysis.MarketSizeResponse, error) {
	f.lastMarket = req
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return &analysis.MarketSizeResponse{Industry: req.Industry, Region: req.Region,
		TargetMarket: req.TargetMarket, MarketSizeResult: "TAM: $10B"}, nil
}

func (f *fakeAnalyzer) BusinessModel(_ context.Context, req analysis.BusinessModelRequest) (*analysis.BusinessModelResponse, error) {
	return &analysis.BusinessModelResponse{BusinessModelResult: "subscription"}, f.err
}

func (f *fakeAnalyzer) Competitors(_ context.Context, req analysis.CompetitorRequest) (*analysis.CompetitorResponse, error) {
	return &analysis.CompetitorResponse{Competitor1: req.Competitor1, CompetitorAnalysisResult: "comparison"}, f.err
}

func (f *fakeAnalyzer) News(_ context.Context, req analysis.NewsRequest) (*analysis.NewsResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &analysis.NewsResponse{Sector: req.Sector, NumArticles: 3,
		SentimentCounts: analysis.SentimentCounts{Positive: 2, Negative: 1}}, nil
}

// slowAnalyzer blocks News until the call's context is done.
type slowAnalyzer struct {
	fakeAnalyzer
}

func (s *slowAnalyzer) News(ctx context.Context, _ analysis.NewsRequest) (*analysis.NewsResponse, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

type fakeHistory struct {
	records []storage.HistoryRecord
}

func (f *fakeHistory) List(_ context.Context, collection string) ([]storage.HistoryRecord, error) {
	var out []storage.HistoryRecord
	for _, r := range f.records {
		if r.Collection == collection {
			out = append(out, r)
		}
	}
	return out, nil
}

// roundTrip sends request lines and decodes every response line.
func roundTrip(t *testing.T, s *Server, lines ...string) []MCPResponse {
	t.Helper()
	in := strings.NewReader(strings.Join(lines, "\n") + "\n")
	var out bytes.Buffer
	if err := s.Run(context.Background(), in, &out); err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	var responses []MCPResponse
	dec := json.NewDecoder(&out)
	for dec.More() {
		var resp MCPResponse
		if err := dec.Decode(&resp); err != nil {
			t.Fatalf("invalid response line: %v", err)
		}
		responses = append(responses, resp)
	}
	return responses
}

// toolText extracts the text content and isError flag of a tools/call result.
func toolText(t *testing.T, resp MCPResponse) (string, bool) {
	t.Helper()
	if resp.Error != nil {
		t.Fatalf("unexpected JSON-RPC error: %+v", resp.Error)
	}
	data, _ := json.Marshal(resp.Result)
	var result struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		IsError bool `json:"isError"`
	}
	if err := json.Unmarshal(data, &result); err != nil || len(result.Content) != 1 {
		t.Fatalf("unexpected tool result: %s", data)
	}
	return result.Content[0].Text, result.IsError
}

func TestInitializeAndNotifications(t *testing.T) {
	s := NewServer(&fakeAnalyzer{}, nil, nil)

	responses := roundTrip(t, s,
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","id":"p","method":"ping"}`,
	)
	if len(responses) != 2 {
		t.Fatalf("Expected 2 responses (notification unanswered), got %d", len(responses))
	}
	if string(responses[0].ID) != "1" || string(responses[1].ID) != `"p"` {
		t.Errorf("ids not echoed: %s, %s", responses[0].ID, responses[1].ID)
	}

	data, _ := json.Marshal(responses[0].Result)
	if !strings.Contains(string(data), protocolVersion) || !strings.Contains(string(data), `"cofounder"`) {
		t.Errorf("unexpected initialize result: %s", data)
	}
}

func TestToolsList(t *testing.T) {
	tests := []struct {
		name    string
		history History
		want    []string
	}{
		{"without history", nil, toolOrder[:5]},
		{"with history", &fakeHistory{}, toolOrder},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewServer(&fakeAnalyzer{}, tt.history, nil)
			responses := roundTrip(t, s, `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)

			data, _ := json.Marshal(responses[0].Result)
			var result struct {
				Tools []struct {
					Name        string         `json:"name"`
					InputSchema map[string]any `json:"inputSchema"`
				} `json:"tools"`
			}
			if err := json.Unmarshal(data, &result); err != nil {
				t.Fatalf("invalid tools/list result: %v", err)
			}
			if len(result.Tools) != len(tt.want) {
				t.Fatalf("Expected %d tools, got %d", len(tt.want), len(result.Tools))
			}
			for i, name := range tt.want {
				if result.Tools[i].Name != name {
					t.Errorf("tool %d = %q, want %q", i, result.Tools[i].Name, name)
				}
				if result.Tools[i].InputSchema["type"] != "object" {
					t.Errorf("tool %q has no object schema", name)
				}
			}
		})
	}
}

func TestToolsCallMarketSize(t *testing.T) {
	f := &fakeAnalyzer{}
	s := NewServer(f, nil, nil)

	responses := roundTrip(t, s, `{"jsonrpc":"2.0","id":7,"method":"tools/call","params":{"name":"market_size",`+
		`"arguments":{"industry":"EdTech","region":"Vietnam","target_market":"High schools","average_selling_price":49.5}}}`)

	text, isError := toolText(t, responses[0])
	if isError {
		t.Fatalf("unexpected tool error: %s", text)
	}
	if f.lastMarket.AverageSellingPrice != 49.5 || f.lastMarket.Region != "Vietnam" {
		t.Errorf("arguments not decoded: %+v", f.lastMarket)
	}

	var resp analysis.MarketSizeResponse
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		t.Fatalf("tool text is not the JSON response: %v", err)
	}
	if resp.MarketSizeResult != "TAM: $10B" {
		t.Errorf("unexpected result: %+v", resp)
	}
}

func TestToolsCallErrors(t *testing.T) {
	s := NewServer(&fakeAnalyzer{err: errors.New("retries exhausted")}, &fakeHistory{}, nil)

	responses := roundTrip(t, s,
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"market_size","arguments":{"industry":"EdTech"}}}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"news_overview","arguments":{"sector":"fintech"}}}`,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"hub_execute","arguments":{}}}`,
		`{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"name":"history_list","arguments":{"collection":"nope"}}}`,
		`{"jsonrpc":"2.0","id":5,"method":"resources/list"}`,
		`not json`,
	)
	if len(responses) != 6 {
		t.Fatalf("Expected 6 responses, got %d", len(responses))
	}

	text, isError := toolText(t, responses[0])
	if !isError || !strings.Contains(text, "region") {
		t.Errorf("validation failure should be a tool error naming the field, got %q", text)
	}

	text, isError = toolText(t, responses[1])
	if !isError || !strings.Contains(text, "retries exhausted") {
		t.Errorf("upstream failure should be a tool error, got %q", text)
	}

	if responses[2].Error == nil || responses[2].Error.Code != codeInvalidParams {
		t.Errorf("unknown tool should be invalid params, got %+v", responses[2].Error)
	}

	text, isError = toolText(t, responses[3])
	if !isError || !strings.Contains(text, "unknown collection") {
		t.Errorf("unknown collection should be a tool error, got %q", text)
	}

	if responses[4].Error == nil || responses[4].Error.Code != codeMethodNotFound {
		t.Errorf("unknown method should be method not found, got %+v", responses[4].Error)
	}
	if responses[5].Error == nil || responses[5].Error.Code != codeParseError {
		t.Errorf("garbage should be a parse error, got %+v", responses[5].Error)
	}
}

func TestHistoryList(t *testing.T) {
	h := &fakeHistory{records: []storage.HistoryRecord{
		{Collection: "news_overview", ID: "news_overview-0", InputSummary: "fintech"},
		{Collection: "swot_analysis", ID: "swot_analysis-0"},
	}}
	s := NewServer(&fakeAnalyzer{}, h, nil)

	responses := roundTrip(t, s,
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"history_list","arguments":{"collection":"news_overview"}}}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"history_list","arguments":{"collection":"business_model_recommendation"}}}`,
	)

	text, _ := toolText(t, responses[0])
	var records []storage.HistoryRecord
	if err := json.Unmarshal([]byte(text), &records); err != nil || len(records) != 1 || records[0].ID != "news_overview-0" {
		t.Errorf("unexpected records: %v %s", err, text)
	}

	text, _ = toolText(t, responses[1])
	if strings.TrimSpace(text) != "[]" {
		t.Errorf("empty collection should list as [], got %q", text)
	}
}

func TestRunStopsOnCanceledContext(t *testing.T) {
	s := NewServer(&fakeAnalyzer{}, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	err := s.Run(ctx, strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"ping"}`+"\n"), &out)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if out.Len() != 0 {
		t.Errorf("Expected no output, got %q", out.String())
	}
}

func TestToolsCallRequestTimeout(t *testing.T) {
	s := NewServer(&slowAnalyzer{}, nil, nil, WithRequestTimeout(20*time.Millisecond))

	start := time.Now()
	responses := roundTrip(t, s,
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"news_overview","arguments":{"sector":"fintech"}}}`,
	)
	if len(responses) != 1 {
		t.Fatalf("got %d responses, want 1", len(responses))
	}
	text, isError := toolText(t, responses[0])
	if !isError {
		t.Error("expected isError for a timed out call")
	}
	if !strings.Contains(text, "deadline exceeded") {
		t.Errorf("text = %q, want deadline exceeded", text)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("call took %v, timeout not applied", elapsed)
	}
}
