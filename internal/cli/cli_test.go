package cli

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/khanglvm/cofounder-hub/internal/config"
	"github.com/khanglvm/cofounder-hub/internal/storage"
)

// newCompletionServer mocks an OpenAI-compatible chat completions endpoint.
func newCompletionServer(t *testing.T, reply string) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": reply}, "finish_reason": "stop"},
			},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

// writeTestConfig saves a config pointing at baseURL with history in a temp dir.
func writeTestConfig(t *testing.T, baseURL string) (string, *config.Config) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.NewConfig()
	cfg.LLM.BaseURL = baseURL
	cfg.LLM.APIKey = "test-key"
	cfg.LLM.Retry.MaxAttempts = 1
	cfg.Embedding.Enabled = false
	cfg.Storage.DataDir = filepath.Join(dir, "data")
	cfg.Logging.Level = "error"

	path := filepath.Join(dir, "config.yaml")
	if err := config.Save(cfg, path); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	return path, cfg
}

// runCLI executes the root command with args and returns stdout.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	cmd.SetArgs(args)

	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(new(bytes.Buffer))

	err := cmd.Execute()
	return out.String(), err
}

func TestRootCommands(t *testing.T) {
	cmd := NewRootCmd()

	want := []string{"serve", "analyze", "mcp", "history", "benchmark", "init", "verify", "version"}
	for _, name := range want {
		found := false
		for _, c := range cmd.Commands() {
			if c.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("Command %q not registered", name)
		}
	}

	for _, flag := range []string{"config", "log-level"} {
		if cmd.PersistentFlags().Lookup(flag) == nil {
			t.Errorf("Persistent flag %q not registered", flag)
		}
	}
}

func TestServeCommandFlags(t *testing.T) {
	cmd := NewServeCmd(&GlobalOptions{})
	if cmd.Flags().Lookup("addr") == nil {
		t.Error("Flag 'addr' not registered")
	}
	for _, route := range []string{"/swot_analysis/analyze/", "/news_overview/overview/", "/metrics"} {
		if !strings.Contains(cmd.Long, route) {
			t.Errorf("serve help missing %q", route)
		}
	}
}

func TestAnalyzeMarketSizeJSON(t *testing.T) {
	srv, calls := newCompletionServer(t, "TAM: $10B\nSAM: $2B\nSOM: $100M")
	path, _ := writeTestConfig(t, srv.URL)

	out, err := runCLI(t, "--config", path, "analyze", "market-size",
		"--industry", "EdTech", "--region", "Vietnam", "--target-market", "High schools", "--json")
	if err != nil {
		t.Fatalf("analyze market-size failed: %v", err)
	}

	var resp struct {
		Industry         string `json:"industry"`
		Region           string `json:"region"`
		MarketSizeResult string `json:"market_size_result"`
	}
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if resp.Region != "Vietnam" || !strings.Contains(resp.MarketSizeResult, "TAM: $10B") {
		t.Errorf("unexpected response: %+v", resp)
	}
	if n := atomic.LoadInt32(calls); n != 1 {
		t.Errorf("Expected 1 generation call, got %d", n)
	}

	// The result is persisted and visible to history.
	out, err = runCLI(t, "--config", path, "history", "list", "market_size_estimation", "--json")
	if err != nil {
		t.Fatalf("history list failed: %v", err)
	}
	var records []storage.HistoryRecord
	if err := json.Unmarshal([]byte(out), &records); err != nil {
		t.Fatalf("history output is not JSON: %v", err)
	}
	if len(records) != 1 || records[0].ID != "market_size_estimation-0" {
		t.Errorf("unexpected history: %+v", records)
	}
}

func TestAnalyzeSWOTText(t *testing.T) {
	srv, calls := newCompletionServer(t, "generated text")
	path, _ := writeTestConfig(t, srv.URL)

	out, err := runCLI(t, "--config", path, "analyze", "swot",
		"--industry", "Food delivery", "--description", "Meal kits for students")
	if err != nil {
		t.Fatalf("analyze swot failed: %v", err)
	}
	if !strings.Contains(out, "Assumptions") || !strings.Contains(out, "SWOT Analysis") {
		t.Errorf("unexpected output:\n%s", out)
	}
	if n := atomic.LoadInt32(calls); n != 2 {
		t.Errorf("Expected 2 generation calls, got %d", n)
	}
}

func TestAnalyzeMissingFields(t *testing.T) {
	srv, calls := newCompletionServer(t, "unused")
	path, _ := writeTestConfig(t, srv.URL)

	_, err := runCLI(t, "--config", path, "analyze", "market-size", "--industry", "EdTech")
	if err == nil || !strings.Contains(err.Error(), "missing required fields") {
		t.Fatalf("Expected validation error, got %v", err)
	}
	if !strings.Contains(err.Error(), "region") || !strings.Contains(err.Error(), "target_market") {
		t.Errorf("error should name the missing fields: %v", err)
	}
	if n := atomic.LoadInt32(calls); n != 0 {
		t.Errorf("Expected no generation calls, got %d", n)
	}
}

func TestAnalyzeArgs(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"competitors without names", []string{"analyze", "competitors"}},
		{"too many competitors", []string{"analyze", "competitors", "a", "b", "c", "d"}},
		{"news without sector", []string{"analyze", "news"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := runCLI(t, tt.args...); err == nil {
				t.Error("Expected argument error")
			}
		})
	}
}

func TestHistoryCommands(t *testing.T) {
	srv, _ := newCompletionServer(t, "unused")
	path, cfg := writeTestConfig(t, srv.URL)

	st := storage.NewStorage(cfg.DBPath(), nil)
	if err := st.Init(); err != nil {
		t.Fatalf("Init() failed: %v", err)
	}
	ctx := t.Context()
	for _, in := range []string{"fintech", "edtech"} {
		if _, err := st.Append(ctx, "news_overview", in, "overview of "+in); err != nil {
			t.Fatalf("Append() failed: %v", err)
		}
	}
	st.Close()

	out, err := runCLI(t, "--config", path, "history")
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if !strings.Contains(out, "news_overview") || !strings.Contains(out, "2") {
		t.Errorf("summary missing counts:\n%s", out)
	}

	out, err = runCLI(t, "--config", path, "history", "list", "news_overview")
	if err != nil {
		t.Fatalf("history list failed: %v", err)
	}
	if !strings.Contains(out, "news_overview-1") || !strings.Contains(out, "overview of edtech") {
		t.Errorf("list output incomplete:\n%s", out)
	}

	out, err = runCLI(t, "--config", path, "history", "export", "news_overview")
	if err != nil {
		t.Fatalf("history export failed: %v", err)
	}
	if lines := strings.Split(strings.TrimSpace(out), "\n"); len(lines) != 2 {
		t.Errorf("Expected 2 JSONL lines, got %d", len(lines))
	}

	out, err = runCLI(t, "--config", path, "history", "clear", "news_overview")
	if err != nil {
		t.Fatalf("history clear failed: %v", err)
	}
	if !strings.Contains(out, "Cleared 2") {
		t.Errorf("unexpected clear output: %q", out)
	}

	out, err = runCLI(t, "--config", path, "history", "list", "news_overview")
	if err != nil {
		t.Fatalf("history list failed: %v", err)
	}
	if !strings.Contains(out, "No stored analyses") {
		t.Errorf("Expected empty history, got:\n%s", out)
	}

	if _, err := runCLI(t, "--config", path, "history", "list", "unknown"); err == nil {
		t.Error("Expected error for unknown collection")
	}
}

func TestInitCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cofounder", "config.yaml")

	out, err := runCLI(t, "--config", path, "init")
	if err != nil {
		t.Fatalf("init failed: %v", err)
	}
	if !strings.Contains(out, path) {
		t.Errorf("init output should name the path: %q", out)
	}

	cfg, err := config.LoadFrom(path)
	if err != nil {
		t.Fatalf("written config does not load: %v", err)
	}
	if cfg.Server.Addr != ":8000" {
		t.Errorf("Expected default addr, got %q", cfg.Server.Addr)
	}

	if _, err := runCLI(t, "--config", path, "init"); err == nil {
		t.Error("init should refuse to overwrite without --force")
	}
	if _, err := runCLI(t, "--config", path, "init", "--force"); err != nil {
		t.Errorf("init --force failed: %v", err)
	}
}

func TestVerifyCommand(t *testing.T) {
	srv, _ := newCompletionServer(t, "unused")
	path, _ := writeTestConfig(t, srv.URL)

	out, err := runCLI(t, "--config", path, "verify")
	if err != nil {
		t.Fatalf("verify failed: %v\n%s", err, out)
	}
	for _, want := range []string{"provider openai", "embeddings disabled", "swot_analysis"} {
		if !strings.Contains(out, want) {
			t.Errorf("verify output missing %q:\n%s", want, out)
		}
	}
}

func TestVerifyInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	bad := "llm:\n  provider: watson\n  model: x\n"
	if err := os.WriteFile(path, []byte(bad), 0600); err != nil {
		t.Fatal(err)
	}

	out, err := runCLI(t, "--config", path, "verify")
	if err == nil {
		t.Fatal("Expected verify to fail")
	}
	if !strings.Contains(out, "llm.provider") {
		t.Errorf("verify should name the invalid field:\n%s", out)
	}
}

func TestBenchmarkCommand(t *testing.T) {
	srv, _ := newCompletionServer(t, "unused")
	path, cfg := writeTestConfig(t, srv.URL)

	st := storage.NewStorage(cfg.DBPath(), nil)
	if err := st.Init(); err != nil {
		t.Fatalf("Init() failed: %v", err)
	}
	for _, in := range []string{"food delivery meal kits", "edtech tutoring app", "fintech lending"} {
		if _, err := st.Append(t.Context(), "swot_analysis", in, strings.Repeat("analysis of "+in+" ", 50)); err != nil {
			t.Fatalf("Append() failed: %v", err)
		}
	}
	st.Close()

	out, err := runCLI(t, "--config", path, "benchmark", "--json", "-n", "1")
	if err != nil {
		t.Fatalf("benchmark failed: %v", err)
	}

	var result struct {
		Collections []struct {
			Collection    string `json:"collection"`
			Records       int    `json:"records"`
			HistoryTokens int    `json:"historyTokens"`
			ContextTokens int    `json:"contextTokens"`
		} `json:"collections"`
	}
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("benchmark output is not JSON: %v\n%s", err, out)
	}
	if len(result.Collections) != 1 || result.Collections[0].Records != 3 {
		t.Fatalf("unexpected result: %+v", result)
	}
	c := result.Collections[0]
	if c.ContextTokens == 0 || c.ContextTokens >= c.HistoryTokens {
		t.Errorf("Expected retrieved context smaller than history, got %d vs %d", c.ContextTokens, c.HistoryTokens)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := runCLI(t, "version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.HasPrefix(out, "cofounder ") {
		t.Errorf("unexpected version output: %q", out)
	}
}

func TestWriteHistory(t *testing.T) {
	records := []storage.HistoryRecord{
		{Collection: "swot_analysis", ID: "swot_analysis-1", Seq: 1, InputSummary: "a", ResponseSummary: "b"},
		{Collection: "swot_analysis", ID: "swot_analysis-2", Seq: 2, InputSummary: "c", ResponseSummary: "d"},
	}

	var jsonl bytes.Buffer
	if err := writeHistory(&jsonl, records, "jsonl"); err != nil {
		t.Fatalf("writeHistory(jsonl) failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(jsonl.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected 2 lines, got %d", len(lines))
	}
	for i, line := range lines {
		var rec storage.HistoryRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			t.Errorf("Line %d is not valid JSON: %v", i, err)
		}
	}

	var arr bytes.Buffer
	if err := writeHistory(&arr, nil, "json"); err != nil {
		t.Fatalf("writeHistory(json) failed: %v", err)
	}
	if strings.TrimSpace(arr.String()) != "[]" {
		t.Errorf("Expected empty JSON array, got %q", arr.String())
	}
}

func TestExportHistoryToFile(t *testing.T) {
	output := filepath.Join(t.TempDir(), "export.json")
	records := []storage.HistoryRecord{{Collection: "news_overview", ID: "news_overview-1", Seq: 1}}

	if err := exportHistory(records, output, "json"); err != nil {
		t.Fatalf("exportHistory failed: %v", err)
	}

	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("Failed to read output file: %v", err)
	}
	var got []storage.HistoryRecord
	if err := json.Unmarshal(data, &got); err != nil || len(got) != 1 {
		t.Errorf("Output is not the expected JSON array: %v %s", err, data)
	}
	if _, err := os.Stat(output + ".lock"); !os.IsNotExist(err) {
		t.Error("Lock file was not removed after export")
	}
}

func TestAcquireFileLock(t *testing.T) {
	testFile := filepath.Join(t.TempDir(), "test-lock.jsonl")

	lockFile, err := acquireFileLock(testFile)
	if err != nil {
		t.Fatalf("Failed to acquire lock: %v", err)
	}

	if _, err := os.Stat(testFile + ".lock"); os.IsNotExist(err) {
		t.Error("Lock file was not created")
	}

	// Second acquisition should fail while held
	if _, err := acquireFileLock(testFile); err == nil {
		t.Error("Expected lock acquisition to fail, but it succeeded")
	}

	if err := releaseFileLock(lockFile); err != nil {
		t.Errorf("Failed to release lock: %v", err)
	}

	lockFile2, err := acquireFileLock(testFile)
	if err != nil {
		t.Errorf("Failed to re-acquire lock after release: %v", err)
	}
	releaseFileLock(lockFile2)
}

func TestNewLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(config.LoggingConfig{Level: "warn", Format: "json"}, &buf)

	logger.Info("hidden")
	logger.Warn("shown", "k", "v")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info record should be filtered at warn level")
	}
	if !strings.Contains(out, `"msg":"shown"`) || !strings.Contains(out, `"k":"v"`) {
		t.Errorf("expected JSON warn record, got %q", out)
	}
}

func TestPreview(t *testing.T) {
	if got := preview("a  b\n c", 10); got != "a b c" {
		t.Errorf("preview() = %q", got)
	}
	if got := preview(strings.Repeat("x", 20), 5); got != "xxxxx..." {
		t.Errorf("preview() = %q", got)
	}
}
