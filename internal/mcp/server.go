/*
Package mcp implements an MCP server that exposes the analyses as tools.

The server uses stdio transport (newline-delimited JSON-RPC 2.0) and exposes:
  - swot_analysis: SWOT analysis with generated assumptions
  - market_size: TAM/SAM/SOM estimate
  - business_model: monetization model recommendation
  - competitor_analysis: comparison of up to three competitors
  - news_overview: sector news overview with sentiment counts
  - history_list: stored analyses of one collection
*/
package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/khanglvm/cofounder-hub/internal/analysis"
	"github.com/khanglvm/cofounder-hub/internal/storage"
	"github.com/khanglvm/cofounder-hub/internal/version"
)

const protocolVersion = "2024-11-05"

// JSON-RPC error codes.
const (
	codeParseError     = -32700
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
)

// maxLineSize bounds one request line.
const maxLineSize = 4 << 20

// Analyzer runs the analyses.
type Analyzer interface {
	SWOT(ctx context.Context, req analysis.SWOTRequest) (*analysis.SWOTResponse, error)
	MarketSize(ctx context.Context, req analysis.MarketSizeRequest) (*analysis.MarketSizeResponse, error)
	BusinessModel(ctx context.Context, req analysis.BusinessModelRequest) (*analysis.BusinessModelResponse, error)
	Competitors(ctx context.Context, req analysis.CompetitorRequest) (*analysis.CompetitorResponse, error)
	News(ctx context.Context, req analysis.NewsRequest) (*analysis.NewsResponse, error)
}

// History lists stored analyses.
type History interface {
	List(ctx context.Context, collection string) ([]storage.HistoryRecord, error)
}

// Server is the cofounder MCP server.
type Server struct {
	analyzer Analyzer
	history  History
	logger   *slog.Logger
	timeout  time.Duration
	tools    map[string]tool
}

// Option configures a Server.
type Option func(*Server)

// WithRequestTimeout bounds each tool call. Zero means no bound.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) { s.timeout = d }
}

// tool is one callable MCP tool.
type tool struct {
	def  map[string]any
	call func(ctx context.Context, args json.RawMessage) (any, error)
}

// NewServer creates an MCP server over analyzer. history may be nil, in
// which case history_list is not offered.
func NewServer(analyzer Analyzer, history History, logger *slog.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{analyzer: analyzer, history: history, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	s.tools = s.buildTools()
	return s
}

// Run serves requests from r until r is exhausted or ctx is done. Responses
// are written to w, one per line.
func (s *Server) Run(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	enc := json.NewEncoder(w)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}

		resp := s.handleRequest(ctx, line)
		if resp == nil {
			continue
		}
		if err := enc.Encode(resp); err != nil {
			return fmt.Errorf("write response: %w", err)
		}
	}

	return scanner.Err()
}

// MCPRequest represents an incoming MCP JSON-RPC request.
type MCPRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// MCPResponse represents an outgoing MCP JSON-RPC response.
type MCPResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *MCPError       `json:"error,omitempty"`
}

// MCPError represents an MCP error.
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// handleRequest processes one request line. Notifications get no response.
func (s *Server) handleRequest(ctx context.Context, data []byte) *MCPResponse {
	var req MCPRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      json.RawMessage("null"),
			Error:   &MCPError{Code: codeParseError, Message: fmt.Sprintf("invalid JSON-RPC request: %v", err)},
		}
	}
	if len(req.ID) == 0 {
		s.logger.Debug("notification", "method", req.Method)
		return nil
	}

	switch req.Method {
	case "initialize":
		return s.result(&req, map[string]any{
			"protocolVersion": protocolVersion,
			"capabilities": map[string]any{
				"tools": map[string]any{},
			},
			"serverInfo": map[string]any{
				"name":    "cofounder",
				"version": version.Version,
			},
		})
	case "ping":
		return s.result(&req, map[string]any{})
	case "tools/list":
		return s.handleToolsList(&req)
	case "tools/call":
		return s.handleToolsCall(ctx, &req)
	default:
		return s.fail(&req, codeMethodNotFound, "Method not found")
	}
}

func (s *Server) result(req *MCPRequest, result any) *MCPResponse {
	return &MCPResponse{JSONRPC: "2.0", ID: req.ID, Result: result}
}

func (s *Server) fail(req *MCPRequest, code int, msg string) *MCPResponse {
	return &MCPResponse{JSONRPC: "2.0", ID: req.ID, Error: &MCPError{Code: code, Message: msg}}
}

// handleToolsList returns the tool definitions in a stable order.
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	defs := make([]map[string]any, 0, len(s.tools))
	for _, name := range toolOrder {
		if t, ok := s.tools[name]; ok {
			defs = append(defs, t.def)
		}
	}
	return s.result(req, map[string]any{"tools": defs})
}

// handleToolsCall runs a tool. Analysis failures are reported as tool
// results with isError set so the client model can read them.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.fail(req, codeInvalidParams, fmt.Sprintf("invalid params: %v", err))
	}

	t, ok := s.tools[params.Name]
	if !ok {
		return s.fail(req, codeInvalidParams, fmt.Sprintf("Unknown tool: %s", params.Name))
	}
	if len(params.Arguments) == 0 {
		params.Arguments = json.RawMessage("{}")
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	out, err := t.call(ctx, params.Arguments)
	if err != nil {
		s.logger.Warn("tool call failed", "tool", params.Name, "error", err)
		return s.result(req, textContent(err.Error(), true))
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return s.result(req, textContent(err.Error(), true))
	}
	return s.result(req, textContent(string(data), false))
}

func textContent(text string, isError bool) map[string]any {
	result := map[string]any{
		"content": []map[string]any{
			{"type": "text", "text": text},
		},
	}
	if isError {
		result["isError"] = true
	}
	return result
}

// decodeArgs unmarshals tool arguments into a request struct.
func decodeArgs[Req any](args json.RawMessage) (Req, error) {
	var req Req
	if err := json.Unmarshal(args, &req); err != nil {
		return req, fmt.Errorf("invalid arguments: %w", err)
	}
	return req, nil
}

// bind adapts an analysis method into a tool call.
func bind[Req, Resp any](fn func(context.Context, Req) (Resp, error)) func(context.Context, json.RawMessage) (any, error) {
	return func(ctx context.Context, args json.RawMessage) (any, error) {
		req, err := decodeArgs[Req](args)
		if err != nil {
			return nil, err
		}
		return fn(ctx, req)
	}
}
