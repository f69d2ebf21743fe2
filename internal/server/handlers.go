package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/khanglvm/cofounder-hub/internal/analysis"
	"github.com/khanglvm/cofounder-hub/internal/llm"
)

type errorResponse struct {
	Error  string   `json:"error"`
	Fields []string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// postOnly rejects every method but POST.
func postOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			writeJSON(w, http.StatusMethodNotAllowed, map[string]string{
				"message": "This endpoint accepts POST requests only",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// analyze adapts an analysis operation to an HTTP handler: decode the
// request, run it under the request timeout and encode the response.
func analyze[Req, Resp any](s *Server, run func(context.Context, Req) (Resp, error)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req Req
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.maxBodyBytes))
		if err := dec.Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON: " + err.Error()})
			return
		}
		if err := dec.Decode(&struct{}{}); err != io.EOF {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON: unexpected data after request body"})
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
		defer cancel()

		resp, err := run(ctx, req)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	})
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *analysis.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: verr.Error(), Fields: verr.Fields})
	case errors.Is(err, context.DeadlineExceeded):
		s.logger.Warn("analysis timed out", "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusGatewayTimeout, errorResponse{Error: "analysis timed out"})
	default:
		s.logger.Error("analysis failed", "path", r.URL.Path, "kind", llm.KindOf(err).String(), "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
}

type collectionsResponse struct {
	Collections []collectionStat `json:"collections"`
}

type collectionStat struct {
	Collection string `json:"collection"`
	Records    int    `json:"records"`
}

func (s *Server) handleCollections(w http.ResponseWriter, r *http.Request) {
	stats, err := s.history.Collections(r.Context())
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
		return
	}
	counts := make(map[string]int, len(stats))
	for _, st := range stats {
		counts[st.Collection] = st.Records
	}

	resp := collectionsResponse{Collections: make([]collectionStat, 0, len(analysis.Collections))}
	for _, c := range analysis.Collections {
		resp.Collections = append(resp.Collections, collectionStat{Collection: c, Records: counts[c]})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) collection(w http.ResponseWriter, r *http.Request) (string, bool) {
	name := r.PathValue("collection")
	if !analysis.IsCollection(name) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: fmt.Sprintf("unknown collection %q", name)})
		return "", false
	}
	return name, true
}

func (s *Server) handleHistoryList(w http.ResponseWriter, r *http.Request) {
	name, ok := s.collection(w, r)
	if !ok {
		return
	}
	records, err := s.history.List(r.Context(), name)
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"collection": name,
		"records":    records,
	})
}

func (s *Server) handleHistoryClear(w http.ResponseWriter, r *http.Request) {
	name, ok := s.collection(w, r)
	if !ok {
		return
	}
	if err := s.history.Clear(r.Context(), name); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
		return
	}
	if s.forget != nil {
		if err := s.forget(name); err != nil {
			s.logger.Warn("failed to drop collection from index", "collection", name, "error", err)
		}
	}
	s.logger.Info("history cleared", "collection", name)
	writeJSON(w, http.StatusOK, map[string]any{"collection": name, "cleared": true})
}

// statusRecorder captures the response status for logging and metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument tags the request with an id, logs it and counts it.
func (s *Server) instrument(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		s.logger.Info("request",
			"request_id", id,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start))
		if s.metrics != nil {
			s.metrics.HTTPRequest(route, rec.status)
		}
	})
}
