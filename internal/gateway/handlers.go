package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/psureshmagadi17/stock-signal-vision/internal/analyzer"
	"github.com/psureshmagadi17/stock-signal-vision/internal/logger"
	"github.com/psureshmagadi17/stock-signal-vision/internal/model"
	"github.com/psureshmagadi17/stock-signal-vision/internal/ratelimit"
)

var upgrader = websocket.Upgrader{
	CheckOrigin:       func(r *http.Request) bool { return true },
	EnableCompression: true,
}

// Analyzer is the pipeline surface the gateway consumes.
type Analyzer interface {
	Analyze(ctx context.Context, symbol string) (*model.AnalysisReport, error)
}

// KeyStore is the credential surface the gateway exposes for updates.
type KeyStore interface {
	Set(key string) error
	UsingFallback() bool
}

// Server holds the HTTP handlers for the analysis API.
type Server struct {
	analyzer Analyzer
	hub      *Hub
	governor *ratelimit.Governor
	keys     KeyStore
	log      *slog.Logger
}

// NewServer creates a Server. The hub may be nil to disable streaming.
func NewServer(a Analyzer, hub *Hub, gov *ratelimit.Governor, keys KeyStore, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{analyzer: a, hub: hub, governor: gov, keys: keys, log: log}
}

// Routes returns the mux with all API endpoints registered.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/analyze", s.handleAnalyze)
	mux.HandleFunc("/api/v1/health", s.handleHealth)
	mux.HandleFunc("/api/v1/limits", s.handleLimits)
	mux.HandleFunc("/api/v1/key", s.handleKey)
	mux.HandleFunc("/api/v1/stream", s.handleStream)
	return mux
}

// setCORS sets CORS headers for REST endpoints. The original UI is served
// from a different origin.
func setCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	setCORS(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "symbol is required"})
		return
	}

	ctx := logger.WithRequestID(r.Context(), fmt.Sprintf("%s-%d", symbol, time.Now().UnixNano()))
	report, err := s.analyzer.Analyze(ctx, symbol)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if s.hub != nil {
		s.hub.Broadcast(report)
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	setCORS(w)
	clients := 0
	if s.hub != nil {
		clients = s.hub.ClientCount()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"fallback_key": s.keys.UsingFallback(),
		"ws_clients":   clients,
	})
}

func (s *Server) handleLimits(w http.ResponseWriter, r *http.Request) {
	setCORS(w)
	minute, day := s.governor.Usage(analyzer.Endpoint)
	writeJSON(w, http.StatusOK, map[string]any{
		"minute_used":    minute,
		"day_used":       day,
		"retry_after_ms": s.governor.RetryAfter(analyzer.Endpoint).Milliseconds(),
	})
}

func (s *Server) handleKey(w http.ResponseWriter, r *http.Request) {
	setCORS(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var body struct {
		APIKey string `json:"api_key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if err := s.keys.Set(body.APIKey); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	s.log.Info("api key updated")
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "streaming disabled"})
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("ws upgrade failed", slog.String("error", err.Error()))
		return
	}
	s.hub.Register(conn)
}

// writeError maps the analyzer taxonomy onto HTTP statuses. Rate-limited
// responses carry a Retry-After header so well-behaved clients can wait.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	kind := analyzer.KindOf(err)

	status := http.StatusBadGateway
	switch kind {
	case analyzer.KindInvalidSymbol:
		status = http.StatusBadRequest
	case analyzer.KindRateLimited:
		status = http.StatusTooManyRequests
	case analyzer.KindNoData:
		status = http.StatusNotFound
	case analyzer.KindTimeout:
		status = http.StatusGatewayTimeout
	}

	body := map[string]any{
		"error": err.Error(),
		"kind":  string(kind),
	}
	var ae *analyzer.Error
	if errors.As(err, &ae) && ae.RetryAfter > 0 {
		body["retry_after_ms"] = ae.RetryAfter.Milliseconds()
		w.Header().Set("Retry-After", fmt.Sprintf("%d", int(ae.RetryAfter.Seconds()+1)))
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
