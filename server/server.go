// Package server exposes the chat runtime over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"mysoft-chat/llm"
	"mysoft-chat/llm/agent"

	"golang.org/x/time/rate"
)

const (
	maxBodySize = 1 << 20 // 1MB
	// recentHistoryTurns is how many turns a chat response echoes back
	recentHistoryTurns = 3
)

// ChatService is the part of agent.Runtime the server calls
type ChatService interface {
	Chat(ctx context.Context, query string) (*agent.Reply, error)
	Reindex(ctx context.Context) *agent.ReindexResult
	History(ctx context.Context, n int) ([]llm.ConversationTurn, error)
	ClearHistory(ctx context.Context) error
	IndexCount(ctx context.Context) (int, error)
}

var _ ChatService = (*agent.Runtime)(nil)

// Config configures the HTTP server
type Config struct {
	Addr      string
	RateLimit float64 // requests per second on the chat and reindex routes; 0 disables
	RateBurst int
}

// ChatRequest is the body of POST /api/chat
type ChatRequest struct {
	Query string `json:"query"`
}

// ChatResponse is returned by POST /api/chat
type ChatResponse struct {
	Response      string                 `json:"response"`
	RecentHistory []llm.ConversationTurn `json:"recent_history"`
	Confidence    float64                `json:"confidence"`
	Path          agent.ReplyPath        `json:"path"`
	Sources       []llm.RetrievalResult  `json:"sources,omitempty"`
}

// HealthResponse is returned by GET /healthz
type HealthResponse struct {
	Status    string `json:"status"`
	Documents int    `json:"documents"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Server serves the chat API
type Server struct {
	svc     ChatService
	config  Config
	limiter *rate.Limiter
	logger  *slog.Logger
	server  *http.Server
}

// New creates a server for svc
func New(svc ChatService, cfg Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8000"
	}

	s := &Server{
		svc:    svc,
		config: cfg,
		logger: logger,
	}
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return s
}

// Handler returns the routing table
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/chat", s.limited(s.handleChat))
	mux.HandleFunc("POST /api/reindex", s.limited(s.handleReindex))
	mux.HandleFunc("POST /api/refresh-data", s.limited(s.handleReindex))
	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.HandleFunc("DELETE /api/history", s.handleClearHistory)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return s.logRequests(mux)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              s.config.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      150 * time.Second, // allow time for LLM response
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("server shutdown", "error", err)
		}
	}()

	s.logger.Info("HTTP server started", "addr", s.config.Addr)
	if err := s.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleChat(rw http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		writeError(rw, http.StatusBadRequest, "bad request")
		return
	}

	var req ChatRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(rw, http.StatusBadRequest, "invalid JSON")
		return
	}

	reply, err := s.svc.Chat(r.Context(), req.Query)
	if errors.Is(err, agent.ErrEmptyQuery) {
		writeError(rw, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		s.logger.Error("chat failed", "error", err)
		writeError(rw, http.StatusInternalServerError, err.Error())
		return
	}

	history, err := s.svc.History(r.Context(), recentHistoryTurns)
	if err != nil {
		s.logger.Warn("failed to load recent history", "error", err)
	}
	if history == nil {
		history = []llm.ConversationTurn{}
	}

	writeJSON(rw, http.StatusOK, ChatResponse{
		Response:      reply.Text,
		RecentHistory: history,
		Confidence:    reply.Confidence,
		Path:          reply.Path,
		Sources:       reply.Sources,
	})
}

// handleReindex always answers 200; the outcome is in the status field
func (s *Server) handleReindex(rw http.ResponseWriter, r *http.Request) {
	result := s.svc.Reindex(r.Context())
	writeJSON(rw, http.StatusOK, result)
}

func (s *Server) handleHistory(rw http.ResponseWriter, r *http.Request) {
	history, err := s.svc.History(r.Context(), 0)
	if err != nil {
		writeError(rw, http.StatusInternalServerError, err.Error())
		return
	}
	if history == nil {
		history = []llm.ConversationTurn{}
	}
	writeJSON(rw, http.StatusOK, history)
}

func (s *Server) handleClearHistory(rw http.ResponseWriter, r *http.Request) {
	if err := s.svc.ClearHistory(r.Context()); err != nil {
		writeError(rw, http.StatusInternalServerError, err.Error())
		return
	}
	rw.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHealth(rw http.ResponseWriter, r *http.Request) {
	n, err := s.svc.IndexCount(r.Context())
	if err != nil {
		writeJSON(rw, http.StatusServiceUnavailable, HealthResponse{Status: "index unavailable"})
		return
	}
	writeJSON(rw, http.StatusOK, HealthResponse{Status: "ok", Documents: n})
}

// limited rejects requests with 429 once the token bucket is empty
func (s *Server) limited(next http.HandlerFunc) http.HandlerFunc {
	if s.limiter == nil {
		return next
	}
	return func(rw http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			writeError(rw, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next(rw, r)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: rw, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("request",
			"method", r.Method, "path", r.URL.Path, "status", rec.status, "duration", time.Since(start))
	})
}

func writeJSON(rw http.ResponseWriter, status int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(v)
}

func writeError(rw http.ResponseWriter, status int, msg string) {
	writeJSON(rw, status, errorResponse{Error: msg})
}
