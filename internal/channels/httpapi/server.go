// Package httpapi exposes the agent router over a small JSON HTTP API.
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/nextlevelbuilder/openclaw/internal/channels"
	"github.com/nextlevelbuilder/openclaw/internal/session"
)

const maxMessageChars = 32000

// Server is the HTTP channel: POST /chat in, JSON reply out.
type Server struct {
	dispatcher channels.Dispatcher
	sessions   *session.Store
	host       string
	port       int
	server     *http.Server

	limitRPM int
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// Config for the HTTP channel. RateLimitRPM of 0 disables limiting.
type Config struct {
	Host         string
	Port         int
	RateLimitRPM int
}

func New(cfg Config, dispatcher channels.Dispatcher, sessions *session.Store) *Server {
	return &Server{
		dispatcher: dispatcher,
		sessions:   sessions,
		host:       cfg.Host,
		port:       cfg.Port,
		limitRPM:   cfg.RateLimitRPM,
		limiters:   make(map[string]*rate.Limiter),
	}
}

func (s *Server) Name() string { return "http" }

// Start binds the listener and serves in the background.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /chat", s.handleChat)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /sessions", s.handleSessions)

	addr := net.JoinHostPort(s.host, strconv.Itoa(s.port))
	s.server = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("http channel listen on %s: %w", addr, err)
	}

	go func() {
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			slog.Error("http channel serve failed", "error", err)
		}
	}()

	slog.Info("http channel listening", "addr", addr)
	return nil
}

// Stop drains in-flight requests.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

type chatRequest struct {
	UserID string `json:"user_id"`
	Text   string `json:"text"`
}

type chatResponse struct {
	Response string `json:"response"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.UserID == "" || req.Text == "" {
		writeError(w, http.StatusBadRequest, "user_id and text are required")
		return
	}
	if len(req.Text) > maxMessageChars {
		writeError(w, http.StatusRequestEntityTooLarge, "message too long")
		return
	}
	if !s.allow(req.UserID) {
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	response, err := s.dispatcher.Run(r.Context(), "http", req.UserID, req.Text)
	if err != nil {
		slog.Error("http chat turn failed", "user", req.UserID, "error", err)
		writeError(w, http.StatusBadGateway, "agent turn failed")
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{Response: response})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSessions(w http.ResponseWriter, _ *http.Request) {
	keys, err := s.sessions.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list sessions failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": keys})
}

// allow enforces a per-user requests-per-minute limit.
func (s *Server) allow(userID string) bool {
	if s.limitRPM <= 0 {
		return true
	}

	s.mu.Lock()
	limiter, ok := s.limiters[userID]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(float64(s.limitRPM)/60.0), s.limitRPM)
		s.limiters[userID] = limiter
	}
	s.mu.Unlock()

	return limiter.Allow()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
