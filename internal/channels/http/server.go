package httpchannel

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"candybowl/internal/apperr"
	"candybowl/internal/session"
)

const defaultAddr = "127.0.0.1:5000"

type Config struct {
	Addr        string
	Chats       session.Chats
	Logger      *slog.Logger
	RegisterMux func(mux *http.ServeMux)
}

// Server is the JSON front door to the session manager.
type Server struct {
	addr       string
	chats      session.Chats
	logger     *slog.Logger
	httpServer *http.Server
}

type startResponse struct {
	ChatID   string `json:"chat_id"`
	Response string `json:"response,omitempty"`
}

type messageRequest struct {
	ChatID  string `json:"chat_id"`
	Message string `json:"message"`
}

type messageResponse struct {
	Response string `json:"response"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func NewServer(cfg Config) *Server {
	addr := cfg.Addr
	if addr == "" {
		addr = defaultAddr
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		addr:   addr,
		chats:  cfg.Chats,
		logger: logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/chat/request", s.handleStart(session.ModeRequest))
	mux.HandleFunc("/chat/haggle", s.handleStart(session.ModeHaggle))
	mux.HandleFunc("/chat/restock", s.handleStart(session.ModeRestock))
	mux.HandleFunc("/chat/message", s.handleMessage)
	if cfg.RegisterMux != nil {
		cfg.RegisterMux(mux)
	}

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.logMiddleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

func (s *Server) handleStart(mode session.Mode) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		if s.chats == nil {
			writeError(w, http.StatusInternalServerError, "chat sessions are disabled")
			return
		}

		started, err := s.chats.Start(r.Context(), mode)
		if err != nil {
			s.logger.Error("failed to start chat", "mode", string(mode), "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to create chat: "+apperr.Message(err))
			return
		}
		writeJSON(w, http.StatusOK, startResponse{ChatID: started.ChatID, Response: started.Response})
	}
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.chats == nil {
		writeError(w, http.StatusInternalServerError, "chat sessions are disabled")
		return
	}

	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request format")
		return
	}
	if strings.TrimSpace(req.ChatID) == "" {
		writeError(w, http.StatusBadRequest, "chat_id is required")
		return
	}

	reply, err := s.chats.Send(r.Context(), req.ChatID, req.Message)
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			s.logger.Error("chat message failed", "chat_id", req.ChatID, "error", err)
		}
		writeError(w, status, messageFor(err))
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Response: reply})
}

func statusFor(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func messageFor(err error) string {
	msg := apperr.Message(err)
	if apperr.KindOf(err) == apperr.KindModel && strings.Contains(strings.ToLower(msg), "empty response") {
		return "Received empty response from the model"
	}
	return msg
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.ListenAndServe()
	}()
	s.logger.Info("http server listening", "addr", s.addr)
	return s.wait(ctx, errCh)
}

func (s *Server) wait(ctx context.Context, errCh <-chan error) error {
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = s.httpServer.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) Addr() string {
	return s.addr
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(started),
		)
	})
}
