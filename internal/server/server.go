// Package server provides the LifeOS chat HTTP API.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/rs/cors"

	"lifeos/internal/config"
	"lifeos/internal/models"
)

// ReplyService generates an assistant reply for a user message.
type ReplyService interface {
	Reply(ctx context.Context, message string) (string, error)
}

// MessageStore persists and pages chat messages. *db.Client implements it.
type MessageStore interface {
	InsertMessage(ctx context.Context, role models.Role, content string) (models.Message, error)
	ListMessages(ctx context.Context, page, limit int) ([]models.Message, error)
	CountMessages(ctx context.Context) (int, error)
}

// Server wires the chat handlers, the message store, and the reply service.
type Server struct {
	store  MessageStore
	reply  ReplyService
	logger *slog.Logger
	http   *http.Server
}

// New creates the HTTP server.
func New(cfg config.Config, store MessageStore, reply ReplyService, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		store:  store,
		reply:  reply,
		logger: logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /chat", s.handleSendMessage)
	mux.HandleFunc("GET /chat", s.handleGetMessages)
	mux.HandleFunc("GET /health", s.handleHealth)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	})

	s.http = &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      corsHandler.Handler(LoggingMiddleware(logger)(mux)),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 120 * time.Second, // Long for LLM responses
		IdleTimeout:  120 * time.Second,
	}

	return s
}

// Run starts the server and blocks until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("chat API listening", "addr", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// Handler exposes the configured handler chain (for tests).
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}
