package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"lifeos/internal/models"
)

// BaseResponse is the standard envelope for every endpoint.
type BaseResponse struct {
	Code       int         `json:"code"`
	Message    string      `json:"message"`
	Data       any         `json:"data,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

// Pagination describes the page a list response came from.
type Pagination struct {
	CurrentPage  int `json:"current_page"`
	TotalPages   int `json:"total_pages"`
	TotalItems   int `json:"total_items"`
	CurrentItems int `json:"current_items"`
	Limit        int `json:"limit"`
}

// wireMessage is a history entry in API shape.
type wireMessage struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// handleSendMessage accepts a user turn, generates a reply, and persists
// both sides of the exchange.
func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	message := strings.TrimSpace(r.URL.Query().Get("message"))
	if message == "" {
		writeJSON(w, http.StatusBadRequest, BaseResponse{
			Code:    http.StatusBadRequest,
			Message: "message must not be empty",
		})
		return
	}

	ctx := r.Context()

	reply, err := s.reply.Reply(ctx, message)
	if err != nil {
		s.logger.Error("reply generation failed", "error", err)
		writeJSON(w, http.StatusBadGateway, BaseResponse{
			Code:    http.StatusBadGateway,
			Message: "failed to generate reply",
		})
		return
	}

	// Persist both turns; a storage failure loses history but the user still
	// gets the reply, matching the endpoint's fire-and-reply semantics.
	if _, err := s.store.InsertMessage(ctx, models.RoleUser, message); err != nil {
		s.logger.Error("store user message", "error", err)
	}
	if _, err := s.store.InsertMessage(ctx, models.RoleAssistant, reply); err != nil {
		s.logger.Error("store assistant message", "error", err)
	}

	writeJSON(w, http.StatusCreated, BaseResponse{
		Code:    http.StatusOK,
		Message: "Message sent",
		Data:    reply,
	})
}

// handleGetMessages returns one page of history, newest first.
func (s *Server) handleGetMessages(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", 20)
	if page < 1 || limit < 1 {
		writeJSON(w, http.StatusBadRequest, BaseResponse{
			Code:    http.StatusBadRequest,
			Message: "page and limit must be positive",
		})
		return
	}

	ctx := r.Context()

	msgs, err := s.store.ListMessages(ctx, page, limit)
	if err != nil {
		s.logger.Error("list messages", "error", err)
		writeJSON(w, http.StatusInternalServerError, BaseResponse{
			Code:    http.StatusInternalServerError,
			Message: "failed to load messages",
		})
		return
	}

	total, err := s.store.CountMessages(ctx)
	if err != nil {
		s.logger.Error("count messages", "error", err)
		writeJSON(w, http.StatusInternalServerError, BaseResponse{
			Code:    http.StatusInternalServerError,
			Message: "failed to load messages",
		})
		return
	}

	wire := make([]wireMessage, len(msgs))
	for i, m := range msgs {
		wire[i] = wireMessage{
			ID:        m.ID,
			Role:      string(m.Role),
			Content:   m.Content,
			CreatedAt: m.CreatedAt,
		}
	}

	writeJSON(w, http.StatusOK, BaseResponse{
		Code:    http.StatusOK,
		Message: "OK",
		Data:    wire,
		Pagination: &Pagination{
			CurrentPage:  page,
			TotalPages:   (total + limit - 1) / limit,
			TotalItems:   total,
			CurrentItems: len(wire),
			Limit:        limit,
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok\n"))
}

func queryInt(r *http.Request, key string, defaultVal int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return -1
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, body BaseResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
