package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/socratic-labs/dialogue/internal/dialogue"
	"github.com/socratic-labs/dialogue/internal/domain"
)

// Dialogue is the session logic the HTTP layer drives.
type Dialogue interface {
	HandleMessage(ctx context.Context, sessionID, message, topic string) (*dialogue.MessageResult, error)
	Reset(ctx context.Context, sessionID, topic string) (*domain.Session, error)
	Summary(ctx context.Context, sessionID string) (*dialogue.Summary, error)
}

// noMessageError is the wire text clients match on for empty messages.
const noMessageError = "No message provided"

// MessageRequest is the body of POST /api/message.
type MessageRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
	Topic     string `json:"topic"`
}

// RestartRequest is the body of POST /api/restart.
type RestartRequest struct {
	SessionID string `json:"session_id"`
	Topic     string `json:"topic"`
}

// SummaryRequest is the body of POST /api/summary.
type SummaryRequest struct {
	SessionID string `json:"session_id"`
}

// RestartResponse is returned by POST /api/restart.
type RestartResponse struct {
	Status  string          `json:"status"`
	Session *domain.Session `json:"session"`
}

// DialogueHandler serves the dialogue endpoints.
type DialogueHandler struct {
	svc          Dialogue
	maxBodyBytes int64
}

// NewDialogueHandler creates a handler around svc. maxBodyBytes <= 0 uses
// the 1MB default.
func NewDialogueHandler(svc Dialogue, maxBodyBytes int64) *DialogueHandler {
	return &DialogueHandler{svc: svc, maxBodyBytes: maxBodyBytes}
}

// RegisterRoutes registers the dialogue routes.
func (h *DialogueHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/message", h.HandleMessage)
		r.Post("/restart", h.HandleRestart)
		r.Post("/summary", h.HandleSummary)
	})
}

// HandleMessage handles POST /api/message.
func (h *DialogueHandler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	var req MessageRequest
	if err := decodeBody(w, r, h.maxBodyBytes, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	res, err := h.svc.HandleMessage(r.Context(), req.SessionID, req.Message, req.Topic)
	if errors.Is(err, dialogue.ErrInvalidInput) {
		Error(w, http.StatusBadRequest, noMessageError)
		return
	}
	if err != nil {
		h.internalError(w, r, "Dialogue message failed", err)
		return
	}

	slog.Info("Dialogue message handled",
		"session_id", sessionIDForLog(req.SessionID),
		"request_id", chiMiddleware.GetReqID(r.Context()),
		"message_length", len(strings.TrimSpace(req.Message)),
		"fallacy_count", len(res.Fallacies),
	)
	JSON(w, http.StatusOK, res)
}

// HandleRestart handles POST /api/restart.
func (h *DialogueHandler) HandleRestart(w http.ResponseWriter, r *http.Request) {
	var req RestartRequest
	if err := decodeBody(w, r, h.maxBodyBytes, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	session, err := h.svc.Reset(r.Context(), req.SessionID, req.Topic)
	if err != nil {
		h.internalError(w, r, "Dialogue restart failed", err)
		return
	}

	slog.Info("Dialogue session restarted",
		"session_id", sessionIDForLog(req.SessionID),
		"request_id", chiMiddleware.GetReqID(r.Context()),
		"topic", session.Topic,
	)
	JSON(w, http.StatusOK, RestartResponse{Status: "ok", Session: session})
}

// HandleSummary handles POST /api/summary.
func (h *DialogueHandler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	var req SummaryRequest
	if err := decodeBody(w, r, h.maxBodyBytes, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	summary, err := h.svc.Summary(r.Context(), req.SessionID)
	if err != nil {
		h.internalError(w, r, "Dialogue summary failed", err)
		return
	}
	JSON(w, http.StatusOK, summary)
}

func (h *DialogueHandler) internalError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	slog.Error(msg,
		"error", err,
		"request_id", chiMiddleware.GetReqID(r.Context()),
	)
	Error(w, http.StatusInternalServerError, "internal server error")
}

func sessionIDForLog(id string) string {
	if id == "" {
		return dialogue.DefaultSessionID
	}
	return id
}
