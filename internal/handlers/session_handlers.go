package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"shoplocal-backend/internal/directory"
	"shoplocal-backend/internal/interpreter"
	"shoplocal-backend/internal/models"
	"shoplocal-backend/internal/services"
	"shoplocal-backend/internal/store"
	"shoplocal-backend/pkg/httputil"

	"github.com/go-chi/chi/v5"
)

// SessionHandlers handles HTTP requests for the widget session API.
type SessionHandlers struct {
	conversations *services.ConversationService
}

// NewSessionHandlers creates a new SessionHandlers instance.
func NewSessionHandlers(conversations *services.ConversationService) *SessionHandlers {
	return &SessionHandlers{conversations: conversations}
}

// HandleStartSession handles POST /api/session/start.
func (h *SessionHandlers) HandleStartSession(w http.ResponseWriter, r *http.Request) {
	var req models.StartSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := h.conversations.StartConversation(r.Context(), req.Name, req.Email)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, resp)
}

// HandleSendMessage handles POST /api/session/message.
func (h *SessionHandlers) HandleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req models.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := h.conversations.HandleMessage(r.Context(), req.SessionID, req.Message)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, resp)
}

// HandleGetSession handles GET /api/session/{sessionID}.
func (h *SessionHandlers) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	sessionID, err := strconv.ParseInt(chi.URLParam(r, "sessionID"), 10, 64)
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid session ID")
		return
	}

	resp, err := h.conversations.GetConversation(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, resp)
}

// respondServiceError maps service-level failures onto HTTP statuses. External
// service failures surface as 502 with a generic message; internals are never
// exposed to the widget.
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrValidation):
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrNotFound):
		httputil.RespondError(w, http.StatusNotFound, "Session not found")
	case errors.Is(err, directory.ErrUpstreamUnavailable):
		httputil.RespondError(w, http.StatusBadGateway, "The business directory is temporarily unavailable. Please try again.")
	case errors.Is(err, interpreter.ErrInterpretation):
		httputil.RespondError(w, http.StatusBadGateway, "The assistant is temporarily unavailable. Please try again.")
	default:
		httputil.RespondError(w, http.StatusInternalServerError, "An unexpected error occurred")
	}
}
