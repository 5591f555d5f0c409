package rest

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

const maxMessageBytes = 4 << 10

type chatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type sessionResponse struct {
	SessionID string `json:"session_id"`
	State     string `json:"state"`
}

// Chat handles POST /chat. An empty session_id starts a new conversation.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	if !isJSONContentType(r) {
		writeError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return
	}

	var req chatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxMessageBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	// The turn runs with the request context so a disconnect cancels upstream calls.
	res := h.chat.HandleTurn(r.Context(), req.SessionID, req.Message)
	writeJSON(w, http.StatusOK, res)
}

// GetSession handles GET /chat/{id}
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sess, ok := h.chat.Session(id)
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{SessionID: sess.ID, State: sess.Label()})
}

// EndSession handles DELETE /chat/{id}
func (h *Handler) EndSession(w http.ResponseWriter, r *http.Request) {
	if !h.chat.End(chi.URLParam(r, "id")) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
