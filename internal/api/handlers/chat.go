package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/mfcastellanos/negobot/internal/domain"
	"github.com/mfcastellanos/negobot/internal/engine"
)

type ChatHandler struct {
	svc      *engine.Service
	validate *validator.Validate
}

func NewChatHandler(svc *engine.Service) *ChatHandler {
	return &ChatHandler{
		svc:      svc,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

type decideRequest struct {
	ConversationID string                      `json:"conversation_id"`
	CurrentState   string                      `json:"current_state" validate:"required,max=100"`
	Message        string                      `json:"message" validate:"required,max=2000"`
	Context        *domain.ConversationContext `json:"context"`
}

// Decide runs one conversation turn. The engine itself never fails a
// turn, so the only error responses here are for malformed requests.
func (h *ChatHandler) Decide(w http.ResponseWriter, r *http.Request) {
	var req decideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result := h.svc.Decide(r.Context(), engine.DecideRequest{
		ConversationID: req.ConversationID,
		CurrentState:   req.CurrentState,
		Message:        req.Message,
		Context:        req.Context,
	})

	writeJSON(w, http.StatusOK, result)
}
