package send_message

import (
	"net/http"

	"github.com/vberezn/schedulebot/internal/api/handlers"
)

const (
	msgInvalidRequestBody = "некорректное тело запроса"
	msgMissingChannel     = "канал обязателен"
	msgMissingSenderID    = "ID отправителя обязателен"
	msgMissingText        = "текст сообщения обязателен"
)

type Handler struct {
	engine MessageEngine
	logger Logger
}

func NewHandler(engine MessageEngine, logger Logger) *Handler {
	return &Handler{
		engine: engine,
		logger: logger,
	}
}

// Handle POST /api/v1/messages
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	var req SendMessageRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("POST /messages - Invalid request body: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}

	switch {
	case req.Channel == "":
		handlers.RespondBadRequest(w, msgMissingChannel)
		return
	case req.SenderID == "":
		handlers.RespondBadRequest(w, msgMissingSenderID)
		return
	case req.Text == "":
		handlers.RespondBadRequest(w, msgMissingText)
		return
	}

	out, err := h.engine.HandleMessage(r.Context(), req.ToIncomingMessage())
	if err != nil {
		h.logger.Error("POST /messages - Failed to handle message: channel=%s, sender_id=%s, error=%v",
			req.Channel, req.SenderID, err)
		handlers.RespondInternalError(w)
		return
	}

	h.logger.Info("POST /messages - Message handled: channel=%s, sender_id=%s", req.Channel, req.SenderID)
	handlers.RespondJSON(w, http.StatusOK, FromOutgoingMessage(out))
}
