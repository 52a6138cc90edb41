package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"bistro/internal/model"
	"bistro/internal/service"

	"github.com/rs/zerolog"
)

// MessageHandler handles the per-order conversation.
type MessageHandler struct {
	orders   service.OrderService
	messages service.MessageService
	logger   zerolog.Logger
}

// NewMessageHandler creates a new message handler.
func NewMessageHandler(orders service.OrderService, messages service.MessageService, logger zerolog.Logger) *MessageHandler {
	return &MessageHandler{
		orders:   orders,
		messages: messages,
		logger:   logger.With().Str("handler", "message").Logger(),
	}
}

// List handles GET /api/orders/{id}/messages requests.
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	orderID, err := orderIDFromPath(r)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	if _, _, err := authorizeOrder(r.Context(), h.orders, orderID); err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	messages, err := h.messages.GetMessages(r.Context(), orderID)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, messages)
}

// Send handles POST /api/orders/{id}/messages requests. The sender and their
// role come from the caller's identity.
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	orderID, err := orderIDFromPath(r)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	var req model.SendMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	_, caller, err := authorizeOrder(r.Context(), h.orders, orderID)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	msg, err := h.messages.SendMessage(r.Context(), orderID, caller.UserID, caller.Role, req.Message)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, msg)
}

// Stream handles GET /api/orders/{id}/messages/stream requests as server-sent
// events. The first event carries the history, later events each new batch.
func (h *MessageHandler) Stream(w http.ResponseWriter, r *http.Request) {
	orderID, err := orderIDFromPath(r)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	if _, _, err := authorizeOrder(r.Context(), h.orders, orderID); err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, model.ErrCodeInternalError, "streaming not supported", h.logger)
		return
	}

	// Streams outlive the server write timeout.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	h.logger.Debug().Str("order_id", orderID.String()).Msg("message stream opened")

	err = h.messages.Stream(r.Context(), orderID, func(batch []model.OrderMessage) error {
		data, err := json.Marshal(batch)
		if err != nil {
			return fmt.Errorf("failed to encode messages: %w", err)
		}
		if _, err := fmt.Fprintf(w, "event: messages\ndata: %s\n\n", data); err != nil {
			return fmt.Errorf("failed to write event: %w", err)
		}
		flusher.Flush()
		return nil
	})
	if err != nil {
		h.logger.Warn().Err(err).Str("order_id", orderID.String()).Msg("message stream ended with error")
		return
	}

	h.logger.Debug().Str("order_id", orderID.String()).Msg("message stream closed")
}
