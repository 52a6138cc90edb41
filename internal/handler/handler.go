package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"bistro/internal/middleware"
	"bistro/internal/model"
	"bistro/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Log the error but don't expose it to the client
		return
	}
}

// writeError writes an error response with the given status code, code and message.
func writeError(w http.ResponseWriter, status int, code, message string, logger zerolog.Logger) {
	event := logger.Warn()
	if status >= http.StatusInternalServerError {
		event = logger.Error()
	}
	event.Str("code", code).Str("error", message).Int("status", status).Msg("handler error")
	writeJSON(w, status, model.ErrorResponse{Error: code, Message: message})
}

// statusFor maps a domain error code to its HTTP status.
func statusFor(code string) int {
	switch code {
	case model.ErrCodeInvalidJSON, model.ErrCodeValidation,
		model.ErrCodeEmptyMessage, model.ErrCodeUnknownBucket:
		return http.StatusBadRequest
	case model.ErrCodeUnauthorised:
		return http.StatusUnauthorized
	case model.ErrCodeForbidden:
		return http.StatusForbidden
	case model.ErrCodeOrderNotFound, model.ErrCodeAssignmentNotFound, model.ErrCodeDriverNotFound:
		return http.StatusNotFound
	case model.ErrCodeInvalidTransition, model.ErrCodeDriverUnavailable,
		model.ErrCodeAssignmentExists, model.ErrCodeNotDeliveryOrder:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeDomainError writes err using its domain code. Errors without one are
// reported as internal errors without detail.
func writeDomainError(w http.ResponseWriter, err error, logger zerolog.Logger) {
	var domainErr *model.DomainError
	if !errors.As(err, &domainErr) {
		logger.Error().Err(err).Msg("unexpected error")
		writeError(w, http.StatusInternalServerError, model.ErrCodeInternalError, "internal server error", logger)
		return
	}

	status := statusFor(domainErr.Code)
	if status == http.StatusInternalServerError {
		logger.Error().Err(err).Msg("request failed")
	}
	writeError(w, status, domainErr.Code, domainErr.Message, logger)
}

// decodeJSON decodes the request body into dst.
func decodeJSON(r *http.Request, dst interface{}) error {
	if r.Body == nil {
		return model.NewDomainError(model.ErrCodeInvalidJSON, "request body is required")
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return model.NewDomainError(model.ErrCodeInvalidJSON, "invalid request body")
	}
	return nil
}

// orderIDFromPath parses the {id} path value.
func orderIDFromPath(r *http.Request) (uuid.UUID, error) {
	raw := r.PathValue("id")
	if raw == "" {
		return uuid.Nil, model.ValidationError("order ID is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, model.ValidationError("invalid order ID format")
	}
	return id, nil
}

// authorizeOrder loads an order the caller is allowed to see. Staff see every
// order; customers only their own.
func authorizeOrder(ctx context.Context, orders service.OrderService, id uuid.UUID) (*model.Order, *model.Identity, error) {
	caller, ok := middleware.IdentityFromContext(ctx)
	if !ok {
		return nil, nil, model.ErrUnauthorised
	}

	order, err := orders.GetOrderByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	if !caller.Role.IsStaff() && (order.CustomerID == nil || *order.CustomerID != caller.UserID) {
		return nil, nil, model.NewDomainError(model.ErrCodeForbidden, "Order belongs to another customer")
	}
	return order, caller, nil
}
