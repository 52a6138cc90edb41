package handler

import (
	"net/http"

	"bistro/internal/middleware"
	"bistro/internal/model"
	"bistro/internal/service"

	"github.com/rs/zerolog"
)

// OrderHandler handles order-related HTTP requests.
type OrderHandler struct {
	service service.OrderService
	logger  zerolog.Logger
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(service service.OrderService, logger zerolog.Logger) *OrderHandler {
	return &OrderHandler{
		service: service,
		logger:  logger.With().Str("handler", "order").Logger(),
	}
}

// Create handles POST /api/orders requests. Customers always order for
// themselves, guests never carry a customer reference, and staff entering an
// order may name the customer.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var draft model.OrderDraft
	if err := decodeJSON(r, &draft); err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	caller, ok := middleware.IdentityFromContext(r.Context())
	switch {
	case !ok:
		draft.CustomerID = nil
	case !caller.Role.IsStaff():
		customerID := caller.UserID
		draft.CustomerID = &customerID
	}

	order, err := h.service.CreateOrder(r.Context(), &draft)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, order)
}

// List handles GET /api/orders requests.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeDomainError(w, model.ErrUnauthorised, h.logger)
		return
	}

	var (
		orders []model.Order
		err    error
	)
	if caller.Role.IsStaff() {
		orders, err = h.service.ListAllOrders(r.Context())
	} else {
		orders, err = h.service.ListOrdersForCustomer(r.Context(), caller.UserID)
	}
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, orders)
}

// GetByID handles GET /api/orders/{id} requests.
func (h *OrderHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	orderID, err := orderIDFromPath(r)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	order, _, err := authorizeOrder(r.Context(), h.service, orderID)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// UpdateStatus handles PATCH /api/orders/{id}/status requests.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderID, err := orderIDFromPath(r)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	var req model.StatusUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	order, err := h.service.UpdateOrderStatus(r.Context(), orderID, req.Status)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// UpdatePayment handles PATCH /api/orders/{id}/payment requests.
func (h *OrderHandler) UpdatePayment(w http.ResponseWriter, r *http.Request) {
	orderID, err := orderIDFromPath(r)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	var req model.PaymentUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	order, err := h.service.UpdatePaymentStatus(r.Context(), orderID, req.PaymentStatus)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}
