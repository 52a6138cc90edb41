package handler

import (
	"net/http"
	"strings"

	"bistro/internal/model"
	"bistro/internal/service"

	"github.com/rs/zerolog"
)

// DeliveryHandler handles driver assignment and delivery progress requests.
type DeliveryHandler struct {
	orders   service.OrderService
	delivery service.DeliveryService
	logger   zerolog.Logger
}

// NewDeliveryHandler creates a new delivery handler.
func NewDeliveryHandler(orders service.OrderService, delivery service.DeliveryService, logger zerolog.Logger) *DeliveryHandler {
	return &DeliveryHandler{
		orders:   orders,
		delivery: delivery,
		logger:   logger.With().Str("handler", "delivery").Logger(),
	}
}

// Assign handles POST /api/orders/{id}/assignment requests.
func (h *DeliveryHandler) Assign(w http.ResponseWriter, r *http.Request) {
	orderID, err := orderIDFromPath(r)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	var req model.AssignDriverRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	assignment, err := h.delivery.AssignDriver(r.Context(), orderID, req.DriverID)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, assignment)
}

// GetAssignment handles GET /api/orders/{id}/assignment requests. Customers
// may track the delivery of their own orders.
func (h *DeliveryHandler) GetAssignment(w http.ResponseWriter, r *http.Request) {
	orderID, err := orderIDFromPath(r)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	if _, _, err := authorizeOrder(r.Context(), h.orders, orderID); err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	assignment, err := h.delivery.GetAssignmentForOrder(r.Context(), orderID)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, assignment)
}

// UpdateAssignment handles PATCH /api/orders/{id}/assignment requests.
func (h *DeliveryHandler) UpdateAssignment(w http.ResponseWriter, r *http.Request) {
	orderID, err := orderIDFromPath(r)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	var req model.DeliveryStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	assignment, err := h.delivery.UpdateDeliveryStatus(r.Context(), orderID, req.Status)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, assignment)
}

// ListDrivers handles GET /api/drivers requests with an optional ?status filter.
func (h *DeliveryHandler) ListDrivers(w http.ResponseWriter, r *http.Request) {
	status := model.DriverStatus(strings.TrimSpace(r.URL.Query().Get("status")))

	drivers, err := h.delivery.ListDrivers(r.Context(), status)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, drivers)
}

// GetDriver handles GET /api/drivers/{id} requests.
func (h *DeliveryHandler) GetDriver(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		writeDomainError(w, model.ValidationError("driver ID is required"), h.logger)
		return
	}

	driver, err := h.delivery.GetDriver(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, driver)
}
