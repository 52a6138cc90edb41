package router

import (
	"net/http"

	"bistro/internal/handler"
	"bistro/internal/middleware"
	"bistro/internal/model"

	"github.com/rs/zerolog"
)

// Handlers groups the HTTP handlers the router mounts.
type Handlers struct {
	Health   *handler.HealthHandler
	Orders   *handler.OrderHandler
	Delivery *handler.DeliveryHandler
	Messages *handler.MessageHandler
	Storage  *handler.StorageHandler

	// Files serves locally stored uploads under /storage/. Nil when uploads
	// go to S3.
	Files http.Handler
}

// New creates a new HTTP router with all routes and middleware configured.
func New(h Handlers, tokens middleware.TokenParser, logger zerolog.Logger) http.Handler {
	mux := http.NewServeMux()

	staff := middleware.RequireRole(logger, model.RoleStaff, model.RoleAdmin)
	signedIn := middleware.RequireRole(logger)

	// Health check endpoint (no authentication required)
	mux.HandleFunc("GET /health", h.Health.Check)

	// Orders: checkout is open to guests, everything else needs an identity.
	mux.HandleFunc("POST /api/orders", h.Orders.Create)
	mux.Handle("GET /api/orders", signedIn(http.HandlerFunc(h.Orders.List)))
	mux.Handle("GET /api/orders/{id}", signedIn(http.HandlerFunc(h.Orders.GetByID)))
	mux.Handle("PATCH /api/orders/{id}/status", staff(http.HandlerFunc(h.Orders.UpdateStatus)))
	mux.Handle("PATCH /api/orders/{id}/payment", staff(http.HandlerFunc(h.Orders.UpdatePayment)))

	// Delivery
	mux.Handle("POST /api/orders/{id}/assignment", staff(http.HandlerFunc(h.Delivery.Assign)))
	mux.Handle("GET /api/orders/{id}/assignment", signedIn(http.HandlerFunc(h.Delivery.GetAssignment)))
	mux.Handle("PATCH /api/orders/{id}/assignment", staff(http.HandlerFunc(h.Delivery.UpdateAssignment)))
	mux.Handle("GET /api/drivers", staff(http.HandlerFunc(h.Delivery.ListDrivers)))
	mux.Handle("GET /api/drivers/{id}", staff(http.HandlerFunc(h.Delivery.GetDriver)))

	// Messages
	mux.Handle("GET /api/orders/{id}/messages", signedIn(http.HandlerFunc(h.Messages.List)))
	mux.Handle("POST /api/orders/{id}/messages", signedIn(http.HandlerFunc(h.Messages.Send)))
	mux.Handle("GET /api/orders/{id}/messages/stream", signedIn(http.HandlerFunc(h.Messages.Stream)))

	// Storage: the handler scopes customers to their own avatar folder.
	mux.Handle("POST /api/storage/{bucket}/{path...}", signedIn(http.HandlerFunc(h.Storage.Upload)))
	if h.Files != nil {
		mux.Handle("GET /storage/", h.Files)
	}

	// Apply middleware in order: Recovery -> Logging -> CORS -> Authenticate
	var handler http.Handler = mux
	handler = middleware.Authenticate(tokens, logger)(handler)
	handler = middleware.CORS(handler)
	handler = middleware.Logging(logger)(handler)
	handler = middleware.Recovery(logger)(handler)

	return handler
}
