package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"booktable/internal/bookings/service"
	"booktable/internal/events"
	"booktable/pkg/auth"
	apperrors "booktable/pkg/errors"
	httputil "booktable/pkg/http"
	"booktable/pkg/logger"
	"booktable/pkg/middleware"
	"booktable/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type BookingHandler struct {
	service service.BookingService
	auth    *middleware.Authenticator
	log     *logger.Logger
}

func NewBookingHandler(service service.BookingService, authenticator *middleware.Authenticator, log *logger.Logger) *BookingHandler {
	return &BookingHandler{
		service: service,
		auth:    authenticator,
		log:     log,
	}
}

func (h *BookingHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/bookings", h.auth.Authenticate(h.Create))
	router.GET("/api/v1/bookings", h.auth.Authenticate(h.List))
	router.GET("/api/v1/bookings/id/:id", h.auth.Authenticate(h.GetByID))
	router.PATCH("/api/v1/bookings/id/:id/cancel", h.auth.Authenticate(h.Cancel))
}

func (h *BookingHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

// eventContext tags booking events with the request id so a notification can
// be traced back to the call that caused it.
func eventContext(r *http.Request) context.Context {
	return events.WithCorrelationID(r.Context(), middleware.RequestID(r.Context()))
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	principal, _ := auth.FromContext(r.Context())

	var req model.CreateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Create", apperrors.InvalidInput("Invalid request body"))
		return
	}

	booking, err := h.service.Create(eventContext(r), principal, &req)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, booking); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *BookingHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	principal, _ := auth.FromContext(r.Context())

	booking, err := h.service.GetByID(r.Context(), principal, ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

// List serves both the diner view (user_id, defaulting to the caller) and the
// manager view (restaurant_id).
func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	principal, _ := auth.FromContext(r.Context())

	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	query := r.URL.Query()
	userID := query.Get("user_id")
	restaurantID := query.Get("restaurant_id")
	if userID != "" && restaurantID != "" {
		h.writeError(w, "List", apperrors.InvalidInput("Use either user_id or restaurant_id, not both"))
		return
	}

	var bookings []*model.Booking
	var total int64
	if restaurantID != "" {
		bookings, total, err = h.service.ListByRestaurant(r.Context(), principal, restaurantID, limit, offset)
	} else {
		bookings, total, err = h.service.ListByUser(r.Context(), principal, userID, limit, offset)
	}
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	if err := httputil.WritePaginated(w, bookings, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "List", "operation", "WritePaginated", "error", err)
	}
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	principal, _ := auth.FromContext(r.Context())

	booking, err := h.service.Cancel(eventContext(r), principal, ps.ByName("id"))
	if err != nil {
		h.writeError(w, "Cancel", err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "Cancel", "operation", "WriteSuccess", "error", err)
	}
}
