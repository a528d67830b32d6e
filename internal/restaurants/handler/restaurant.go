package handler

import (
	"encoding/json"
	"net/http"

	"booktable/internal/restaurants/service"
	"booktable/pkg/auth"
	apperrors "booktable/pkg/errors"
	httputil "booktable/pkg/http"
	"booktable/pkg/logger"
	"booktable/pkg/middleware"
	"booktable/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type RestaurantHandler struct {
	service service.RestaurantService
	auth    *middleware.Authenticator
	log     *logger.Logger
}

func NewRestaurantHandler(service service.RestaurantService, authenticator *middleware.Authenticator, log *logger.Logger) *RestaurantHandler {
	return &RestaurantHandler{
		service: service,
		auth:    authenticator,
		log:     log,
	}
}

func (h *RestaurantHandler) RegisterRoutes(router *httprouter.Router) {
	managers := h.auth.RequireRole(auth.RoleManager, auth.RoleAdmin)
	admins := h.auth.RequireRole(auth.RoleAdmin)

	router.POST("/api/v1/restaurants", managers(h.Create))
	router.GET("/api/v1/restaurants", admins(h.GetAll))
	router.GET("/api/v1/restaurants/managed", managers(h.ListManaged))
	router.GET("/api/v1/restaurants/search", h.Search)
	router.GET("/api/v1/restaurants/id/:id", h.GetByID)
	router.PATCH("/api/v1/restaurants/id/:id", managers(h.Update))
	router.PUT("/api/v1/restaurants/id/:id/approve", admins(h.Approve))
	router.PUT("/api/v1/restaurants/id/:id/hold", admins(h.Hold))
	router.GET("/api/v1/restaurants/id/:id/availability", h.Availability)
}

func (h *RestaurantHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *RestaurantHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	principal, _ := auth.FromContext(r.Context())

	var restaurant model.Restaurant
	if err := json.NewDecoder(r.Body).Decode(&restaurant); err != nil {
		h.writeError(w, "Create", apperrors.InvalidInput("Invalid request body"))
		return
	}

	if err := h.service.Create(r.Context(), principal, &restaurant); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, restaurant); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *RestaurantHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	restaurant, err := h.service.GetByID(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, restaurant); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *RestaurantHandler) GetAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "GetAll", err)
		return
	}

	restaurants, total, err := h.service.GetAll(r.Context(), limit, offset)
	if err != nil {
		h.writeError(w, "GetAll", err)
		return
	}

	if err := httputil.WritePaginated(w, restaurants, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "GetAll", "operation", "WritePaginated", "error", err)
	}
}

func (h *RestaurantHandler) ListManaged(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	principal, _ := auth.FromContext(r.Context())

	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "ListManaged", err)
		return
	}

	restaurants, total, err := h.service.ListManaged(r.Context(), principal, limit, offset)
	if err != nil {
		h.writeError(w, "ListManaged", err)
		return
	}

	if err := httputil.WritePaginated(w, restaurants, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "ListManaged", "operation", "WritePaginated", "error", err)
	}
}

func (h *RestaurantHandler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	principal, _ := auth.FromContext(r.Context())

	var updates model.RestaurantUpdate
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		h.writeError(w, "Update", apperrors.InvalidInput("Invalid request body"))
		return
	}

	restaurant, err := h.service.Update(r.Context(), principal, ps.ByName("id"), &updates)
	if err != nil {
		h.writeError(w, "Update", err)
		return
	}

	if err := httputil.WriteSuccess(w, restaurant); err != nil {
		h.log.Error("failed to write success response", "handler", "Update", "operation", "WriteSuccess", "error", err)
	}
}

func (h *RestaurantHandler) Approve(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := h.service.Approve(r.Context(), ps.ByName("id")); err != nil {
		h.writeError(w, "Approve", err)
		return
	}
	httputil.WriteNoContent(w)
}

func (h *RestaurantHandler) Hold(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := h.service.Hold(r.Context(), ps.ByName("id")); err != nil {
		h.writeError(w, "Hold", err)
		return
	}
	httputil.WriteNoContent(w)
}

func (h *RestaurantHandler) Availability(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	date, ok, err := httputil.OptionalDate(r, "date")
	if err != nil {
		h.writeError(w, "Availability", err)
		return
	}
	if !ok {
		h.writeError(w, "Availability", apperrors.InvalidField("date", "date query parameter is required"))
		return
	}

	view, err := h.service.Availability(r.Context(), ps.ByName("id"), date)
	if err != nil {
		h.writeError(w, "Availability", err)
		return
	}

	if err := httputil.WriteSuccess(w, view); err != nil {
		h.log.Error("failed to write success response", "handler", "Availability", "operation", "WriteSuccess", "error", err)
	}
}

func (h *RestaurantHandler) Search(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	query := service.SearchQuery{Location: r.URL.Query().Get("location")}

	date, hasDate, err := httputil.OptionalDate(r, "date")
	if err != nil {
		h.writeError(w, "Search", err)
		return
	}
	at, hasTime, err := httputil.OptionalTime(r, "time")
	if err != nil {
		h.writeError(w, "Search", err)
		return
	}
	// An unusable party size drops the size filter instead of failing.
	partySize, _, err := httputil.OptionalInt(r, "party_size")
	if err != nil || partySize < 0 {
		partySize = 0
	}

	if hasDate {
		query.Date = &date
	}
	if hasTime {
		query.Time = &at
	}
	query.PartySize = partySize

	results, err := h.service.Search(r.Context(), query)
	if err != nil {
		h.writeError(w, "Search", err)
		return
	}

	if err := httputil.WriteSuccess(w, results); err != nil {
		h.log.Error("failed to write success response", "handler", "Search", "operation", "WriteSuccess", "error", err)
	}
}
