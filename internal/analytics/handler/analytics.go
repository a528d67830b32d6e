package handler

import (
	"net/http"

	"booktable/internal/analytics/service"
	"booktable/pkg/auth"
	"booktable/pkg/civil"
	httputil "booktable/pkg/http"
	"booktable/pkg/logger"
	"booktable/pkg/middleware"

	"github.com/julienschmidt/httprouter"
)

type AnalyticsHandler struct {
	service service.AnalyticsService
	auth    *middleware.Authenticator
	log     *logger.Logger
}

func NewAnalyticsHandler(service service.AnalyticsService, authenticator *middleware.Authenticator, log *logger.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{service: service, auth: authenticator, log: log}
}

func (h *AnalyticsHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/bookings/analytics", h.auth.RequireRole(auth.RoleAdmin)(h.DailyStats))
}

func (h *AnalyticsHandler) DailyStats(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	since, ok, err := httputil.OptionalDate(r, "since")
	if err != nil {
		h.writeError(w, err)
		return
	}

	var from *civil.Date
	if ok {
		from = &since
	}

	stats, err := h.service.DailyStats(r.Context(), from)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if err := httputil.WriteSuccess(w, stats); err != nil {
		h.log.Error("failed to write success response", "handler", "DailyStats", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AnalyticsHandler) writeError(w http.ResponseWriter, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", "DailyStats", "operation", "WriteError", "error", writeErr)
	}
}
