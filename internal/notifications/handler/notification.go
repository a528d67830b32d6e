package handler

import (
	"net/http"

	"booktable/internal/notifications/service"
	"booktable/pkg/auth"
	httputil "booktable/pkg/http"
	"booktable/pkg/logger"
	"booktable/pkg/middleware"

	"github.com/julienschmidt/httprouter"
)

type NotificationHandler struct {
	service service.NotificationService
	auth    *middleware.Authenticator
	log     *logger.Logger
}

func NewNotificationHandler(service service.NotificationService, authenticator *middleware.Authenticator, log *logger.Logger) *NotificationHandler {
	return &NotificationHandler{
		service: service,
		auth:    authenticator,
		log:     log,
	}
}

func (h *NotificationHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/notifications", h.auth.Authenticate(h.List))
	router.PATCH("/api/v1/notifications/id/:id/read", h.auth.Authenticate(h.MarkRead))
	router.PATCH("/api/v1/notifications/read-all", h.auth.Authenticate(h.MarkAllRead))
}

func (h *NotificationHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	principal, _ := auth.FromContext(r.Context())

	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	inbox, err := h.service.List(r.Context(), principal, limit, offset)
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	if err := httputil.WriteSuccess(w, inbox); err != nil {
		h.log.Error("failed to write success response", "handler", "List", "operation", "WriteSuccess", "error", err)
	}
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	principal, _ := auth.FromContext(r.Context())

	notification, err := h.service.MarkRead(r.Context(), principal, ps.ByName("id"))
	if err != nil {
		h.writeError(w, "MarkRead", err)
		return
	}

	if err := httputil.WriteSuccess(w, notification); err != nil {
		h.log.Error("failed to write success response", "handler", "MarkRead", "operation", "WriteSuccess", "error", err)
	}
}

func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	principal, _ := auth.FromContext(r.Context())

	updated, err := h.service.MarkAllRead(r.Context(), principal)
	if err != nil {
		h.writeError(w, "MarkAllRead", err)
		return
	}

	if err := httputil.WriteSuccess(w, map[string]int64{"updated": updated}); err != nil {
		h.log.Error("failed to write success response", "handler", "MarkAllRead", "operation", "WriteSuccess", "error", err)
	}
}
