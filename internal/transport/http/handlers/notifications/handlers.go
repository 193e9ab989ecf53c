package notificationshandler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"

	"hrops/internal/domain/auth"
	"hrops/internal/domain/notifications"
	"hrops/internal/transport/http/api"
	"hrops/internal/transport/http/middleware"
	"hrops/internal/transport/http/shared"
)

type Handler struct {
	Service *notifications.Service
	Perms   middleware.PermissionStore
}

func NewHandler(service *notifications.Service, perms middleware.PermissionStore) *Handler {
	return &Handler{Service: service, Perms: perms}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/notifications", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermNotificationsRead, h.Perms)).Get("/", h.handleList)
		r.With(middleware.RequirePermission(auth.PermNotificationsRead, h.Perms)).Post("/{notificationID}/read", h.handleMarkRead)
		r.With(middleware.RequirePermission(auth.PermNotificationsRead, h.Perms)).Post("/read-all", h.handleMarkAllRead)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	unreadOnly := r.URL.Query().Get("unread") == "true"
	page := shared.ParsePagination(r, 50, 200)
	items, total, err := h.Service.List(r.Context(), user.UserID, unreadOnly, page.Limit, page.Offset)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "notification_list_failed", "failed to list notifications", middleware.GetRequestID(r.Context()))
		return
	}
	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	api.Success(w, items, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	notificationID := chi.URLParam(r, "notificationID")
	if err := h.Service.MarkRead(r.Context(), user.UserID, notificationID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			api.Fail(w, http.StatusNotFound, "not_found", "notification not found", middleware.GetRequestID(r.Context()))
			return
		}
		api.Fail(w, http.StatusInternalServerError, "notification_update_failed", "failed to mark notification read", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]string{"status": "read"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	if err := h.Service.MarkAllRead(r.Context(), user.UserID); err != nil {
		api.Fail(w, http.StatusInternalServerError, "notification_update_failed", "failed to mark notifications read", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]string{"status": "read"}, middleware.GetRequestID(r.Context()))
}
