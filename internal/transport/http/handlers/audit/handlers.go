package audithandler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"hrops/internal/domain/audit"
	"hrops/internal/domain/auth"
	"hrops/internal/transport/http/api"
	"hrops/internal/transport/http/middleware"
	"hrops/internal/transport/http/shared"
)

type Handler struct {
	Recorder *audit.Recorder
	Perms    middleware.PermissionStore
}

func NewHandler(recorder *audit.Recorder, perms middleware.PermissionStore) *Handler {
	return &Handler{Recorder: recorder, Perms: perms}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.With(middleware.RequirePermission(auth.PermAuditRead, h.Perms)).Get("/audit", h.handleList)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := audit.Filter{
		RequestID: query.Get("requestId"),
		ActorID:   query.Get("actorId"),
		Action:    query.Get("action"),
	}
	if raw := query.Get("from"); raw != "" {
		from, err := shared.ParseDate(raw)
		if err != nil {
			api.Fail(w, http.StatusBadRequest, "validation_error", "invalid from date", middleware.GetRequestID(r.Context()))
			return
		}
		filter.From = from
	}
	if raw := query.Get("to"); raw != "" {
		to, err := shared.ParseDate(raw)
		if err != nil {
			api.Fail(w, http.StatusBadRequest, "validation_error", "invalid to date", middleware.GetRequestID(r.Context()))
			return
		}
		filter.To = to
	}

	page := shared.ParsePagination(r, 100, 500)
	total, err := h.Recorder.Count(r.Context(), filter)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "audit_list_failed", "failed to count audit entries", middleware.GetRequestID(r.Context()))
		return
	}
	entries, err := h.Recorder.List(r.Context(), filter, page.Limit, page.Offset)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "audit_list_failed", "failed to list audit entries", middleware.GetRequestID(r.Context()))
		return
	}
	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	api.Success(w, entries, middleware.GetRequestID(r.Context()))
}
