package leavehandler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"hrops/internal/domain/auth"
	"hrops/internal/domain/leave"
	"hrops/internal/domain/notifications"
	"hrops/internal/platform/jobs"
	"hrops/internal/transport/http/api"
	"hrops/internal/transport/http/middleware"
	"hrops/internal/transport/http/shared"
)

const maxSubmitBodyBytes = 64 * 1024

type Handler struct {
	Engine      *leave.Engine
	Store       *leave.Store
	Perms       middleware.PermissionStore
	Notify      *notifications.Service
	Jobs        *jobs.Service
	Idempotency *middleware.IdempotencyStore
}

func NewHandler(engine *leave.Engine, store *leave.Store, perms middleware.PermissionStore, notify *notifications.Service, jobsSvc *jobs.Service, idem *middleware.IdempotencyStore) *Handler {
	return &Handler{Engine: engine, Store: store, Perms: perms, Notify: notify, Jobs: jobsSvc, Idempotency: idem}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/leave", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermLeaveRead, h.Perms)).Get("/policies", h.handleListPolicies)
		r.With(middleware.RequirePermission(auth.PermLeaveAdmin, h.Perms)).Post("/policies", h.handleCreatePolicy)
		r.With(middleware.RequirePermission(auth.PermLeaveAdmin, h.Perms)).Put("/policies/{policyID}", h.handleUpdatePolicy)
		r.With(middleware.RequirePermission(auth.PermLeaveRead, h.Perms)).Get("/holidays", h.handleListHolidays)
		r.With(middleware.RequirePermission(auth.PermLeaveAdmin, h.Perms)).Post("/holidays", h.handleCreateHoliday)
		r.With(middleware.RequirePermission(auth.PermLeaveAdmin, h.Perms)).Delete("/holidays/{holidayID}", h.handleDeleteHoliday)
		r.With(middleware.RequirePermission(auth.PermLeaveRead, h.Perms)).Get("/balances", h.handleListBalances)
		r.With(middleware.RequirePermission(auth.PermLeaveRead, h.Perms)).Get("/balances/{policyID}", h.handleGetBalance)
		r.With(middleware.RequirePermission(auth.PermLeaveAdmin, h.Perms)).Post("/balances/seed", h.handleSeedBalances)
		r.With(middleware.RequirePermission(auth.PermLeaveRead, h.Perms)).Get("/requests", h.handleListRequests)
		r.With(middleware.RequirePermission(auth.PermLeaveWrite, h.Perms)).Post("/requests", h.handleSubmitRequest)
		r.With(middleware.RequirePermission(auth.PermLeaveRead, h.Perms)).Get("/requests/{requestID}", h.handleGetRequest)
		r.With(middleware.RequirePermission(auth.PermLeaveRead, h.Perms)).Get("/requests/{requestID}/audit", h.handleRequestAudit)
		r.With(middleware.RequirePermission(auth.PermLeaveApprove, h.Perms)).Post("/requests/{requestID}/approve", h.handleApproveRequest)
		r.With(middleware.RequirePermission(auth.PermLeaveApprove, h.Perms)).Post("/requests/{requestID}/reject", h.handleRejectRequest)
		r.With(middleware.RequirePermission(auth.PermLeaveWrite, h.Perms)).Post("/requests/{requestID}/cancel", h.handleCancelRequest)
		r.With(middleware.RequirePermission(auth.PermCoverageRead, h.Perms)).Get("/coverage", h.handleCoverage)
		r.With(middleware.RequirePermission(auth.PermCoverageRead, h.Perms)).Get("/conflicts", h.handleConflicts)
	})
}

// failFromErr translates engine sentinels into the HTTP error taxonomy. The
// message carries the sentinel detail so clients see which rule tripped.
func failFromErr(w http.ResponseWriter, err error, requestID string) {
	switch {
	case errors.Is(err, leave.ErrValidation):
		api.Fail(w, http.StatusBadRequest, "validation_error", err.Error(), requestID)
	case errors.Is(err, leave.ErrPolicyViolation):
		api.Fail(w, http.StatusUnprocessableEntity, "policy_violation", err.Error(), requestID)
	case errors.Is(err, leave.ErrInsufficientBalance):
		api.Fail(w, http.StatusUnprocessableEntity, "insufficient_balance", err.Error(), requestID)
	case errors.Is(err, leave.ErrInvalidStateTransition):
		api.Fail(w, http.StatusConflict, "invalid_state", err.Error(), requestID)
	case errors.Is(err, leave.ErrConcurrencyConflict):
		api.Fail(w, http.StatusConflict, "concurrency_conflict", "request conflicted with a concurrent update, retry", requestID)
	case errors.Is(err, leave.ErrForbidden):
		api.Fail(w, http.StatusForbidden, "forbidden", err.Error(), requestID)
	case errors.Is(err, leave.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", err.Error(), requestID)
	default:
		api.Fail(w, http.StatusInternalServerError, "internal_error", "unexpected failure", requestID)
	}
}

type submitPayload struct {
	EmployeeID  string `json:"employeeId"`
	PolicyID    string `json:"policyId"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
	Reason      string `json:"reason"`
	IsEmergency bool   `json:"isEmergency"`
	IsHalfDay   bool   `json:"isHalfDay"`
}

func (h *Handler) handleSubmitRequest(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxSubmitBodyBytes))
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	idemKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	requestHash := middleware.RequestHash(body)
	if idemKey != "" {
		stored, found, err := h.Idempotency.Check(r.Context(), user.UserID, "/leave/requests", idemKey, requestHash)
		if errors.Is(err, middleware.ErrIdempotencyConflict) {
			api.Fail(w, http.StatusConflict, "idempotency_conflict", "idempotency key reused with a different payload", middleware.GetRequestID(r.Context()))
			return
		}
		if err != nil {
			slog.Warn("idempotency check failed", "key", idemKey, "err", err)
		} else if found {
			var replay leave.LeaveRequest
			if err := json.Unmarshal(stored, &replay); err == nil {
				api.Success(w, replay, middleware.GetRequestID(r.Context()))
				return
			}
			slog.Warn("idempotency replay decode failed", "key", idemKey, "err", err)
		}
	}

	var payload submitPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	v := shared.NewValidator()
	v.Required("policyId", payload.PolicyID, "policy id required")
	startDate, _ := v.Date("startDate", payload.StartDate)
	endDate, _ := v.Date("endDate", payload.EndDate)
	v.DateOrder("startDate", startDate, "endDate", endDate)
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	created, err := h.Engine.Submit(r.Context(), user, leave.SubmitInput{
		EmployeeID:  payload.EmployeeID,
		PolicyID:    payload.PolicyID,
		StartDate:   startDate,
		EndDate:     endDate,
		Reason:      payload.Reason,
		IsEmergency: payload.IsEmergency,
		IsHalfDay:   payload.IsHalfDay,
		IPAddress:   shared.ClientIP(r),
		UserAgent:   r.UserAgent(),
	})
	if err != nil {
		failFromErr(w, err, middleware.GetRequestID(r.Context()))
		return
	}

	if idemKey != "" {
		if response, err := json.Marshal(created); err == nil {
			if err := h.Idempotency.Save(r.Context(), user.UserID, "/leave/requests", idemKey, requestHash, response); err != nil {
				slog.Warn("idempotency save failed", "key", idemKey, "err", err)
			}
		}
	}

	h.notifySubmitted(r.Context(), created)

	api.Created(w, created, middleware.GetRequestID(r.Context()))
}

func (h *Handler) notifySubmitted(ctx context.Context, req leave.LeaveRequest) {
	if h.Notify == nil {
		return
	}
	managerUserID, err := h.Notify.ManagerUserIDForEmployee(ctx, req.EmployeeID)
	if err != nil {
		slog.Warn("manager lookup for notification failed", "employeeId", req.EmployeeID, "err", err)
		return
	}
	body := fmt.Sprintf("A leave request for %s to %s is awaiting approval.",
		req.StartDate.Format(shared.DateLayout), req.EndDate.Format(shared.DateLayout))
	if err := h.Notify.Notify(ctx, managerUserID, notifications.KindLeaveSubmitted, "Leave request submitted", body); err != nil {
		slog.Warn("leave submitted notification failed", "requestId", req.ID, "err", err)
	}
}

func (h *Handler) notifyEmployee(ctx context.Context, req leave.LeaveRequest, kind, title, body string) {
	if h.Notify == nil {
		return
	}
	userID, err := h.Notify.UserIDForEmployee(ctx, req.EmployeeID)
	if err != nil {
		slog.Warn("employee lookup for notification failed", "employeeId", req.EmployeeID, "err", err)
		return
	}
	if err := h.Notify.Notify(ctx, userID, kind, title, body); err != nil {
		slog.Warn("leave decision notification failed", "requestId", req.ID, "err", err)
	}
}

type decisionPayload struct {
	Comments string `json:"comments"`
	Reason   string `json:"reason"`
}

func decodeDecision(r *http.Request) (decisionPayload, error) {
	var payload decisionPayload
	err := json.NewDecoder(r.Body).Decode(&payload)
	if err != nil && !errors.Is(err, io.EOF) {
		return decisionPayload{}, err
	}
	return payload, nil
}

func (h *Handler) handleApproveRequest(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	payload, err := decodeDecision(r)
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	result, err := h.Engine.Approve(r.Context(), user, leave.DecisionInput{
		RequestID: chi.URLParam(r, "requestID"),
		Comments:  payload.Comments,
		IPAddress: shared.ClientIP(r),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		failFromErr(w, err, middleware.GetRequestID(r.Context()))
		return
	}

	if result.Status == leave.StatusApproved {
		h.notifyEmployee(r.Context(), result, notifications.KindLeaveApproved,
			"Leave approved", "Your leave request was approved.")
	}

	api.Success(w, result, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleRejectRequest(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	payload, err := decodeDecision(r)
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	result, err := h.Engine.Reject(r.Context(), user, leave.DecisionInput{
		RequestID: chi.URLParam(r, "requestID"),
		Comments:  payload.Comments,
		IPAddress: shared.ClientIP(r),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		failFromErr(w, err, middleware.GetRequestID(r.Context()))
		return
	}

	h.notifyEmployee(r.Context(), result, notifications.KindLeaveRejected,
		"Leave rejected", "Your leave request was rejected.")

	api.Success(w, result, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCancelRequest(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	payload, err := decodeDecision(r)
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	result, err := h.Engine.Cancel(r.Context(), user, leave.CancelInput{
		RequestID: chi.URLParam(r, "requestID"),
		Reason:    payload.Reason,
		IPAddress: shared.ClientIP(r),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		failFromErr(w, err, middleware.GetRequestID(r.Context()))
		return
	}

	h.notifyEmployee(r.Context(), result, notifications.KindLeaveCancelled,
		"Leave cancelled", "Your leave request was cancelled.")

	api.Success(w, result, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListRequests(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	query := r.URL.Query()
	page := shared.ParsePagination(r, 50, 200)
	filter := leave.RequestFilter{
		EmployeeID:   query.Get("employeeId"),
		DepartmentID: query.Get("departmentId"),
		PolicyID:     query.Get("policyId"),
		Status:       query.Get("status"),
		Search:       query.Get("q"),
		Limit:        page.Limit,
		Offset:       page.Offset,
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
	if raw := query.Get("emergency"); raw != "" {
		emergency, err := strconv.ParseBool(raw)
		if err != nil {
			api.Fail(w, http.StatusBadRequest, "validation_error", "invalid emergency flag", middleware.GetRequestID(r.Context()))
			return
		}
		filter.Emergency = &emergency
	}
	if raw := query.Get("minDays"); raw != "" {
		if days, err := strconv.ParseFloat(raw, 64); err == nil {
			filter.MinDays = days
		}
	}
	if raw := query.Get("maxDays"); raw != "" {
		if days, err := strconv.ParseFloat(raw, 64); err == nil {
			filter.MaxDays = days
		}
	}

	requests, total, err := h.Engine.List(r.Context(), user, filter)
	if err != nil {
		failFromErr(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	api.Success(w, requests, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	req, err := h.Engine.Get(r.Context(), user, chi.URLParam(r, "requestID"))
	if err != nil {
		failFromErr(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, req, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleRequestAudit(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	trail, err := h.Engine.AuditTrail(r.Context(), user, chi.URLParam(r, "requestID"))
	if err != nil {
		failFromErr(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, trail, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListBalances(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	employeeID := r.URL.Query().Get("employeeId")
	fiscalYear := 0
	if raw := r.URL.Query().Get("fiscalYear"); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			api.Fail(w, http.StatusBadRequest, "validation_error", "invalid fiscal year", middleware.GetRequestID(r.Context()))
			return
		}
		fiscalYear = year
	}

	balances, err := h.Engine.Balances(r.Context(), user, employeeID, fiscalYear)
	if err != nil {
		failFromErr(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, balances, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetBalance(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	employeeID := r.URL.Query().Get("employeeId")
	fiscalYear := 0
	if raw := r.URL.Query().Get("fiscalYear"); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			api.Fail(w, http.StatusBadRequest, "validation_error", "invalid fiscal year", middleware.GetRequestID(r.Context()))
			return
		}
		fiscalYear = year
	}

	balance, err := h.Engine.Balance(r.Context(), user, employeeID, chi.URLParam(r, "policyID"), fiscalYear)
	if err != nil {
		failFromErr(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, balance, middleware.GetRequestID(r.Context()))
}

type seedPayload struct {
	EmployeeID string  `json:"employeeId"`
	PolicyID   string  `json:"policyId"`
	FiscalYear int     `json:"fiscalYear"`
	Days       float64 `json:"days"`
}

func (h *Handler) handleSeedBalances(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload seedPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	v := shared.NewValidator()
	v.Required("employeeId", payload.EmployeeID, "employee id required")
	v.Required("policyId", payload.PolicyID, "policy id required")
	if payload.FiscalYear < 2000 || payload.FiscalYear > 2200 {
		v.Add("fiscalYear", "fiscal year out of range")
	}
	if payload.Days <= 0 {
		v.Add("days", "days must be positive")
	}
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	run := func(runCtx context.Context) (any, error) {
		return nil, h.Store.SeedEntitlement(runCtx, payload.EmployeeID, payload.PolicyID, payload.FiscalYear, payload.Days)
	}
	var err error
	if h.Jobs != nil {
		_, err = h.Jobs.RunNow(r.Context(), jobs.JobBalanceSeed, run)
	} else {
		_, err = run(r.Context())
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "seed_failed", "failed to seed entitlement", middleware.GetRequestID(r.Context()))
		return
	}

	slog.Info("entitlement seeded", "employeeId", payload.EmployeeID, "policyId", payload.PolicyID,
		"fiscalYear", payload.FiscalYear, "days", payload.Days, "actorId", user.UserID)
	api.Success(w, map[string]string{"status": "seeded"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListPolicies(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("all") == ""
	policies, err := h.Store.ListPolicies(r.Context(), activeOnly)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "policy_list_failed", "failed to list policies", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, policies, middleware.GetRequestID(r.Context()))
}

func validatePolicyPayload(v *shared.Validator, p leave.LeavePolicy) {
	v.Required("leaveType", p.LeaveType, "leave type required")
	v.Required("name", p.Name, "name required")
	v.Enum("approvalLevel", p.ApprovalLevel,
		[]string{leave.ApprovalManager, leave.ApprovalHR, leave.ApprovalBoth}, "unknown approval level")
	if p.MaxDaysPerRequest < 0 {
		v.Add("maxDaysPerRequest", "must not be negative")
	}
	if p.MinNoticeDays < 0 {
		v.Add("minNoticeDays", "must not be negative")
	}
	if p.DefaultEntitlement < 0 {
		v.Add("defaultEntitlement", "must not be negative")
	}
}

func (h *Handler) handleCreatePolicy(w http.ResponseWriter, r *http.Request) {
	var payload leave.LeavePolicy
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	v := shared.NewValidator()
	validatePolicyPayload(v, payload)
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	id, err := h.Store.CreatePolicy(r.Context(), payload)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "policy_create_failed", "failed to create policy", middleware.GetRequestID(r.Context()))
		return
	}
	api.Created(w, map[string]string{"id": id}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdatePolicy(w http.ResponseWriter, r *http.Request) {
	var payload leave.LeavePolicy
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	payload.ID = chi.URLParam(r, "policyID")

	v := shared.NewValidator()
	validatePolicyPayload(v, payload)
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	if err := h.Store.UpdatePolicy(r.Context(), payload); err != nil {
		if errors.Is(err, leave.ErrNotFound) {
			api.Fail(w, http.StatusNotFound, "not_found", "policy not found", middleware.GetRequestID(r.Context()))
			return
		}
		api.Fail(w, http.StatusInternalServerError, "policy_update_failed", "failed to update policy", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]string{"status": "updated"}, middleware.GetRequestID(r.Context()))
}

type holidayPayload struct {
	Date       string `json:"date"`
	Name       string `json:"name"`
	Location   string `json:"location"`
	FiscalYear int    `json:"fiscalYear"`
}

func (h *Handler) handleListHolidays(w http.ResponseWriter, r *http.Request) {
	fiscalYear := 0
	if raw := r.URL.Query().Get("fiscalYear"); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			api.Fail(w, http.StatusBadRequest, "validation_error", "invalid fiscal year", middleware.GetRequestID(r.Context()))
			return
		}
		fiscalYear = year
	}
	holidays, err := h.Store.ListHolidays(r.Context(), fiscalYear)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "holiday_list_failed", "failed to list holidays", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, holidays, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateHoliday(w http.ResponseWriter, r *http.Request) {
	var payload holidayPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	v := shared.NewValidator()
	v.Required("name", payload.Name, "name required")
	holidayDate, _ := v.Date("date", payload.Date)
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	fiscalYear := payload.FiscalYear
	if fiscalYear == 0 {
		fiscalYear = holidayDate.Year()
	}
	id, err := h.Store.CreateHoliday(r.Context(), holidayDate, payload.Name, payload.Location, fiscalYear)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "holiday_create_failed", "failed to create holiday", middleware.GetRequestID(r.Context()))
		return
	}
	api.Created(w, map[string]string{"id": id}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDeleteHoliday(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteHoliday(r.Context(), chi.URLParam(r, "holidayID")); err != nil {
		if errors.Is(err, leave.ErrNotFound) {
			api.Fail(w, http.StatusNotFound, "not_found", "holiday not found", middleware.GetRequestID(r.Context()))
			return
		}
		api.Fail(w, http.StatusInternalServerError, "holiday_delete_failed", "failed to delete holiday", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]string{"status": "deleted"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) coverageWindow(r *http.Request) (time.Time, time.Time, error) {
	from, err := shared.ParseDate(r.URL.Query().Get("from"))
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid from date")
	}
	to, err := shared.ParseDate(r.URL.Query().Get("to"))
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid to date")
	}
	return from, to, nil
}

func (h *Handler) handleCoverage(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	from, to, err := h.coverageWindow(r)
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "validation_error", err.Error(), middleware.GetRequestID(r.Context()))
		return
	}

	days, err := h.Engine.Coverage(r.Context(), user, r.URL.Query().Get("departmentId"), from, to)
	if err != nil {
		failFromErr(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, days, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleConflicts(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	from, to, err := h.coverageWindow(r)
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "validation_error", err.Error(), middleware.GetRequestID(r.Context()))
		return
	}
	minTeamSize, err := strconv.Atoi(r.URL.Query().Get("minTeamSize"))
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "validation_error", "invalid minTeamSize", middleware.GetRequestID(r.Context()))
		return
	}

	days, err := h.Engine.DetectConflicts(r.Context(), user, r.URL.Query().Get("departmentId"), from, to, minTeamSize)
	if err != nil {
		failFromErr(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, days, middleware.GetRequestID(r.Context()))
}
