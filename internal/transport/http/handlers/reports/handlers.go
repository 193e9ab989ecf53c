package reportshandler

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"hrops/internal/domain/auth"
	"hrops/internal/domain/reports"
	"hrops/internal/platform/jobs"
	"hrops/internal/transport/http/api"
	"hrops/internal/transport/http/middleware"
	"hrops/internal/transport/http/shared"
)

type Handler struct {
	Service      *reports.Service
	Perms        middleware.PermissionStore
	Jobs         *jobs.Service
	OverdueAfter time.Duration
}

func NewHandler(service *reports.Service, perms middleware.PermissionStore, jobsSvc *jobs.Service, overdueAfter time.Duration) *Handler {
	if overdueAfter <= 0 {
		overdueAfter = 72 * time.Hour
	}
	return &Handler{Service: service, Perms: perms, Jobs: jobsSvc, OverdueAfter: overdueAfter}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/reports", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermReportsRead, h.Perms)).Get("/balances", h.handleBalances)
		r.With(middleware.RequirePermission(auth.PermReportsRead, h.Perms)).Get("/usage", h.handleUsage)
		r.With(middleware.RequirePermission(auth.PermReportsRead, h.Perms)).Get("/overdue", h.handleOverdue)
	})
}

func (h *Handler) handleBalances(w http.ResponseWriter, r *http.Request) {
	fiscalYear := time.Now().UTC().Year()
	if raw := r.URL.Query().Get("fiscalYear"); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			api.Fail(w, http.StatusBadRequest, "validation_error", "invalid fiscal year", middleware.GetRequestID(r.Context()))
			return
		}
		fiscalYear = year
	}

	format := strings.ToLower(r.URL.Query().Get("format"))
	switch format {
	case "", "json":
		rows, err := h.Service.BalanceSummary(r.Context(), fiscalYear)
		if err != nil {
			api.Fail(w, http.StatusInternalServerError, "report_failed", "failed to load balance report", middleware.GetRequestID(r.Context()))
			return
		}
		api.Success(w, rows, middleware.GetRequestID(r.Context()))
	case "csv":
		rows, err := h.Service.BalanceSummary(r.Context(), fiscalYear)
		if err != nil {
			api.Fail(w, http.StatusInternalServerError, "report_failed", "failed to load balance report", middleware.GetRequestID(r.Context()))
			return
		}
		h.writeBalanceCSV(w, rows, fiscalYear)
	case "pdf":
		h.writeBalancePDF(w, r, fiscalYear)
	default:
		api.Fail(w, http.StatusBadRequest, "validation_error", "unknown format", middleware.GetRequestID(r.Context()))
	}
}

func (h *Handler) writeBalanceCSV(w http.ResponseWriter, rows []reports.BalanceRow, fiscalYear int) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=leave-balances-%d.csv", fiscalYear))
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"employee_id", "employee_name", "leave_type", "fiscal_year", "entitled", "used", "pending", "available"}); err != nil {
		slog.Warn("balance csv header write failed", "err", err)
	}
	for _, row := range rows {
		record := []string{
			row.EmployeeID,
			row.EmployeeName,
			row.LeaveType,
			strconv.Itoa(row.FiscalYear),
			strconv.FormatFloat(row.Entitled, 'f', 1, 64),
			strconv.FormatFloat(row.Used, 'f', 1, 64),
			strconv.FormatFloat(row.Pending, 'f', 1, 64),
			strconv.FormatFloat(row.Available, 'f', 1, 64),
		}
		if err := writer.Write(record); err != nil {
			slog.Warn("balance csv row write failed", "err", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		slog.Warn("balance csv flush failed", "err", err)
	}
}

func (h *Handler) writeBalancePDF(w http.ResponseWriter, r *http.Request, fiscalYear int) {
	render := func(runCtx context.Context) (any, error) {
		var buf bytes.Buffer
		if err := h.Service.WriteBalancePDF(runCtx, &buf, fiscalYear); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}

	var result any
	var err error
	if h.Jobs != nil {
		result, err = h.Jobs.RunNow(r.Context(), jobs.JobReportExport, render)
	} else {
		result, err = render(r.Context())
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "report_failed", "failed to render balance report", middleware.GetRequestID(r.Context()))
		return
	}
	data, ok := result.([]byte)
	if !ok {
		api.Fail(w, http.StatusInternalServerError, "report_failed", "failed to render balance report", middleware.GetRequestID(r.Context()))
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=leave-balances-%d.pdf", fiscalYear))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	if _, err := w.Write(data); err != nil {
		slog.Warn("balance pdf write failed", "err", err)
	}
}

func (h *Handler) handleUsage(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	from := now.AddDate(0, -12, 0)
	to := now

	if raw := r.URL.Query().Get("from"); raw != "" {
		parsed, err := shared.ParseDate(raw)
		if err != nil {
			api.Fail(w, http.StatusBadRequest, "validation_error", "invalid from date", middleware.GetRequestID(r.Context()))
			return
		}
		from = parsed
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		parsed, err := shared.ParseDate(raw)
		if err != nil {
			api.Fail(w, http.StatusBadRequest, "validation_error", "invalid to date", middleware.GetRequestID(r.Context()))
			return
		}
		to = parsed
	}

	rows, err := h.Service.UsageByPolicy(r.Context(), from, to)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "report_failed", "failed to load usage report", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, rows, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleOverdue(w http.ResponseWriter, r *http.Request) {
	olderThan := h.OverdueAfter
	if raw := r.URL.Query().Get("olderThanHours"); raw != "" {
		hours, err := strconv.Atoi(raw)
		if err != nil || hours <= 0 {
			api.Fail(w, http.StatusBadRequest, "validation_error", "invalid olderThanHours", middleware.GetRequestID(r.Context()))
			return
		}
		olderThan = time.Duration(hours) * time.Hour
	}

	rows, err := h.Service.OverduePending(r.Context(), olderThan)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "report_failed", "failed to load overdue report", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, rows, middleware.GetRequestID(r.Context()))
}
