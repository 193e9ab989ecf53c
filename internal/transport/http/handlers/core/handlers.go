package corehandler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"

	"hrops/internal/domain/auth"
	"hrops/internal/domain/core"
	"hrops/internal/transport/http/api"
	"hrops/internal/transport/http/middleware"
	"hrops/internal/transport/http/shared"
)

type Handler struct {
	Store *core.Store
	Perms middleware.PermissionStore
}

func NewHandler(store *core.Store, perms middleware.PermissionStore) *Handler {
	return &Handler{Store: store, Perms: perms}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/employees", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermEmployeesRead, h.Perms)).Get("/", h.handleListEmployees)
		r.With(middleware.RequirePermission(auth.PermEmployeesRead, h.Perms)).Get("/{employeeID}", h.handleGetEmployee)
		r.With(middleware.RequirePermission(auth.PermEmployeesWrite, h.Perms)).Post("/", h.handleCreateEmployee)
		r.With(middleware.RequirePermission(auth.PermEmployeesWrite, h.Perms)).Put("/{employeeID}", h.handleUpdateEmployee)
	})
	r.Route("/departments", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermOrgRead, h.Perms)).Get("/", h.handleListDepartments)
		r.With(middleware.RequirePermission(auth.PermOrgWrite, h.Perms)).Post("/", h.handleCreateDepartment)
	})
}

func (h *Handler) handleListEmployees(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	departmentID := r.URL.Query().Get("departmentId")
	// Non-admins browse their own department only.
	if user.Role != auth.RoleAdmin {
		departmentID = user.DepartmentID
	}

	page := shared.ParsePagination(r, 50, 200)
	employees, total, err := h.Store.ListEmployees(r.Context(), departmentID, page.Limit, page.Offset)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "employee_list_failed", "failed to list employees", middleware.GetRequestID(r.Context()))
		return
	}
	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	api.Success(w, employees, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetEmployee(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	employeeID := chi.URLParam(r, "employeeID")
	employee, err := h.Store.GetEmployee(r.Context(), employeeID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			api.Fail(w, http.StatusNotFound, "not_found", "employee not found", middleware.GetRequestID(r.Context()))
			return
		}
		api.Fail(w, http.StatusInternalServerError, "employee_get_failed", "failed to load employee", middleware.GetRequestID(r.Context()))
		return
	}

	if user.Role != auth.RoleAdmin && employee.DepartmentID != user.DepartmentID && employee.ID != user.EmployeeID {
		api.Fail(w, http.StatusForbidden, "forbidden", "not allowed", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, employee, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateEmployee(w http.ResponseWriter, r *http.Request) {
	var payload core.Employee
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	v := shared.NewValidator()
	v.Required("firstName", payload.FirstName, "first name required")
	v.Required("lastName", payload.LastName, "last name required")
	v.Required("email", payload.Email, "email required")
	v.Required("departmentId", payload.DepartmentID, "department id required")
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	id, err := h.Store.CreateEmployee(r.Context(), payload)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "employee_create_failed", "failed to create employee", middleware.GetRequestID(r.Context()))
		return
	}
	api.Created(w, map[string]string{"id": id}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdateEmployee(w http.ResponseWriter, r *http.Request) {
	var payload core.Employee
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	payload.ID = chi.URLParam(r, "employeeID")

	if err := h.Store.UpdateEmployee(r.Context(), payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			api.Fail(w, http.StatusNotFound, "not_found", "employee not found", middleware.GetRequestID(r.Context()))
			return
		}
		api.Fail(w, http.StatusInternalServerError, "employee_update_failed", "failed to update employee", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]string{"status": "updated"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListDepartments(w http.ResponseWriter, r *http.Request) {
	departments, err := h.Store.ListDepartments(r.Context())
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "department_list_failed", "failed to list departments", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, departments, middleware.GetRequestID(r.Context()))
}

type departmentPayload struct {
	Name      string `json:"name"`
	ManagerID string `json:"managerId"`
}

func (h *Handler) handleCreateDepartment(w http.ResponseWriter, r *http.Request) {
	var payload departmentPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	v := shared.NewValidator()
	v.Required("name", payload.Name, "name required")
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	id, err := h.Store.CreateDepartment(r.Context(), payload.Name, payload.ManagerID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "department_create_failed", "failed to create department", middleware.GetRequestID(r.Context()))
		return
	}
	api.Created(w, map[string]string{"id": id}, middleware.GetRequestID(r.Context()))
}
