package leave

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"hrops/internal/domain/audit"
	"hrops/internal/platform/querier"
)

const requestColumns = `
    r.id, r.employee_id, r.policy_id, r.leave_type, r.start_date, r.end_date, r.total_days,
    r.is_half_day, r.is_backdated, r.is_emergency, r.reason, r.status, r.applied_at,
    COALESCE(r.manager_approved_by::text, ''), COALESCE(r.manager_approval_status, ''),
    COALESCE(r.hr_approved_by::text, ''), r.final_approved_at,
    COALESCE(r.ip_address, ''), COALESCE(r.user_agent, '')`

func scanRequest(row pgx.Row) (LeaveRequest, error) {
	var r LeaveRequest
	err := row.Scan(
		&r.ID, &r.EmployeeID, &r.PolicyID, &r.LeaveType, &r.StartDate, &r.EndDate, &r.TotalDays,
		&r.IsHalfDay, &r.IsBackdated, &r.IsEmergency, &r.Reason, &r.Status, &r.AppliedAt,
		&r.ManagerApprovedBy, &r.ManagerApprovalStatus,
		&r.HRApprovedBy, &r.FinalApprovedAt,
		&r.IPAddress, &r.UserAgent,
	)
	return r, err
}

func (s *Store) GetRequest(ctx context.Context, requestID string) (LeaveRequest, error) {
	req, err := scanRequest(s.DB.QueryRow(ctx, `
    SELECT`+requestColumns+`
    FROM leave_requests r
    WHERE r.id = $1
  `, requestID))
	if errors.Is(err, pgx.ErrNoRows) {
		return LeaveRequest{}, fmt.Errorf("%w: leave request %s", ErrNotFound, requestID)
	}
	return req, err
}

func (s *Store) ListRequests(ctx context.Context, filter RequestFilter) ([]LeaveRequest, int, error) {
	where, args := buildRequestWhere(filter)

	var total int
	if err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1)
    FROM leave_requests r
    JOIN employees e ON r.employee_id = e.id
  `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	query := `
    SELECT` + requestColumns + `
    FROM leave_requests r
    JOIN employees e ON r.employee_id = e.id
  ` + where
	// Deterministic ordering: repeated queries over unchanged data return
	// identical pages.
	query += fmt.Sprintf(" ORDER BY r.applied_at DESC, r.id ASC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, filter.Offset)

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []LeaveRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, req)
	}
	return out, total, rows.Err()
}

func buildRequestWhere(filter RequestFilter) (string, []any) {
	where := " WHERE 1=1"
	var args []any
	add := func(clause string, value any) {
		where += fmt.Sprintf(clause, len(args)+1)
		args = append(args, value)
	}

	if filter.EmployeeID != "" {
		add(" AND r.employee_id = $%d", filter.EmployeeID)
	}
	if filter.DepartmentID != "" {
		add(" AND e.department_id = $%d", filter.DepartmentID)
	}
	if filter.PolicyID != "" {
		add(" AND r.policy_id = $%d", filter.PolicyID)
	}
	if filter.Status != "" {
		add(" AND r.status = $%d", filter.Status)
	}
	if !filter.From.IsZero() {
		add(" AND r.end_date >= $%d", filter.From)
	}
	if !filter.To.IsZero() {
		add(" AND r.start_date <= $%d", filter.To)
	}
	if filter.Emergency != nil {
		add(" AND r.is_emergency = $%d", *filter.Emergency)
	}
	if filter.MinDays > 0 {
		add(" AND r.total_days >= $%d", filter.MinDays)
	}
	if filter.MaxDays > 0 {
		add(" AND r.total_days <= $%d", filter.MaxDays)
	}
	if filter.Search != "" {
		pos := len(args) + 1
		where += fmt.Sprintf(" AND (e.first_name ILIKE $%d OR e.last_name ILIKE $%d OR e.email ILIKE $%d OR r.reason ILIKE $%d)", pos, pos, pos, pos)
		args = append(args, "%"+filter.Search+"%")
	}
	return where, args
}

const policyColumns = `
    id, leave_type, name, COALESCE(location, ''), COALESCE(department_id::text, ''),
    approval_level, max_days_per_request, min_notice_days, default_entitlement,
    count_non_working_days, is_active, created_at`

func scanPolicy(row pgx.Row) (LeavePolicy, error) {
	var p LeavePolicy
	err := row.Scan(
		&p.ID, &p.LeaveType, &p.Name, &p.Location, &p.DepartmentID,
		&p.ApprovalLevel, &p.MaxDaysPerRequest, &p.MinNoticeDays, &p.DefaultEntitlement,
		&p.CountNonWorkingDays, &p.IsActive, &p.CreatedAt,
	)
	return p, err
}

func getPolicy(ctx context.Context, db querier.Querier, policyID string) (LeavePolicy, error) {
	policy, err := scanPolicy(db.QueryRow(ctx, `
    SELECT`+policyColumns+`
    FROM leave_policies
    WHERE id = $1
  `, policyID))
	if errors.Is(err, pgx.ErrNoRows) {
		return LeavePolicy{}, fmt.Errorf("%w: leave policy %s", ErrNotFound, policyID)
	}
	return policy, err
}

func (s *Store) GetPolicy(ctx context.Context, policyID string) (LeavePolicy, error) {
	return getPolicy(ctx, s.DB, policyID)
}

func (s *Store) ListPolicies(ctx context.Context, activeOnly bool) ([]LeavePolicy, error) {
	query := `
    SELECT` + policyColumns + `
    FROM leave_policies
  `
	if activeOnly {
		query += " WHERE is_active"
	}
	query += " ORDER BY leave_type, name"

	rows, err := s.DB.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LeavePolicy
	for rows.Next() {
		p, err := scanPolicy(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) GetBalance(ctx context.Context, employeeID, policyID string, fiscalYear int) (LeaveBalance, error) {
	var b LeaveBalance
	err := s.DB.QueryRow(ctx, `
    SELECT id, employee_id, policy_id, fiscal_year, entitled, used, pending, updated_at
    FROM leave_balances
    WHERE employee_id = $1 AND policy_id = $2 AND fiscal_year = $3
  `, employeeID, policyID, fiscalYear).Scan(&b.ID, &b.EmployeeID, &b.PolicyID, &b.FiscalYear, &b.Entitled, &b.Used, &b.Pending, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return LeaveBalance{}, fmt.Errorf("%w: balance for employee %s policy %s year %d", ErrNotFound, employeeID, policyID, fiscalYear)
	}
	return b, err
}

func (s *Store) ListBalances(ctx context.Context, employeeID string, fiscalYear int) ([]LeaveBalance, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, employee_id, policy_id, fiscal_year, entitled, used, pending, updated_at
    FROM leave_balances
    WHERE employee_id = $1 AND fiscal_year = $2
    ORDER BY policy_id
  `, employeeID, fiscalYear)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LeaveBalance
	for rows.Next() {
		var b LeaveBalance
		if err := rows.Scan(&b.ID, &b.EmployeeID, &b.PolicyID, &b.FiscalYear, &b.Entitled, &b.Used, &b.Pending, &b.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// HolidaysBetween returns holidays overlapping [start, end] that apply to the
// location. Holidays with no location apply everywhere.
func (s *Store) HolidaysBetween(ctx context.Context, location string, start, end time.Time) ([]Holiday, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, date, name, COALESCE(location, ''), fiscal_year
    FROM holidays
    WHERE date >= $1 AND date <= $2 AND (location IS NULL OR location = '' OR location = $3)
    ORDER BY date
  `, start, end, location)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Holiday
	for rows.Next() {
		var h Holiday
		if err := rows.Scan(&h.ID, &h.Date, &h.Name, &h.Location, &h.FiscalYear); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (s *Store) EmployeeLocation(ctx context.Context, employeeID string) (string, error) {
	var location string
	err := s.DB.QueryRow(ctx, `
    SELECT COALESCE(location, '') FROM employees WHERE id = $1
  `, employeeID).Scan(&location)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("%w: employee %s", ErrNotFound, employeeID)
	}
	return location, err
}

// IsManagerOf reports whether the manager manages the employee directly or
// heads the employee's department.
func (s *Store) IsManagerOf(ctx context.Context, managerEmployeeID, employeeID string) (bool, error) {
	var ok bool
	err := s.DB.QueryRow(ctx, `
    SELECT EXISTS (
      SELECT 1 FROM employees e
      LEFT JOIN departments d ON e.department_id = d.id
      WHERE e.id = $1 AND (e.manager_id = $2 OR d.manager_id = $2)
    )
  `, employeeID, managerEmployeeID).Scan(&ok)
	return ok, err
}

func (s *Store) DepartmentHeadcount(ctx context.Context, departmentID string) (int, error) {
	var count int
	err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1) FROM employees WHERE department_id = $1 AND status = 'active'
  `, departmentID).Scan(&count)
	return count, err
}

// AbsencesBetween returns approved and pending request intervals for a
// department overlapping [start, end]. Pending requests count so planners see
// risk before approval.
func (s *Store) AbsencesBetween(ctx context.Context, departmentID string, start, end time.Time) ([]Absence, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT r.employee_id, r.start_date, r.end_date
    FROM leave_requests r
    JOIN employees e ON r.employee_id = e.id
    WHERE e.department_id = $1
      AND r.status IN ($2, $3)
      AND r.start_date <= $4 AND r.end_date >= $5
  `, departmentID, StatusApproved, StatusPending, end, start)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Absence
	for rows.Next() {
		var a Absence
		if err := rows.Scan(&a.EmployeeID, &a.StartDate, &a.EndDate); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) AuditTrail(ctx context.Context, requestID string) ([]audit.Entry, error) {
	return audit.New(s.DB).ListForRequest(ctx, requestID)
}
