package leave

import (
	"context"
	"fmt"
	"time"
)

// Policy edits apply prospectively only: the engine reads the policy row at
// submit and decision time, never a snapshot stored on the request.

func (s *Store) CreatePolicy(ctx context.Context, p LeavePolicy) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO leave_policies
      (leave_type, name, location, department_id, approval_level, max_days_per_request,
       min_notice_days, default_entitlement, count_non_working_days, is_active)
    VALUES ($1,$2,NULLIF($3,''),NULLIF($4,'')::uuid,$5,$6,$7,$8,$9,$10)
    RETURNING id
  `, p.LeaveType, p.Name, p.Location, p.DepartmentID, p.ApprovalLevel, p.MaxDaysPerRequest,
		p.MinNoticeDays, p.DefaultEntitlement, p.CountNonWorkingDays, p.IsActive).Scan(&id)
	return id, err
}

func (s *Store) UpdatePolicy(ctx context.Context, p LeavePolicy) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE leave_policies
    SET name = $1, location = NULLIF($2,''), department_id = NULLIF($3,'')::uuid,
        approval_level = $4, max_days_per_request = $5, min_notice_days = $6,
        default_entitlement = $7, count_non_working_days = $8, is_active = $9
    WHERE id = $10
  `, p.Name, p.Location, p.DepartmentID, p.ApprovalLevel, p.MaxDaysPerRequest,
		p.MinNoticeDays, p.DefaultEntitlement, p.CountNonWorkingDays, p.IsActive, p.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: leave policy %s", ErrNotFound, p.ID)
	}
	return nil
}

func (s *Store) ListHolidays(ctx context.Context, fiscalYear int) ([]Holiday, error) {
	query := `
    SELECT id, date, name, COALESCE(location, ''), fiscal_year
    FROM holidays
  `
	var args []any
	if fiscalYear > 0 {
		query += " WHERE fiscal_year = $1"
		args = append(args, fiscalYear)
	}
	query += " ORDER BY date"

	rows, err := s.DB.Query(ctx, query, args...)
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

func (s *Store) CreateHoliday(ctx context.Context, date time.Time, name, location string, fiscalYear int) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO holidays (date, name, location, fiscal_year)
    VALUES ($1,$2,NULLIF($3,''),$4)
    RETURNING id
  `, date, name, location, fiscalYear).Scan(&id)
	return id, err
}

func (s *Store) DeleteHoliday(ctx context.Context, holidayID string) error {
	tag, err := s.DB.Exec(ctx, "DELETE FROM holidays WHERE id = $1", holidayID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: holiday %s", ErrNotFound, holidayID)
	}
	return nil
}

// SeedEntitlement creates or tops up one balance row. Administrative seeding
// is additive so repeated runs for new fiscal years never claw back usage.
func (s *Store) SeedEntitlement(ctx context.Context, employeeID, policyID string, fiscalYear int, days float64) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO leave_balances (employee_id, policy_id, fiscal_year, entitled, used, pending)
    VALUES ($1,$2,$3,$4,0,0)
    ON CONFLICT (employee_id, policy_id, fiscal_year)
    DO UPDATE SET entitled = leave_balances.entitled + EXCLUDED.entitled, updated_at = now()
  `, employeeID, policyID, fiscalYear, days)
	return err
}
