package leave

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"hrops/internal/domain/audit"
)

func (t *txStore) GetPolicy(ctx context.Context, policyID string) (LeavePolicy, error) {
	return getPolicy(ctx, t.DB, policyID)
}

func (t *txStore) RequestForUpdate(ctx context.Context, requestID string) (LeaveRequest, error) {
	req, err := scanRequest(t.DB.QueryRow(ctx, `
    SELECT`+requestColumns+`
    FROM leave_requests r
    WHERE r.id = $1
    FOR UPDATE
  `, requestID))
	if errors.Is(err, pgx.ErrNoRows) {
		return LeaveRequest{}, fmt.Errorf("%w: leave request %s", ErrNotFound, requestID)
	}
	return req, err
}

func (t *txStore) BalanceForUpdate(ctx context.Context, employeeID, policyID string, fiscalYear int) (LeaveBalance, error) {
	var b LeaveBalance
	err := t.DB.QueryRow(ctx, `
    SELECT id, employee_id, policy_id, fiscal_year, entitled, used, pending, updated_at
    FROM leave_balances
    WHERE employee_id = $1 AND policy_id = $2 AND fiscal_year = $3
    FOR UPDATE
  `, employeeID, policyID, fiscalYear).Scan(&b.ID, &b.EmployeeID, &b.PolicyID, &b.FiscalYear, &b.Entitled, &b.Used, &b.Pending, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return LeaveBalance{}, fmt.Errorf("%w: balance for employee %s policy %s year %d", ErrNotFound, employeeID, policyID, fiscalYear)
	}
	return b, err
}

func (t *txStore) InsertRequest(ctx context.Context, req LeaveRequest) (string, error) {
	var id string
	err := t.DB.QueryRow(ctx, `
    INSERT INTO leave_requests
      (employee_id, policy_id, leave_type, start_date, end_date, total_days,
       is_half_day, is_backdated, is_emergency, reason, status,
       ip_address, user_agent)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,NULLIF($12,''),NULLIF($13,''))
    RETURNING id
  `, req.EmployeeID, req.PolicyID, req.LeaveType, req.StartDate, req.EndDate, req.TotalDays,
		req.IsHalfDay, req.IsBackdated, req.IsEmergency, req.Reason, req.Status,
		req.IPAddress, req.UserAgent).Scan(&id)
	return id, err
}

func (t *txStore) ApplyManagerApproval(ctx context.Context, requestID, approverID string) error {
	_, err := t.DB.Exec(ctx, `
    UPDATE leave_requests
    SET manager_approval_status = $1, manager_approved_by = $2
    WHERE id = $3
  `, StatusApproved, approverID, requestID)
	return err
}

// ApplyDecision writes a terminal approve or reject, stamping the column of
// the step that decided.
func (t *txStore) ApplyDecision(ctx context.Context, requestID, status string, step ApproverStep, approverID string) error {
	var err error
	if step == StepHR {
		_, err = t.DB.Exec(ctx, `
      UPDATE leave_requests
      SET status = $1, hr_approved_by = $2,
          final_approved_at = CASE WHEN $1 = 'approved' THEN now() ELSE final_approved_at END
      WHERE id = $3
    `, status, approverID, requestID)
	} else {
		_, err = t.DB.Exec(ctx, `
      UPDATE leave_requests
      SET status = $1, manager_approved_by = $2, manager_approval_status = $1,
          final_approved_at = CASE WHEN $1 = 'approved' THEN now() ELSE final_approved_at END
      WHERE id = $3
    `, status, approverID, requestID)
	}
	return err
}

func (t *txStore) ApplyCancellation(ctx context.Context, requestID string) error {
	_, err := t.DB.Exec(ctx, `
    UPDATE leave_requests SET status = $1 WHERE id = $2
  `, StatusCancelled, requestID)
	return err
}

// Ledger operations. Each touches exactly one balance row; the engine holds
// the row lock and has re-validated preconditions before calling, the WHERE
// guards are the last line of defence against a negative ledger.
func (t *txStore) Reserve(ctx context.Context, employeeID, policyID string, fiscalYear int, days float64) error {
	return t.mutateBalance(ctx, `
    UPDATE leave_balances
    SET pending = pending + $1, updated_at = now()
    WHERE employee_id = $2 AND policy_id = $3 AND fiscal_year = $4
      AND entitled - used - pending >= $1
  `, employeeID, policyID, fiscalYear, days)
}

func (t *txStore) Commit(ctx context.Context, employeeID, policyID string, fiscalYear int, days float64) error {
	return t.mutateBalance(ctx, `
    UPDATE leave_balances
    SET pending = pending - $1, used = used + $1, updated_at = now()
    WHERE employee_id = $2 AND policy_id = $3 AND fiscal_year = $4
      AND pending >= $1
  `, employeeID, policyID, fiscalYear, days)
}

func (t *txStore) ReleaseReservation(ctx context.Context, employeeID, policyID string, fiscalYear int, days float64) error {
	return t.mutateBalance(ctx, `
    UPDATE leave_balances
    SET pending = pending - $1, updated_at = now()
    WHERE employee_id = $2 AND policy_id = $3 AND fiscal_year = $4
      AND pending >= $1
  `, employeeID, policyID, fiscalYear, days)
}

func (t *txStore) ReleaseUsage(ctx context.Context, employeeID, policyID string, fiscalYear int, days float64) error {
	return t.mutateBalance(ctx, `
    UPDATE leave_balances
    SET used = used - $1, updated_at = now()
    WHERE employee_id = $2 AND policy_id = $3 AND fiscal_year = $4
      AND used >= $1
  `, employeeID, policyID, fiscalYear, days)
}

func (t *txStore) mutateBalance(ctx context.Context, query, employeeID, policyID string, fiscalYear int, days float64) error {
	tag, err := t.DB.Exec(ctx, query, days, employeeID, policyID, fiscalYear)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: balance guard rejected mutation", ErrConcurrencyConflict)
	}
	return nil
}

func (t *txStore) AppendAudit(ctx context.Context, entry audit.Entry) error {
	return audit.New(t.DB).Record(ctx, entry)
}
