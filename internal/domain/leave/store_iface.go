package leave

import (
	"context"
	"time"

	"hrops/internal/domain/audit"
)

// StoreAPI is the persistence surface the engine drives. Mutations run inside
// WithinTx; everything else reads a consistent snapshot without blocking
// writers.
type StoreAPI interface {
	WithinTx(ctx context.Context, fn func(tx TxStore) error) error

	GetRequest(ctx context.Context, requestID string) (LeaveRequest, error)
	ListRequests(ctx context.Context, filter RequestFilter) ([]LeaveRequest, int, error)
	GetPolicy(ctx context.Context, policyID string) (LeavePolicy, error)
	ListPolicies(ctx context.Context, activeOnly bool) ([]LeavePolicy, error)
	GetBalance(ctx context.Context, employeeID, policyID string, fiscalYear int) (LeaveBalance, error)
	ListBalances(ctx context.Context, employeeID string, fiscalYear int) ([]LeaveBalance, error)
	HolidaysBetween(ctx context.Context, location string, start, end time.Time) ([]Holiday, error)
	EmployeeLocation(ctx context.Context, employeeID string) (string, error)
	IsManagerOf(ctx context.Context, managerEmployeeID, employeeID string) (bool, error)
	DepartmentHeadcount(ctx context.Context, departmentID string) (int, error)
	AbsencesBetween(ctx context.Context, departmentID string, start, end time.Time) ([]Absence, error)
	AuditTrail(ctx context.Context, requestID string) ([]audit.Entry, error)
}

// TxStore is the slice of the store visible inside one engine transaction.
// ForUpdate reads take row locks; the ledger operations mutate exactly one
// balance row each; AppendAudit joins the same transaction, so a failed audit
// write rolls the transition back.
type TxStore interface {
	GetPolicy(ctx context.Context, policyID string) (LeavePolicy, error)
	RequestForUpdate(ctx context.Context, requestID string) (LeaveRequest, error)
	BalanceForUpdate(ctx context.Context, employeeID, policyID string, fiscalYear int) (LeaveBalance, error)

	InsertRequest(ctx context.Context, req LeaveRequest) (string, error)
	ApplyManagerApproval(ctx context.Context, requestID, approverID string) error
	ApplyDecision(ctx context.Context, requestID, status string, step ApproverStep, approverID string) error
	ApplyCancellation(ctx context.Context, requestID string) error

	Reserve(ctx context.Context, employeeID, policyID string, fiscalYear int, days float64) error
	Commit(ctx context.Context, employeeID, policyID string, fiscalYear int, days float64) error
	ReleaseReservation(ctx context.Context, employeeID, policyID string, fiscalYear int, days float64) error
	ReleaseUsage(ctx context.Context, employeeID, policyID string, fiscalYear int, days float64) error

	AppendAudit(ctx context.Context, entry audit.Entry) error
}
