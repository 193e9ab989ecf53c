package leave

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hrops/internal/domain/audit"
	"hrops/internal/domain/auth"
)

// maxConflictRetries bounds automatic retries after a serialization abort.
// Every retry re-runs the full closure, so preconditions are re-validated
// against fresh reads.
const maxConflictRetries = 3

// Engine owns the leave request state machine: submission, role-gated
// approval routing, cancellation, balance reconciliation and the audit trail.
// All mutations run inside a single store transaction.
type Engine struct {
	Store                StoreAPI
	FiscalYearStartMonth time.Month

	// OnConflictRetry is called once per retried transaction, if set.
	OnConflictRetry func()

	now func() time.Time
}

func NewEngine(store StoreAPI, fiscalYearStartMonth time.Month) *Engine {
	if fiscalYearStartMonth < time.January || fiscalYearStartMonth > time.December {
		fiscalYearStartMonth = time.January
	}
	return &Engine{
		Store:                store,
		FiscalYearStartMonth: fiscalYearStartMonth,
		now:                  time.Now,
	}
}

func (e *Engine) today() time.Time {
	return truncateToDay(e.now())
}

func (e *Engine) withRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		if err = fn(); !errors.Is(err, ErrConcurrencyConflict) {
			return err
		}
		if e.OnConflictRetry != nil {
			e.OnConflictRetry()
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return err
}

type SubmitInput struct {
	EmployeeID  string    `json:"employeeId,omitempty"`
	PolicyID    string    `json:"policyId"`
	StartDate   time.Time `json:"startDate"`
	EndDate     time.Time `json:"endDate"`
	Reason      string    `json:"reason"`
	IsEmergency bool      `json:"isEmergency"`
	IsHalfDay   bool      `json:"isHalfDay"`
	IPAddress   string    `json:"-"`
	UserAgent   string    `json:"-"`
}

// Submit validates a new request against its policy and balance, creates it
// in pending state and reserves the days, atomically with the audit entry.
func (e *Engine) Submit(ctx context.Context, actor auth.UserContext, in SubmitInput) (LeaveRequest, error) {
	employeeID := in.EmployeeID
	if employeeID == "" {
		employeeID = actor.EmployeeID
	}
	if actor.Role == auth.RoleEmployee && employeeID != actor.EmployeeID {
		return LeaveRequest{}, fmt.Errorf("%w: employees submit their own requests", ErrForbidden)
	}
	if employeeID == "" {
		return LeaveRequest{}, fmt.Errorf("%w: employee id required", ErrValidation)
	}
	if in.PolicyID == "" {
		return LeaveRequest{}, fmt.Errorf("%w: policy id required", ErrValidation)
	}
	if in.StartDate.IsZero() || in.EndDate.IsZero() {
		return LeaveRequest{}, fmt.Errorf("%w: start and end dates required", ErrValidation)
	}

	start := truncateToDay(in.StartDate)
	end := truncateToDay(in.EndDate)
	if end.Before(start) {
		return LeaveRequest{}, fmt.Errorf("%w: end date before start date", ErrValidation)
	}

	location, err := e.Store.EmployeeLocation(ctx, employeeID)
	if err != nil {
		return LeaveRequest{}, err
	}
	holidays, err := e.Store.HolidaysBetween(ctx, location, start, end)
	if err != nil {
		return LeaveRequest{}, err
	}

	var requestID string
	err = e.withRetry(ctx, func() error {
		return e.Store.WithinTx(ctx, func(tx TxStore) error {
			policy, err := tx.GetPolicy(ctx, in.PolicyID)
			if errors.Is(err, ErrNotFound) {
				return fmt.Errorf("%w: unknown leave policy", ErrValidation)
			}
			if err != nil {
				return err
			}
			if !policy.IsActive {
				return fmt.Errorf("%w: policy %s is inactive", ErrPolicyViolation, policy.Name)
			}

			today := e.today()
			isBackdated := start.Before(today)
			if isBackdated && !in.IsEmergency {
				return fmt.Errorf("%w: backdated leave requires the emergency flag", ErrPolicyViolation)
			}
			if !in.IsEmergency && policy.MinNoticeDays > 0 {
				notice := int(start.Sub(today).Hours() / 24)
				if notice < policy.MinNoticeDays {
					return fmt.Errorf("%w: policy requires %d days notice", ErrPolicyViolation, policy.MinNoticeDays)
				}
			}

			totalDays, err := BusinessDays(start, end, in.IsHalfDay, policy.CountNonWorkingDays, holidays)
			if err != nil {
				return err
			}
			if policy.MaxDaysPerRequest > 0 && totalDays > policy.MaxDaysPerRequest {
				return fmt.Errorf("%w: request exceeds %.1f days per request", ErrPolicyViolation, policy.MaxDaysPerRequest)
			}

			fiscalYear := FiscalYearOf(start, e.FiscalYearStartMonth)
			balance, err := tx.BalanceForUpdate(ctx, employeeID, in.PolicyID, fiscalYear)
			if errors.Is(err, ErrNotFound) {
				return fmt.Errorf("%w: no entitlement for fiscal year %d", ErrInsufficientBalance, fiscalYear)
			}
			if err != nil {
				return err
			}
			if balance.Available() < totalDays {
				return fmt.Errorf("%w: %.1f days requested, %.1f available", ErrInsufficientBalance, totalDays, balance.Available())
			}

			id, err := tx.InsertRequest(ctx, LeaveRequest{
				EmployeeID:  employeeID,
				PolicyID:    in.PolicyID,
				LeaveType:   policy.LeaveType,
				StartDate:   start,
				EndDate:     end,
				TotalDays:   totalDays,
				IsHalfDay:   in.IsHalfDay,
				IsBackdated: isBackdated,
				IsEmergency: in.IsEmergency,
				Reason:      in.Reason,
				Status:      StatusPending,
				IPAddress:   in.IPAddress,
				UserAgent:   in.UserAgent,
			})
			if err != nil {
				return err
			}
			if err := tx.Reserve(ctx, employeeID, in.PolicyID, fiscalYear, totalDays); err != nil {
				return err
			}
			requestID = id
			return tx.AppendAudit(ctx, audit.Entry{
				RequestID: id,
				ActorID:   actor.UserID,
				Action:    ActionSubmitted,
				NewStatus: StatusPending,
				IPAddress: in.IPAddress,
				UserAgent: in.UserAgent,
			})
		})
	})
	if err != nil {
		return LeaveRequest{}, err
	}
	return e.Store.GetRequest(ctx, requestID)
}

type DecisionInput struct {
	RequestID string
	Comments  string
	IPAddress string
	UserAgent string
}

// Approve advances a pending request through its next required approval step.
// Only the transition that makes the request terminally approved converts the
// reservation into usage.
func (e *Engine) Approve(ctx context.Context, actor auth.UserContext, in DecisionInput) (LeaveRequest, error) {
	return e.decide(ctx, actor, in, true)
}

// Reject terminates a pending request at any step and releases the
// reservation. A manager rejection on a two-step policy short-circuits HR.
func (e *Engine) Reject(ctx context.Context, actor auth.UserContext, in DecisionInput) (LeaveRequest, error) {
	return e.decide(ctx, actor, in, false)
}

func (e *Engine) decide(ctx context.Context, actor auth.UserContext, in DecisionInput, approve bool) (LeaveRequest, error) {
	if in.RequestID == "" {
		return LeaveRequest{}, fmt.Errorf("%w: request id required", ErrValidation)
	}

	err := e.withRetry(ctx, func() error {
		return e.Store.WithinTx(ctx, func(tx TxStore) error {
			req, err := tx.RequestForUpdate(ctx, in.RequestID)
			if err != nil {
				return err
			}
			if req.Status != StatusPending {
				return fmt.Errorf("%w: request is %s", ErrInvalidStateTransition, req.Status)
			}
			policy, err := tx.GetPolicy(ctx, req.PolicyID)
			if err != nil {
				return err
			}

			step := NextRequiredApprover(policy, req)
			if err := e.authorizeStep(ctx, actor, req, policy, step); err != nil {
				return err
			}

			fiscalYear := FiscalYearOf(req.StartDate, e.FiscalYearStartMonth)
			switch {
			case approve && step == StepManager && policy.ApprovalLevel == ApprovalBoth:
				// Intermediate step: status stays pending, no balance movement.
				if err := tx.ApplyManagerApproval(ctx, in.RequestID, actor.UserID); err != nil {
					return err
				}
				return tx.AppendAudit(ctx, audit.Entry{
					RequestID:      in.RequestID,
					ActorID:        actor.UserID,
					Action:         ActionManagerApproved,
					PreviousStatus: StatusPending,
					NewStatus:      StatusPending,
					Comments:       in.Comments,
					IPAddress:      in.IPAddress,
					UserAgent:      in.UserAgent,
				})
			case approve:
				if err := tx.ApplyDecision(ctx, in.RequestID, StatusApproved, step, actor.UserID); err != nil {
					return err
				}
				if err := tx.Commit(ctx, req.EmployeeID, req.PolicyID, fiscalYear, req.TotalDays); err != nil {
					return err
				}
				return tx.AppendAudit(ctx, audit.Entry{
					RequestID:      in.RequestID,
					ActorID:        actor.UserID,
					Action:         approveAction(step),
					PreviousStatus: StatusPending,
					NewStatus:      StatusApproved,
					Comments:       in.Comments,
					IPAddress:      in.IPAddress,
					UserAgent:      in.UserAgent,
				})
			default:
				if err := tx.ApplyDecision(ctx, in.RequestID, StatusRejected, step, actor.UserID); err != nil {
					return err
				}
				if err := tx.ReleaseReservation(ctx, req.EmployeeID, req.PolicyID, fiscalYear, req.TotalDays); err != nil {
					return err
				}
				return tx.AppendAudit(ctx, audit.Entry{
					RequestID:      in.RequestID,
					ActorID:        actor.UserID,
					Action:         rejectAction(step),
					PreviousStatus: StatusPending,
					NewStatus:      StatusRejected,
					Comments:       in.Comments,
					IPAddress:      in.IPAddress,
					UserAgent:      in.UserAgent,
				})
			}
		})
	})
	if err != nil {
		return LeaveRequest{}, err
	}
	return e.Store.GetRequest(ctx, in.RequestID)
}

// authorizeStep checks that the actor carries the role the next pending
// approval step requires.
func (e *Engine) authorizeStep(ctx context.Context, actor auth.UserContext, req LeaveRequest, policy LeavePolicy, step ApproverStep) error {
	switch step {
	case StepManager:
		if actor.Role != auth.RoleManager {
			return fmt.Errorf("%w: manager decision required first", ErrForbidden)
		}
		ok, err := e.Store.IsManagerOf(ctx, actor.EmployeeID, req.EmployeeID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: not this employee's manager", ErrForbidden)
		}
		return nil
	case StepHR:
		if actor.Role == auth.RoleAdmin {
			return nil
		}
		if actor.Role == auth.RoleManager && policy.ApprovalLevel == ApprovalBoth && req.ManagerApprovalStatus == StatusApproved {
			return fmt.Errorf("%w: manager step already decided", ErrInvalidStateTransition)
		}
		return fmt.Errorf("%w: hr decision required", ErrForbidden)
	default:
		return fmt.Errorf("%w: no pending approval step", ErrInvalidStateTransition)
	}
}

func approveAction(step ApproverStep) string {
	if step == StepHR {
		return ActionHRApproved
	}
	return ActionManagerApproved
}

func rejectAction(step ApproverStep) string {
	if step == StepHR {
		return ActionHRRejected
	}
	return ActionManagerRejected
}

type CancelInput struct {
	RequestID string
	Reason    string
	IPAddress string
	UserAgent string
}

// Cancel withdraws a pending or approved request. Approved requests stay
// cancellable until their start date, returning the used days to the ledger.
func (e *Engine) Cancel(ctx context.Context, actor auth.UserContext, in CancelInput) (LeaveRequest, error) {
	if in.RequestID == "" {
		return LeaveRequest{}, fmt.Errorf("%w: request id required", ErrValidation)
	}

	err := e.withRetry(ctx, func() error {
		return e.Store.WithinTx(ctx, func(tx TxStore) error {
			req, err := tx.RequestForUpdate(ctx, in.RequestID)
			if err != nil {
				return err
			}
			if actor.Role != auth.RoleAdmin && actor.EmployeeID != req.EmployeeID {
				return fmt.Errorf("%w: only the owner or an admin may cancel", ErrForbidden)
			}

			fiscalYear := FiscalYearOf(req.StartDate, e.FiscalYearStartMonth)
			switch req.Status {
			case StatusPending:
				if err := tx.ReleaseReservation(ctx, req.EmployeeID, req.PolicyID, fiscalYear, req.TotalDays); err != nil {
					return err
				}
			case StatusApproved:
				if !e.today().Before(req.StartDate) {
					return fmt.Errorf("%w: approved leave already started", ErrInvalidStateTransition)
				}
				if err := tx.ReleaseUsage(ctx, req.EmployeeID, req.PolicyID, fiscalYear, req.TotalDays); err != nil {
					return err
				}
			default:
				return fmt.Errorf("%w: request is %s", ErrInvalidStateTransition, req.Status)
			}

			if err := tx.ApplyCancellation(ctx, in.RequestID); err != nil {
				return err
			}
			return tx.AppendAudit(ctx, audit.Entry{
				RequestID:      in.RequestID,
				ActorID:        actor.UserID,
				Action:         ActionCancelled,
				PreviousStatus: req.Status,
				NewStatus:      StatusCancelled,
				Comments:       in.Reason,
				IPAddress:      in.IPAddress,
				UserAgent:      in.UserAgent,
			})
		})
	})
	if err != nil {
		return LeaveRequest{}, err
	}
	return e.Store.GetRequest(ctx, in.RequestID)
}

// List returns requests scoped by the actor: employees see their own,
// managers their department unless a narrower filter is supplied, admins all.
func (e *Engine) List(ctx context.Context, actor auth.UserContext, filter RequestFilter) ([]LeaveRequest, int, error) {
	switch actor.Role {
	case auth.RoleEmployee:
		filter.EmployeeID = actor.EmployeeID
	case auth.RoleManager:
		if filter.EmployeeID == "" && filter.DepartmentID == "" {
			filter.DepartmentID = actor.DepartmentID
		}
	}
	return e.Store.ListRequests(ctx, filter)
}

func (e *Engine) Get(ctx context.Context, actor auth.UserContext, requestID string) (LeaveRequest, error) {
	req, err := e.Store.GetRequest(ctx, requestID)
	if err != nil {
		return LeaveRequest{}, err
	}
	if err := e.canView(ctx, actor, req); err != nil {
		return LeaveRequest{}, err
	}
	return req, nil
}

func (e *Engine) canView(ctx context.Context, actor auth.UserContext, req LeaveRequest) error {
	if actor.Role == auth.RoleAdmin || actor.EmployeeID == req.EmployeeID {
		return nil
	}
	if actor.Role == auth.RoleManager {
		ok, err := e.Store.IsManagerOf(ctx, actor.EmployeeID, req.EmployeeID)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}
	return fmt.Errorf("%w: request not visible to actor", ErrForbidden)
}

// Balance returns one ledger row. A zero fiscal year means the current one.
func (e *Engine) Balance(ctx context.Context, actor auth.UserContext, employeeID, policyID string, fiscalYear int) (LeaveBalance, error) {
	if employeeID == "" {
		employeeID = actor.EmployeeID
	}
	if actor.Role == auth.RoleEmployee && employeeID != actor.EmployeeID {
		return LeaveBalance{}, fmt.Errorf("%w: employees read their own balances", ErrForbidden)
	}
	if fiscalYear == 0 {
		fiscalYear = FiscalYearOf(e.today(), e.FiscalYearStartMonth)
	}
	return e.Store.GetBalance(ctx, employeeID, policyID, fiscalYear)
}

func (e *Engine) Balances(ctx context.Context, actor auth.UserContext, employeeID string, fiscalYear int) ([]LeaveBalance, error) {
	if employeeID == "" {
		employeeID = actor.EmployeeID
	}
	if actor.Role == auth.RoleEmployee && employeeID != actor.EmployeeID {
		return nil, fmt.Errorf("%w: employees read their own balances", ErrForbidden)
	}
	if fiscalYear == 0 {
		fiscalYear = FiscalYearOf(e.today(), e.FiscalYearStartMonth)
	}
	return e.Store.ListBalances(ctx, employeeID, fiscalYear)
}

// AuditTrail returns a request's full history, visibility-checked like Get.
func (e *Engine) AuditTrail(ctx context.Context, actor auth.UserContext, requestID string) ([]audit.Entry, error) {
	if _, err := e.Get(ctx, actor, requestID); err != nil {
		return nil, err
	}
	return e.Store.AuditTrail(ctx, requestID)
}

// Coverage computes per-day team availability for a department and range.
// Managers are limited to their own department.
func (e *Engine) Coverage(ctx context.Context, actor auth.UserContext, departmentID string, start, end time.Time) ([]CoverageDay, error) {
	departmentID, err := e.coverageScope(actor, departmentID)
	if err != nil {
		return nil, err
	}
	start = truncateToDay(start)
	end = truncateToDay(end)
	if start.IsZero() || end.IsZero() || end.Before(start) {
		return nil, fmt.Errorf("%w: invalid date range", ErrValidation)
	}
	headcount, err := e.Store.DepartmentHeadcount(ctx, departmentID)
	if err != nil {
		return nil, err
	}
	absences, err := e.Store.AbsencesBetween(ctx, departmentID, start, end)
	if err != nil {
		return nil, err
	}
	return AnalyzeCoverage(start, end, headcount, absences), nil
}

// DetectConflicts flags days where a department drops below its minimum
// required headcount.
func (e *Engine) DetectConflicts(ctx context.Context, actor auth.UserContext, departmentID string, start, end time.Time, minTeamSize int) ([]CoverageDay, error) {
	if minTeamSize <= 0 {
		return nil, fmt.Errorf("%w: minimum team size must be positive", ErrValidation)
	}
	days, err := e.Coverage(ctx, actor, departmentID, start, end)
	if err != nil {
		return nil, err
	}
	return ConflictDays(days, minTeamSize), nil
}

func (e *Engine) coverageScope(actor auth.UserContext, departmentID string) (string, error) {
	if departmentID == "" {
		departmentID = actor.DepartmentID
	}
	if actor.Role == auth.RoleManager && departmentID != actor.DepartmentID {
		return "", fmt.Errorf("%w: managers analyze their own department", ErrForbidden)
	}
	if departmentID == "" {
		return "", fmt.Errorf("%w: department id required", ErrValidation)
	}
	return departmentID, nil
}
