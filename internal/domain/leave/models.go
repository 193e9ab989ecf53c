package leave

import "time"

const (
	StatusPending   = "pending"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
	StatusCancelled = "cancelled"
)

const (
	ApprovalManager = "manager"
	ApprovalHR      = "hr"
	ApprovalBoth    = "both"
)

// Audit actions. Approval and rejection actions carry the deciding step so a
// request's trail reads without joining back to policy rows.
const (
	ActionSubmitted       = "submitted"
	ActionManagerApproved = "manager_approved"
	ActionManagerRejected = "manager_rejected"
	ActionHRApproved      = "hr_approved"
	ActionHRRejected      = "hr_rejected"
	ActionCancelled       = "cancelled"
)

type LeavePolicy struct {
	ID                  string    `json:"id"`
	LeaveType           string    `json:"leaveType"`
	Name                string    `json:"name"`
	Location            string    `json:"location,omitempty"`
	DepartmentID        string    `json:"departmentId,omitempty"`
	ApprovalLevel       string    `json:"approvalLevel"`
	MaxDaysPerRequest   float64   `json:"maxDaysPerRequest"`
	MinNoticeDays       int       `json:"minNoticeDays"`
	DefaultEntitlement  float64   `json:"defaultEntitlement"`
	CountNonWorkingDays bool      `json:"countNonWorkingDays"`
	IsActive            bool      `json:"isActive"`
	CreatedAt           time.Time `json:"createdAt"`
}

// LeaveBalance is one employee's ledger row for a policy and fiscal year.
// Available is derived, never stored.
type LeaveBalance struct {
	ID         string    `json:"id"`
	EmployeeID string    `json:"employeeId"`
	PolicyID   string    `json:"policyId"`
	FiscalYear int       `json:"fiscalYear"`
	Entitled   float64   `json:"entitled"`
	Used       float64   `json:"used"`
	Pending    float64   `json:"pending"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func (b LeaveBalance) Available() float64 {
	return b.Entitled - b.Used - b.Pending
}

type LeaveRequest struct {
	ID                    string     `json:"id"`
	EmployeeID            string     `json:"employeeId"`
	PolicyID              string     `json:"policyId"`
	LeaveType             string     `json:"leaveType"`
	StartDate             time.Time  `json:"startDate"`
	EndDate               time.Time  `json:"endDate"`
	TotalDays             float64    `json:"totalDays"`
	IsHalfDay             bool       `json:"isHalfDay"`
	IsBackdated           bool       `json:"isBackdated"`
	IsEmergency           bool       `json:"isEmergency"`
	Reason                string     `json:"reason"`
	Status                string     `json:"status"`
	AppliedAt             time.Time  `json:"appliedAt"`
	ManagerApprovedBy     string     `json:"managerApprovedBy,omitempty"`
	ManagerApprovalStatus string     `json:"managerApprovalStatus,omitempty"`
	HRApprovedBy          string     `json:"hrApprovedBy,omitempty"`
	FinalApprovedAt       *time.Time `json:"finalApprovedAt,omitempty"`
	IPAddress             string     `json:"ipAddress,omitempty"`
	UserAgent             string     `json:"userAgent,omitempty"`
}

// Terminal reports whether no further transition out of the current status is
// possible. Approved requests stay cancellable until their start date.
func (r LeaveRequest) Terminal(today time.Time) bool {
	switch r.Status {
	case StatusRejected, StatusCancelled:
		return true
	case StatusApproved:
		return !today.Before(r.StartDate)
	default:
		return false
	}
}

type Holiday struct {
	ID         string    `json:"id"`
	Date       time.Time `json:"date"`
	Name       string    `json:"name"`
	Location   string    `json:"location,omitempty"`
	FiscalYear int       `json:"fiscalYear"`
}

// RequestFilter narrows List queries. Scope fields are set by the engine from
// the actor context, the rest from caller-supplied filters.
type RequestFilter struct {
	EmployeeID   string
	DepartmentID string
	PolicyID     string
	Status       string
	From         time.Time
	To           time.Time
	Emergency    *bool
	MinDays      float64
	MaxDays      float64
	Search       string
	Limit        int
	Offset       int
}

// Absence is one approved or pending request interval inside a department,
// feeding coverage analysis.
type Absence struct {
	EmployeeID string
	StartDate  time.Time
	EndDate    time.Time
}
