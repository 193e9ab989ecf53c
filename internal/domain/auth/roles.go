package auth

// Roles are supplied by the upstream identity layer via JWT claims. The leave
// engine trusts them but scopes every read and gates every transition by them.
const (
	RoleEmployee = "employee"
	RoleManager  = "manager"
	RoleAdmin    = "admin"
)

const (
	PermEmployeesRead    = "core.employees.read"
	PermEmployeesWrite   = "core.employees.write"
	PermOrgRead          = "core.org.read"
	PermOrgWrite         = "core.org.write"
	PermLeaveRead        = "leave.read"
	PermLeaveWrite       = "leave.write"
	PermLeaveApprove     = "leave.approve"
	PermLeaveAdmin       = "leave.admin"
	PermCoverageRead     = "leave.coverage.read"
	PermReportsRead      = "reports.read"
	PermAuditRead        = "audit.read"
	PermNotificationsRead = "notifications.read"
)

var DefaultPermissions = []string{
	PermEmployeesRead,
	PermEmployeesWrite,
	PermOrgRead,
	PermOrgWrite,
	PermLeaveRead,
	PermLeaveWrite,
	PermLeaveApprove,
	PermLeaveAdmin,
	PermCoverageRead,
	PermReportsRead,
	PermAuditRead,
	PermNotificationsRead,
}

var RolePermissions = map[string][]string{
	RoleEmployee: {
		PermEmployeesRead,
		PermOrgRead,
		PermLeaveRead,
		PermLeaveWrite,
		PermNotificationsRead,
	},
	RoleManager: {
		PermEmployeesRead,
		PermOrgRead,
		PermLeaveRead,
		PermLeaveWrite,
		PermLeaveApprove,
		PermCoverageRead,
		PermReportsRead,
		PermNotificationsRead,
	},
	RoleAdmin: {
		PermEmployeesRead,
		PermEmployeesWrite,
		PermOrgRead,
		PermOrgWrite,
		PermLeaveRead,
		PermLeaveWrite,
		PermLeaveApprove,
		PermLeaveAdmin,
		PermCoverageRead,
		PermReportsRead,
		PermAuditRead,
		PermNotificationsRead,
	},
}

// UserContext is the actor attached to every authenticated request:
// who is calling, with what role, and which employee/department they map to.
type UserContext struct {
	UserID       string
	Role         string
	EmployeeID   string
	DepartmentID string
	SessionID    string
}
