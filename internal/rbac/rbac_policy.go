package rbac

const (
	RoleEmployee   = "EMPLOYEE"
	RoleHR         = "HR"
	RoleAdmin      = "ADMIN"
	RoleSuperAdmin = "SUPER_ADMIN"
)

const (
	ResourceAttendance   = "attendance"
	ResourceLeaveLedger  = "leave_ledger"
	ResourceAccounting   = "accounting"
	ResourceLeaveRequest = "leave_request"
)

const (
	ActionCreate   = "create"
	ActionRead     = "read"
	ActionReadAny  = "read_any"
	ActionDeduct   = "deduct"
	ActionReset    = "reset"
	ActionCloseDay = "close_day"
	ActionCancel   = "cancel"
	ActionApprove  = "approve"
	ActionReject   = "reject"
)

// DefaultPolicies: every employee manages their own day, ledger and leave
// requests. HR and above may read any ledger, reset it and decide on
// other employees' requests.
func DefaultPolicies() ([]Policy, []Inheritance) {
	policies := []Policy{
		{RoleEmployee, ResourceAttendance, ActionCreate},
		{RoleEmployee, ResourceAttendance, ActionRead},
		{RoleEmployee, ResourceLeaveLedger, ActionRead},
		{RoleEmployee, ResourceLeaveLedger, ActionDeduct},
		{RoleEmployee, ResourceAccounting, ActionCloseDay},
		{RoleEmployee, ResourceLeaveRequest, ActionCreate},
		{RoleEmployee, ResourceLeaveRequest, ActionRead},
		{RoleEmployee, ResourceLeaveRequest, ActionCancel},
		{RoleHR, ResourceLeaveLedger, ActionReadAny},
		{RoleHR, ResourceLeaveLedger, ActionReset},
		{RoleHR, ResourceLeaveRequest, ActionReadAny},
		{RoleHR, ResourceLeaveRequest, ActionApprove},
		{RoleHR, ResourceLeaveRequest, ActionReject},
	}
	inherits := []Inheritance{
		{RoleHR, RoleEmployee},
		{RoleAdmin, RoleHR},
		{RoleSuperAdmin, RoleAdmin},
	}
	return policies, inherits
}
