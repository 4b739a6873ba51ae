package accounting

import (
	"hris-timekeeper/internal/leave"
	"hris-timekeeper/internal/leaveledger"

	"github.com/shopspring/decimal"
)

type LeaveDeduction struct {
	Category string `json:"category"`
	Days     int    `json:"days"`
}

type CloseDayRequest struct {
	Summary string          `json:"summary"`
	Leave   *LeaveDeduction `json:"leave,omitempty"`
}

type LeaveFailure struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Result always carries the attendance outcome once the day is closed.
type Result struct {
	RecordID     string                      `json:"record_id"`
	ClockOutTime string                      `json:"clock_out_time"`
	TotalHours   decimal.Decimal             `json:"total_hours"`
	LeaveApplied bool                        `json:"leave_applied"`
	Ledger       *leaveledger.LedgerResponse `json:"ledger,omitempty"`
	LeaveError   *LeaveFailure               `json:"leave_error,omitempty"`
}

type ApprovalResult struct {
	Request      leave.LeaveResponse         `json:"request"`
	LeaveApplied bool                        `json:"leave_applied"`
	Ledger       *leaveledger.LedgerResponse `json:"ledger,omitempty"`
	LeaveError   *LeaveFailure               `json:"leave_error,omitempty"`
}
