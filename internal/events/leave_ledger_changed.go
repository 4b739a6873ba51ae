package events

import "time"

const LeaveLedgerChangedTopic = "hr.leave.ledger.changed.v1"

const (
	EventLeaveLedgerDeducted = "leave_ledger_deducted"
	EventLeaveLedgerReset    = "leave_ledger_reset"
)

type LeaveBalance struct {
	Remaining int `json:"remaining"`
	Sick      int `json:"sick"`
	Emergency int `json:"emergency"`
	Total     int `json:"total"`
}

type LeaveLedgerChangedEvent struct {
	EventType  string       `json:"event_type"`
	RequestID  string       `json:"request_id,omitempty"`
	EmployeeID string       `json:"employee_id"`
	Category   string       `json:"category,omitempty"`
	Days       int          `json:"days,omitempty"`
	Balance    LeaveBalance `json:"balance"`
	Version    int64        `json:"version"`
	OccurredAt time.Time    `json:"occurred_at"`
}
