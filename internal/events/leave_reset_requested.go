package events

import "time"

// LeaveResetRequestedTopic is produced by the scheduler that renews yearly
// allotments; this service only consumes it.
const LeaveResetRequestedTopic = "hr.leave.ledger.reset.requested.v1"

type LeaveResetRequestedEvent struct {
	EventType   string    `json:"event_type"`
	EmployeeID  string    `json:"employee_id"`
	RequestedBy string    `json:"requested_by,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}
