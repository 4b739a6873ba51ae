package events

import "time"

const AttendanceDayClosedTopic = "hr.attendance.day_closed.v1"

const EventAttendanceDayClosed = "attendance_day_closed"

type AttendanceDayClosedEvent struct {
	EventType      string    `json:"event_type"`
	RequestID      string    `json:"request_id,omitempty"`
	RecordID       string    `json:"record_id"`
	EmployeeID     string    `json:"employee_id"`
	AttendanceDate string    `json:"attendance_date"`
	ClockInTime    string    `json:"clock_in_time"`
	ClockOutTime   string    `json:"clock_out_time"`
	TotalHours     string    `json:"total_hours"`
	OccurredAt     time.Time `json:"occurred_at"`
}
