package attendance

import "github.com/shopspring/decimal"

const (
	StatusOpen    = "OPEN"
	StatusOnBreak = "ON_BREAK"
	StatusClosed  = "CLOSED"
)

type ClockOutRequest struct {
	Summary string `json:"summary"`
}

type BreakResponse struct {
	Start string  `json:"start"`
	End   *string `json:"end,omitempty"`
}

type AttendanceResponse struct {
	ID               string          `json:"id"`
	EmployeeID       string          `json:"employee_id"`
	AttendanceDate   string          `json:"attendance_date"`
	ClockInTime      string          `json:"clock_in_time"`
	ClockOutTime     *string         `json:"clock_out_time,omitempty"`
	Breaks           []BreakResponse `json:"breaks"`
	AccumulatedHours decimal.Decimal `json:"accumulated_hours"`
	Summary          string          `json:"summary,omitempty"`
	Status           string          `json:"status"`
}

type ClockOutResult struct {
	RecordID     string          `json:"record_id"`
	ClockOutTime string          `json:"clock_out_time"`
	TotalHours   decimal.Decimal `json:"total_hours"`
}

type SessionResponse struct {
	Active  bool                `json:"active"`
	OnBreak bool                `json:"on_break"`
	Record  *AttendanceResponse `json:"record,omitempty"`
}
