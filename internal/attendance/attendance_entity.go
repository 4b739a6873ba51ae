package attendance

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Break struct {
	Start time.Time  `json:"start"`
	End   *time.Time `json:"end,omitempty"`
}

type AttendanceRecord struct {
	ID               uuid.UUID       `gorm:"column:id;type:uuid;primaryKey;default:gen_random_uuid()"`
	EmployeeID       string          `gorm:"column:employee_id;type:varchar(64);not null;uniqueIndex:uq_attendance_employee_date,priority:1"`
	AttendanceDate   time.Time       `gorm:"column:attendance_date;type:date;not null;uniqueIndex:uq_attendance_employee_date,priority:2"`
	ClockInTime      string          `gorm:"column:clock_in_time;type:varchar(8);not null"`
	ClockOutTime     *string         `gorm:"column:clock_out_time;type:varchar(8)"`
	Breaks           []Break         `gorm:"column:breaks;type:jsonb;serializer:json;not null"`
	AccumulatedHours decimal.Decimal `gorm:"column:accumulated_hours;type:numeric(6,2);not null;default:0"`
	Summary          string          `gorm:"column:summary;type:text;not null;default:''"`
	ClosedAt         *time.Time      `gorm:"column:closed_at;type:timestamptz"`
	Version          int64           `gorm:"column:version;not null;default:1"`
	CreatedAt        time.Time       `gorm:"column:created_at"`
	UpdatedAt        time.Time       `gorm:"column:updated_at"`
}

func (AttendanceRecord) TableName() string {
	return "attendance_records"
}

func (a *AttendanceRecord) IsClosed() bool {
	return a.ClockOutTime != nil
}

// OpenBreak returns the index of the break without an end, or -1.
func (a *AttendanceRecord) OpenBreak() int {
	if n := len(a.Breaks); n > 0 && a.Breaks[n-1].End == nil {
		return n - 1
	}
	return -1
}

// BreakDuration sums the finished breaks.
func (a *AttendanceRecord) BreakDuration() time.Duration {
	var total time.Duration
	for _, b := range a.Breaks {
		if b.End != nil && b.End.After(b.Start) {
			total += b.End.Sub(b.Start)
		}
	}
	return total
}

// dayOf normalises an instant to its UTC calendar day.
func dayOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func sameDay(a, b time.Time) bool {
	return dayOf(a).Equal(dayOf(b))
}
