package leaveledger

import (
	"strings"
	"time"

	"hris-timekeeper/internal/shared/config"
)

type Category string

const (
	CategoryRemaining Category = "remaining"
	CategorySick      Category = "sick"
	CategoryEmergency Category = "emergency"
)

// ParseCategory accepts the three deductible categories; total is an
// aggregate ceiling and cannot be targeted directly.
func ParseCategory(s string) (Category, bool) {
	switch c := Category(strings.ToLower(strings.TrimSpace(s))); c {
	case CategoryRemaining, CategorySick, CategoryEmergency:
		return c, true
	default:
		return "", false
	}
}

// LeaveLedger holds an employee's balances in days. Total is tracked on
// its own and is never recomputed from the three categories.
type LeaveLedger struct {
	EmployeeID string    `gorm:"column:employee_id;type:varchar(64);primaryKey"`
	Remaining  int       `gorm:"column:remaining;not null;check:chk_leave_remaining,remaining >= 0"`
	Sick       int       `gorm:"column:sick;not null;check:chk_leave_sick,sick >= 0"`
	Emergency  int       `gorm:"column:emergency;not null;check:chk_leave_emergency,emergency >= 0"`
	Total      int       `gorm:"column:total;not null;check:chk_leave_total,total >= 0"`
	Version    int64     `gorm:"column:version;not null;default:1"`
	CreatedAt  time.Time `gorm:"column:created_at"`
	UpdatedAt  time.Time `gorm:"column:updated_at"`
}

func (LeaveLedger) TableName() string {
	return "leave_ledgers"
}

func newLedger(employeeID string, a config.LeaveAllotment) *LeaveLedger {
	l := &LeaveLedger{EmployeeID: employeeID, Version: 1}
	l.resetTo(a)
	return l
}

func (l *LeaveLedger) Balance(c Category) int {
	switch c {
	case CategoryRemaining:
		return l.Remaining
	case CategorySick:
		return l.Sick
	case CategoryEmergency:
		return l.Emergency
	}
	return 0
}

// take lowers the category and the shared ceiling; callers check both first.
func (l *LeaveLedger) take(c Category, days int) {
	switch c {
	case CategoryRemaining:
		l.Remaining -= days
	case CategorySick:
		l.Sick -= days
	case CategoryEmergency:
		l.Emergency -= days
	}
	l.Total -= days
}

func (l *LeaveLedger) resetTo(a config.LeaveAllotment) {
	l.Remaining = a.Remaining
	l.Sick = a.Sick
	l.Emergency = a.Emergency
	l.Total = a.Total
}
