package attendance

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"gorm.io/gorm"
)

const uniqueEmployeeDate = "uq_attendance_employee_date"

// ErrVersionConflict means the row changed between read and update.
var ErrVersionConflict = errors.New("attendance record was modified concurrently")

//go:generate mockgen -source=attendance_repo.go -destination=mock/attendance_repo_mock.go -package=mock
type Repository interface {
	WithTx(tx *sql.Tx) Repository
	Create(ctx context.Context, a *AttendanceRecord) error
	FindByEmployeeAndDate(ctx context.Context, employeeID string, date time.Time) (*AttendanceRecord, error)
	FindLatestSince(ctx context.Context, employeeID string, since time.Time) (*AttendanceRecord, error)
	FindAllByEmployee(ctx context.Context, employeeID string) ([]AttendanceRecord, error)
	// UpdateVersioned writes the mutable columns only if the stored
	// version still equals a.Version, then bumps a.Version.
	UpdateVersioned(ctx context.Context, a *AttendanceRecord) error
}

type repository struct {
	db *gorm.DB
	tx *sql.Tx
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *sql.Tx) Repository {
	return &repository{db: r.db, tx: tx}
}

// conn routes the statement through the caller's *sql.Tx when one is set.
func (r *repository) conn(ctx context.Context) *gorm.DB {
	db := r.db.WithContext(ctx)
	if r.tx != nil {
		db.Statement.ConnPool = r.tx
	}
	return db
}

func (r *repository) Create(ctx context.Context, a *AttendanceRecord) error {
	if a.Breaks == nil {
		a.Breaks = []Break{}
	}
	if a.Version == 0 {
		a.Version = 1
	}
	return r.conn(ctx).Create(a).Error
}

func (r *repository) FindByEmployeeAndDate(ctx context.Context, employeeID string, date time.Time) (*AttendanceRecord, error) {
	var a AttendanceRecord
	err := r.conn(ctx).
		Where("employee_id = ?", employeeID).
		Where("attendance_date = ?", dayOf(date).Format("2006-01-02")).
		First(&a).Error
	return &a, err
}

func (r *repository) FindLatestSince(ctx context.Context, employeeID string, since time.Time) (*AttendanceRecord, error) {
	var a AttendanceRecord
	err := r.conn(ctx).
		Where("employee_id = ?", employeeID).
		Where("attendance_date >= ?", dayOf(since).Format("2006-01-02")).
		Order("attendance_date DESC").
		First(&a).Error
	return &a, err
}

func (r *repository) FindAllByEmployee(ctx context.Context, employeeID string) ([]AttendanceRecord, error) {
	var rows []AttendanceRecord
	err := r.conn(ctx).
		Where("employee_id = ?", employeeID).
		Order("attendance_date DESC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) UpdateVersioned(ctx context.Context, a *AttendanceRecord) error {
	expected := a.Version
	a.Version = expected + 1

	res := r.conn(ctx).
		Model(a).
		Where("version = ?", expected).
		Select("clock_out_time", "breaks", "accumulated_hours", "summary", "closed_at", "version", "updated_at").
		Updates(a)
	if res.Error != nil {
		a.Version = expected
		return res.Error
	}
	if res.RowsAffected == 0 {
		a.Version = expected
		return ErrVersionConflict
	}
	return nil
}
