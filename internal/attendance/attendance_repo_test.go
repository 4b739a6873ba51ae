package attendance

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockGorm(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	sqlDB, mock, err := sqlmock.New()
	assert.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	assert.NoError(t, err)
	return db, mock
}

func TestRepository_UpdateVersioned(t *testing.T) {
	ctx := context.Background()
	out := "06:00 PM"

	t.Run("bumps version when the row matched", func(t *testing.T) {
		db, mock := newMockGorm(t)
		repo := NewRepository(db)

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE "attendance_records" SET`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		row := &AttendanceRecord{ID: uuid.New(), EmployeeID: emp, ClockOutTime: &out, Version: 3}
		assert.NoError(t, repo.UpdateVersioned(ctx, row))
		assert.Equal(t, int64(4), row.Version)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("reports a conflict when another writer got there first", func(t *testing.T) {
		db, mock := newMockGorm(t)
		repo := NewRepository(db)

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE "attendance_records" SET`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		row := &AttendanceRecord{ID: uuid.New(), EmployeeID: emp, ClockOutTime: &out, Version: 3}
		assert.ErrorIs(t, repo.UpdateVersioned(ctx, row), ErrVersionConflict)
		assert.Equal(t, int64(3), row.Version)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRepository_FindLatestSince(t *testing.T) {
	db, mock := newMockGorm(t)
	repo := NewRepository(db)

	id := uuid.New()
	day := time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"id", "employee_id", "attendance_date", "clock_in_time", "clock_out_time", "breaks",
		"accumulated_hours", "summary", "closed_at", "version", "created_at", "updated_at",
	}).AddRow(
		id.String(), emp, day, "10:00 PM", nil, `[{"start":"2026-03-02T23:00:00Z"}]`,
		"0.00", "", nil, 2, day, day,
	)
	mock.ExpectQuery(`SELECT \* FROM "attendance_records" WHERE employee_id = \$1 AND attendance_date >= \$2 ORDER BY attendance_date DESC`).
		WillReturnRows(rows)

	row, err := repo.FindLatestSince(context.Background(), emp, day.AddDate(0, 0, -1))
	assert.NoError(t, err)
	assert.Equal(t, id, row.ID)
	assert.False(t, row.IsClosed())
	assert.Equal(t, 0, row.OpenBreak())
	assert.True(t, row.AccumulatedHours.Equal(decimal.Zero))
	assert.Equal(t, int64(2), row.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}
