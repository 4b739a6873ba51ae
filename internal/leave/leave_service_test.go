package leave_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"hris-timekeeper/internal/leave"
	leaveerrors "hris-timekeeper/internal/leave/errors"
	ledgererrors "hris-timekeeper/internal/leaveledger/errors"
	"hris-timekeeper/internal/shared/apperror"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

type fakeLeaveRepository struct {
	createFn               func(ctx context.Context, l *leave.LeaveRequest) error
	findByIDFn             func(ctx context.Context, id string) (*leave.LeaveRequest, error)
	findAllByEmployeeFn    func(ctx context.Context, employeeID string) ([]leave.LeaveRequest, error)
	findAllByStatusFn      func(ctx context.Context, status string) ([]leave.LeaveRequest, error)
	hasOverlappingPeriodFn func(ctx context.Context, employeeID string, startDate, endDate time.Time) (bool, error)
	updateVersionedFn      func(ctx context.Context, l *leave.LeaveRequest) error
}

func (f *fakeLeaveRepository) WithTx(tx *sql.Tx) leave.Repository {
	return f
}

func (f *fakeLeaveRepository) Create(ctx context.Context, l *leave.LeaveRequest) error {
	if f.createFn != nil {
		return f.createFn(ctx, l)
	}
	return nil
}

func (f *fakeLeaveRepository) FindByID(ctx context.Context, id string) (*leave.LeaveRequest, error) {
	if f.findByIDFn != nil {
		return f.findByIDFn(ctx, id)
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeLeaveRepository) FindAllByEmployee(ctx context.Context, employeeID string) ([]leave.LeaveRequest, error) {
	if f.findAllByEmployeeFn != nil {
		return f.findAllByEmployeeFn(ctx, employeeID)
	}
	return nil, nil
}

func (f *fakeLeaveRepository) FindAllByStatus(ctx context.Context, status string) ([]leave.LeaveRequest, error) {
	if f.findAllByStatusFn != nil {
		return f.findAllByStatusFn(ctx, status)
	}
	return nil, nil
}

func (f *fakeLeaveRepository) HasOverlappingPeriod(ctx context.Context, employeeID string, startDate, endDate time.Time) (bool, error) {
	if f.hasOverlappingPeriodFn != nil {
		return f.hasOverlappingPeriodFn(ctx, employeeID, startDate, endDate)
	}
	return false, nil
}

func (f *fakeLeaveRepository) UpdateVersioned(ctx context.Context, l *leave.LeaveRequest) error {
	if f.updateVersionedFn != nil {
		return f.updateVersionedFn(ctx, l)
	}
	l.Version++
	return nil
}

type leaveServiceDeps struct {
	db      *sql.DB
	sqlMock sqlmock.Sqlmock
	service leave.Service
	repo    *fakeLeaveRepository
}

func setupLeaveServiceTest(t *testing.T) *leaveServiceDeps {
	t.Helper()

	db, sqlMock, err := sqlmock.New()
	assert.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := &fakeLeaveRepository{}
	return &leaveServiceDeps{
		db:      db,
		sqlMock: sqlMock,
		service: leave.NewService(db, repo),
		repo:    repo,
	}
}

func expectTx(t *testing.T, mock sqlmock.Sqlmock, commit bool) {
	t.Helper()
	mock.ExpectBegin()
	if commit {
		mock.ExpectCommit()
	} else {
		mock.ExpectRollback()
	}
}

func pendingRequest(id uuid.UUID, employeeID string) *leave.LeaveRequest {
	return &leave.LeaveRequest{
		ID:         id,
		EmployeeID: employeeID,
		Category:   "sick",
		StartDate:  time.Date(2026, time.March, 9, 0, 0, 0, 0, time.UTC),
		EndDate:    time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC),
		TotalDays:  2,
		Status:     leave.StatusPending,
		Version:    1,
	}
}

func TestLeaveService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		expectTx(t, deps.sqlMock, true)

		deps.repo.hasOverlappingPeriodFn = func(ctx context.Context, employeeID string, startDate, endDate time.Time) (bool, error) {
			assert.Equal(t, "emp-1", employeeID)
			assert.Equal(t, "2026-03-01", startDate.Format("2006-01-02"))
			assert.Equal(t, "2026-03-03", endDate.Format("2006-01-02"))
			return false, nil
		}
		deps.repo.createFn = func(ctx context.Context, l *leave.LeaveRequest) error {
			assert.Equal(t, "emp-1", l.EmployeeID)
			assert.Equal(t, "sick", l.Category)
			assert.Equal(t, 3, l.TotalDays)
			assert.Equal(t, leave.StatusPending, l.Status)
			return nil
		}

		resp, err := deps.service.Create(ctx, "emp-1", leave.CreateLeaveRequest{
			Category:  " Sick ",
			StartDate: "2026-03-01",
			EndDate:   "2026-03-03",
			Reason:    "flu",
		})

		assert.NoError(t, err)
		assert.Equal(t, 3, resp.TotalDays)
		assert.Equal(t, "sick", resp.Category)
		assert.Equal(t, leave.StatusPending, resp.Status)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("overlap", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		expectTx(t, deps.sqlMock, false)

		deps.repo.hasOverlappingPeriodFn = func(ctx context.Context, employeeID string, startDate, endDate time.Time) (bool, error) {
			return true, nil
		}

		_, err := deps.service.Create(ctx, "emp-1", leave.CreateLeaveRequest{Category: "sick", StartDate: "2026-03-01", EndDate: "2026-03-02"})

		assert.ErrorIs(t, err, leaveerrors.ErrLeaveOverlap)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("store failure is hidden", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		expectTx(t, deps.sqlMock, false)

		deps.repo.createFn = func(ctx context.Context, l *leave.LeaveRequest) error {
			return errors.New("connection refused")
		}

		_, err := deps.service.Create(ctx, "emp-1", leave.CreateLeaveRequest{Category: "sick", StartDate: "2026-03-01", EndDate: "2026-03-01"})

		assert.True(t, apperror.Is(err, apperror.CodePersistenceUnavailable))
	})

	rejections := []struct {
		name string
		req  leave.CreateLeaveRequest
		want error
	}{
		{"unknown category", leave.CreateLeaveRequest{Category: "annual", StartDate: "2026-03-01", EndDate: "2026-03-01"}, ledgererrors.ErrInvalidCategory},
		{"bad date", leave.CreateLeaveRequest{Category: "sick", StartDate: "01/03/2026", EndDate: "2026-03-01"}, leaveerrors.ErrInvalidDateFormat},
		{"reversed range", leave.CreateLeaveRequest{Category: "sick", StartDate: "2026-03-05", EndDate: "2026-03-01"}, leaveerrors.ErrInvalidDateRange},
	}
	for _, tt := range rejections {
		t.Run(tt.name, func(t *testing.T) {
			deps := setupLeaveServiceTest(t)

			_, err := deps.service.Create(ctx, "emp-1", tt.req)

			assert.ErrorIs(t, err, tt.want)
			assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
		})
	}
}

func TestLeaveService_Transitions(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()

	t.Run("approve sets decider", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		expectTx(t, deps.sqlMock, true)

		deps.repo.findByIDFn = func(ctx context.Context, rid string) (*leave.LeaveRequest, error) {
			assert.Equal(t, id.String(), rid)
			return pendingRequest(id, "emp-1"), nil
		}

		resp, err := deps.service.MarkApproved(ctx, "hr-1", id.String())

		assert.NoError(t, err)
		assert.Equal(t, leave.StatusApproved, resp.Status)
		assert.Equal(t, "hr-1", *resp.DecidedBy)
		assert.NotNil(t, resp.DecidedAt)
		assert.Equal(t, int64(2), resp.Version)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("own request cannot be approved", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		expectTx(t, deps.sqlMock, false)
		deps.repo.findByIDFn = func(ctx context.Context, rid string) (*leave.LeaveRequest, error) {
			return pendingRequest(id, "hr-1"), nil
		}

		_, err := deps.service.MarkApproved(ctx, "hr-1", id.String())
		assert.ErrorIs(t, err, leaveerrors.ErrSelfDecision)
	})

	t.Run("approved request cannot be cancelled", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		expectTx(t, deps.sqlMock, false)
		deps.repo.findByIDFn = func(ctx context.Context, rid string) (*leave.LeaveRequest, error) {
			l := pendingRequest(id, "emp-1")
			l.Status = leave.StatusApproved
			return l, nil
		}

		_, err := deps.service.Cancel(ctx, "emp-1", id.String())
		assert.ErrorIs(t, err, leaveerrors.ErrInvalidStatusTransition)
	})

	t.Run("cancel by someone else looks absent", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		expectTx(t, deps.sqlMock, false)
		deps.repo.findByIDFn = func(ctx context.Context, rid string) (*leave.LeaveRequest, error) {
			return pendingRequest(id, "emp-1"), nil
		}

		_, err := deps.service.Cancel(ctx, "emp-2", id.String())
		assert.ErrorIs(t, err, leaveerrors.ErrLeaveNotFound)
	})

	t.Run("reject requires a reason", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)

		_, err := deps.service.Reject(ctx, "hr-1", id.String(), "  ")
		assert.ErrorIs(t, err, leaveerrors.ErrRejectionReasonRequired)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("reject stores the reason", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		expectTx(t, deps.sqlMock, true)
		deps.repo.findByIDFn = func(ctx context.Context, rid string) (*leave.LeaveRequest, error) {
			return pendingRequest(id, "emp-1"), nil
		}

		resp, err := deps.service.Reject(ctx, "hr-1", id.String(), "team offsite")
		assert.NoError(t, err)
		assert.Equal(t, leave.StatusRejected, resp.Status)
		assert.Equal(t, "team offsite", *resp.RejectionReason)
	})

	t.Run("reopen clears the decision", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		expectTx(t, deps.sqlMock, true)
		deps.repo.findByIDFn = func(ctx context.Context, rid string) (*leave.LeaveRequest, error) {
			l := pendingRequest(id, "emp-1")
			l.Status = leave.StatusApproved
			hr := "hr-1"
			now := time.Now()
			l.DecidedBy, l.DecidedAt = &hr, &now
			return l, nil
		}

		resp, err := deps.service.Reopen(ctx, id.String())
		assert.NoError(t, err)
		assert.Equal(t, leave.StatusPending, resp.Status)
		assert.Nil(t, resp.DecidedBy)
		assert.Nil(t, resp.DecidedAt)
	})

	t.Run("concurrent decision loses", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		expectTx(t, deps.sqlMock, false)
		deps.repo.findByIDFn = func(ctx context.Context, rid string) (*leave.LeaveRequest, error) {
			return pendingRequest(id, "emp-1"), nil
		}
		deps.repo.updateVersionedFn = func(ctx context.Context, l *leave.LeaveRequest) error {
			return leave.ErrVersionConflict
		}

		_, err := deps.service.MarkApproved(ctx, "hr-1", id.String())
		assert.ErrorIs(t, err, leaveerrors.ErrDecidedConcurrently)
	})

	t.Run("malformed id is not found", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		expectTx(t, deps.sqlMock, false)

		_, err := deps.service.MarkApproved(ctx, "hr-1", "not-a-uuid")
		assert.ErrorIs(t, err, leaveerrors.ErrLeaveNotFound)
	})
}

func TestLeaveService_Lists(t *testing.T) {
	deps := setupLeaveServiceTest(t)
	deps.repo.findAllByStatusFn = func(ctx context.Context, status string) ([]leave.LeaveRequest, error) {
		assert.Equal(t, leave.StatusPending, status)
		return []leave.LeaveRequest{*pendingRequest(uuid.New(), "emp-1"), *pendingRequest(uuid.New(), "emp-2")}, nil
	}
	deps.repo.findAllByEmployeeFn = func(ctx context.Context, employeeID string) ([]leave.LeaveRequest, error) {
		return nil, errors.New("timeout")
	}

	pending, err := deps.service.ListPending(context.Background())
	assert.NoError(t, err)
	assert.Len(t, pending, 2)
	assert.Equal(t, "2026-03-09", pending[0].StartDate)

	_, err = deps.service.ListMine(context.Background(), "emp-1")
	assert.True(t, apperror.Is(err, apperror.CodePersistenceUnavailable))
}
