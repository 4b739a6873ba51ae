package attendance

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	attendanceerrors "hris-timekeeper/internal/attendance/errors"
	"hris-timekeeper/internal/events"
	"hris-timekeeper/internal/messaging/kafka"
	"hris-timekeeper/internal/shared/apperror"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

// memRepo keeps records in memory and enforces the same version check
// as the SQL repository.
type memRepo struct {
	mu        sync.Mutex
	rows      map[string]*AttendanceRecord
	createErr error
	findErr   error
}

func newMemRepo() *memRepo {
	return &memRepo{rows: map[string]*AttendanceRecord{}}
}

func memKey(employeeID string, day time.Time) string {
	return employeeID + "|" + dayOf(day).Format("2006-01-02")
}

func cloneRecord(a *AttendanceRecord) *AttendanceRecord {
	c := *a
	c.Breaks = append([]Break(nil), a.Breaks...)
	return &c
}

func (m *memRepo) WithTx(tx *sql.Tx) Repository { return m }

func (m *memRepo) Create(ctx context.Context, a *AttendanceRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	k := memKey(a.EmployeeID, a.AttendanceDate)
	if _, ok := m.rows[k]; ok {
		return &pgconn.PgError{Code: "23505", ConstraintName: uniqueEmployeeDate}
	}
	m.rows[k] = cloneRecord(a)
	return nil
}

func (m *memRepo) FindByEmployeeAndDate(ctx context.Context, employeeID string, date time.Time) (*AttendanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if row, ok := m.rows[memKey(employeeID, date)]; ok {
		return cloneRecord(row), nil
	}
	return &AttendanceRecord{}, gorm.ErrRecordNotFound
}

func (m *memRepo) FindLatestSince(ctx context.Context, employeeID string, since time.Time) (*AttendanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return &AttendanceRecord{}, m.findErr
	}
	var latest *AttendanceRecord
	for _, row := range m.rows {
		if row.EmployeeID != employeeID || row.AttendanceDate.Before(dayOf(since)) {
			continue
		}
		if latest == nil || row.AttendanceDate.After(latest.AttendanceDate) {
			latest = row
		}
	}
	if latest == nil {
		return &AttendanceRecord{}, gorm.ErrRecordNotFound
	}
	return cloneRecord(latest), nil
}

func (m *memRepo) FindAllByEmployee(ctx context.Context, employeeID string) ([]AttendanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []AttendanceRecord
	for _, row := range m.rows {
		if row.EmployeeID == employeeID {
			out = append(out, *cloneRecord(row))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AttendanceDate.After(out[j].AttendanceDate) })
	return out, nil
}

func (m *memRepo) UpdateVersioned(ctx context.Context, a *AttendanceRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := memKey(a.EmployeeID, a.AttendanceDate)
	stored, ok := m.rows[k]
	if !ok || stored.Version != a.Version {
		return ErrVersionConflict
	}
	a.Version++
	m.rows[k] = cloneRecord(a)
	return nil
}

func (m *memRepo) get(employeeID string, day time.Time) *AttendanceRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	if row, ok := m.rows[memKey(employeeID, day)]; ok {
		return cloneRecord(row)
	}
	return nil
}

// conflictingRepo loses the first `conflicts` versioned writes.
type conflictingRepo struct {
	*memRepo
	conflicts int
	attempts  int
}

func (r *conflictingRepo) WithTx(tx *sql.Tx) Repository { return r }

func (r *conflictingRepo) UpdateVersioned(ctx context.Context, a *AttendanceRecord) error {
	r.attempts++
	if r.attempts <= r.conflicts {
		return ErrVersionConflict
	}
	return r.memRepo.UpdateVersioned(ctx, a)
}

type fakeOutbox struct {
	mu        sync.Mutex
	events    []kafka.OutboxEvent
	createErr error
}

func (f *fakeOutbox) WithTx(tx *sql.Tx) kafka.OutboxRepository { return f }
func (f *fakeOutbox) Create(ctx context.Context, event kafka.OutboxEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.events = append(f.events, event)
	return nil
}
func (f *fakeOutbox) ListPending(ctx context.Context, limit int) ([]kafka.OutboxEvent, error) {
	return nil, nil
}
func (f *fakeOutbox) MarkSent(ctx context.Context, id string) error                { return nil }
func (f *fakeOutbox) MarkFailed(ctx context.Context, id string, reason string) error { return nil }

func at(day, hour, minute int) time.Time {
	return time.Date(2026, time.March, day, hour, minute, 0, 0, time.UTC)
}

const emp = "emp-1"

func TestService_ScenarioA_DayShift(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(nil, repo)
	ctx := context.Background()

	in, err := svc.ClockIn(ctx, emp, at(2, 9, 0))
	assert.NoError(t, err)
	assert.Equal(t, "09:00 AM", in.ClockInTime)
	assert.Equal(t, StatusOpen, in.Status)

	out, err := svc.ClockOut(ctx, emp, at(2, 18, 0), "finished payroll review")
	assert.NoError(t, err)
	assert.Equal(t, "06:00 PM", out.ClockOutTime)
	assert.Equal(t, "9.00", out.TotalHours.StringFixed(2))

	row := repo.get(emp, at(2, 0, 0))
	assert.NotNil(t, row)
	assert.Equal(t, "finished payroll review", row.Summary)
	assert.True(t, row.IsClosed())
}

func TestService_ScenarioB_OvernightShift(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(nil, repo)
	ctx := context.Background()

	_, err := svc.ClockIn(ctx, emp, at(2, 22, 0))
	assert.NoError(t, err)

	session, err := svc.CurrentSession(ctx, emp, at(3, 1, 0))
	assert.NoError(t, err)
	assert.True(t, session.Active)

	out, err := svc.ClockOut(ctx, emp, at(3, 2, 0), "night shift")
	assert.NoError(t, err)
	assert.Equal(t, "02:00 AM", out.ClockOutTime)
	assert.Equal(t, "4.00", out.TotalHours.StringFixed(2))

	_, err = svc.ClockOut(ctx, emp, at(3, 3, 0), "again")
	assert.True(t, apperror.Is(err, attendanceerrors.CodeAlreadyClockedOut))
}

func TestService_ScenarioD_SecondClockOutLeavesRecordUntouched(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(nil, repo)
	ctx := context.Background()

	_, err := svc.ClockIn(ctx, emp, at(2, 9, 0))
	assert.NoError(t, err)
	first, err := svc.ClockOut(ctx, emp, at(2, 18, 0), "done")
	assert.NoError(t, err)

	_, err = svc.ClockOut(ctx, emp, at(2, 20, 0), "later")
	assert.True(t, apperror.Is(err, attendanceerrors.CodeAlreadyClockedOut))

	_, err = svc.ClockOut(ctx, emp, at(2, 20, 0), "  ")
	assert.True(t, apperror.Is(err, attendanceerrors.CodeAlreadyClockedOut))

	row := repo.get(emp, at(2, 0, 0))
	assert.Equal(t, first.ClockOutTime, *row.ClockOutTime)
	assert.True(t, first.TotalHours.Equal(row.AccumulatedHours))
	assert.Equal(t, "done", row.Summary)
}

func TestService_ClockOut_SessionCheckedBeforeSummary(t *testing.T) {
	svc := NewService(nil, newMemRepo())

	_, err := svc.ClockOut(context.Background(), emp, at(2, 18, 0), "")
	assert.True(t, apperror.Is(err, attendanceerrors.CodeNoOpenSession))
}

func TestService_ClockIn_Preconditions(t *testing.T) {
	ctx := context.Background()

	t.Run("twice on the same day", func(t *testing.T) {
		repo := newMemRepo()
		svc := NewService(nil, repo)

		_, err := svc.ClockIn(ctx, emp, at(2, 9, 0))
		assert.NoError(t, err)
		_, err = svc.ClockIn(ctx, emp, at(2, 9, 5))
		assert.True(t, apperror.Is(err, attendanceerrors.CodeAlreadyClockedIn))
		assert.Len(t, repo.rows, 1)
	})

	t.Run("after clocking out", func(t *testing.T) {
		repo := newMemRepo()
		svc := NewService(nil, repo)

		_, _ = svc.ClockIn(ctx, emp, at(2, 9, 0))
		_, err := svc.ClockOut(ctx, emp, at(2, 17, 0), "done")
		assert.NoError(t, err)

		_, err = svc.ClockIn(ctx, emp, at(2, 19, 0))
		assert.True(t, apperror.Is(err, attendanceerrors.CodeAlreadyClockedOut))
	})

	t.Run("overnight session still open next day", func(t *testing.T) {
		svc := NewService(nil, newMemRepo())

		_, _ = svc.ClockIn(ctx, emp, at(2, 22, 0))
		_, err := svc.ClockIn(ctx, emp, at(3, 8, 0))
		assert.True(t, apperror.Is(err, attendanceerrors.CodeAlreadyClockedIn))
	})

	t.Run("next day after a closed day", func(t *testing.T) {
		svc := NewService(nil, newMemRepo())

		_, _ = svc.ClockIn(ctx, emp, at(2, 9, 0))
		_, _ = svc.ClockOut(ctx, emp, at(2, 17, 0), "done")
		_, err := svc.ClockIn(ctx, emp, at(3, 9, 0))
		assert.NoError(t, err)
	})

	t.Run("blank employee", func(t *testing.T) {
		_, err := NewService(nil, newMemRepo()).ClockIn(ctx, "  ", at(2, 9, 0))
		assert.ErrorIs(t, err, attendanceerrors.ErrInvalidEmployeeID)
	})

	t.Run("lost race on unique index", func(t *testing.T) {
		repo := newMemRepo()
		repo.createErr = &pgconn.PgError{Code: "23505", ConstraintName: uniqueEmployeeDate}

		_, err := NewService(nil, repo).ClockIn(ctx, emp, at(2, 9, 0))
		assert.True(t, apperror.Is(err, attendanceerrors.CodeAlreadyClockedIn))
	})

	t.Run("store down", func(t *testing.T) {
		repo := newMemRepo()
		repo.findErr = errors.New("dial tcp: connection refused")

		_, err := NewService(nil, repo).ClockIn(ctx, emp, at(2, 9, 0))
		assert.True(t, apperror.Is(err, apperror.CodePersistenceUnavailable))
	})
}

func TestService_Breaks(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(nil, repo)
	ctx := context.Background()

	_, err := svc.ClockIn(ctx, emp, at(2, 9, 0))
	assert.NoError(t, err)

	_, err = svc.EndBreak(ctx, emp, at(2, 11, 0))
	assert.True(t, apperror.Is(err, attendanceerrors.CodeNoOpenBreak))

	onBreak, err := svc.StartBreak(ctx, emp, at(2, 12, 0))
	assert.NoError(t, err)
	assert.Equal(t, StatusOnBreak, onBreak.Status)

	_, err = svc.StartBreak(ctx, emp, at(2, 12, 5))
	assert.True(t, apperror.Is(err, attendanceerrors.CodeBreakAlreadyOpen))

	session, err := svc.CurrentSession(ctx, emp, at(2, 12, 10))
	assert.NoError(t, err)
	assert.True(t, session.OnBreak)

	_, err = svc.ClockOut(ctx, emp, at(2, 12, 15), "leaving")
	assert.True(t, apperror.Is(err, attendanceerrors.CodeBreakAlreadyOpen))

	back, err := svc.EndBreak(ctx, emp, at(2, 12, 30))
	assert.NoError(t, err)
	assert.Equal(t, StatusOpen, back.Status)
	assert.Len(t, back.Breaks, 1)
	assert.NotNil(t, back.Breaks[0].End)

	_, err = svc.EndBreak(ctx, emp, at(2, 12, 35))
	assert.True(t, apperror.Is(err, attendanceerrors.CodeNoOpenBreak))

	out, err := svc.ClockOut(ctx, emp, at(2, 17, 0), "done")
	assert.NoError(t, err)
	assert.Equal(t, "7.50", out.TotalHours.StringFixed(2))
}

func TestService_NoOpenSession(t *testing.T) {
	svc := NewService(nil, newMemRepo())
	ctx := context.Background()

	_, err := svc.StartBreak(ctx, emp, at(2, 12, 0))
	assert.True(t, apperror.Is(err, attendanceerrors.CodeNoOpenSession))

	_, err = svc.EndBreak(ctx, emp, at(2, 12, 0))
	assert.True(t, apperror.Is(err, attendanceerrors.CodeNoOpenSession))

	_, err = svc.ClockOut(ctx, emp, at(2, 18, 0), "done")
	assert.True(t, apperror.Is(err, attendanceerrors.CodeNoOpenSession))

	session, err := svc.CurrentSession(ctx, emp, at(2, 18, 0))
	assert.NoError(t, err)
	assert.False(t, session.Active)
	assert.Nil(t, session.Record)
}

func TestService_ClockOut_SummaryRequired(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(nil, repo)
	ctx := context.Background()

	_, _ = svc.ClockIn(ctx, emp, at(2, 9, 0))
	_, err := svc.ClockOut(ctx, emp, at(2, 18, 0), " \t ")
	assert.ErrorIs(t, err, attendanceerrors.ErrSummaryRequired)
	assert.False(t, repo.get(emp, at(2, 0, 0)).IsClosed())
}

func TestService_VersionConflictRetry(t *testing.T) {
	ctx := context.Background()

	t.Run("recovers after transient conflicts", func(t *testing.T) {
		repo := &conflictingRepo{memRepo: newMemRepo(), conflicts: 2}
		svc := NewService(nil, repo)

		_, _ = svc.ClockIn(ctx, emp, at(2, 9, 0))
		_, err := svc.StartBreak(ctx, emp, at(2, 12, 0))
		assert.NoError(t, err)
		assert.Equal(t, 3, repo.attempts)
	})

	t.Run("gives up when the deadline passes", func(t *testing.T) {
		repo := &conflictingRepo{memRepo: newMemRepo(), conflicts: 1 << 20}
		svc := NewService(nil, repo)

		_, _ = svc.ClockIn(ctx, emp, at(2, 9, 0))
		short, cancel := context.WithTimeout(ctx, 40*time.Millisecond)
		defer cancel()
		_, err := svc.ClockOut(short, emp, at(2, 18, 0), "done")
		assert.True(t, apperror.Is(err, apperror.CodePersistenceUnavailable))
		assert.Greater(t, repo.attempts, 1)
		assert.False(t, repo.get(emp, at(2, 0, 0)).IsClosed())
	})
}

func TestService_ConcurrentClockOut_ExactlyOneWins(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(nil, repo)
	ctx := context.Background()

	_, err := svc.ClockIn(ctx, emp, at(2, 9, 0))
	assert.NoError(t, err)

	const n = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		closedOut int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.ClockOut(ctx, emp, at(2, 17, i), "done")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case apperror.Is(err, attendanceerrors.CodeAlreadyClockedOut):
				closedOut++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, n-1, closedOut)
}

func TestService_ClockOut_Transaction(t *testing.T) {
	ctx := context.Background()

	t.Run("commits record and outbox event together", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		repo := newMemRepo()
		outbox := &fakeOutbox{}
		svc := NewServiceWithOutbox(db, repo, outbox)

		_, err = svc.ClockIn(ctx, emp, at(2, 9, 0))
		assert.NoError(t, err)

		mock.ExpectBegin()
		mock.ExpectCommit()
		_, err = svc.ClockOut(ctx, emp, at(2, 18, 0), "done")
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())

		assert.Len(t, outbox.events, 1)
		assert.Equal(t, events.EventAttendanceDayClosed, outbox.events[0].EventType)
		assert.Equal(t, events.AttendanceDayClosedTopic, outbox.events[0].Topic)
		assert.Equal(t, emp, outbox.events[0].AggregateID)
		assert.Contains(t, string(outbox.events[0].Payload), `"total_hours":"9.00"`)
	})

	t.Run("outbox failure rolls back", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		outbox := &fakeOutbox{createErr: errors.New("outbox insert failed")}
		svc := NewServiceWithOutbox(db, newMemRepo(), outbox)

		_, _ = svc.ClockIn(ctx, emp, at(2, 9, 0))

		mock.ExpectBegin()
		mock.ExpectRollback()
		_, err = svc.ClockOut(ctx, emp, at(2, 18, 0), "done")
		assert.True(t, apperror.Is(err, apperror.CodePersistenceUnavailable))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("begin failure is a persistence error", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		svc := NewService(db, newMemRepo())
		_, _ = svc.ClockIn(ctx, emp, at(2, 9, 0))

		mock.ExpectBegin().WillReturnError(errors.New("too many connections"))
		_, err = svc.ClockOut(ctx, emp, at(2, 18, 0), "done")
		assert.True(t, apperror.Is(err, apperror.CodePersistenceUnavailable))
	})
}

func TestService_History(t *testing.T) {
	svc := NewService(nil, newMemRepo())
	ctx := context.Background()

	for day := 2; day <= 4; day++ {
		_, err := svc.ClockIn(ctx, emp, at(day, 9, 0))
		assert.NoError(t, err)
		_, err = svc.ClockOut(ctx, emp, at(day, 17, 0), "done")
		assert.NoError(t, err)
	}

	rows, err := svc.History(ctx, emp)
	assert.NoError(t, err)
	assert.Len(t, rows, 3)
	assert.Equal(t, "2026-03-04", rows[0].AttendanceDate)
	assert.Equal(t, StatusClosed, rows[0].Status)
}
