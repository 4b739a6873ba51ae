package attendance

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	attendanceerrors "hris-timekeeper/internal/attendance/errors"
	"hris-timekeeper/internal/events"
	"hris-timekeeper/internal/messaging/kafka"
	"hris-timekeeper/internal/shared/apperror"
	"hris-timekeeper/internal/shared/contextutil"
	"hris-timekeeper/internal/shared/retry"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:generate mockgen -source=attendance_service.go -destination=mock/attendance_service_mock.go -package=mock
type Service interface {
	ClockIn(ctx context.Context, employeeID string, now time.Time) (AttendanceResponse, error)
	StartBreak(ctx context.Context, employeeID string, now time.Time) (AttendanceResponse, error)
	EndBreak(ctx context.Context, employeeID string, now time.Time) (AttendanceResponse, error)
	ClockOut(ctx context.Context, employeeID string, now time.Time, summary string) (ClockOutResult, error)
	CurrentSession(ctx context.Context, employeeID string, now time.Time) (SessionResponse, error)
	History(ctx context.Context, employeeID string) ([]AttendanceResponse, error)
}

type service struct {
	db     *sql.DB
	repo   Repository
	outbox kafka.OutboxRepository
	logger *zap.Logger
}

// NewService builds the tracker. db may be nil when repo is not SQL backed;
// writes then run without a surrounding transaction.
func NewService(db *sql.DB, repo Repository, logger ...*zap.Logger) Service {
	return NewServiceWithOutbox(db, repo, nil, logger...)
}

func NewServiceWithOutbox(db *sql.DB, repo Repository, outboxRepo kafka.OutboxRepository, logger ...*zap.Logger) Service {
	l := zap.L().Named("attendance.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("attendance.service")
	}
	return &service{db: db, repo: repo, outbox: outboxRepo, logger: l}
}

func (s *service) ClockIn(ctx context.Context, employeeID string, now time.Time) (AttendanceResponse, error) {
	log := contextutil.GetLogger(ctx, s.logger)
	if strings.TrimSpace(employeeID) == "" {
		return AttendanceResponse{}, attendanceerrors.ErrInvalidEmployeeID
	}
	today := dayOf(now)
	log.Debug("clock in requested", zap.String("employee_id", employeeID), zap.Time("now", now))

	latest, err := s.repo.FindLatestSince(ctx, employeeID, today.AddDate(0, 0, -1))
	switch {
	case err == nil && !latest.IsClosed():
		return AttendanceResponse{}, attendanceerrors.ErrAlreadyClockedIn
	case err == nil && sameDay(latest.AttendanceDate, today):
		return AttendanceResponse{}, attendanceerrors.ErrAlreadyClockedOut
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		log.Error("clock in lookup failed", zap.String("employee_id", employeeID), zap.Error(err))
		return AttendanceResponse{}, apperror.Persistence(err)
	}

	row := &AttendanceRecord{
		ID:               uuid.New(),
		EmployeeID:       employeeID,
		AttendanceDate:   today,
		ClockInTime:      WallClockAt(now.UTC()).String(),
		Breaks:           []Break{},
		AccumulatedHours: decimal.Zero,
		Version:          1,
	}
	if err := s.repo.Create(ctx, row); err != nil {
		if apperror.IsUniqueViolation(err, uniqueEmployeeDate) {
			log.Warn("clock in lost race on unique day", zap.String("employee_id", employeeID))
			return AttendanceResponse{}, attendanceerrors.ErrAlreadyClockedIn
		}
		log.Error("clock in persist failed",
			zap.String("employee_id", employeeID),
			zap.Bool("transient", apperror.IsTransient(err)),
			zap.Error(err),
		)
		return AttendanceResponse{}, apperror.Persistence(err)
	}

	log.Info("clock in success",
		zap.String("record_id", row.ID.String()),
		zap.String("employee_id", employeeID),
		zap.String("clock_in_time", row.ClockInTime),
	)
	return mapToResponse(*row), nil
}

func (s *service) StartBreak(ctx context.Context, employeeID string, now time.Time) (AttendanceResponse, error) {
	return s.mutateOpenSession(ctx, "start break", employeeID, now, func(row *AttendanceRecord) error {
		if row.OpenBreak() >= 0 {
			return attendanceerrors.ErrBreakAlreadyOpen
		}
		row.Breaks = append(row.Breaks, Break{Start: now.UTC()})
		return nil
	})
}

func (s *service) EndBreak(ctx context.Context, employeeID string, now time.Time) (AttendanceResponse, error) {
	return s.mutateOpenSession(ctx, "end break", employeeID, now, func(row *AttendanceRecord) error {
		idx := row.OpenBreak()
		if idx < 0 {
			return attendanceerrors.ErrNoOpenBreak
		}
		end := now.UTC()
		if end.Before(row.Breaks[idx].Start) {
			end = row.Breaks[idx].Start
		}
		row.Breaks[idx].End = &end
		return nil
	})
}

// mutateOpenSession applies change to the employee's open record and
// writes it back with a version check, re-reading on conflict.
func (s *service) mutateOpenSession(
	ctx context.Context,
	op, employeeID string,
	now time.Time,
	change func(row *AttendanceRecord) error,
) (AttendanceResponse, error) {
	log := contextutil.GetLogger(ctx, s.logger)
	log.Debug(op+" requested", zap.String("employee_id", employeeID), zap.Time("now", now))

	var out AttendanceRecord
	err := s.retryOnConflict(ctx, op, func() error {
		row, err := s.findOpenSession(ctx, s.repo, employeeID, now)
		if err != nil {
			return err
		}
		if err := change(row); err != nil {
			return err
		}
		if err := s.repo.UpdateVersioned(ctx, row); err != nil {
			return err
		}
		out = *row
		return nil
	})
	if err != nil {
		return AttendanceResponse{}, err
	}

	log.Info(op+" success", zap.String("record_id", out.ID.String()), zap.String("employee_id", employeeID))
	return mapToResponse(out), nil
}

func (s *service) ClockOut(ctx context.Context, employeeID string, now time.Time, summary string) (ClockOutResult, error) {
	log := contextutil.GetLogger(ctx, s.logger)
	log.Debug("clock out requested", zap.String("employee_id", employeeID), zap.Time("now", now))

	summary = strings.TrimSpace(summary)

	var closed AttendanceRecord
	err := s.retryOnConflict(ctx, "clock out", func() error {
		return s.inTx(ctx, func(qtx Repository, outbox kafka.OutboxRepository) error {
			row, err := s.findSessionToClose(ctx, qtx, employeeID, now)
			if err != nil {
				return err
			}
			if summary == "" {
				return attendanceerrors.ErrSummaryRequired
			}
			if row.OpenBreak() >= 0 {
				return attendanceerrors.ErrBreakAlreadyOpen
			}

			hours, clockOut, err := computeWorkedHours(row, now)
			if err != nil {
				log.Error("clock out stored clock in unreadable",
					zap.String("record_id", row.ID.String()),
					zap.String("clock_in_time", row.ClockInTime),
					zap.Error(err),
				)
				return apperror.ErrInternal
			}

			closedAt := now.UTC()
			row.ClockOutTime = &clockOut
			row.AccumulatedHours = hours
			row.Summary = summary
			row.ClosedAt = &closedAt

			if err := qtx.UpdateVersioned(ctx, row); err != nil {
				return err
			}
			if outbox != nil {
				if err := s.enqueueDayClosed(ctx, outbox, row); err != nil {
					log.Error("clock out outbox persist failed", zap.String("record_id", row.ID.String()), zap.Error(err))
					return apperror.Persistence(err)
				}
			}
			closed = *row
			return nil
		})
	})
	if err != nil {
		return ClockOutResult{}, err
	}

	log.Info("clock out success",
		zap.String("record_id", closed.ID.String()),
		zap.String("employee_id", employeeID),
		zap.String("total_hours", closed.AccumulatedHours.String()),
	)
	return ClockOutResult{
		RecordID:     closed.ID.String(),
		ClockOutTime: *closed.ClockOutTime,
		TotalHours:   closed.AccumulatedHours,
	}, nil
}

func (s *service) CurrentSession(ctx context.Context, employeeID string, now time.Time) (SessionResponse, error) {
	row, err := s.findOpenSession(ctx, s.repo, employeeID, now)
	if err != nil {
		if apperror.Is(err, attendanceerrors.CodeNoOpenSession) {
			return SessionResponse{Active: false}, nil
		}
		return SessionResponse{}, err
	}
	resp := mapToResponse(*row)
	return SessionResponse{Active: true, OnBreak: row.OpenBreak() >= 0, Record: &resp}, nil
}

func (s *service) History(ctx context.Context, employeeID string) ([]AttendanceResponse, error) {
	rows, err := s.repo.FindAllByEmployee(ctx, employeeID)
	if err != nil {
		contextutil.GetLogger(ctx, s.logger).Error("attendance history failed", zap.String("employee_id", employeeID), zap.Error(err))
		return nil, apperror.Persistence(err)
	}
	res := make([]AttendanceResponse, len(rows))
	for i, r := range rows {
		res[i] = mapToResponse(r)
	}
	return res, nil
}

// findOpenSession returns today's open record, or yesterday's when an
// overnight shift has not been closed yet.
func (s *service) findOpenSession(ctx context.Context, repo Repository, employeeID string, now time.Time) (*AttendanceRecord, error) {
	today := dayOf(now)
	row, err := repo.FindLatestSince(ctx, employeeID, today.AddDate(0, 0, -1))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, attendanceerrors.ErrNoOpenSession
		}
		return nil, apperror.Persistence(err)
	}
	if row.IsClosed() {
		return nil, attendanceerrors.ErrNoOpenSession
	}
	return row, nil
}

// findSessionToClose is findOpenSession with one extra rule: a record that
// was already closed today reports AlreadyClockedOut.
func (s *service) findSessionToClose(ctx context.Context, repo Repository, employeeID string, now time.Time) (*AttendanceRecord, error) {
	today := dayOf(now)
	row, err := repo.FindLatestSince(ctx, employeeID, today.AddDate(0, 0, -1))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, attendanceerrors.ErrNoOpenSession
		}
		return nil, apperror.Persistence(err)
	}
	if row.IsClosed() {
		if sameDay(row.AttendanceDate, today) || (row.ClosedAt != nil && sameDay(*row.ClosedAt, today)) {
			return nil, attendanceerrors.ErrAlreadyClockedOut
		}
		return nil, attendanceerrors.ErrNoOpenSession
	}
	return row, nil
}

// computeWorkedHours formats now as the clock-out reading and measures the
// span from the stored clock-in on a common day, minus finished breaks.
func computeWorkedHours(row *AttendanceRecord, now time.Time) (decimal.Decimal, string, error) {
	in, err := ParseWallClock(row.ClockInTime)
	if err != nil {
		return decimal.Zero, "", err
	}
	out := WallClockAt(now.UTC())

	worked := WorkedSpan(in, out, row.AttendanceDate) - row.BreakDuration()
	if worked < 0 {
		worked = 0
	}

	minutes := decimal.NewFromInt(int64(worked / time.Minute))
	return minutes.Div(decimal.NewFromInt(60)).Round(2), out.String(), nil
}

func (s *service) enqueueDayClosed(ctx context.Context, outbox kafka.OutboxRepository, row *AttendanceRecord) error {
	payload := events.AttendanceDayClosedEvent{
		EventType:      events.EventAttendanceDayClosed,
		RequestID:      contextutil.GetRequestID(ctx),
		RecordID:       row.ID.String(),
		EmployeeID:     row.EmployeeID,
		AttendanceDate: row.AttendanceDate.Format("2006-01-02"),
		ClockInTime:    row.ClockInTime,
		ClockOutTime:   *row.ClockOutTime,
		TotalHours:     row.AccumulatedHours.StringFixed(2),
		OccurredAt:     time.Now().UTC(),
	}
	event, err := kafka.NewOutboxEvent(ctx, "attendance", row.EmployeeID, payload.EventType, events.AttendanceDayClosedTopic, payload)
	if err != nil {
		return err
	}
	return outbox.Create(ctx, event)
}

func (s *service) inTx(ctx context.Context, fn func(qtx Repository, outbox kafka.OutboxRepository) error) error {
	if s.db == nil {
		return fn(s.repo, s.outbox)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		contextutil.GetLogger(ctx, s.logger).Error("begin tx failed", zap.Error(err))
		return apperror.Persistence(err)
	}
	defer tx.Rollback()

	var outbox kafka.OutboxRepository
	if s.outbox != nil {
		outbox = s.outbox.WithTx(tx)
	}
	if err := fn(s.repo.WithTx(tx), outbox); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		contextutil.GetLogger(ctx, s.logger).Error("commit failed", zap.Error(err))
		return apperror.Persistence(err)
	}
	return nil
}

// retryOnConflict reruns attempt while the versioned write loses a race.
// Any other failure that is not already an AppError is a store failure.
func (s *service) retryOnConflict(ctx context.Context, op string, attempt func() error) error {
	log := contextutil.GetLogger(ctx, s.logger)

	err := retry.OnConflict(ctx, ErrVersionConflict, attempt, func(n int, wait time.Duration) {
		log.Warn(op+" version conflict, retrying", zap.Int("attempt", n), zap.Duration("wait", wait))
	})
	if err == nil {
		return nil
	}

	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return err
	}
	log.Error(op+" failed", zap.Bool("transient", apperror.IsTransient(err)), zap.Error(err))
	return apperror.Persistence(err)
}

func mapToResponse(a AttendanceRecord) AttendanceResponse {
	resp := AttendanceResponse{
		ID:               a.ID.String(),
		EmployeeID:       a.EmployeeID,
		AttendanceDate:   a.AttendanceDate.Format("2006-01-02"),
		ClockInTime:      a.ClockInTime,
		ClockOutTime:     a.ClockOutTime,
		Breaks:           make([]BreakResponse, len(a.Breaks)),
		AccumulatedHours: a.AccumulatedHours,
		Summary:          a.Summary,
		Status:           StatusOpen,
	}
	for i, b := range a.Breaks {
		resp.Breaks[i] = BreakResponse{Start: b.Start.Format(time.RFC3339)}
		if b.End != nil {
			v := b.End.Format(time.RFC3339)
			resp.Breaks[i].End = &v
		}
	}
	switch {
	case a.IsClosed():
		resp.Status = StatusClosed
	case a.OpenBreak() >= 0:
		resp.Status = StatusOnBreak
	}
	return resp
}
