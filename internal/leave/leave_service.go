package leave

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	leaveerrors "hris-timekeeper/internal/leave/errors"
	"hris-timekeeper/internal/leaveledger"
	ledgererrors "hris-timekeeper/internal/leaveledger/errors"
	"hris-timekeeper/internal/shared/apperror"
	"hris-timekeeper/internal/shared/contextutil"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:generate mockgen -source=leave_service.go -destination=mock/leave_service_mock.go -package=mock
type Service interface {
	Create(ctx context.Context, employeeID string, req CreateLeaveRequest) (LeaveResponse, error)
	GetByID(ctx context.Context, id string) (LeaveResponse, error)
	ListMine(ctx context.Context, employeeID string) ([]LeaveResponse, error)
	ListPending(ctx context.Context) ([]LeaveResponse, error)
	Cancel(ctx context.Context, employeeID, id string) (LeaveResponse, error)
	Reject(ctx context.Context, approverID, id, rejectionReason string) (LeaveResponse, error)
	// MarkApproved only flips the status. Deducting the days is the
	// caller's job; see Reopen for undoing the flip.
	MarkApproved(ctx context.Context, approverID, id string) (LeaveResponse, error)
	Reopen(ctx context.Context, id string) (LeaveResponse, error)
}

type service struct {
	db     *sql.DB
	repo   Repository
	now    func() time.Time
	logger *zap.Logger
}

func NewService(db *sql.DB, repo Repository, logger ...*zap.Logger) Service {
	l := zap.L().Named("leave.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("leave.service")
	}
	return &service{db: db, repo: repo, now: time.Now, logger: l}
}

func (s *service) Create(ctx context.Context, employeeID string, req CreateLeaveRequest) (LeaveResponse, error) {
	log := contextutil.GetLogger(ctx, s.logger)
	log.Debug("create leave requested",
		zap.String("employee_id", employeeID),
		zap.String("category", req.Category),
		zap.String("start_date", req.StartDate),
		zap.String("end_date", req.EndDate),
	)

	if strings.TrimSpace(employeeID) == "" {
		return LeaveResponse{}, leaveerrors.ErrInvalidEmployeeID
	}
	category, ok := leaveledger.ParseCategory(req.Category)
	if !ok {
		return LeaveResponse{}, ledgererrors.ErrInvalidCategory
	}
	startDate, endDate, err := parsePeriod(req.StartDate, req.EndDate)
	if err != nil {
		return LeaveResponse{}, err
	}

	l := &LeaveRequest{
		ID:         uuid.New(),
		EmployeeID: employeeID,
		Category:   string(category),
		StartDate:  startDate,
		EndDate:    endDate,
		TotalDays:  inclusiveDays(startDate, endDate),
		Reason:     strings.TrimSpace(req.Reason),
		Status:     StatusPending,
	}

	err = s.inTx(ctx, func(qtx Repository) error {
		overlap, err := qtx.HasOverlappingPeriod(ctx, employeeID, startDate, endDate)
		if err != nil {
			return err
		}
		if overlap {
			log.Warn("create leave overlap detected",
				zap.String("employee_id", employeeID),
				zap.String("start_date", req.StartDate),
				zap.String("end_date", req.EndDate),
			)
			return leaveerrors.ErrLeaveOverlap
		}
		return qtx.Create(ctx, l)
	})
	if err != nil {
		return LeaveResponse{}, s.mapStoreError(ctx, "create leave", err)
	}

	log.Info("create leave success",
		zap.String("leave_id", l.ID.String()),
		zap.String("employee_id", employeeID),
		zap.Int("total_days", l.TotalDays),
	)
	return mapToResponse(*l), nil
}

func (s *service) GetByID(ctx context.Context, id string) (LeaveResponse, error) {
	l, err := s.find(ctx, s.repo, id)
	if err != nil {
		return LeaveResponse{}, s.mapStoreError(ctx, "get leave", err)
	}
	return mapToResponse(*l), nil
}

func (s *service) ListMine(ctx context.Context, employeeID string) ([]LeaveResponse, error) {
	leaves, err := s.repo.FindAllByEmployee(ctx, employeeID)
	if err != nil {
		return nil, s.mapStoreError(ctx, "list leave", err)
	}
	return mapToListResponse(leaves), nil
}

func (s *service) ListPending(ctx context.Context) ([]LeaveResponse, error) {
	leaves, err := s.repo.FindAllByStatus(ctx, StatusPending)
	if err != nil {
		return nil, s.mapStoreError(ctx, "list pending leave", err)
	}
	return mapToListResponse(leaves), nil
}

// Cancel lets the owner withdraw a pending request. Requests of other
// employees look absent.
func (s *service) Cancel(ctx context.Context, employeeID, id string) (LeaveResponse, error) {
	return s.transition(ctx, id, StatusCancelled, func(l *LeaveRequest) error {
		if l.EmployeeID != employeeID {
			return leaveerrors.ErrLeaveNotFound
		}
		l.DecidedBy = &employeeID
		return nil
	})
}

func (s *service) Reject(ctx context.Context, approverID, id, rejectionReason string) (LeaveResponse, error) {
	reason := strings.TrimSpace(rejectionReason)
	if reason == "" {
		return LeaveResponse{}, leaveerrors.ErrRejectionReasonRequired
	}
	return s.transition(ctx, id, StatusRejected, func(l *LeaveRequest) error {
		if l.EmployeeID == approverID {
			return leaveerrors.ErrSelfDecision
		}
		l.DecidedBy = &approverID
		l.RejectionReason = &reason
		return nil
	})
}

func (s *service) MarkApproved(ctx context.Context, approverID, id string) (LeaveResponse, error) {
	return s.transition(ctx, id, StatusApproved, func(l *LeaveRequest) error {
		if l.EmployeeID == approverID {
			return leaveerrors.ErrSelfDecision
		}
		l.DecidedBy = &approverID
		return nil
	})
}

func (s *service) Reopen(ctx context.Context, id string) (LeaveResponse, error) {
	return s.transition(ctx, id, StatusPending, func(l *LeaveRequest) error {
		l.DecidedBy = nil
		return nil
	})
}

// transition moves one request to target in a single conditional update.
// A concurrent decision on the same request loses with
// ErrDecidedConcurrently instead of being retried.
func (s *service) transition(ctx context.Context, id, target string, apply func(l *LeaveRequest) error) (LeaveResponse, error) {
	log := contextutil.GetLogger(ctx, s.logger)

	var updated LeaveRequest
	err := s.inTx(ctx, func(qtx Repository) error {
		l, err := s.find(ctx, qtx, id)
		if err != nil {
			return err
		}
		if !canTransition(l.Status, target) {
			log.Warn("transition leave status invalid",
				zap.String("leave_id", id),
				zap.String("from_status", l.Status),
				zap.String("to_status", target),
			)
			return leaveerrors.ErrInvalidStatusTransition
		}
		if err := apply(l); err != nil {
			return err
		}

		l.Status = target
		if target == StatusPending {
			l.DecidedAt = nil
		} else {
			now := s.now().UTC()
			l.DecidedAt = &now
		}
		if target != StatusRejected {
			l.RejectionReason = nil
		}

		if err := qtx.UpdateVersioned(ctx, l); err != nil {
			if errors.Is(err, ErrVersionConflict) {
				return leaveerrors.ErrDecidedConcurrently
			}
			return err
		}
		updated = *l
		return nil
	})
	if err != nil {
		return LeaveResponse{}, s.mapStoreError(ctx, "transition leave status", err)
	}

	log.Info("transition leave status success",
		zap.String("leave_id", id),
		zap.String("status", target),
	)
	return mapToResponse(updated), nil
}

func (s *service) find(ctx context.Context, repo Repository, id string) (*LeaveRequest, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, leaveerrors.ErrLeaveNotFound
	}
	l, err := repo.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, leaveerrors.ErrLeaveNotFound
	}
	return l, err
}

func (s *service) inTx(ctx context.Context, fn func(qtx Repository) error) error {
	if s.db == nil {
		return fn(s.repo)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(s.repo.WithTx(tx)); err != nil {
		return err
	}
	return tx.Commit()
}

// mapStoreError passes AppErrors through and hides everything else behind
// PERSISTENCE_UNAVAILABLE.
func (s *service) mapStoreError(ctx context.Context, op string, err error) error {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return err
	}
	contextutil.GetLogger(ctx, s.logger).Error(op+" failed",
		zap.Bool("transient", apperror.IsTransient(err)),
		zap.Error(err),
	)
	return apperror.Persistence(err)
}

func parsePeriod(start, end string) (time.Time, time.Time, error) {
	startDate, err := time.Parse(dateLayout, start)
	if err != nil {
		return time.Time{}, time.Time{}, leaveerrors.ErrInvalidDateFormat
	}
	endDate, err := time.Parse(dateLayout, end)
	if err != nil {
		return time.Time{}, time.Time{}, leaveerrors.ErrInvalidDateFormat
	}
	if startDate.After(endDate) {
		return time.Time{}, time.Time{}, leaveerrors.ErrInvalidDateRange
	}
	return startDate, endDate, nil
}
