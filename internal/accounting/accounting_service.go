package accounting

import (
	"context"
	"time"

	accountingerrors "hris-timekeeper/internal/accounting/errors"
	"hris-timekeeper/internal/attendance"
	"hris-timekeeper/internal/leave"
	"hris-timekeeper/internal/leaveledger"
	"hris-timekeeper/internal/shared/apperror"
	"hris-timekeeper/internal/shared/contextutil"

	"go.uber.org/zap"
)

// ClockOuter is the slice of the attendance tracker the façade needs.
type ClockOuter interface {
	ClockOut(ctx context.Context, employeeID string, now time.Time, summary string) (attendance.ClockOutResult, error)
}

// LeaveDeductor is the slice of the leave ledger the façade needs.
type LeaveDeductor interface {
	Deduct(ctx context.Context, employeeID, category string, days int) (leaveledger.LedgerResponse, error)
}

// LeaveRequestDecider is the slice of the leave request workflow the
// façade needs to approve a request.
type LeaveRequestDecider interface {
	MarkApproved(ctx context.Context, approverID, id string) (leave.LeaveResponse, error)
	Reopen(ctx context.Context, id string) (leave.LeaveResponse, error)
}

//go:generate mockgen -source=accounting_service.go -destination=mock/accounting_service_mock.go -package=mock
type Service interface {
	CloseDayAndMaybeDeductLeave(ctx context.Context, employeeID string, now time.Time, summary string, leave *LeaveDeduction) (Result, error)
	ApproveLeaveRequest(ctx context.Context, approverID, requestID string) (ApprovalResult, error)
}

type service struct {
	attendance ClockOuter
	ledger     LeaveDeductor
	requests   LeaveRequestDecider
	logger     *zap.Logger
}

func NewService(attendance ClockOuter, ledger LeaveDeductor, requests LeaveRequestDecider, logger ...*zap.Logger) Service {
	l := zap.L().Named("accounting.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("accounting.service")
	}
	return &service{attendance: attendance, ledger: ledger, requests: requests, logger: l}
}

// CloseDayAndMaybeDeductLeave closes the day and then, if asked, deducts
// leave. A clock-out failure is returned as is and the ledger is not
// touched. A deduction failure after a successful clock-out returns the
// filled Result together with a PARTIAL_APPLICATION error.
func (s *service) CloseDayAndMaybeDeductLeave(
	ctx context.Context,
	employeeID string,
	now time.Time,
	summary string,
	deduction *LeaveDeduction,
) (Result, error) {
	log := contextutil.GetLogger(ctx, s.logger)

	closed, err := s.attendance.ClockOut(ctx, employeeID, now, summary)
	if err != nil {
		return Result{}, err
	}

	res := Result{
		RecordID:     closed.RecordID,
		ClockOutTime: closed.ClockOutTime,
		TotalHours:   closed.TotalHours,
	}
	if deduction == nil {
		return res, nil
	}

	ledger, err := s.ledger.Deduct(ctx, employeeID, deduction.Category, deduction.Days)
	if err != nil {
		httpErr := apperror.ToHTTP(err)
		res.LeaveError = &LeaveFailure{Code: httpErr.Code, Message: httpErr.Message}
		log.Warn("close day applied without leave deduction",
			zap.String("employee_id", employeeID),
			zap.String("record_id", closed.RecordID),
			zap.String("category", deduction.Category),
			zap.Int("days", deduction.Days),
			zap.String("leave_error", httpErr.Code),
		)
		return res, accountingerrors.PartialApplication(err)
	}

	res.LeaveApplied = true
	res.Ledger = &ledger
	log.Info("close day with leave deduction success",
		zap.String("employee_id", employeeID),
		zap.String("record_id", closed.RecordID),
		zap.String("category", deduction.Category),
		zap.Int("days", deduction.Days),
	)
	return res, nil
}

// ApproveLeaveRequest approves a pending request and deducts its days from
// the requester's ledger. When the ledger refuses, the request is put back
// to PENDING and the ledger error is returned. If that rollback also fails
// the approved request is returned with a PARTIAL_APPLICATION error.
func (s *service) ApproveLeaveRequest(ctx context.Context, approverID, requestID string) (ApprovalResult, error) {
	log := contextutil.GetLogger(ctx, s.logger)

	approved, err := s.requests.MarkApproved(ctx, approverID, requestID)
	if err != nil {
		return ApprovalResult{}, err
	}

	ledger, err := s.ledger.Deduct(ctx, approved.EmployeeID, approved.Category, approved.TotalDays)
	if err == nil {
		log.Info("leave request approved and deducted",
			zap.String("leave_id", requestID),
			zap.String("employee_id", approved.EmployeeID),
			zap.String("category", approved.Category),
			zap.Int("days", approved.TotalDays),
		)
		return ApprovalResult{Request: approved, LeaveApplied: true, Ledger: &ledger}, nil
	}

	httpErr := apperror.ToHTTP(err)
	log.Warn("leave deduction refused, reopening request",
		zap.String("leave_id", requestID),
		zap.String("employee_id", approved.EmployeeID),
		zap.String("leave_error", httpErr.Code),
	)

	if _, reopenErr := s.requests.Reopen(context.WithoutCancel(ctx), requestID); reopenErr != nil {
		log.Error("reopen leave request failed",
			zap.String("leave_id", requestID),
			zap.Error(reopenErr),
		)
		return ApprovalResult{
			Request:    approved,
			LeaveError: &LeaveFailure{Code: httpErr.Code, Message: httpErr.Message},
		}, accountingerrors.PartialApproval(err)
	}
	return ApprovalResult{}, err
}
