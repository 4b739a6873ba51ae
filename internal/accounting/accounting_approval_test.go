package accounting_test

import (
	"context"
	"errors"
	"testing"

	"hris-timekeeper/internal/accounting"
	"hris-timekeeper/internal/leave"
	leaveerrors "hris-timekeeper/internal/leave/errors"
	"hris-timekeeper/internal/leaveledger"
	ledgererrors "hris-timekeeper/internal/leaveledger/errors"
	"hris-timekeeper/internal/leaveledger/mock"
	"hris-timekeeper/internal/shared/apperror"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
)

type fakeDecider struct {
	approveFn func(ctx context.Context, approverID, id string) (leave.LeaveResponse, error)
	reopenFn  func(ctx context.Context, id string) (leave.LeaveResponse, error)
	reopened  []string
}

func (f *fakeDecider) MarkApproved(ctx context.Context, approverID, id string) (leave.LeaveResponse, error) {
	return f.approveFn(ctx, approverID, id)
}

func (f *fakeDecider) Reopen(ctx context.Context, id string) (leave.LeaveResponse, error) {
	f.reopened = append(f.reopened, id)
	if f.reopenFn != nil {
		return f.reopenFn(ctx, id)
	}
	return leave.LeaveResponse{ID: id, Status: leave.StatusPending}, nil
}

func approvedRequest() *fakeDecider {
	return &fakeDecider{approveFn: func(ctx context.Context, approverID, id string) (leave.LeaveResponse, error) {
		return leave.LeaveResponse{ID: id, EmployeeID: "emp-1", Category: "sick", TotalDays: 2, Status: leave.StatusApproved}, nil
	}}
}

func TestApproveLeaveRequest_Deducts(t *testing.T) {
	ctrl := gomock.NewController(t)
	ledger := mock.NewMockService(ctrl)
	ledger.EXPECT().
		Deduct(gomock.Any(), "emp-1", "sick", 2).
		Return(leaveledger.LedgerResponse{EmployeeID: "emp-1", Sick: 3, Total: 14}, nil)

	requests := approvedRequest()
	svc := accounting.NewService(nil, ledger, requests)

	res, err := svc.ApproveLeaveRequest(context.Background(), "hr-1", "req-1")

	assert.NoError(t, err)
	assert.True(t, res.LeaveApplied)
	assert.Equal(t, leave.StatusApproved, res.Request.Status)
	assert.Equal(t, 14, res.Ledger.Total)
	assert.Empty(t, requests.reopened)
}

func TestApproveLeaveRequest_ApprovalRejectedSkipsLedger(t *testing.T) {
	ctrl := gomock.NewController(t)
	ledger := mock.NewMockService(ctrl)

	requests := &fakeDecider{approveFn: func(ctx context.Context, approverID, id string) (leave.LeaveResponse, error) {
		return leave.LeaveResponse{}, leaveerrors.ErrInvalidStatusTransition
	}}
	svc := accounting.NewService(nil, ledger, requests)

	_, err := svc.ApproveLeaveRequest(context.Background(), "hr-1", "req-1")
	assert.ErrorIs(t, err, leaveerrors.ErrInvalidStatusTransition)
}

func TestApproveLeaveRequest_LedgerRefusalReopens(t *testing.T) {
	ctrl := gomock.NewController(t)
	ledger := mock.NewMockService(ctrl)
	ledger.EXPECT().
		Deduct(gomock.Any(), "emp-1", "sick", 2).
		Return(leaveledger.LedgerResponse{}, ledgererrors.ErrInsufficientBalance)

	requests := approvedRequest()
	svc := accounting.NewService(nil, ledger, requests)

	res, err := svc.ApproveLeaveRequest(context.Background(), "hr-1", "req-1")

	assert.ErrorIs(t, err, ledgererrors.ErrInsufficientBalance)
	assert.Equal(t, accounting.ApprovalResult{}, res)
	assert.Equal(t, []string{"req-1"}, requests.reopened)
}

func TestApproveLeaveRequest_PartialWhenReopenFails(t *testing.T) {
	ctrl := gomock.NewController(t)
	ledger := mock.NewMockService(ctrl)
	ledger.EXPECT().
		Deduct(gomock.Any(), "emp-1", "sick", 2).
		Return(leaveledger.LedgerResponse{}, ledgererrors.ErrTotalExhausted)

	requests := approvedRequest()
	requests.reopenFn = func(ctx context.Context, id string) (leave.LeaveResponse, error) {
		return leave.LeaveResponse{}, apperror.Persistence(errors.New("db down"))
	}
	svc := accounting.NewService(nil, ledger, requests)

	res, err := svc.ApproveLeaveRequest(context.Background(), "hr-1", "req-1")

	assert.True(t, apperror.Is(err, apperror.CodePartialApplication))
	assert.ErrorIs(t, err, ledgererrors.ErrTotalExhausted)
	assert.Equal(t, leave.StatusApproved, res.Request.Status)
	assert.False(t, res.LeaveApplied)
	assert.Equal(t, ledgererrors.CodeTotalExhausted, res.LeaveError.Code)
}
