package attendanceerrors

import (
	"net/http"

	"hris-timekeeper/internal/shared/apperror"
)

const (
	CodeAlreadyClockedIn  = "ALREADY_CLOCKED_IN"
	CodeNoOpenSession     = "NO_OPEN_SESSION"
	CodeAlreadyClockedOut = "ALREADY_CLOCKED_OUT"
	CodeBreakAlreadyOpen  = "BREAK_ALREADY_OPEN"
	CodeNoOpenBreak       = "NO_OPEN_BREAK"
	CodeSummaryRequired   = "SUMMARY_REQUIRED"
)

var (
	ErrInvalidEmployeeID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid employee id",
		http.StatusBadRequest,
	)
	ErrAlreadyClockedIn = apperror.New(
		CodeAlreadyClockedIn,
		"already clocked in, an attendance session is still open",
		http.StatusConflict,
	)
	ErrNoOpenSession = apperror.New(
		CodeNoOpenSession,
		"no open attendance session for today",
		http.StatusConflict,
	)
	ErrAlreadyClockedOut = apperror.New(
		CodeAlreadyClockedOut,
		"already clocked out for today",
		http.StatusConflict,
	)
	ErrBreakAlreadyOpen = apperror.New(
		CodeBreakAlreadyOpen,
		"a break is already in progress",
		http.StatusConflict,
	)
	ErrNoOpenBreak = apperror.New(
		CodeNoOpenBreak,
		"no break is in progress",
		http.StatusConflict,
	)
	ErrSummaryRequired = apperror.New(
		CodeSummaryRequired,
		"work summary is required to clock out",
		http.StatusBadRequest,
	)
)
