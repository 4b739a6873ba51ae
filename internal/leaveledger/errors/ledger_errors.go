package ledgererrors

import (
	"net/http"

	"hris-timekeeper/internal/shared/apperror"
)

const (
	CodeInvalidCategory     = "INVALID_CATEGORY"
	CodeInvalidAmount       = "INVALID_AMOUNT"
	CodeInsufficientBalance = "INSUFFICIENT_BALANCE"
	CodeTotalExhausted      = "TOTAL_EXHAUSTED"
)

var (
	ErrInvalidEmployeeID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid employee id",
		http.StatusBadRequest,
	)
	ErrInvalidCategory = apperror.New(
		CodeInvalidCategory,
		"leave category must be one of remaining, sick, emergency",
		http.StatusBadRequest,
	)
	ErrInvalidAmount = apperror.New(
		CodeInvalidAmount,
		"leave days must be greater than zero",
		http.StatusBadRequest,
	)
	ErrInsufficientBalance = apperror.New(
		CodeInsufficientBalance,
		"not enough days left in this leave category",
		http.StatusUnprocessableEntity,
	)
	ErrTotalExhausted = apperror.New(
		CodeTotalExhausted,
		"total leave allotment is exhausted",
		http.StatusUnprocessableEntity,
	)
)
