package accountingerrors

import (
	"net/http"

	"hris-timekeeper/internal/shared/apperror"
)

// PartialApplication reports a closed day whose leave deduction failed.
// The ledger error is kept as the cause.
func PartialApplication(cause error) *apperror.AppError {
	return apperror.Wrap(
		cause,
		apperror.CodePartialApplication,
		"attendance closed but leave was not deducted",
		http.StatusMultiStatus,
	)
}

// PartialApproval reports an approved leave request whose days could not
// be deducted and which could not be put back to PENDING either.
func PartialApproval(cause error) *apperror.AppError {
	return apperror.Wrap(
		cause,
		apperror.CodePartialApplication,
		"leave request approved but leave was not deducted",
		http.StatusMultiStatus,
	)
}
