package apperror

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

// IsUniqueViolation reports whether err is a postgres unique violation on
// the given constraint. An empty constraint matches any unique violation.
func IsUniqueViolation(err error, constraint string) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation &&
			(constraint == "" || pgErr.ConstraintName == constraint)
	}

	errMsg := strings.ToLower(err.Error())
	return strings.Contains(errMsg, "duplicate key value") &&
		(constraint == "" || strings.Contains(errMsg, constraint))
}

// IsTransient reports whether the store failure is worth retrying as is.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	return pgconn.SafeToRetry(err) || pgconn.Timeout(err)
}

// Persistence wraps a store failure that is not a domain precondition.
// The original error stays reachable through Unwrap for logging only.
func Persistence(err error) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return err
	}
	return Wrap(
		err,
		ErrPersistenceUnavailable.Code,
		ErrPersistenceUnavailable.Message,
		ErrPersistenceUnavailable.HTTPStatus,
	)
}
