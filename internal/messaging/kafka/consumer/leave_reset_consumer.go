package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"hris-timekeeper/internal/events"
	"hris-timekeeper/internal/leaveledger"
	"hris-timekeeper/internal/messaging/kafka"
	"hris-timekeeper/internal/shared/apperror"
	"hris-timekeeper/internal/shared/contextutil"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// resetAlertAfter is the attempt from which a stuck reset logs at error
// level.
const resetAlertAfter = 3

// LedgerResetter is the part of leaveledger.Service the consumer needs.
type LedgerResetter interface {
	Reset(ctx context.Context, employeeID string) (leaveledger.LedgerResponse, error)
}

var (
	resetBackoff    = time.Second
	maxResetBackoff = 30 * time.Second
)

// ConsumeLeaveResetRequested applies reset requests until ctx is done.
// A message is never skipped: the loop stays on it while the store is
// down, and on shutdown it is left uncommitted for the next run. Resets
// are idempotent, so a redelivered message is harmless.
func ConsumeLeaveResetRequested(
	ctx context.Context,
	reader kafka.MessageReader,
	ledger LedgerResetter,
	logger *zap.Logger,
) error {
	log := logger.Named("kafka.consumer.leave_reset")

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			log.Error("fetch message failed", zap.Error(err))
			continue
		}

		if !handleResetMessage(ctx, msg, ledger, log) {
			log.Info("shutting down with message uncommitted",
				zap.String("topic", msg.Topic),
				zap.Int64("offset", msg.Offset),
			)
			return nil
		}
		if err := reader.CommitMessages(ctx, msg); err != nil {
			log.Error("commit message failed",
				zap.String("topic", msg.Topic),
				zap.Int64("offset", msg.Offset),
				zap.Error(err),
			)
		}
	}
}

// handleResetMessage reports whether the message is done with and may be
// committed. Store failures are retried until they clear; it returns
// false only when ctx ends first.
func handleResetMessage(ctx context.Context, msg kafkago.Message, ledger LedgerResetter, log *zap.Logger) bool {
	var event events.LeaveResetRequestedEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		log.Error("unmarshal leave reset event failed",
			zap.Int64("offset", msg.Offset),
			zap.Error(err),
		)
		return true
	}
	if event.EmployeeID == "" {
		log.Warn("leave reset event without employee_id", zap.Int64("offset", msg.Offset))
		return true
	}

	requestID := kafka.Header(msg, kafka.HeaderRequestID)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	ctx = contextutil.WithRequestID(ctx, requestID)
	ctx = contextutil.WithEmployeeID(ctx, event.EmployeeID)
	ctx = contextutil.WithLogger(ctx, log.With(
		zap.String("request_id", requestID),
		zap.String("employee_id", event.EmployeeID),
	))

	for attempt := 1; ; attempt++ {
		resp, err := ledger.Reset(ctx, event.EmployeeID)
		if err == nil {
			log.Info("leave ledger reset from event",
				zap.String("employee_id", event.EmployeeID),
				zap.String("requested_by", event.RequestedBy),
				zap.Int64("version", resp.Version),
			)
			return true
		}

		if !apperror.Is(err, apperror.CodePersistenceUnavailable) {
			log.Warn("leave reset rejected",
				zap.String("employee_id", event.EmployeeID),
				zap.Error(err),
			)
			return true
		}

		fields := []zap.Field{
			zap.String("employee_id", event.EmployeeID),
			zap.Int64("offset", msg.Offset),
			zap.Int("attempt", attempt),
			zap.Error(err),
		}
		if attempt >= resetAlertAfter {
			log.Error("leave reset still failing, retrying", fields...)
		} else {
			log.Warn("leave reset failed, retrying", fields...)
		}

		wait := min(time.Duration(attempt)*resetBackoff, maxResetBackoff)
		select {
		case <-ctx.Done():
			return false
		case <-time.After(wait):
		}
	}
}
