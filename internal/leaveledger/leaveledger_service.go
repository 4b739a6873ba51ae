package leaveledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	ledgererrors "hris-timekeeper/internal/leaveledger/errors"
	"hris-timekeeper/internal/events"
	"hris-timekeeper/internal/messaging/kafka"
	"hris-timekeeper/internal/shared/apperror"
	"hris-timekeeper/internal/shared/config"
	"hris-timekeeper/internal/shared/contextutil"
	"hris-timekeeper/internal/shared/retry"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

const LedgerCacheKeyPrefix = "leave:ledger:"

func LedgerCacheKey(employeeID string) string {
	return LedgerCacheKeyPrefix + employeeID
}

//go:generate mockgen -source=leaveledger_service.go -destination=mock/leaveledger_service_mock.go -package=mock
type Service interface {
	GetOrCreate(ctx context.Context, employeeID string) (LedgerResponse, error)
	Get(ctx context.Context, employeeID string) (LedgerResponse, error)
	Deduct(ctx context.Context, employeeID, category string, days int) (LedgerResponse, error)
	Reset(ctx context.Context, employeeID string) (LedgerResponse, error)
}

type service struct {
	db       *sql.DB
	repo     Repository
	outbox   kafka.OutboxRepository
	rdb      *redis.Client
	sf       *singleflight.Group
	defaults config.LeaveAllotment
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewService wires the ledger. outbox and rdb are optional; without rdb
// Get always reads the store.
func NewService(
	db *sql.DB,
	repo Repository,
	outbox kafka.OutboxRepository,
	rdb *redis.Client,
	defaults config.LeaveAllotment,
	cacheTTL time.Duration,
	logger ...*zap.Logger,
) Service {
	l := zap.L().Named("leaveledger.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("leaveledger.service")
	}
	return &service{
		db:       db,
		repo:     repo,
		outbox:   outbox,
		rdb:      rdb,
		sf:       &singleflight.Group{},
		defaults: defaults,
		cacheTTL: cacheTTL,
		logger:   l,
	}
}

func (s *service) GetOrCreate(ctx context.Context, employeeID string) (LedgerResponse, error) {
	if strings.TrimSpace(employeeID) == "" {
		return LedgerResponse{}, ledgererrors.ErrInvalidEmployeeID
	}

	v, err, shared := s.sf.Do(employeeID, func() (interface{}, error) {
		return s.getOrCreate(ctx, employeeID)
	})
	if err != nil {
		return LedgerResponse{}, err
	}
	if shared {
		contextutil.GetLogger(ctx, s.logger).Debug("get or create ledger shared", zap.String("employee_id", employeeID))
	}
	return mapToResponse(*v.(*LeaveLedger)), nil
}

func (s *service) getOrCreate(ctx context.Context, employeeID string) (*LeaveLedger, error) {
	log := contextutil.GetLogger(ctx, s.logger)

	l, err := s.repo.FindByEmployee(ctx, employeeID)
	if err == nil {
		return l, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Error("ledger lookup failed", zap.String("employee_id", employeeID), zap.Error(err))
		return nil, apperror.Persistence(err)
	}

	l = newLedger(employeeID, s.defaults)
	if err := s.repo.Create(ctx, l); err != nil {
		if !apperror.IsUniqueViolation(err, ledgerPrimaryKey) {
			log.Error("ledger create failed", zap.String("employee_id", employeeID), zap.Error(err))
			return nil, apperror.Persistence(err)
		}
		// another process created it first
		l, err = s.repo.FindByEmployee(ctx, employeeID)
		if err != nil {
			log.Error("ledger re-read failed", zap.String("employee_id", employeeID), zap.Error(err))
			return nil, apperror.Persistence(err)
		}
		return l, nil
	}

	log.Info("ledger created with defaults",
		zap.String("employee_id", employeeID),
		zap.Int("remaining", l.Remaining),
		zap.Int("sick", l.Sick),
		zap.Int("emergency", l.Emergency),
		zap.Int("total", l.Total),
	)
	return l, nil
}

// Get serves reads from Redis when possible. Cache errors never fail the
// request.
func (s *service) Get(ctx context.Context, employeeID string) (LedgerResponse, error) {
	log := contextutil.GetLogger(ctx, s.logger)
	cacheKey := LedgerCacheKey(employeeID)

	if s.rdb != nil {
		cached, err := s.rdb.Get(ctx, cacheKey).Result()
		switch {
		case err == nil:
			var resp LedgerResponse
			if json.Unmarshal([]byte(cached), &resp) == nil {
				return resp, nil
			}
			log.Warn("ledger cache entry unreadable", zap.String("key", cacheKey))
		case !errors.Is(err, redis.Nil):
			log.Warn("ledger cache read failed", zap.String("key", cacheKey), zap.Error(err))
		}
	}

	resp, err := s.GetOrCreate(ctx, employeeID)
	if err != nil {
		return LedgerResponse{}, err
	}

	if s.rdb != nil {
		if data, err := json.Marshal(resp); err == nil {
			if err := s.rdb.Set(ctx, cacheKey, data, s.cacheTTL).Err(); err != nil {
				log.Warn("ledger cache write failed", zap.String("key", cacheKey), zap.Error(err))
			}
		}
	}
	return resp, nil
}

func (s *service) Deduct(ctx context.Context, employeeID, category string, days int) (LedgerResponse, error) {
	log := contextutil.GetLogger(ctx, s.logger)
	log.Debug("deduct leave requested",
		zap.String("employee_id", employeeID),
		zap.String("category", category),
		zap.Int("days", days),
	)

	cat, ok := ParseCategory(category)
	if !ok {
		return LedgerResponse{}, ledgererrors.ErrInvalidCategory
	}
	if days <= 0 {
		return LedgerResponse{}, ledgererrors.ErrInvalidAmount
	}
	if _, err := s.GetOrCreate(ctx, employeeID); err != nil {
		return LedgerResponse{}, err
	}

	var updated LeaveLedger
	err := s.retryOnConflict(ctx, "deduct leave", func() error {
		return s.inTx(ctx, func(qtx Repository, outbox kafka.OutboxRepository) error {
			l, err := qtx.FindByEmployeeForUpdate(ctx, employeeID)
			if err != nil {
				return err
			}
			if l.Balance(cat) < days {
				return ledgererrors.ErrInsufficientBalance
			}
			if l.Total < days {
				return ledgererrors.ErrTotalExhausted
			}

			l.take(cat, days)
			if err := qtx.UpdateVersioned(ctx, l); err != nil {
				return err
			}
			if err := s.enqueueChanged(ctx, outbox, l, events.EventLeaveLedgerDeducted, cat, days); err != nil {
				return err
			}
			updated = *l
			return nil
		})
	})
	if err != nil {
		if apperror.Is(err, ledgererrors.CodeInsufficientBalance) || apperror.Is(err, ledgererrors.CodeTotalExhausted) {
			log.Warn("deduct leave rejected",
				zap.String("employee_id", employeeID),
				zap.String("category", string(cat)),
				zap.Int("days", days),
				zap.Error(err),
			)
		}
		return LedgerResponse{}, err
	}

	s.invalidate(ctx, employeeID)
	log.Info("deduct leave success",
		zap.String("employee_id", employeeID),
		zap.String("category", string(cat)),
		zap.Int("days", days),
		zap.Int("balance", updated.Balance(cat)),
		zap.Int("total", updated.Total),
	)
	return mapToResponse(updated), nil
}

func (s *service) Reset(ctx context.Context, employeeID string) (LedgerResponse, error) {
	log := contextutil.GetLogger(ctx, s.logger)
	if _, err := s.GetOrCreate(ctx, employeeID); err != nil {
		return LedgerResponse{}, err
	}

	var updated LeaveLedger
	err := s.retryOnConflict(ctx, "reset ledger", func() error {
		return s.inTx(ctx, func(qtx Repository, outbox kafka.OutboxRepository) error {
			l, err := qtx.FindByEmployeeForUpdate(ctx, employeeID)
			if err != nil {
				return err
			}
			l.resetTo(s.defaults)
			if err := qtx.UpdateVersioned(ctx, l); err != nil {
				return err
			}
			if err := s.enqueueChanged(ctx, outbox, l, events.EventLeaveLedgerReset, "", 0); err != nil {
				return err
			}
			updated = *l
			return nil
		})
	})
	if err != nil {
		return LedgerResponse{}, err
	}

	s.invalidate(ctx, employeeID)
	log.Info("reset ledger success", zap.String("employee_id", employeeID), zap.Int64("version", updated.Version))
	return mapToResponse(updated), nil
}

func (s *service) enqueueChanged(
	ctx context.Context,
	outbox kafka.OutboxRepository,
	l *LeaveLedger,
	eventType string,
	cat Category,
	days int,
) error {
	if outbox == nil {
		return nil
	}
	payload := events.LeaveLedgerChangedEvent{
		EventType:  eventType,
		RequestID:  contextutil.GetRequestID(ctx),
		EmployeeID: l.EmployeeID,
		Category:   string(cat),
		Days:       days,
		Balance: events.LeaveBalance{
			Remaining: l.Remaining,
			Sick:      l.Sick,
			Emergency: l.Emergency,
			Total:     l.Total,
		},
		Version:    l.Version,
		OccurredAt: time.Now().UTC(),
	}
	event, err := kafka.NewOutboxEvent(ctx, "leave_ledger", l.EmployeeID, eventType, events.LeaveLedgerChangedTopic, payload)
	if err != nil {
		return err
	}
	return outbox.Create(ctx, event)
}

func (s *service) invalidate(ctx context.Context, employeeID string) {
	if s.rdb == nil {
		return
	}
	cacheKey := LedgerCacheKey(employeeID)
	if err := s.rdb.Del(ctx, cacheKey).Err(); err != nil {
		contextutil.GetLogger(ctx, s.logger).Error("failed to invalidate ledger cache",
			zap.String("key", cacheKey),
			zap.Error(err),
		)
	}
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
// The row lock taken inside attempt makes that rare; the version check
// stays as a guard.
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
