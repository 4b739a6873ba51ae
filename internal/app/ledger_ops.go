package app

import (
	"context"

	"hris-timekeeper/internal/bootstrap"
	"hris-timekeeper/internal/leaveledger"
	"hris-timekeeper/internal/shared/config"

	"go.uber.org/zap"
)

// LedgerOps backs the operations CLI with the same service the API uses,
// so CLI resets invalidate the cache and emit outbox events too.
type LedgerOps struct {
	service leaveledger.Service
	audit   bootstrap.AuditLogger
	close   func()
}

func OpenLedgerOps(cfg config.Config) (*LedgerOps, error) {
	logger := zap.L().Named("app.ledgerctl")

	gormDB, sqlDB, err := openDatabase(cfg)
	if err != nil {
		return nil, err
	}
	if err := Migrate(gormDB); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	rdb := openOptionalRedis(cfg, 1, logger)

	return &LedgerOps{
		service: newLedgerService(cfg, sqlDB, gormDB, rdb, logger),
		audit:   bootstrap.NewZapAuditLogger(),
		close: func() {
			if rdb != nil {
				_ = rdb.Close()
			}
			_ = sqlDB.Close()
		},
	}, nil
}

func NewLedgerOps(service leaveledger.Service, audit bootstrap.AuditLogger) *LedgerOps {
	return &LedgerOps{service: service, audit: audit, close: func() {}}
}

func (o *LedgerOps) Show(ctx context.Context, employeeID string) (leaveledger.LedgerResponse, error) {
	return o.service.GetOrCreate(ctx, employeeID)
}

func (o *LedgerOps) Reset(ctx context.Context, employeeID, operator string) (leaveledger.LedgerResponse, error) {
	resp, err := o.service.Reset(ctx, employeeID)
	if err != nil {
		return leaveledger.LedgerResponse{}, err
	}
	o.audit.Log(ctx, bootstrap.AuditLog{
		Action:  "LEAVE_LEDGER_RESET",
		Message: "leave ledger reset from cli",
		Meta: map[string]any{
			"employee_id": employeeID,
			"operator":    operator,
			"version":     resp.Version,
		},
	})
	return resp, nil
}

func (o *LedgerOps) Close() {
	o.close()
}
