package leaveledger

import (
	"context"
	"database/sql"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const ledgerPrimaryKey = "leave_ledgers_pkey"

var ErrVersionConflict = errors.New("leave ledger was modified concurrently")

//go:generate mockgen -source=leaveledger_repo.go -destination=mock/leaveledger_repo_mock.go -package=mock
type Repository interface {
	WithTx(tx *sql.Tx) Repository
	FindByEmployee(ctx context.Context, employeeID string) (*LeaveLedger, error)
	// FindByEmployeeForUpdate locks the row until the surrounding
	// transaction ends.
	FindByEmployeeForUpdate(ctx context.Context, employeeID string) (*LeaveLedger, error)
	Create(ctx context.Context, l *LeaveLedger) error
	// UpdateVersioned writes the four balances when the stored version
	// still equals l.Version, then bumps l.Version.
	UpdateVersioned(ctx context.Context, l *LeaveLedger) error
}

type repository struct {
	db *gorm.DB
	tx *sql.Tx
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *sql.Tx) Repository {
	return &repository{db: r.db, tx: tx}
}

func (r *repository) conn(ctx context.Context) *gorm.DB {
	db := r.db.WithContext(ctx)
	if r.tx != nil {
		db.Statement.ConnPool = r.tx
	}
	return db
}

func (r *repository) FindByEmployee(ctx context.Context, employeeID string) (*LeaveLedger, error) {
	var l LeaveLedger
	err := r.conn(ctx).Where("employee_id = ?", employeeID).First(&l).Error
	return &l, err
}

func (r *repository) FindByEmployeeForUpdate(ctx context.Context, employeeID string) (*LeaveLedger, error) {
	var l LeaveLedger
	err := r.conn(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("employee_id = ?", employeeID).
		First(&l).Error
	return &l, err
}

func (r *repository) Create(ctx context.Context, l *LeaveLedger) error {
	if l.Version == 0 {
		l.Version = 1
	}
	return r.conn(ctx).Create(l).Error
}

func (r *repository) UpdateVersioned(ctx context.Context, l *LeaveLedger) error {
	expected := l.Version
	l.Version = expected + 1

	res := r.conn(ctx).
		Model(l).
		Where("version = ?", expected).
		Select("remaining", "sick", "emergency", "total", "version", "updated_at").
		Updates(l)
	if res.Error != nil {
		l.Version = expected
		return res.Error
	}
	if res.RowsAffected == 0 {
		l.Version = expected
		return ErrVersionConflict
	}
	return nil
}
