package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"medident/internal/ledger"
	"medident/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LedgerStore is the Postgres implementation of ledger.Store. Each Atomic
// call is one database transaction; LockItem takes a row lock with
// SELECT ... FOR UPDATE bounded by lock_timeout.
type LedgerStore struct {
	db          *gorm.DB
	lockTimeout time.Duration
}

var _ ledger.Store = (*LedgerStore)(nil)

func NewLedgerStore(db *gorm.DB, lockTimeout time.Duration) *LedgerStore {
	return &LedgerStore{db: db, lockTimeout: lockTimeout}
}

func (s *LedgerStore) Atomic(ctx context.Context, fn func(tx ledger.Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if s.lockTimeout > 0 {
			// SET does not accept bind parameters.
			stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.lockTimeout.Milliseconds())
			if err := tx.Exec(stmt).Error; err != nil {
				return &ledger.StorageError{Op: "set lock timeout", Err: err}
			}
		}
		return fn(&ledgerTx{tx: tx})
	})
}

func (s *LedgerStore) FindItem(ctx context.Context, id uuid.UUID) (*model.InventoryItem, error) {
	var item model.InventoryItem
	err := s.db.WithContext(ctx).Preload("Category").First(&item, "id = ?", id).Error
	if IsNotFound(err) {
		return nil, ledger.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

type ledgerTx struct{ tx *gorm.DB }

func (t *ledgerTx) LockItem(id uuid.UUID) (*model.InventoryItem, error) {
	var item model.InventoryItem
	err := t.tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&item, "id = ?", id).Error
	switch {
	case err == nil:
		return &item, nil
	case IsNotFound(err):
		return nil, ledger.ErrNotFound
	case pgCode(err) == pgLockNotAvailable:
		return nil, &ledger.StorageError{Op: "lock item", Err: errors.Join(ledger.ErrLockTimeout, err)}
	default:
		return nil, &ledger.StorageError{Op: "lock item", Err: err}
	}
}

func (t *ledgerTx) LotBelongsToItem(lotID, itemID uuid.UUID) (bool, error) {
	var n int64
	err := t.tx.Model(&model.Lot{}).
		Where("id = ? AND inventory_item_id = ?", lotID, itemID).
		Count(&n).Error
	return n > 0, err
}

func (t *ledgerTx) SetQuantity(id uuid.UUID, qty decimal.Decimal, at time.Time) error {
	return t.tx.Model(&model.InventoryItem{}).
		Where("id = ?", id).
		UpdateColumns(map[string]any{"quantity": qty, "updated_at": at}).Error
}

func (t *ledgerTx) AppendAudit(entry *model.AuditLogEntry) error {
	return t.tx.Create(entry).Error
}
