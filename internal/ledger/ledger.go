// Package ledger implements the inventory quantity adjustment: a locked
// read-modify-write of one item's quantity plus exactly one audit entry,
// committed together or not at all.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"medident/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Mode selects how Adjustment.Value is applied to the current quantity.
type Mode int

const (
	// Absolute replaces the current quantity with the value.
	Absolute Mode = iota
	// Relative adds the value (possibly negative) to the current quantity.
	Relative
)

func (m Mode) String() string {
	switch m {
	case Absolute:
		return "absolute"
	case Relative:
		return "relative"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// quantity columns are decimal(10,2)
const (
	quantityScale = 2
	quantityLimit = 100_000_000 // 10^(10-2)
)

var maxQuantity = decimal.New(quantityLimit, 0)

// Metadata describes who made a change and why.
type Metadata struct {
	Reason     string
	ActionType string // defaults to "manual"
	UserID     *uuid.UUID
	LotID      *uuid.UUID
}

// Adjustment is a single quantity change request.
type Adjustment struct {
	ItemID   uuid.UUID
	Value    decimal.Decimal
	Mode     Mode
	Metadata Metadata
}

// Result is the committed state after a successful adjustment.
type Result struct {
	Item  *model.InventoryItem
	Entry model.AuditLogEntry
}

// Tx is the set of storage operations available inside one transaction.
type Tx interface {
	// LockItem reads the item and holds an exclusive lock on it until the
	// transaction ends. Returns ErrNotFound when the row does not exist.
	LockItem(id uuid.UUID) (*model.InventoryItem, error)
	LotBelongsToItem(lotID, itemID uuid.UUID) (bool, error)
	SetQuantity(id uuid.UUID, qty decimal.Decimal, at time.Time) error
	AppendAudit(entry *model.AuditLogEntry) error
}

// Store opens transactions and performs the post-commit read.
type Store interface {
	// Atomic runs fn in a transaction, committing when fn returns nil and
	// rolling back otherwise.
	Atomic(ctx context.Context, fn func(tx Tx) error) error
	FindItem(ctx context.Context, id uuid.UUID) (*model.InventoryItem, error)
}

// Observer is notified of every finished adjustment attempt.
type Observer interface {
	ObserveAdjustment(actionType string, outcome string, elapsed time.Duration)
}

// Ledger applies quantity adjustments against a Store.
type Ledger struct {
	store    Store
	observer Observer
	now      func() time.Time
}

// Option customises a Ledger.
type Option func(*Ledger)

// WithObserver attaches an adjustment observer (metrics).
func WithObserver(o Observer) Option { return func(l *Ledger) { l.observer = o } }

// WithClock overrides the time source used for updated_at and created_at.
func WithClock(now func() time.Time) Option { return func(l *Ledger) { l.now = now } }

func New(store Store, opts ...Option) *Ledger {
	l := &Ledger{store: store, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Adjust applies adj atomically and returns the re-read item with the audit
// entry that was written.
func (l *Ledger) Adjust(ctx context.Context, adj Adjustment) (res *Result, err error) {
	start := time.Now()
	actionType := normalizeActionType(adj.Metadata.ActionType)
	defer func() {
		if l.observer != nil {
			l.observer.ObserveAdjustment(actionType, Outcome(err), time.Since(start))
		}
	}()

	if err := validate(adj, actionType); err != nil {
		return nil, err
	}

	var entry model.AuditLogEntry
	err = l.store.Atomic(ctx, func(tx Tx) error {
		item, err := tx.LockItem(adj.ItemID)
		if err != nil {
			return err
		}

		if lotID := adj.Metadata.LotID; lotID != nil {
			ok, err := tx.LotBelongsToItem(*lotID, adj.ItemID)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: lot %s does not belong to item %s", ErrInvalidInput, lotID, adj.ItemID)
			}
		}

		previous := item.Quantity
		next, change := apply(previous, adj.Value, adj.Mode)
		if next.IsNegative() {
			return fmt.Errorf("%w: %s %s would leave %s", ErrNegativeQuantity, adj.Mode, adj.Value.String(), next.String())
		}
		if next.GreaterThanOrEqual(maxQuantity) {
			return fmt.Errorf("%w: resulting quantity %s exceeds storage precision", ErrInvalidInput, next.String())
		}

		now := l.now()
		if err := tx.SetQuantity(adj.ItemID, next, now); err != nil {
			return err
		}

		entry = model.AuditLogEntry{
			InventoryItemID:  adj.ItemID,
			LotID:            adj.Metadata.LotID,
			PreviousQuantity: previous,
			NewQuantity:      next,
			ChangeAmount:     change,
			ActionType:       actionType,
			Reason:           optionalString(adj.Metadata.Reason),
			UserID:           adj.Metadata.UserID,
			CreatedAt:        now,
		}
		return tx.AppendAudit(&entry)
	})
	if err != nil {
		return nil, classify("adjust quantity", err)
	}

	item, err := l.store.FindItem(ctx, adj.ItemID)
	if err != nil {
		return nil, classify("reload item", err)
	}
	return &Result{Item: item, Entry: entry}, nil
}

// apply returns the new quantity and the signed change to record.
// Relative changes record the requested value; absolute ones record the difference.
func apply(current, value decimal.Decimal, mode Mode) (next, change decimal.Decimal) {
	if mode == Relative {
		return current.Add(value), value
	}
	return value, value.Sub(current)
}

func validate(adj Adjustment, actionType string) error {
	if adj.ItemID == uuid.Nil {
		return fmt.Errorf("%w: item id is required", ErrInvalidInput)
	}
	if adj.Mode != Absolute && adj.Mode != Relative {
		return fmt.Errorf("%w: unknown mode %s", ErrInvalidInput, adj.Mode)
	}
	if !IsValidActionType(actionType) {
		return fmt.Errorf("%w: unknown action type %q", ErrInvalidInput, adj.Metadata.ActionType)
	}
	if err := checkPrecision(adj.Value); err != nil {
		return err
	}
	return nil
}

func checkPrecision(v decimal.Decimal) error {
	if !v.Equal(v.Truncate(quantityScale)) {
		return fmt.Errorf("%w: %s has more than %d decimal places", ErrInvalidInput, v.String(), quantityScale)
	}
	if v.Abs().GreaterThanOrEqual(maxQuantity) {
		return fmt.Errorf("%w: %s is out of range", ErrInvalidInput, v.String())
	}
	return nil
}

// ParseValue parses a user supplied quantity such as "12", "-3.5" or " 4.25 ".
func ParseValue(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: quantity is empty", ErrInvalidInput)
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q is not a number", ErrInvalidInput, s)
	}
	if err := checkPrecision(v); err != nil {
		return decimal.Zero, err
	}
	return v, nil
}

// IsValidActionType reports whether t is one of the audit action types.
func IsValidActionType(t string) bool {
	for _, a := range model.ActionTypes {
		if a == t {
			return true
		}
	}
	return false
}

func normalizeActionType(t string) string {
	if t == "" {
		return model.ActionManual
	}
	return t
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// classify keeps the typed failures and wraps everything else as a StorageError.
func classify(op string, err error) error {
	var se *StorageError
	switch {
	case errors.As(err, &se):
		return err
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrInvalidInput), errors.Is(err, ErrNegativeQuantity):
		return err
	default:
		return &StorageError{Op: op, Err: err}
	}
}
