// Package ledgertest provides an in-memory ledger.Store with per-item locks,
// staged writes and failure injection for tests.
package ledgertest

import (
	"context"
	"sync"
	"time"

	"medident/internal/ledger"
	"medident/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Store is an in-memory ledger.Store. Writes made inside Atomic become
// visible only when the callback returns nil.
type Store struct {
	mu    sync.Mutex
	items map[uuid.UUID]*model.InventoryItem
	lots  map[uuid.UUID]model.Lot
	audit []model.AuditLogEntry
	locks map[uuid.UUID]chan struct{}

	// LockTimeout bounds the wait in LockItem. Zero waits until ctx is done.
	LockTimeout time.Duration
	failures    map[string]error
}

var _ ledger.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{
		items:    make(map[uuid.UUID]*model.InventoryItem),
		lots:     make(map[uuid.UUID]model.Lot),
		locks:    make(map[uuid.UUID]chan struct{}),
		failures: make(map[string]error),
	}
}

// PutItem inserts or replaces an item, assigning an ID when missing.
func (s *Store) PutItem(item model.InventoryItem) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	s.items[item.ID] = &item
	return item.ID
}

// PutLot inserts or replaces a lot.
func (s *Store) PutLot(lot model.Lot) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	if lot.ID == uuid.Nil {
		lot.ID = uuid.New()
	}
	s.lots[lot.ID] = lot
	return lot.ID
}

// Item returns a copy of the committed item.
func (s *Store) Item(id uuid.UUID) (model.InventoryItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[id]
	if !ok {
		return model.InventoryItem{}, false
	}
	return *it, true
}

// AuditEntries returns the committed audit entries for an item, oldest first.
func (s *Store) AuditEntries(itemID uuid.UUID) []model.AuditLogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.AuditLogEntry
	for _, e := range s.audit {
		if e.InventoryItemID == itemID {
			out = append(out, e)
		}
	}
	return out
}

// FailOn makes the named Tx operation ("LockItem", "SetQuantity",
// "AppendAudit", "LotBelongsToItem") or "FindItem" return err.
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = err
}

func (s *Store) failure(op string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failures[op]
}

func (s *Store) lockFor(id uuid.UUID) chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = make(chan struct{}, 1)
		s.locks[id] = l
	}
	return l
}

func (s *Store) Atomic(ctx context.Context, fn func(tx ledger.Tx) error) error {
	tx := &memTx{ctx: ctx, store: s, quantities: make(map[uuid.UUID]stagedQuantity)}
	defer tx.release()

	if err := fn(tx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, q := range tx.quantities {
		if it, ok := s.items[id]; ok {
			it.Quantity = q.qty
			it.UpdatedAt = q.at
		}
	}
	s.audit = append(s.audit, tx.entries...)
	return nil
}

func (s *Store) FindItem(_ context.Context, id uuid.UUID) (*model.InventoryItem, error) {
	if err := s.failure("FindItem"); err != nil {
		return nil, err
	}
	it, ok := s.Item(id)
	if !ok {
		return nil, ledger.ErrNotFound
	}
	return &it, nil
}

type stagedQuantity struct {
	qty decimal.Decimal
	at  time.Time
}

type memTx struct {
	ctx        context.Context
	store      *Store
	held       []chan struct{}
	quantities map[uuid.UUID]stagedQuantity
	entries    []model.AuditLogEntry
}

func (t *memTx) release() {
	for _, l := range t.held {
		<-l
	}
	t.held = nil
}

func (t *memTx) LockItem(id uuid.UUID) (*model.InventoryItem, error) {
	if err := t.store.failure("LockItem"); err != nil {
		return nil, err
	}

	l := t.store.lockFor(id)
	var timeout <-chan time.Time
	if t.store.LockTimeout > 0 {
		timer := time.NewTimer(t.store.LockTimeout)
		defer timer.Stop()
		timeout = timer.C
	}
	select {
	case l <- struct{}{}:
		t.held = append(t.held, l)
	case <-timeout:
		return nil, &ledger.StorageError{Op: "lock item", Err: ledger.ErrLockTimeout}
	case <-t.ctx.Done():
		return nil, &ledger.StorageError{Op: "lock item", Err: t.ctx.Err()}
	}

	it, ok := t.store.Item(id)
	if !ok {
		return nil, ledger.ErrNotFound
	}
	return &it, nil
}

func (t *memTx) LotBelongsToItem(lotID, itemID uuid.UUID) (bool, error) {
	if err := t.store.failure("LotBelongsToItem"); err != nil {
		return false, err
	}
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	lot, ok := t.store.lots[lotID]
	return ok && lot.InventoryItemID == itemID, nil
}

func (t *memTx) SetQuantity(id uuid.UUID, qty decimal.Decimal, at time.Time) error {
	if err := t.store.failure("SetQuantity"); err != nil {
		return err
	}
	t.quantities[id] = stagedQuantity{qty: qty, at: at}
	return nil
}

func (t *memTx) AppendAudit(entry *model.AuditLogEntry) error {
	if err := t.store.failure("AppendAudit"); err != nil {
		return err
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	t.entries = append(t.entries, *entry)
	return nil
}
