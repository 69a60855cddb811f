package ledger_test

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"medident/internal/ledger"
	"medident/internal/ledger/ledgertest"
	"medident/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ── Helpers ───────────────────────────────────────────────────────────────────

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func seedItem(store *ledgertest.Store, qty string) uuid.UUID {
	return store.PutItem(model.InventoryItem{
		Name:            "Lidocaine 2%",
		SKU:             "MED-" + uuid.NewString()[:8],
		Quantity:        dec(qty),
		MinimumQuantity: dec("5"),
		Unit:            "vials",
		IsActive:        true,
	})
}

func relative(id uuid.UUID, v string, user *uuid.UUID) ledger.Adjustment {
	return ledger.Adjustment{
		ItemID: id, Value: dec(v), Mode: ledger.Relative,
		Metadata: ledger.Metadata{ActionType: model.ActionManual, UserID: user},
	}
}

type recordingObserver struct {
	mu       sync.Mutex
	outcomes []string
}

func (o *recordingObserver) ObserveAdjustment(_ string, outcome string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes = append(o.outcomes, outcome)
}

// ── Scenario ──────────────────────────────────────────────────────────────────

func TestAdjust_AddThenRejectNegative(t *testing.T) {
	store := ledgertest.NewStore()
	l := ledger.New(store)
	id := seedItem(store, "25")
	user := uuid.New()

	res, err := l.Adjust(context.Background(), relative(id, "5", &user))
	require.NoError(t, err)
	assert.True(t, res.Item.Quantity.Equal(dec("30")), "got %s", res.Item.Quantity)

	entries := store.AuditEntries(id)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].PreviousQuantity.Equal(dec("25")))
	assert.True(t, entries[0].NewQuantity.Equal(dec("30")))
	assert.True(t, entries[0].ChangeAmount.Equal(dec("5")))
	assert.Equal(t, model.ActionManual, entries[0].ActionType)
	require.NotNil(t, entries[0].UserID)
	assert.Equal(t, user, *entries[0].UserID)

	_, err = l.Adjust(context.Background(), relative(id, "-40", &user))
	assert.ErrorIs(t, err, ledger.ErrNegativeQuantity)

	item, _ := store.Item(id)
	assert.True(t, item.Quantity.Equal(dec("30")))
	assert.Len(t, store.AuditEntries(id), 1, "failed adjustment must not write an audit row")
}

func TestAdjust_AbsoluteRecordsDifference(t *testing.T) {
	store := ledgertest.NewStore()
	l := ledger.New(store)
	id := seedItem(store, "30")

	res, err := l.Adjust(context.Background(), ledger.Adjustment{
		ItemID: id, Value: dec("12.5"), Mode: ledger.Absolute,
		Metadata: ledger.Metadata{ActionType: model.ActionInvoice, Reason: "recount"},
	})
	require.NoError(t, err)
	assert.True(t, res.Item.Quantity.Equal(dec("12.5")))
	assert.True(t, res.Entry.ChangeAmount.Equal(dec("-17.5")))
	assert.Equal(t, model.ActionInvoice, res.Entry.ActionType)
	require.NotNil(t, res.Entry.Reason)
	assert.Equal(t, "recount", *res.Entry.Reason)
}

func TestAdjust_AbsoluteNegativeRejected(t *testing.T) {
	store := ledgertest.NewStore()
	l := ledger.New(store)
	id := seedItem(store, "3")

	_, err := l.Adjust(context.Background(), ledger.Adjustment{ItemID: id, Value: dec("-1"), Mode: ledger.Absolute})
	assert.ErrorIs(t, err, ledger.ErrNegativeQuantity)
	assert.Empty(t, store.AuditEntries(id))
}

func TestAdjust_DefaultsActionTypeAndNullReason(t *testing.T) {
	store := ledgertest.NewStore()
	l := ledger.New(store)
	id := seedItem(store, "1")

	res, err := l.Adjust(context.Background(), ledger.Adjustment{ItemID: id, Value: dec("2"), Mode: ledger.Relative})
	require.NoError(t, err)
	assert.Equal(t, model.ActionManual, res.Entry.ActionType)
	assert.Nil(t, res.Entry.Reason)
	assert.Nil(t, res.Entry.UserID)
}

func TestAdjust_DownToZeroAllowed(t *testing.T) {
	store := ledgertest.NewStore()
	l := ledger.New(store)
	id := seedItem(store, "4")

	res, err := l.Adjust(context.Background(), relative(id, "-4", nil))
	require.NoError(t, err)
	assert.True(t, res.Item.Quantity.IsZero())
}

// ── Failures ──────────────────────────────────────────────────────────────────

func TestAdjust_NotFound(t *testing.T) {
	l := ledger.New(ledgertest.NewStore())
	_, err := l.Adjust(context.Background(), relative(uuid.New(), "1", nil))
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestAdjust_InvalidInput(t *testing.T) {
	store := ledgertest.NewStore()
	l := ledger.New(store)
	id := seedItem(store, "10")

	cases := map[string]ledger.Adjustment{
		"unknown action type": {ItemID: id, Value: dec("1"), Mode: ledger.Relative, Metadata: ledger.Metadata{ActionType: "stolen"}},
		"too many decimals":   {ItemID: id, Value: dec("1.234"), Mode: ledger.Relative},
		"out of range":        {ItemID: id, Value: dec("100000000"), Mode: ledger.Absolute},
		"unknown mode":        {ItemID: id, Value: dec("1"), Mode: ledger.Mode(7)},
		"nil item":            {ItemID: uuid.Nil, Value: dec("1"), Mode: ledger.Relative},
	}
	for name, adj := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := l.Adjust(context.Background(), adj)
			assert.ErrorIs(t, err, ledger.ErrInvalidInput)
		})
	}
	assert.Empty(t, store.AuditEntries(id))
}

func TestAdjust_LotMustBelongToItem(t *testing.T) {
	store := ledgertest.NewStore()
	l := ledger.New(store)
	id := seedItem(store, "10")
	other := seedItem(store, "10")
	foreignLot := store.PutLot(model.Lot{InventoryItemID: other, LotNumber: "LOT-1"})
	ownLot := store.PutLot(model.Lot{InventoryItemID: id, LotNumber: "LOT-2"})

	adj := relative(id, "-1", nil)
	adj.Metadata.LotID = &foreignLot
	_, err := l.Adjust(context.Background(), adj)
	assert.ErrorIs(t, err, ledger.ErrInvalidInput)

	adj.Metadata.LotID = &ownLot
	res, err := l.Adjust(context.Background(), adj)
	require.NoError(t, err)
	require.NotNil(t, res.Entry.LotID)
	assert.Equal(t, ownLot, *res.Entry.LotID)
}

func TestAdjust_AuditFailureRollsBack(t *testing.T) {
	store := ledgertest.NewStore()
	l := ledger.New(store)
	id := seedItem(store, "10")
	store.FailOn("AppendAudit", errors.New("disk full"))

	_, err := l.Adjust(context.Background(), relative(id, "-2", nil))

	var se *ledger.StorageError
	require.ErrorAs(t, err, &se)
	item, _ := store.Item(id)
	assert.True(t, item.Quantity.Equal(dec("10")), "quantity must not change without its audit row")
	assert.Empty(t, store.AuditEntries(id))
}

func TestAdjust_UpdateFailureRollsBack(t *testing.T) {
	store := ledgertest.NewStore()
	l := ledger.New(store)
	id := seedItem(store, "10")
	store.FailOn("SetQuantity", errors.New("connection reset"))

	_, err := l.Adjust(context.Background(), relative(id, "1", nil))

	var se *ledger.StorageError
	require.ErrorAs(t, err, &se)
	assert.Empty(t, store.AuditEntries(id))
}

func TestAdjust_ReloadFailureIsStorageError(t *testing.T) {
	store := ledgertest.NewStore()
	l := ledger.New(store)
	id := seedItem(store, "10")
	store.FailOn("FindItem", errors.New("replica down"))

	_, err := l.Adjust(context.Background(), relative(id, "1", nil))

	var se *ledger.StorageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "reload item", se.Op)
	// the transaction itself committed
	assert.Len(t, store.AuditEntries(id), 1)
}

func TestAdjust_LockTimeout(t *testing.T) {
	store := ledgertest.NewStore()
	store.LockTimeout = 20 * time.Millisecond
	l := ledger.New(store)
	id := seedItem(store, "10")

	holding := make(chan struct{})
	done := make(chan struct{})
	go func() {
		_ = store.Atomic(context.Background(), func(tx ledger.Tx) error {
			_, _ = tx.LockItem(id)
			close(holding)
			<-done
			return errors.New("abort")
		})
	}()
	<-holding

	_, err := l.Adjust(context.Background(), relative(id, "1", nil))
	close(done)

	assert.ErrorIs(t, err, ledger.ErrLockTimeout)
	assert.Empty(t, store.AuditEntries(id))
	var se *ledger.StorageError
	assert.ErrorAs(t, err, &se)
	assert.Equal(t, "lock_timeout", ledger.Outcome(err))
}

// ── Concurrency ───────────────────────────────────────────────────────────────

func TestAdjust_ConcurrentRemovalsSerialize(t *testing.T) {
	store := ledgertest.NewStore()
	l := ledger.New(store)
	id := seedItem(store, "10")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, v := range []string{"-3", "-4"} {
		wg.Add(1)
		go func(i int, v string) {
			defer wg.Done()
			_, errs[i] = l.Adjust(context.Background(), relative(id, v, nil))
		}(i, v)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	item, _ := store.Item(id)
	assert.True(t, item.Quantity.Equal(dec("3")), "got %s", item.Quantity)

	entries := store.AuditEntries(id)
	require.Len(t, entries, 2)
	assert.True(t, entries[0].PreviousQuantity.Equal(dec("10")), "first writer starts from 10")
	// whichever ran second starts where the first ended
	assert.True(t, entries[1].PreviousQuantity.Equal(entries[0].NewQuantity))
	assert.True(t, entries[1].NewQuantity.Equal(dec("3")))
}

func TestAdjust_ManyConcurrentIncrements(t *testing.T) {
	store := ledgertest.NewStore()
	l := ledger.New(store)
	id := seedItem(store, "0")

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.Adjust(context.Background(), relative(id, "1", nil))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	item, _ := store.Item(id)
	assert.True(t, item.Quantity.Equal(decimal.NewFromInt(n)))
	assert.Len(t, store.AuditEntries(id), n)
}

func TestAdjust_DifferentItemsDoNotBlock(t *testing.T) {
	store := ledgertest.NewStore()
	store.LockTimeout = 50 * time.Millisecond
	l := ledger.New(store)
	a := seedItem(store, "10")
	b := seedItem(store, "10")

	holding := make(chan struct{})
	done := make(chan struct{})
	go func() {
		_ = store.Atomic(context.Background(), func(tx ledger.Tx) error {
			_, _ = tx.LockItem(a)
			close(holding)
			<-done
			return nil
		})
	}()
	<-holding
	defer close(done)

	_, err := l.Adjust(context.Background(), relative(b, "-1", nil))
	assert.NoError(t, err)
}

// ── Properties ────────────────────────────────────────────────────────────────

func TestAdjust_RandomSequenceKeepsInvariants(t *testing.T) {
	store := ledgertest.NewStore()
	l := ledger.New(store)
	id := seedItem(store, "20")
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 200; i++ {
		before, _ := store.Item(id)
		auditBefore := len(store.AuditEntries(id))

		v := decimal.New(int64(rng.Intn(2000)-1000), -2)
		mode := ledger.Relative
		if rng.Intn(4) == 0 {
			mode = ledger.Absolute
			v = v.Abs()
		}
		_, err := l.Adjust(context.Background(), ledger.Adjustment{ItemID: id, Value: v, Mode: mode})

		after, _ := store.Item(id)
		entries := store.AuditEntries(id)
		require.False(t, after.Quantity.IsNegative())

		if err != nil {
			require.ErrorIs(t, err, ledger.ErrNegativeQuantity)
			require.True(t, after.Quantity.Equal(before.Quantity))
			require.Len(t, entries, auditBefore)
			continue
		}
		require.Len(t, entries, auditBefore+1)
		last := entries[len(entries)-1]
		require.True(t, last.NewQuantity.Sub(last.PreviousQuantity).Equal(last.ChangeAmount))
		require.True(t, last.PreviousQuantity.Equal(before.Quantity))
		require.True(t, last.NewQuantity.Equal(after.Quantity))
	}
}

func TestAdjust_ObserverSeesOutcome(t *testing.T) {
	store := ledgertest.NewStore()
	obs := &recordingObserver{}
	l := ledger.New(store, ledger.WithObserver(obs))
	id := seedItem(store, "1")

	_, _ = l.Adjust(context.Background(), relative(id, "1", nil))
	_, _ = l.Adjust(context.Background(), relative(id, "-9", nil))
	_, _ = l.Adjust(context.Background(), relative(uuid.New(), "1", nil))

	assert.Equal(t, []string{"ok", "negative_quantity", "not_found"}, obs.outcomes)
}

func TestAdjust_UsesInjectedClock(t *testing.T) {
	store := ledgertest.NewStore()
	fixed := time.Date(2025, 9, 15, 10, 0, 0, 0, time.UTC)
	l := ledger.New(store, ledger.WithClock(func() time.Time { return fixed }))
	id := seedItem(store, "1")

	res, err := l.Adjust(context.Background(), relative(id, "1", nil))
	require.NoError(t, err)
	assert.Equal(t, fixed, res.Entry.CreatedAt)
	assert.Equal(t, fixed, res.Item.UpdatedAt)
}

// ── ParseValue ────────────────────────────────────────────────────────────────

func TestParseValue(t *testing.T) {
	v, err := ledger.ParseValue(" 4.25 ")
	require.NoError(t, err)
	assert.True(t, v.Equal(dec("4.25")))

	v, err = ledger.ParseValue("-3")
	require.NoError(t, err)
	assert.True(t, v.Equal(dec("-3")))

	for _, bad := range []string{"", "abc", "1.001", "1e9"} {
		_, err := ledger.ParseValue(bad)
		assert.ErrorIs(t, err, ledger.ErrInvalidInput, "input %q", bad)
	}
}
