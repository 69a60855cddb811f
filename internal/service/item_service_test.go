package service

import (
	"context"
	"testing"
	"time"

	"medident/internal/dto"
	"medident/internal/ledger"
	"medident/internal/ledger/ledgertest"
	"medident/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type itemFixture struct {
	svc        *itemService
	items      *stubItemRepo
	categories *stubCategoryRepo
	store      *ledgertest.Store
	cache      *spyCache
	notifier   *spyNotifier
}

func newItemFixture() *itemFixture {
	f := &itemFixture{
		items:      newStubItemRepo(),
		categories: newStubCategoryRepo(),
		store:      ledgertest.NewStore(),
		cache:      &spyCache{},
		notifier:   &spyNotifier{},
	}
	f.svc = NewItemService(f.items, f.categories, ledger.New(f.store), f.cache, f.notifier, 30).(*itemService)
	f.svc.now = func() time.Time { return time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC) }
	return f
}

// seed registers the item with both the repository and the ledger store.
func (f *itemFixture) seed(it model.InventoryItem) uuid.UUID {
	it.IsActive = true
	id := f.store.PutItem(it)
	it.ID = id
	f.items.put(it)
	return id
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func strPtr(s string) *string { return &s }

func TestItemService_CreateGeneratesSKUFromCategory(t *testing.T) {
	f := newItemFixture()
	cat := &model.Category{Name: "Implants"}
	require.NoError(t, f.categories.Create(context.Background(), cat))
	f.items.put(model.InventoryItem{Name: "Existing", SKU: "IMP-001"})

	catID := cat.ID.String()
	resp, err := f.svc.Create(context.Background(), dto.CreateItemRequest{
		Name:            "  Titanium post ",
		CategoryID:      &catID,
		Quantity:        dec("4"),
		MinimumQuantity: dec("2"),
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, "IMP-002", resp.SKU)
	assert.Equal(t, "Titanium post", resp.Name)
	assert.Equal(t, "units", resp.Unit)
	assert.True(t, resp.Quantity.Equal(dec("4")))
}

func TestItemService_CreateWithoutCategoryUsesITM(t *testing.T) {
	f := newItemFixture()
	resp, err := f.svc.Create(context.Background(), dto.CreateItemRequest{Name: "Gauze"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "ITM-001", resp.SKU)
}

func TestItemService_CreateDuplicateSKU(t *testing.T) {
	f := newItemFixture()
	f.items.put(model.InventoryItem{Name: "Gloves", SKU: "PPE-001"})

	_, err := f.svc.Create(context.Background(), dto.CreateItemRequest{Name: "Other gloves", SKU: "PPE-001"}, nil)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestItemService_CreateRejectsNegativeQuantity(t *testing.T) {
	f := newItemFixture()
	_, err := f.svc.Create(context.Background(), dto.CreateItemRequest{Name: "Gauze", Quantity: dec("-1")}, nil)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestItemService_CreateUnknownCategory(t *testing.T) {
	f := newItemFixture()
	id := uuid.NewString()
	_, err := f.svc.Create(context.Background(), dto.CreateItemRequest{Name: "Gauze", CategoryID: &id}, nil)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestItemService_GetNotFound(t *testing.T) {
	f := newItemFixture()
	_, err := f.svc.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestItemService_GetCachesUntilInvalidated(t *testing.T) {
	f := newItemFixture()
	ctx := context.Background()
	id := f.seed(model.InventoryItem{Name: "Gauze", SKU: "G-1", Quantity: dec("10")})

	first, err := f.svc.Get(ctx, id)
	require.NoError(t, err)
	f.items.items[id].Name = "renamed behind the cache"

	second, err := f.svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, first, second, "second read is served from the cache")

	f.cache.Invalidate(ctx, id)
	third, err := f.svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "renamed behind the cache", third.Name)
}

func TestItemService_GetDoesNotCacheRowReadBeforeConcurrentAdjust(t *testing.T) {
	f := newItemFixture()
	ctx := context.Background()
	id := f.seed(model.InventoryItem{Name: "Gauze", SKU: "G-1", Quantity: dec("10")})

	// Between Get's repository read and its cache fill, another request
	// commits -3 and invalidates.
	f.items.afterFind = func(id uuid.UUID) {
		_, err := f.svc.Adjust(ctx, ledger.Adjustment{
			ItemID: id, Value: dec("-3"), Mode: ledger.Relative,
			Metadata: ledger.Metadata{ActionType: model.ActionAdjustment},
		})
		require.NoError(t, err)
		committed, _ := f.store.Item(id)
		f.items.items[id].Quantity = committed.Quantity
	}

	stale, err := f.svc.Get(ctx, id)
	require.NoError(t, err)
	assert.True(t, stale.Quantity.Equal(dec("10")), "the in-flight read still returns what it saw")
	assert.Equal(t, 1, f.cache.staleSets)

	served, err := f.svc.Get(ctx, id)
	require.NoError(t, err)
	assert.True(t, served.Quantity.Equal(dec("7")), "got %s, want the committed 7", served.Quantity)
}

func TestItemService_ListIsReadOnly(t *testing.T) {
	f := newItemFixture()
	ctx := context.Background()
	f.seed(model.InventoryItem{Name: "Gauze", SKU: "G-1", Quantity: dec("3"), MinimumQuantity: dec("5")})
	f.seed(model.InventoryItem{Name: "Burs", SKU: "B-1", Quantity: dec("9")})

	filter := dto.ItemFilter{LowStock: true, Search: "g"}
	first, err := f.svc.List(ctx, filter)
	require.NoError(t, err)
	second, err := f.svc.List(ctx, filter)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	for id := range f.items.items {
		assert.Empty(t, f.store.AuditEntries(id))
	}
	assert.Empty(t, f.cache.invalidated)
}

func TestItemService_ListValidatesSortAndSetsExpiryCutoff(t *testing.T) {
	f := newItemFixture()
	f.seed(model.InventoryItem{Name: "B", SKU: "B"})
	f.seed(model.InventoryItem{Name: "A", SKU: "A"})

	_, err := f.svc.List(context.Background(), dto.ItemFilter{SortBy: "password"})
	assert.ErrorIs(t, err, ErrInvalid)

	resp, err := f.svc.List(context.Background(), dto.ItemFilter{Expiring: true, Limit: 500, SortOrder: "DESC"})
	require.NoError(t, err)
	assert.Len(t, resp.Items, 2)
	assert.Equal(t, 100, resp.Pagination.Limit)
	assert.Equal(t, 1, resp.Pagination.Page)
	assert.True(t, f.items.last.SortDesc)
	require.NotNil(t, f.items.last.ExpiringBefore)
	assert.Equal(t, time.Date(2026, 4, 9, 0, 0, 0, 0, time.UTC), *f.items.last.ExpiringBefore)
}

func TestItemService_UpdateClearsCategoryAndInvalidatesCache(t *testing.T) {
	f := newItemFixture()
	catID := uuid.New()
	id := f.seed(model.InventoryItem{Name: "Gauze", SKU: "G-1", CategoryID: &catID, Quantity: dec("5")})

	resp, err := f.svc.Update(context.Background(), id, dto.UpdateItemRequest{
		CategoryID: strPtr(""),
		Location:   strPtr("Cabinet 3"),
	}, nil)

	require.NoError(t, err)
	assert.Nil(t, resp.CategoryID)
	assert.Equal(t, "Cabinet 3", *resp.Location)
	assert.True(t, resp.Quantity.Equal(dec("5")), "field edits leave quantity alone")
	assert.Contains(t, f.cache.invalidated, id)
}

func TestItemService_UpdateQuantityAbsoluteAndRelative(t *testing.T) {
	f := newItemFixture()
	id := f.seed(model.InventoryItem{Name: "Gauze", SKU: "G-1", Quantity: dec("10"), MinimumQuantity: dec("2")})
	user := uuid.New()

	resp, err := f.svc.UpdateQuantity(context.Background(), id, dto.UpdateQuantityRequest{
		Quantity: decPtr("15"), Reason: "delivery",
	}, &user)
	require.NoError(t, err)
	assert.True(t, resp.Item.Quantity.Equal(dec("15")))
	assert.True(t, resp.AuditLog.ChangeAmount.Equal(dec("5")))
	assert.Equal(t, model.ActionManual, resp.AuditLog.ActionType)
	assert.Equal(t, user.String(), *resp.AuditLog.UserID)

	resp, err = f.svc.UpdateQuantity(context.Background(), id, dto.UpdateQuantityRequest{
		Quantity: decPtr("-3.5"), IsAdjustment: true, ActionType: model.ActionAdjustment,
	}, nil)
	require.NoError(t, err)
	assert.True(t, resp.Item.Quantity.Equal(dec("11.5")))
	assert.True(t, resp.AuditLog.PreviousQuantity.Equal(dec("15")))
	assert.Len(t, f.store.AuditEntries(id), 2)
	assert.Contains(t, f.cache.invalidated, id)
}

func TestItemService_UpdateQuantityNegativeResult(t *testing.T) {
	f := newItemFixture()
	id := f.seed(model.InventoryItem{Name: "Gauze", SKU: "G-1", Quantity: dec("2")})

	_, err := f.svc.UpdateQuantity(context.Background(), id, dto.UpdateQuantityRequest{
		Quantity: decPtr("-3"), IsAdjustment: true,
	}, nil)
	assert.ErrorIs(t, err, ledger.ErrNegativeQuantity)
	assert.Empty(t, f.store.AuditEntries(id))
	assert.Empty(t, f.cache.invalidated)
}

func TestItemService_UpdateQuantityBadLotID(t *testing.T) {
	f := newItemFixture()
	id := f.seed(model.InventoryItem{Name: "Gauze", SKU: "G-1", Quantity: dec("2")})

	_, err := f.svc.UpdateQuantity(context.Background(), id, dto.UpdateQuantityRequest{
		Quantity: decPtr("1"), LotID: strPtr("nope"),
	}, nil)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestItemService_AdjustNotifiesOnlyWhenCrossingMinimum(t *testing.T) {
	f := newItemFixture()
	id := f.seed(model.InventoryItem{Name: "Gloves", SKU: "PPE-001", Quantity: dec("10"), MinimumQuantity: dec("5"), Unit: "boxes"})

	adjust := func(v string) {
		_, err := f.svc.Adjust(context.Background(), ledger.Adjustment{ItemID: id, Value: dec(v), Mode: ledger.Relative})
		require.NoError(t, err)
	}

	adjust("-4") // 6, still above
	assert.Empty(t, f.notifier.alerts)

	adjust("-1") // 5, onto the minimum
	require.Len(t, f.notifier.alerts, 1)
	assert.Equal(t, "PPE-001", f.notifier.alerts[0].SKU)
	assert.True(t, f.notifier.alerts[0].Quantity.Equal(dec("5")))

	adjust("-1") // already below, no repeat
	assert.Len(t, f.notifier.alerts, 1)
}

func TestItemService_Delete(t *testing.T) {
	f := newItemFixture()
	id := f.seed(model.InventoryItem{Name: "Gauze", SKU: "G-1"})

	require.NoError(t, f.svc.Delete(context.Background(), id))
	assert.ErrorIs(t, f.svc.Delete(context.Background(), id), ErrNotFound)
}

func TestSKUPrefix(t *testing.T) {
	assert.Equal(t, "PPE", skuPrefix("ppe"))
	assert.Equal(t, "MED", skuPrefix("Medications"))
	assert.Equal(t, "XR", skuPrefix("x-r"))
	assert.Equal(t, "ITM", skuPrefix("123"))
	assert.Equal(t, "ITM", skuPrefix(""))
}
