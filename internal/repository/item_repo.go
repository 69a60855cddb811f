package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"medident/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ItemFilter narrows item listings. Category matches a category id or a
// case-insensitive category name.
type ItemFilter struct {
	Category        string
	Search          string
	LowStock        bool
	ExpiringBefore  *time.Time
	IncludeInactive bool
	SortBy          string
	SortDesc        bool
	Page            int
	Limit           int
}

// sortColumns whitelists the orderable columns by API name.
var sortColumns = map[string]string{
	"name":             "name",
	"sku":              "sku",
	"quantity":         "quantity",
	"minimum_quantity": "minimum_quantity",
	"minimumQuantity":  "minimum_quantity",
	"created_at":       "created_at",
	"createdAt":        "created_at",
	"updated_at":       "updated_at",
	"updatedAt":        "updated_at",
	"expiry_date":      "expiry_date",
	"expiryDate":       "expiry_date",
}

// SortColumn resolves an API sort key, reporting false for unknown keys.
func SortColumn(key string) (string, bool) {
	col, ok := sortColumns[key]
	return col, ok
}

// likeEscaper makes user search text match literally inside ILIKE patterns.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ItemRepository defines the data access contract for inventory items.
// Quantity is never written here; see LedgerStore.
type ItemRepository interface {
	Create(ctx context.Context, item *model.InventoryItem) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.InventoryItem, error)
	FindBySKU(ctx context.Context, sku string) (*model.InventoryItem, error)
	List(ctx context.Context, filter ItemFilter) ([]model.InventoryItem, int64, error)
	// UpdateDetails writes descriptive columns only.
	UpdateDetails(ctx context.Context, item *model.InventoryItem) error
	Delete(ctx context.Context, id uuid.UUID) error
	// CountSKUPrefix counts SKUs starting with prefix, used for generated SKUs.
	CountSKUPrefix(ctx context.Context, prefix string) (int64, error)
	SKUExists(ctx context.Context, sku string) (bool, error)
}

type itemRepo struct{ db *gorm.DB }

func NewItemRepository(db *gorm.DB) ItemRepository { return &itemRepo{db: db} }

func (r *itemRepo) Create(ctx context.Context, item *model.InventoryItem) error {
	return translate(r.db.WithContext(ctx).Omit("Category", "Lots").Create(item).Error)
}

func (r *itemRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.InventoryItem, error) {
	var item model.InventoryItem
	err := r.db.WithContext(ctx).
		Preload("Category").
		Preload("Lots", func(db *gorm.DB) *gorm.DB { return db.Order("expiry_date ASC NULLS LAST") }).
		First(&item, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *itemRepo) FindBySKU(ctx context.Context, sku string) (*model.InventoryItem, error) {
	var item model.InventoryItem
	err := r.db.WithContext(ctx).Where("sku = ?", sku).First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *itemRepo) List(ctx context.Context, filter ItemFilter) ([]model.InventoryItem, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.InventoryItem{})

	if !filter.IncludeInactive {
		q = q.Where("is_active = true")
	}
	if filter.Category != "" {
		if id, err := uuid.Parse(filter.Category); err == nil {
			q = q.Where("category_id = ?", id)
		} else {
			q = q.Where("category_id IN (?)",
				r.db.Model(&model.Category{}).Select("id").Where("LOWER(name) = LOWER(?)", filter.Category))
		}
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		like := "%" + likeEscaper.Replace(s) + "%"
		q = q.Where(`(name ILIKE ? ESCAPE '\' OR sku ILIKE ? ESCAPE '\' OR notes ILIKE ? ESCAPE '\')`, like, like, like)
	}
	if filter.LowStock {
		q = q.Where("quantity <= minimum_quantity")
	}
	if filter.ExpiringBefore != nil {
		cutoff := *filter.ExpiringBefore
		q = q.Where("(expiry_date <= ? OR EXISTS (SELECT 1 FROM inventory_lots l WHERE l.inventory_item_id = inventory_items.id AND l.expiry_date <= ?))",
			cutoff, cutoff)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	col, ok := SortColumn(filter.SortBy)
	if !ok {
		col = "name"
	}
	dir := "ASC"
	if filter.SortDesc {
		dir = "DESC"
	}

	var items []model.InventoryItem
	err := q.Preload("Category").
		Order(fmt.Sprintf("%s %s NULLS LAST, id ASC", col, dir)).
		Limit(filter.Limit).
		Offset((filter.Page - 1) * filter.Limit).
		Find(&items).Error
	return items, total, err
}

var detailColumns = []string{
	"name", "sku", "category_id", "minimum_quantity", "unit", "location", "notes",
	"expiry_date", "requires_lot_tracking", "is_active", "updated_by", "updated_at",
}

func (r *itemRepo) UpdateDetails(ctx context.Context, item *model.InventoryItem) error {
	item.UpdatedAt = time.Now()
	res := r.db.WithContext(ctx).Model(item).Select(detailColumns).Updates(item)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete removes the item with its QR codes and lots in one transaction.
// Audit entries are kept.
func (r *itemRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("inventory_item_id = ?", id).Delete(&model.QRCode{}).Error; err != nil {
			return err
		}
		if err := tx.Where("inventory_item_id = ?", id).Delete(&model.Lot{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&model.InventoryItem{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *itemRepo) CountSKUPrefix(ctx context.Context, prefix string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.InventoryItem{}).
		Where("sku LIKE ?", prefix+"%").Count(&n).Error
	return n, err
}

func (r *itemRepo) SKUExists(ctx context.Context, sku string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.InventoryItem{}).Where("sku = ?", sku).Count(&n).Error
	return n > 0, err
}
