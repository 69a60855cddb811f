package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"medident/internal/cache"
	"medident/internal/dto"
	"medident/internal/ledger"
	"medident/internal/model"
	"medident/internal/repository"
	"medident/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const (
	defaultPage         = 1
	defaultLimit        = 20
	maxLimit            = 100
	defaultExpiringDays = 90
)

// Adjuster applies one quantity adjustment. *ledger.Ledger satisfies it.
type Adjuster interface {
	Adjust(ctx context.Context, adj ledger.Adjustment) (*ledger.Result, error)
}

// LowStockNotifier is satisfied by *worker.Dispatcher.
type LowStockNotifier interface {
	EnqueueLowStockAlert(ctx context.Context, payload worker.LowStockAlertPayload) error
}

// ItemService defines the business logic contract for inventory items.
type ItemService interface {
	Create(ctx context.Context, req dto.CreateItemRequest, userID *uuid.UUID) (*dto.ItemResponse, error)
	Get(ctx context.Context, id uuid.UUID) (*dto.ItemResponse, error)
	List(ctx context.Context, filter dto.ItemFilter) (*dto.ItemListResponse, error)
	Update(ctx context.Context, id uuid.UUID, req dto.UpdateItemRequest, userID *uuid.UUID) (*dto.ItemResponse, error)
	Delete(ctx context.Context, id uuid.UUID) error
	UpdateQuantity(ctx context.Context, id uuid.UUID, req dto.UpdateQuantityRequest, userID *uuid.UUID) (*dto.QuantityUpdateResponse, error)
	// Adjust is the single entry point to the ledger for every caller
	// (API, CSV import, QR scans).
	Adjust(ctx context.Context, adj ledger.Adjustment) (*ledger.Result, error)
}

type itemService struct {
	items        repository.ItemRepository
	categories   repository.CategoryRepository
	ledger       Adjuster
	cache        cache.ItemCache
	notifier     LowStockNotifier
	expiringDays int
	now          func() time.Time
}

func NewItemService(
	items repository.ItemRepository,
	categories repository.CategoryRepository,
	adjuster Adjuster,
	itemCache cache.ItemCache,
	notifier LowStockNotifier,
	expiringDays int,
) ItemService {
	if itemCache == nil {
		itemCache = cache.Nop{}
	}
	if expiringDays <= 0 {
		expiringDays = defaultExpiringDays
	}
	return &itemService{
		items: items, categories: categories, ledger: adjuster,
		cache: itemCache, notifier: notifier, expiringDays: expiringDays, now: time.Now,
	}
}

// ── Queries ──────────────────────────────────────────────────────────────────

func (s *itemService) Get(ctx context.Context, id uuid.UUID) (*dto.ItemResponse, error) {
	cached, gen, ok := s.cache.Get(ctx, id)
	if ok {
		return cached, nil
	}
	item, err := s.items.FindByID(ctx, id)
	if repository.IsNotFound(err) {
		return nil, notFound("inventory item not found")
	}
	if err != nil {
		return nil, err
	}
	resp := toItemResponse(item)
	s.cache.Set(ctx, &resp, gen)
	return &resp, nil
}

func (s *itemService) List(ctx context.Context, f dto.ItemFilter) (*dto.ItemListResponse, error) {
	page, limit := normalizePage(f.Page, f.Limit)

	sortBy := f.SortBy
	if sortBy == "" {
		sortBy = "name"
	}
	if _, ok := repository.SortColumn(sortBy); !ok {
		return nil, invalid("unsupported sortBy %q", f.SortBy)
	}
	var desc bool
	switch strings.ToLower(f.SortOrder) {
	case "", "asc":
	case "desc":
		desc = true
	default:
		return nil, invalid("sortOrder must be asc or desc")
	}

	rf := repository.ItemFilter{
		Category:        strings.TrimSpace(f.Category),
		Search:          f.Search,
		LowStock:        f.LowStock,
		IncludeInactive: f.IncludeInactive,
		SortBy:          sortBy,
		SortDesc:        desc,
		Page:            page,
		Limit:           limit,
	}
	if f.Expiring {
		cutoff := expiryCutoff(s.now(), s.daysOrDefault(f.ExpiringDays))
		rf.ExpiringBefore = &cutoff
	}

	items, total, err := s.items.List(ctx, rf)
	if err != nil {
		return nil, err
	}
	resp := &dto.ItemListResponse{
		Items:      make([]dto.ItemResponse, len(items)),
		Pagination: dto.NewPagination(page, limit, total),
	}
	for i := range items {
		resp.Items[i] = toItemResponse(&items[i])
	}
	return resp, nil
}

// ── Mutations ────────────────────────────────────────────────────────────────

func (s *itemService) Create(ctx context.Context, req dto.CreateItemRequest, userID *uuid.UUID) (*dto.ItemResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, invalid("name is required")
	}
	if err := checkQuantity("quantity", req.Quantity); err != nil {
		return nil, err
	}
	if err := checkQuantity("minimumQuantity", req.MinimumQuantity); err != nil {
		return nil, err
	}

	category, err := s.resolveCategory(ctx, req.CategoryID)
	if err != nil {
		return nil, err
	}

	sku := strings.TrimSpace(req.SKU)
	if sku == "" {
		categoryName := ""
		if category != nil {
			categoryName = category.Name
		}
		if sku, err = s.generateSKU(ctx, categoryName); err != nil {
			return nil, err
		}
	}

	unit := strings.TrimSpace(req.Unit)
	if unit == "" {
		unit = "units"
	}

	item := &model.InventoryItem{
		Name:                name,
		SKU:                 sku,
		Quantity:            req.Quantity,
		MinimumQuantity:     req.MinimumQuantity,
		Unit:                unit,
		Location:            trimmedOrNil(req.Location),
		Notes:               trimmedOrNil(req.Notes),
		ExpiryDate:          req.ExpiryDate.TimePtr(),
		RequiresLotTracking: req.RequiresLotTracking,
		IsActive:            true,
		CreatedBy:           userID,
		UpdatedBy:           userID,
	}
	if category != nil {
		item.CategoryID = &category.ID
	}

	if err := s.items.Create(ctx, item); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, conflict("SKU %q already exists", sku)
		}
		return nil, err
	}
	log.Info().Str("item_id", item.ID.String()).Str("sku", sku).Msg("inventory item created")
	return s.reload(ctx, item.ID)
}

func (s *itemService) Update(ctx context.Context, id uuid.UUID, req dto.UpdateItemRequest, userID *uuid.UUID) (*dto.ItemResponse, error) {
	item, err := s.items.FindByID(ctx, id)
	if repository.IsNotFound(err) {
		return nil, notFound("inventory item not found")
	}
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, invalid("name cannot be empty")
		}
		item.Name = name
	}
	if req.SKU != nil {
		sku := strings.TrimSpace(*req.SKU)
		if sku == "" {
			return nil, invalid("sku cannot be empty")
		}
		item.SKU = sku
	}
	if req.CategoryID != nil {
		if *req.CategoryID == "" {
			item.CategoryID = nil
		} else {
			category, err := s.resolveCategory(ctx, req.CategoryID)
			if err != nil {
				return nil, err
			}
			item.CategoryID = &category.ID
		}
		item.Category = nil
	}
	if req.MinimumQuantity != nil {
		if err := checkQuantity("minimumQuantity", *req.MinimumQuantity); err != nil {
			return nil, err
		}
		item.MinimumQuantity = *req.MinimumQuantity
	}
	if req.Unit != nil && strings.TrimSpace(*req.Unit) != "" {
		item.Unit = strings.TrimSpace(*req.Unit)
	}
	if req.Location != nil {
		item.Location = trimmedOrNil(req.Location)
	}
	if req.Notes != nil {
		item.Notes = trimmedOrNil(req.Notes)
	}
	if req.ExpiryDate != nil {
		item.ExpiryDate = req.ExpiryDate.TimePtr()
	}
	if req.RequiresLotTracking != nil {
		item.RequiresLotTracking = *req.RequiresLotTracking
	}
	if req.IsActive != nil {
		item.IsActive = *req.IsActive
	}
	item.UpdatedBy = userID

	if err := s.items.UpdateDetails(ctx, item); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return nil, conflict("SKU %q already exists", item.SKU)
		case repository.IsNotFound(err):
			return nil, notFound("inventory item not found")
		}
		return nil, err
	}
	s.cache.Invalidate(ctx, id)
	return s.reload(ctx, id)
}

func (s *itemService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.items.Delete(ctx, id); err != nil {
		if repository.IsNotFound(err) {
			return notFound("inventory item not found")
		}
		return err
	}
	s.cache.Invalidate(ctx, id)
	log.Info().Str("item_id", id.String()).Msg("inventory item deleted")
	return nil
}

func (s *itemService) UpdateQuantity(ctx context.Context, id uuid.UUID, req dto.UpdateQuantityRequest, userID *uuid.UUID) (*dto.QuantityUpdateResponse, error) {
	if req.Quantity == nil {
		return nil, invalid("quantity is required")
	}
	adj := ledger.Adjustment{
		ItemID: id,
		Value:  *req.Quantity,
		Mode:   ledger.Absolute,
		Metadata: ledger.Metadata{
			Reason:     strings.TrimSpace(req.Reason),
			ActionType: req.ActionType,
			UserID:     userID,
		},
	}
	if req.IsAdjustment {
		adj.Mode = ledger.Relative
	}
	if req.LotID != nil && *req.LotID != "" {
		lotID, err := uuid.Parse(*req.LotID)
		if err != nil {
			return nil, invalid("lotId must be a UUID")
		}
		adj.Metadata.LotID = &lotID
	}

	res, err := s.Adjust(ctx, adj)
	if err != nil {
		return nil, err
	}
	return &dto.QuantityUpdateResponse{
		Item:     toItemResponse(res.Item),
		AuditLog: toAuditLogResponse(&res.Entry),
	}, nil
}

func (s *itemService) Adjust(ctx context.Context, adj ledger.Adjustment) (*ledger.Result, error) {
	res, err := s.ledger.Adjust(ctx, adj)
	if err != nil {
		ev := log.Warn()
		var se *ledger.StorageError
		if errors.As(err, &se) {
			ev = log.Error()
		}
		ev.Err(err).
			Str("item_id", adj.ItemID.String()).
			Str("mode", adj.Mode.String()).
			Str("value", adj.Value.String()).
			Str("outcome", ledger.Outcome(err)).
			Msg("quantity adjustment failed")
		return nil, err
	}

	s.cache.Invalidate(ctx, adj.ItemID)
	log.Info().
		Str("item_id", adj.ItemID.String()).
		Str("action_type", res.Entry.ActionType).
		Str("previous", res.Entry.PreviousQuantity.String()).
		Str("new", res.Entry.NewQuantity.String()).
		Msg("quantity adjusted")

	s.notifyIfCrossedMinimum(ctx, res)
	return res, nil
}

// notifyIfCrossedMinimum enqueues a low-stock alert when the adjustment moved
// the item from above its minimum to at or below it.
func (s *itemService) notifyIfCrossedMinimum(ctx context.Context, res *ledger.Result) {
	if s.notifier == nil || res.Item == nil {
		return
	}
	min := res.Item.MinimumQuantity
	if !(res.Entry.PreviousQuantity.GreaterThan(min) && res.Entry.NewQuantity.LessThanOrEqual(min)) {
		return
	}
	payload := worker.LowStockAlertPayload{
		ItemID:          res.Item.ID.String(),
		Name:            res.Item.Name,
		SKU:             res.Item.SKU,
		Quantity:        res.Entry.NewQuantity,
		MinimumQuantity: min,
		Unit:            res.Item.Unit,
	}
	if err := s.notifier.EnqueueLowStockAlert(ctx, payload); err != nil {
		log.Warn().Err(err).Str("item_id", payload.ItemID).Msg("failed to enqueue low stock alert")
	}
}

// ── Helpers ──────────────────────────────────────────────────────────────────

func (s *itemService) reload(ctx context.Context, id uuid.UUID) (*dto.ItemResponse, error) {
	item, err := s.items.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toItemResponse(item)
	return &resp, nil
}

func (s *itemService) resolveCategory(ctx context.Context, raw *string) (*model.Category, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(*raw)
	if err != nil {
		return nil, invalid("categoryId must be a UUID")
	}
	category, err := s.categories.FindByID(ctx, id)
	if repository.IsNotFound(err) {
		return nil, invalid("category %s does not exist", id)
	}
	return category, err
}

// generateSKU builds PREFIX-NNN from the first three letters of the category
// name, skipping numbers already taken.
func (s *itemService) generateSKU(ctx context.Context, categoryName string) (string, error) {
	prefix := skuPrefix(categoryName) + "-"
	n, err := s.items.CountSKUPrefix(ctx, prefix)
	if err != nil {
		return "", err
	}
	for seq := n + 1; ; seq++ {
		sku := fmt.Sprintf("%s%03d", prefix, seq)
		exists, err := s.items.SKUExists(ctx, sku)
		if err != nil {
			return "", err
		}
		if !exists {
			return sku, nil
		}
	}
}

func skuPrefix(categoryName string) string {
	var b strings.Builder
	for _, r := range categoryName {
		if unicode.IsLetter(r) {
			b.WriteRune(unicode.ToUpper(r))
			if b.Len() == 3 {
				break
			}
		}
	}
	if b.Len() == 0 {
		return "ITM"
	}
	return b.String()
}

func (s *itemService) daysOrDefault(days int) int {
	if days <= 0 {
		return s.expiringDays
	}
	return days
}

// expiryCutoff is the last calendar day (UTC) included in an N-day window.
func expiryCutoff(now time.Time, days int) time.Time {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return today.AddDate(0, 0, days)
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = defaultPage
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return page, limit
}

func checkQuantity(field string, v decimal.Decimal) error {
	if v.IsNegative() {
		return invalid("%s cannot be negative", field)
	}
	if _, err := ledger.ParseValue(v.String()); err != nil {
		return invalid("%s: %v", field, err)
	}
	return nil
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}
