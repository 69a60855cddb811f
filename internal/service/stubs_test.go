package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"medident/internal/cache"
	"medident/internal/dto"
	"medident/internal/model"
	"medident/internal/repository"
	"medident/internal/worker"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ── In-memory ItemRepository stub ────────────────────────────────────────────

type stubItemRepo struct {
	items map[uuid.UUID]*model.InventoryItem
	last  repository.ItemFilter
	// afterFind runs once after FindByID has copied the row, to interleave a
	// concurrent write between a read and whatever the caller does next.
	afterFind func(id uuid.UUID)
}

var _ repository.ItemRepository = (*stubItemRepo)(nil)

func newStubItemRepo() *stubItemRepo {
	return &stubItemRepo{items: make(map[uuid.UUID]*model.InventoryItem)}
}

func (r *stubItemRepo) put(it model.InventoryItem) *model.InventoryItem {
	if it.ID == uuid.Nil {
		it.ID = uuid.New()
	}
	r.items[it.ID] = &it
	return &it
}

func (r *stubItemRepo) Create(_ context.Context, it *model.InventoryItem) error {
	for _, existing := range r.items {
		if existing.SKU == it.SKU {
			return repository.ErrDuplicate
		}
	}
	if it.ID == uuid.Nil {
		it.ID = uuid.New()
	}
	cp := *it
	r.items[it.ID] = &cp
	return nil
}

func (r *stubItemRepo) FindByID(_ context.Context, id uuid.UUID) (*model.InventoryItem, error) {
	it, ok := r.items[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *it
	if hook := r.afterFind; hook != nil {
		r.afterFind = nil
		hook(id)
	}
	return &cp, nil
}

func (r *stubItemRepo) FindBySKU(_ context.Context, sku string) (*model.InventoryItem, error) {
	for _, it := range r.items {
		if it.SKU == sku {
			cp := *it
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubItemRepo) List(_ context.Context, f repository.ItemFilter) ([]model.InventoryItem, int64, error) {
	r.last = f
	var out []model.InventoryItem
	for _, it := range r.items {
		if !f.IncludeInactive && !it.IsActive {
			continue
		}
		out = append(out, *it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, int64(len(out)), nil
}

func (r *stubItemRepo) UpdateDetails(_ context.Context, it *model.InventoryItem) error {
	existing, ok := r.items[it.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	qty := existing.Quantity
	cp := *it
	cp.Quantity = qty
	r.items[it.ID] = &cp
	return nil
}

func (r *stubItemRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := r.items[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *stubItemRepo) CountSKUPrefix(_ context.Context, prefix string) (int64, error) {
	var n int64
	for _, it := range r.items {
		if strings.HasPrefix(it.SKU, prefix) {
			n++
		}
	}
	return n, nil
}

func (r *stubItemRepo) SKUExists(_ context.Context, sku string) (bool, error) {
	_, err := r.FindBySKU(context.Background(), sku)
	return err == nil, nil
}

// ── In-memory CategoryRepository stub ────────────────────────────────────────

type stubCategoryRepo struct {
	cats map[uuid.UUID]*model.Category
}

var _ repository.CategoryRepository = (*stubCategoryRepo)(nil)

func newStubCategoryRepo() *stubCategoryRepo {
	return &stubCategoryRepo{cats: make(map[uuid.UUID]*model.Category)}
}

func (r *stubCategoryRepo) Create(_ context.Context, c *model.Category) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	cp := *c
	r.cats[c.ID] = &cp
	return nil
}

func (r *stubCategoryRepo) List(_ context.Context) ([]model.Category, error) {
	var out []model.Category
	for _, c := range r.cats {
		out = append(out, *c)
	}
	return out, nil
}

func (r *stubCategoryRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Category, error) {
	c, ok := r.cats[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *stubCategoryRepo) FindByName(_ context.Context, name string) (*model.Category, error) {
	for _, c := range r.cats {
		if strings.EqualFold(c.Name, name) {
			cp := *c
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubCategoryRepo) Update(_ context.Context, c *model.Category) error {
	cp := *c
	r.cats[c.ID] = &cp
	return nil
}

func (r *stubCategoryRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := r.cats[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.cats, id)
	return nil
}

// ── In-memory LotRepository stub ─────────────────────────────────────────────

type stubLotRepo struct {
	lots map[uuid.UUID]*model.Lot
}

var _ repository.LotRepository = (*stubLotRepo)(nil)

func newStubLotRepo() *stubLotRepo { return &stubLotRepo{lots: make(map[uuid.UUID]*model.Lot)} }

func (r *stubLotRepo) Create(_ context.Context, l *model.Lot) error {
	for _, existing := range r.lots {
		if existing.InventoryItemID == l.InventoryItemID && existing.LotNumber == l.LotNumber {
			return repository.ErrDuplicate
		}
	}
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	cp := *l
	r.lots[l.ID] = &cp
	return nil
}

func (r *stubLotRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Lot, error) {
	l, ok := r.lots[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *l
	return &cp, nil
}

func (r *stubLotRepo) ListByItem(_ context.Context, itemID uuid.UUID) ([]model.Lot, error) {
	var out []model.Lot
	for _, l := range r.lots {
		if l.InventoryItemID == itemID {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (r *stubLotRepo) Update(_ context.Context, l *model.Lot) error {
	cp := *l
	r.lots[l.ID] = &cp
	return nil
}

func (r *stubLotRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := r.lots[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.lots, id)
	return nil
}

// ── In-memory UserRepository stub ────────────────────────────────────────────

type stubUserRepo struct {
	users map[uuid.UUID]*model.User
}

var _ repository.UserRepository = (*stubUserRepo)(nil)

func newStubUserRepo() *stubUserRepo { return &stubUserRepo{users: make(map[uuid.UUID]*model.User)} }

func (r *stubUserRepo) Create(_ context.Context, u *model.User) error {
	for _, existing := range r.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return repository.ErrDuplicate
		}
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *stubUserRepo) FindByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubUserRepo) FindByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *stubUserRepo) List(_ context.Context) ([]model.User, error) {
	var out []model.User
	for _, u := range r.users {
		out = append(out, *u)
	}
	return out, nil
}

func (r *stubUserRepo) Update(_ context.Context, u *model.User) error {
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *stubUserRepo) Deactivate(_ context.Context, id uuid.UUID) error {
	u, ok := r.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.IsActive = false
	return nil
}

// ── In-memory QRCodeRepository stub ──────────────────────────────────────────

type stubQRRepo struct {
	codes map[uuid.UUID]*model.QRCode
}

var _ repository.QRCodeRepository = (*stubQRRepo)(nil)

func newStubQRRepo() *stubQRRepo { return &stubQRRepo{codes: make(map[uuid.UUID]*model.QRCode)} }

func (r *stubQRRepo) Create(_ context.Context, q *model.QRCode) error {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	cp := *q
	r.codes[q.ID] = &cp
	return nil
}

func (r *stubQRRepo) FindByCode(_ context.Context, code string) (*model.QRCode, error) {
	for _, q := range r.codes {
		if q.Code == code && q.IsActive {
			cp := *q
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubQRRepo) ListByItem(_ context.Context, itemID uuid.UUID) ([]model.QRCode, error) {
	var out []model.QRCode
	for _, q := range r.codes {
		if q.InventoryItemID == itemID {
			out = append(out, *q)
		}
	}
	return out, nil
}

func (r *stubQRRepo) Deactivate(_ context.Context, id uuid.UUID) error {
	if q, ok := r.codes[id]; ok {
		q.IsActive = false
	}
	return nil
}

// ── AuditLogRepository stub ──────────────────────────────────────────────────

type stubAuditRepo struct {
	entries []model.AuditLogEntry
	last    repository.AuditLogFilter
}

var _ repository.AuditLogRepository = (*stubAuditRepo)(nil)

func (r *stubAuditRepo) List(_ context.Context, f repository.AuditLogFilter) ([]model.AuditLogEntry, int64, error) {
	r.last = f
	return r.entries, int64(len(r.entries)), nil
}

// ── ReportRepository stub ────────────────────────────────────────────────────

type stubReportRepo struct {
	lowStock   []dto.LowStockRow
	expiring   []dto.ExpiringRow
	export     []dto.ExportRow
	summary    []dto.StockSummaryRow
	lastCutoff time.Time
	err        error
}

var _ repository.ReportRepository = (*stubReportRepo)(nil)

func (r *stubReportRepo) LowStock(context.Context) ([]dto.LowStockRow, error) {
	return r.lowStock, r.err
}

func (r *stubReportRepo) Expiring(_ context.Context, cutoff time.Time) ([]dto.ExpiringRow, error) {
	r.lastCutoff = cutoff
	return r.expiring, r.err
}

func (r *stubReportRepo) ExportRows(context.Context) ([]dto.ExportRow, error) {
	return r.export, r.err
}

func (r *stubReportRepo) StockSummary(context.Context) ([]dto.StockSummaryRow, error) {
	return r.summary, r.err
}

// ── Cache, notifier, token and email stubs ───────────────────────────────────

// spyCache is an in-memory ItemCache with the same generation rule as the
// Redis one: Set is dropped when an Invalidate happened after the Get miss.
type spyCache struct {
	entries     map[uuid.UUID]dto.ItemResponse
	gens        map[uuid.UUID]int64
	invalidated []uuid.UUID
	staleSets   int
}

var _ cache.ItemCache = (*spyCache)(nil)

func (c *spyCache) Get(_ context.Context, id uuid.UUID) (*dto.ItemResponse, int64, bool) {
	if e, ok := c.entries[id]; ok {
		return &e, c.gens[id], true
	}
	return nil, c.gens[id], false
}

func (c *spyCache) Set(_ context.Context, item *dto.ItemResponse, gen int64) {
	id := uuid.MustParse(item.ID)
	if c.gens[id] != gen {
		c.staleSets++
		return
	}
	if c.entries == nil {
		c.entries = make(map[uuid.UUID]dto.ItemResponse)
	}
	c.entries[id] = *item
}

func (c *spyCache) Invalidate(_ context.Context, id uuid.UUID) {
	if c.gens == nil {
		c.gens = make(map[uuid.UUID]int64)
	}
	c.gens[id]++
	delete(c.entries, id)
	c.invalidated = append(c.invalidated, id)
}

type spyNotifier struct {
	mu     sync.Mutex
	alerts []worker.LowStockAlertPayload
}

func (n *spyNotifier) EnqueueLowStockAlert(_ context.Context, p worker.LowStockAlertPayload) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, p)
	return nil
}

type memTokens struct {
	tokens map[string]uuid.UUID
}

var _ cache.ResetTokenStore = (*memTokens)(nil)

func (m *memTokens) Save(_ context.Context, token string, userID uuid.UUID, _ time.Duration) error {
	m.tokens[token] = userID
	return nil
}

func (m *memTokens) Consume(_ context.Context, token string) (uuid.UUID, error) {
	id, ok := m.tokens[token]
	if !ok {
		return uuid.Nil, cache.ErrTokenNotFound
	}
	delete(m.tokens, token)
	return id, nil
}

type spyEmails struct {
	jobs []worker.EmailJobPayload
}

func (e *spyEmails) EnqueueEmail(_ context.Context, p worker.EmailJobPayload) error {
	e.jobs = append(e.jobs, p)
	return nil
}
