package repository

import (
	"context"
	"time"

	"medident/internal/dto"

	"github.com/jmoiron/sqlx"
)

// ReportRepository runs the read-only reporting queries over sqlx. It never
// takes row locks and may observe a quantity that is mid-adjustment elsewhere;
// results reflect the last committed state.
type ReportRepository interface {
	LowStock(ctx context.Context) ([]dto.LowStockRow, error)
	Expiring(ctx context.Context, cutoff time.Time) ([]dto.ExpiringRow, error)
	ExportRows(ctx context.Context) ([]dto.ExportRow, error)
	StockSummary(ctx context.Context) ([]dto.StockSummaryRow, error)
}

type reportRepo struct{ db *sqlx.DB }

func NewReportRepository(db *sqlx.DB) ReportRepository { return &reportRepo{db: db} }

const lowStockQuery = `
SELECT i.id, i.name, i.sku, i.quantity, i.minimum_quantity, i.unit, c.name AS category
FROM inventory_items i
LEFT JOIN inventory_categories c ON c.id = i.category_id
WHERE i.is_active = true AND i.quantity <= i.minimum_quantity
ORDER BY i.quantity ASC, i.name ASC`

func (r *reportRepo) LowStock(ctx context.Context) ([]dto.LowStockRow, error) {
	rows := []dto.LowStockRow{}
	err := r.db.SelectContext(ctx, &rows, lowStockQuery)
	return rows, err
}

// Item-level expiry dates and lot-level expiry dates are reported as
// separate rows; an item with both appears more than once.
const expiringQuery = `
SELECT i.id AS item_id, i.name, i.sku, i.unit, c.name AS category,
       NULL::uuid AS lot_id, NULL::text AS lot_number,
       i.expiry_date, i.quantity
FROM inventory_items i
LEFT JOIN inventory_categories c ON c.id = i.category_id
WHERE i.is_active = true AND i.expiry_date IS NOT NULL AND i.expiry_date <= $1
UNION ALL
SELECT i.id AS item_id, i.name, i.sku, i.unit, c.name AS category,
       l.id AS lot_id, l.lot_number,
       l.expiry_date, l.quantity
FROM inventory_lots l
JOIN inventory_items i ON i.id = l.inventory_item_id
LEFT JOIN inventory_categories c ON c.id = i.category_id
WHERE i.is_active = true AND l.expiry_date IS NOT NULL AND l.expiry_date <= $1
ORDER BY expiry_date ASC, name ASC`

func (r *reportRepo) Expiring(ctx context.Context, cutoff time.Time) ([]dto.ExpiringRow, error) {
	rows := []dto.ExpiringRow{}
	err := r.db.SelectContext(ctx, &rows, expiringQuery, cutoff)
	return rows, err
}

const exportQuery = `
SELECT i.id, i.name, c.name AS category, i.sku, i.quantity, i.minimum_quantity,
       i.unit, i.location, i.expiry_date, i.notes
FROM inventory_items i
LEFT JOIN inventory_categories c ON c.id = i.category_id
WHERE i.is_active = true
ORDER BY i.name ASC, i.id ASC`

func (r *reportRepo) ExportRows(ctx context.Context) ([]dto.ExportRow, error) {
	rows := []dto.ExportRow{}
	err := r.db.SelectContext(ctx, &rows, exportQuery)
	return rows, err
}

const stockSummaryQuery = `
SELECT COALESCE(c.name, 'Uncategorized') AS category,
       COUNT(*) AS item_count,
       COALESCE(SUM(i.quantity), 0) AS total_quantity,
       COUNT(*) FILTER (WHERE i.quantity <= i.minimum_quantity) AS low_stock_count
FROM inventory_items i
LEFT JOIN inventory_categories c ON c.id = i.category_id
WHERE i.is_active = true
GROUP BY COALESCE(c.name, 'Uncategorized')
ORDER BY category ASC`

func (r *reportRepo) StockSummary(ctx context.Context) ([]dto.StockSummaryRow, error) {
	rows := []dto.StockSummaryRow{}
	err := r.db.SelectContext(ctx, &rows, stockSummaryQuery)
	return rows, err
}
