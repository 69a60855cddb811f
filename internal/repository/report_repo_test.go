package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newReportRepo(t *testing.T) (ReportRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewReportRepository(sqlx.NewDb(db, "sqlmock")), mock
}

func TestReportRepo_LowStock(t *testing.T) {
	repo, mock := newReportRepo(t)
	id := uuid.New()
	cat := "Supplies"

	mock.ExpectQuery("i.quantity <= i.minimum_quantity").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "sku", "quantity", "minimum_quantity", "unit", "category"}).
			AddRow(id.String(), "Gloves", "SUP-001", "2.00", "10.00", "boxes", cat))

	rows, err := repo.LowStock(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, id, rows[0].ID)
	assert.True(t, rows[0].Quantity.Equal(decimal.NewFromInt(2)))
	assert.True(t, rows[0].MinimumQuantity.Equal(decimal.NewFromInt(10)))
	require.NotNil(t, rows[0].Category)
	assert.Equal(t, cat, *rows[0].Category)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepo_LowStock_Empty(t *testing.T) {
	repo, mock := newReportRepo(t)
	mock.ExpectQuery("inventory_items").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "sku", "quantity", "minimum_quantity", "unit", "category"}))

	rows, err := repo.LowStock(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, rows, "empty result must encode as [] not null")
	assert.Empty(t, rows)
}

func TestReportRepo_Expiring_ItemAndLotRows(t *testing.T) {
	repo, mock := newReportRepo(t)
	itemID, lotID := uuid.New(), uuid.New()
	cutoff := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
	lotNumber := "L-42"

	cols := []string{"item_id", "name", "sku", "unit", "category", "lot_id", "lot_number", "expiry_date", "quantity"}
	mock.ExpectQuery("UNION ALL").
		WithArgs(cutoff).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(itemID.String(), "Lidocaine", "MED-001", "vials", nil, nil, nil, time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC), "12.00").
			AddRow(itemID.String(), "Lidocaine", "MED-001", "vials", nil, lotID.String(), lotNumber, time.Date(2026, 1, 20, 0, 0, 0, 0, time.UTC), "4.00"))

	rows, err := repo.Expiring(context.Background(), cutoff)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Nil(t, rows[0].LotID)
	require.NotNil(t, rows[1].LotID)
	assert.Equal(t, lotID, *rows[1].LotID)
	assert.Equal(t, lotNumber, *rows[1].LotNumber)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepo_Expiring_Error(t *testing.T) {
	repo, mock := newReportRepo(t)
	errDB := errors.New("connection reset")
	mock.ExpectQuery("UNION ALL").WillReturnError(errDB)

	_, err := repo.Expiring(context.Background(), time.Now())
	assert.ErrorIs(t, err, errDB)
}

func TestReportRepo_StockSummary(t *testing.T) {
	repo, mock := newReportRepo(t)
	mock.ExpectQuery("GROUP BY").
		WillReturnRows(sqlmock.NewRows([]string{"category", "item_count", "total_quantity", "low_stock_count"}).
			AddRow("PPE", int64(3), "120.50", int64(1)).
			AddRow("Uncategorized", int64(1), "0", int64(1)))

	rows, err := repo.StockSummary(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "PPE", rows[0].Category)
	assert.Equal(t, int64(3), rows[0].ItemCount)
	assert.True(t, rows[0].TotalQuantity.Equal(decimal.RequireFromString("120.5")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSortColumn(t *testing.T) {
	col, ok := SortColumn("minimumQuantity")
	assert.True(t, ok)
	assert.Equal(t, "minimum_quantity", col)

	_, ok = SortColumn("quantity; DROP TABLE users")
	assert.False(t, ok)
}
