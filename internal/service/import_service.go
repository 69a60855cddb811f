package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"medident/internal/dto"
	"medident/internal/ledger"
	"medident/internal/model"
	"medident/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// ImportColumns is the CSV header accepted by Import; Export writes it
// prefixed with id.
var ImportColumns = []string{"name", "category", "sku", "quantity", "minimumQuantity", "unit", "location", "expiryDate", "notes"}

// ImportService loads and dumps the inventory as CSV.
type ImportService interface {
	Import(ctx context.Context, r io.Reader, userID *uuid.UUID) (*dto.ImportResponse, error)
	Export(ctx context.Context, w io.Writer) error
}

type importService struct {
	items      ItemService
	itemRepo   repository.ItemRepository
	categories repository.CategoryRepository
	reports    repository.ReportRepository
}

func NewImportService(items ItemService, itemRepo repository.ItemRepository, categories repository.CategoryRepository, reports repository.ReportRepository) ImportService {
	return &importService{items: items, itemRepo: itemRepo, categories: categories, reports: reports}
}

type importRow struct {
	line int
	get  func(col string) string
}

// Import processes rows independently: a bad row is reported and skipped,
// it never aborts the rest of the file. Known SKUs only have their quantity
// set, through the ledger, so each change is audited as csv_import.
func (s *importService) Import(ctx context.Context, r io.Reader, userID *uuid.UUID) (*dto.ImportResponse, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, invalid("CSV file is empty")
	}
	if err != nil {
		return nil, invalid("could not read CSV header: %v", err)
	}
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	if _, ok := index["name"]; !ok {
		return nil, invalid("CSV header must contain a name column")
	}

	resp := &dto.ImportResponse{Errors: []dto.ImportRowError{}}
	categoryIDs := map[string]string{}

	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			line := 0
			if errors.As(err, &pe) {
				line = pe.StartLine
			}
			resp.FailedItems++
			resp.Errors = append(resp.Errors, dto.ImportRowError{Line: line, Error: err.Error()})
			continue
		}
		line, _ := cr.FieldPos(0)
		if blank(record) {
			continue
		}
		row := importRow{line: line, get: func(col string) string {
			i, ok := index[strings.ToLower(col)]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}}

		created, err := s.importRow(ctx, row, categoryIDs, userID)
		switch {
		case err != nil:
			resp.FailedItems++
			resp.Errors = append(resp.Errors, dto.ImportRowError{Line: line, SKU: row.get("sku"), Error: err.Error()})
		case created:
			resp.ImportedItems++
		default:
			resp.UpdatedItems++
		}
	}

	resp.Message = fmt.Sprintf("Import finished: %d created, %d updated, %d failed",
		resp.ImportedItems, resp.UpdatedItems, resp.FailedItems)
	log.Info().
		Int("imported", resp.ImportedItems).
		Int("updated", resp.UpdatedItems).
		Int("failed", resp.FailedItems).
		Msg("csv import finished")
	return resp, nil
}

// importRow reports created=true for new items. A blank or unchanged quantity
// on a known SKU counts as updated without touching the ledger; only new items
// default a blank quantity to zero.
func (s *importService) importRow(ctx context.Context, row importRow, categoryIDs map[string]string, userID *uuid.UUID) (created bool, err error) {
	rawQuantity := row.get("quantity")
	quantity, err := parseOptionalQuantity(rawQuantity)
	if err != nil {
		return false, err
	}

	if sku := row.get("sku"); sku != "" {
		existing, err := s.itemRepo.FindBySKU(ctx, sku)
		switch {
		case err == nil:
			if rawQuantity == "" || existing.Quantity.Equal(quantity) {
				return false, nil
			}
			_, err = s.items.Adjust(ctx, ledger.Adjustment{
				ItemID: existing.ID,
				Value:  quantity,
				Mode:   ledger.Absolute,
				Metadata: ledger.Metadata{
					Reason:     fmt.Sprintf("CSV import line %d", row.line),
					ActionType: model.ActionCSVImport,
					UserID:     userID,
				},
			})
			return false, err
		case !repository.IsNotFound(err):
			return false, err
		}
	}

	minimum, err := parseOptionalQuantity(row.get("minimumQuantity"))
	if err != nil {
		return false, fmt.Errorf("minimumQuantity: %w", err)
	}
	req := dto.CreateItemRequest{
		Name:            row.get("name"),
		SKU:             row.get("sku"),
		Quantity:        quantity,
		MinimumQuantity: minimum,
		Unit:            row.get("unit"),
		Location:        optional(row.get("location")),
		Notes:           optional(row.get("notes")),
	}
	if raw := row.get("expiryDate"); raw != "" {
		d, err := dto.ParseDate(raw)
		if err != nil {
			return false, fmt.Errorf("expiryDate %q is not a date", raw)
		}
		req.ExpiryDate = &d
	}
	if name := row.get("category"); name != "" {
		id, err := s.categoryID(ctx, name, categoryIDs)
		if err != nil {
			return false, err
		}
		req.CategoryID = &id
	}

	if _, err := s.items.Create(ctx, req, userID); err != nil {
		return false, err
	}
	return true, nil
}

// categoryID resolves a category by name, creating it when missing.
func (s *importService) categoryID(ctx context.Context, name string, seen map[string]string) (string, error) {
	key := strings.ToLower(name)
	if id, ok := seen[key]; ok {
		return id, nil
	}
	c, err := s.categories.FindByName(ctx, name)
	if repository.IsNotFound(err) {
		c = &model.Category{Name: name}
		err = s.categories.Create(ctx, c)
	}
	if err != nil {
		return "", fmt.Errorf("category %q: %w", name, err)
	}
	seen[key] = c.ID.String()
	return seen[key], nil
}

func (s *importService) Export(ctx context.Context, w io.Writer) error {
	rows, err := s.reports.ExportRows(ctx)
	if err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{"id"}, ImportColumns...)); err != nil {
		return err
	}
	for _, r := range rows {
		expiry := ""
		if r.ExpiryDate != nil {
			expiry = r.ExpiryDate.Format(dto.DateLayout)
		}
		record := []string{
			r.ID.String(),
			r.Name,
			deref(r.Category),
			r.SKU,
			r.Quantity.StringFixed(2),
			r.MinimumQuantity.StringFixed(2),
			r.Unit,
			deref(r.Location),
			expiry,
			deref(r.Notes),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func parseOptionalQuantity(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	v, err := ledger.ParseValue(raw)
	if err != nil {
		return decimal.Zero, err
	}
	if v.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: %s is negative", ledger.ErrInvalidInput, raw)
	}
	return v, nil
}

func blank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
