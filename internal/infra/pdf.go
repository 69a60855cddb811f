package infra

// pdf.go renders the stock report with go-pdf/fpdf: an A4 page with a
// per-category summary, the low-stock list and the expiring list.

import (
	"bytes"
	"fmt"
	"time"

	"medident/internal/dto"

	"github.com/go-pdf/fpdf"
)

// StockReport is everything printed on the stock report.
type StockReport struct {
	Title       string
	GeneratedAt time.Time
	Summary     []dto.StockSummaryRow
	LowStock    []dto.LowStockItem
	Expiring    []dto.ExpiringItem
}

// GenerateStockReportPDF renders the report and returns the PDF bytes.
func GenerateStockReportPDF(r StockReport) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(12, 12, 12)
	pdf.SetAutoPageBreak(true, 12)
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 24

	// ── Header ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(contentW, 9, r.Title, "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(contentW, 5, "Generated "+r.GeneratedAt.Format("2006-01-02 15:04 MST"), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	// ── Summary by category ──────────────────────────────────────────────────
	section(pdf, contentW, "Stock by category")
	widths := []float64{contentW * 0.4, contentW * 0.2, contentW * 0.2, contentW * 0.2}
	header(pdf, widths, "Category", "Items", "Total qty", "Low stock")
	pdf.SetFont("Helvetica", "", 9)
	for _, s := range r.Summary {
		pdf.CellFormat(widths[0], 6, truncate(s.Category, 40), "", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 6, fmt.Sprintf("%d", s.ItemCount), "", 0, "R", false, 0, "")
		pdf.CellFormat(widths[2], 6, s.TotalQuantity.StringFixed(2), "", 0, "R", false, 0, "")
		pdf.CellFormat(widths[3], 6, fmt.Sprintf("%d", s.LowStockCount), "", 1, "R", false, 0, "")
	}
	pdf.Ln(4)

	// ── Low stock ────────────────────────────────────────────────────────────
	section(pdf, contentW, fmt.Sprintf("Low stock (%d)", len(r.LowStock)))
	widths = []float64{contentW * 0.4, contentW * 0.2, contentW * 0.2, contentW * 0.2}
	header(pdf, widths, "Item", "SKU", "Quantity", "Minimum")
	pdf.SetFont("Helvetica", "", 9)
	for _, it := range r.LowStock {
		pdf.CellFormat(widths[0], 6, truncate(it.Name, 40), "", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 6, it.SKU, "", 0, "L", false, 0, "")
		pdf.CellFormat(widths[2], 6, it.Quantity.StringFixed(2)+" "+it.Unit, "", 0, "R", false, 0, "")
		pdf.CellFormat(widths[3], 6, it.MinimumQuantity.StringFixed(2), "", 1, "R", false, 0, "")
	}
	pdf.Ln(4)

	// ── Expiring ─────────────────────────────────────────────────────────────
	section(pdf, contentW, fmt.Sprintf("Expiring (%d)", len(r.Expiring)))
	widths = []float64{contentW * 0.35, contentW * 0.2, contentW * 0.15, contentW * 0.15, contentW * 0.15}
	header(pdf, widths, "Item", "Lot", "Expires", "Days", "Quantity")
	pdf.SetFont("Helvetica", "", 9)
	for _, it := range r.Expiring {
		lot := "-"
		if it.LotNumber != nil {
			lot = *it.LotNumber
		}
		pdf.CellFormat(widths[0], 6, truncate(it.Name, 34), "", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 6, truncate(lot, 18), "", 0, "L", false, 0, "")
		pdf.CellFormat(widths[2], 6, it.ExpiryDate.Format(dto.DateLayout), "", 0, "L", false, 0, "")
		pdf.CellFormat(widths[3], 6, fmt.Sprintf("%d", it.DaysUntilExpiry), "", 0, "R", false, 0, "")
		pdf.CellFormat(widths[4], 6, it.Quantity.StringFixed(2), "", 1, "R", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf: render: %w", err)
	}
	return buf.Bytes(), nil
}

func section(pdf *fpdf.Fpdf, w float64, title string) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(w, 8, title, "", 1, "L", false, 0, "")
}

func header(pdf *fpdf.Fpdf, widths []float64, cols ...string) {
	pdf.SetFont("Helvetica", "B", 9)
	for i, c := range cols {
		ln := 0
		if i == len(cols)-1 {
			ln = 1
		}
		align := "L"
		if i > 0 {
			align = "R"
		}
		pdf.CellFormat(widths[i], 6, c, "B", ln, align, false, 0, "")
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "..."
}
