package infra

// pdf.go — Day-close settlement report rendering using go-pdf/fpdf.
// One A4 page per business day:
//   - Location / business date header
//   - Per-session table (number, cashier, expected, counted, variance)
//   - Totals row with the day's net variance in bold
//   - Interim settlement count footnote
//
// The output file is saved to storagePath/settlement_{location}_{date}.pdf.

import (
	"fmt"
	"os"
	"path/filepath"

	"tillpoint/internal/dto"

	"github.com/go-pdf/fpdf"
)

// GenerateSettlementPDF renders the settlement summary frozen at day close.
// Returns the absolute path to the generated file.
func GenerateSettlementPDF(summary *dto.SettlementSummary, storagePath string) (string, error) {
	if err := os.MkdirAll(storagePath, 0755); err != nil {
		return "", fmt.Errorf("pdf: create storage dir: %w", err)
	}

	fileName := fmt.Sprintf("settlement_%s_%s.pdf", summary.LocationID, summary.BusinessDate)
	filePath := filepath.Join(storagePath, fileName)

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 30

	// ── Header ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(contentW, 9, "Day-Close Settlement Report", "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(contentW, 6, fmt.Sprintf("Location %s", summary.LocationID), "", 1, "C", false, 0, "")
	pdf.CellFormat(contentW, 6, fmt.Sprintf("Business date %s", summary.BusinessDate), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	// ── Session table ────────────────────────────────────────────────────────
	colW := []float64{38, 42, 30, 30, 30}
	headers := []string{"Session", "Cashier", "Expected", "Counted", "Variance"}

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	for i, h := range headers {
		align := "L"
		if i >= 2 {
			align = "R"
		}
		pdf.CellFormat(colW[i], 7, h, "1", 0, align, true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	for _, s := range summary.Sessions {
		pdf.CellFormat(colW[0], 6, s.SessionNumber, "1", 0, "L", false, 0, "")
		pdf.CellFormat(colW[1], 6, s.CashierName, "1", 0, "L", false, 0, "")
		pdf.CellFormat(colW[2], 6, s.Expected.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(colW[3], 6, s.Counted.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(colW[4], 6, s.Variance.StringFixed(2), "1", 1, "R", false, 0, "")
	}

	// ── Totals ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(colW[0]+colW[1], 7, "Totals", "1", 0, "L", false, 0, "")
	pdf.CellFormat(colW[2], 7, summary.Totals.Expected.StringFixed(2), "1", 0, "R", false, 0, "")
	pdf.CellFormat(colW[3], 7, summary.Totals.Counted.StringFixed(2), "1", 0, "R", false, 0, "")
	pdf.CellFormat(colW[4], 7, summary.Totals.Variance.StringFixed(2), "1", 1, "R", false, 0, "")
	pdf.Ln(3)

	pdf.SetFont("Helvetica", "I", 8)
	pdf.CellFormat(contentW, 5,
		fmt.Sprintf("%d session(s) settled, %d interim settlement(s) recorded.",
			len(summary.Sessions), summary.Totals.InterimCount),
		"", 1, "L", false, 0, "")

	if err := pdf.OutputFileAndClose(filePath); err != nil {
		return "", fmt.Errorf("pdf: write %s: %w", filePath, err)
	}
	return filePath, nil
}
