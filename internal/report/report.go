// Package report renders the cards added by a run.
package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/Granipouss/mtg-collection-pipe/internal/models"
	"github.com/xuri/excelize/v2"
)

const SheetName = "Added"

var sheetHeader = []interface{}{"Count", "Name", "Edition", "Condition", "Language", "Image"}

// Total is the number of cards across rows
func Total(rows []models.ImportRow) int {
	total := 0
	for _, row := range rows {
		total += row.Count
	}
	return total
}

// PrintSummary writes the plain-text summary printed at the end of a run
func PrintSummary(w io.Writer, rows []models.ImportRow) error {
	if _, err := fmt.Fprintf(w, "\n%d Added\n", Total(rows)); err != nil {
		return err
	}
	for _, row := range rows {
		if _, err := fmt.Fprintf(w, "   + %2d %s\n", row.Count, row.Name); err != nil {
			return err
		}
	}
	return nil
}

// WriteXLSX saves the run as a spreadsheet with a row per card and a
// totals line.
func WriteXLSX(path string, summary models.RunSummary) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	if err := f.SetSheetRow(SheetName, "A1", &sheetHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i, row := range summary.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []interface{}{row.Count, row.Name, row.Edition, row.Condition, row.Language, row.Image}
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	totalRow := len(summary.Rows) + 2
	if err := f.SetCellValue(SheetName, fmt.Sprintf("A%d", totalRow), summary.Total); err != nil {
		return fmt.Errorf("failed to write total: %w", err)
	}
	if err := f.SetCellValue(SheetName, fmt.Sprintf("B%d", totalRow), "Added"); err != nil {
		return fmt.Errorf("failed to write total: %w", err)
	}

	props := &excelize.DocProperties{
		Title:       "Run " + summary.RunID,
		Description: fmt.Sprintf("%s imported at %s", summary.Folder, summary.FinishedAt.UTC().Format(time.RFC3339)),
		Creator:     "mtg-collection-pipe",
	}
	if err := f.SetDocProps(props); err != nil {
		return fmt.Errorf("failed to set properties: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}
