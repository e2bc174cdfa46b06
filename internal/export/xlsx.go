package export

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// XLSXWriter implements SheetWriter by writing a local workbook.
type XLSXWriter struct {
	path string
}

// NewXLSXWriter creates a writer that overwrites the workbook at path on every export.
func NewXLSXWriter(path string) *XLSXWriter {
	return &XLSXWriter{path: path}
}

// Write replaces the workbook with one sheet per table.
func (w *XLSXWriter) Write(_ context.Context, r Report) error {
	f := excelize.NewFile()
	defer f.Close()

	for i, t := range buildTables(r) {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", t.name); err != nil {
				return fmt.Errorf("renaming sheet to %s: %w", t.name, err)
			}
		} else if _, err := f.NewSheet(t.name); err != nil {
			return fmt.Errorf("creating sheet %s: %w", t.name, err)
		}

		for idx, row := range t.rows {
			cell, err := excelize.CoordinatesToCellName(1, idx+1)
			if err != nil {
				return fmt.Errorf("resolving cell for row %d: %w", idx+1, err)
			}
			if err := f.SetSheetRow(t.name, cell, &row); err != nil {
				return fmt.Errorf("writing %s row %d: %w", t.name, idx+1, err)
			}
		}
	}

	if err := f.SaveAs(w.path); err != nil {
		return fmt.Errorf("saving workbook %s: %w", w.path, err)
	}
	return nil
}
