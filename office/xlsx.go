package office

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"pdftools/pdf"
)

const (
	// NoTablesSheet is the only sheet of a workbook written for a PDF without tables.
	NoTablesSheet   = "Tables"
	noTablesHeader  = "info"
	noTablesMessage = "No tables detected"
)

// TableSheetName names the sheet holding the i-th (0-based) table.
func TableSheetName(i int) string {
	return fmt.Sprintf("Table_%d", i+1)
}

// WriteSheets writes each table to its own sheet, rows as-is. Without tables
// the workbook holds a single notice sheet.
func (w *Writer) WriteSheets(tables []pdf.Table, output string) error {
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			w.log.WithError(err).Warn("failed to close workbook")
		}
	}()

	// a new workbook starts with one default sheet; rename it rather than
	// leaving an empty sheet behind
	first := f.GetSheetName(0)

	if len(tables) == 0 {
		if err := f.SetSheetName(first, NoTablesSheet); err != nil {
			return err
		}
		if err := f.SetSheetCol(NoTablesSheet, "A1", &[]any{noTablesHeader, noTablesMessage}); err != nil {
			return err
		}
	}

	for i, table := range tables {
		name := TableSheetName(i)
		if i == 0 {
			if err := f.SetSheetName(first, name); err != nil {
				return err
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("failed to add sheet %s: %w", name, err)
		}

		for r, row := range table.Rows {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			if err != nil {
				return err
			}
			values := make([]any, len(row))
			for c, v := range row {
				values[c] = v
			}
			if err := f.SetSheetRow(name, cell, &values); err != nil {
				return fmt.Errorf("failed to write %s row %d: %w", name, r+1, err)
			}
		}
	}

	f.SetActiveSheet(0)
	if err := f.SaveAs(output); err != nil {
		return fmt.Errorf("failed to save %s: %w", output, err)
	}

	w.log.WithFields(logrus.Fields{"output": output, "tables": len(tables)}).Debug("wrote workbook")
	return nil
}
