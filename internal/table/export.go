package table

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// ExportXLSX writes rows to a single-sheet workbook using the same column
// descriptors as the HTML table. Columns with neither Key nor Export (action
// columns) are skipped.
func ExportXLSX[T any](w io.Writer, sheet string, columns []Column[T], rows []T) error {
	cols := make([]Column[T], 0, len(columns))
	for _, col := range columns {
		if col.Key != "" || col.Export != nil {
			cols = append(cols, col)
		}
	}

	f := excelize.NewFile()
	defer f.Close()

	if sheet == "" {
		sheet = "Datos"
	}
	index, err := f.NewSheet(sheet)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if sheet != "Sheet1" {
		_ = f.DeleteSheet("Sheet1")
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	for i, col := range cols {
		cellName, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cellName, col.Header); err != nil {
			return fmt.Errorf("write header %q: %w", col.Header, err)
		}
		_ = f.SetCellStyle(sheet, cellName, cellName, headerStyle)

		colName, _ := excelize.ColumnNumberToName(i + 1)
		_ = f.SetColWidth(sheet, colName, colName, 22)
	}

	for r, row := range rows {
		for i, col := range cols {
			cellName, _ := excelize.CoordinatesToCellName(i+1, r+2)
			text := Value(row, col.Key)
			if col.Export != nil {
				text = col.Export(row)
			}
			if err := f.SetCellValue(sheet, cellName, text); err != nil {
				return fmt.Errorf("write cell %s: %w", cellName, err)
			}
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
