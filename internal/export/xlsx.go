package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/rol-extractor/constants"
	"github.com/joseph-ayodele/rol-extractor/internal/entity"
)

// SheetName is the worksheet holding the procedure table.
const SheetName = "Procedimentos"

// WriteXLSX writes a single-sheet workbook with the header in row 1.
func WriteXLSX(w io.Writer, rows []entity.OutputRow) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("xlsx sheet: %w", err)
	}

	write := func(col, row int, v string) error {
		cell, err := excelize.CoordinatesToCellName(col, row)
		if err != nil {
			return err
		}
		return f.SetCellValue(SheetName, cell, v)
	}

	for i, h := range constants.Headers() {
		if err := write(i+1, 1, h); err != nil {
			return fmt.Errorf("xlsx header: %w", err)
		}
	}
	for i, r := range rows {
		for j, v := range r.Values() {
			if err := write(j+1, i+2, v); err != nil {
				return fmt.Errorf("xlsx row %d: %w", i+1, err)
			}
		}
	}

	_ = f.SetColWidth(SheetName, "A", "A", 60) // procedure
	_ = f.SetColWidth(SheetName, "B", "B", 28) // segmentation

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}
	return nil
}
