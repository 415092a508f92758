package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/joseph-ayodele/rol-extractor/constants"
	"github.com/joseph-ayodele/rol-extractor/internal/entity"
)

// utf8BOM lets spreadsheet tools detect the encoding of accented text.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// WriteCSV writes a BOM, the header row and one line per row. A zero
// delimiter means comma.
func WriteCSV(w io.Writer, rows []entity.OutputRow, delimiter rune) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return fmt.Errorf("csv bom: %w", err)
	}
	cw := csv.NewWriter(w)
	if delimiter != 0 {
		cw.Comma = delimiter
	}
	if err := cw.Write(constants.Headers()); err != nil {
		return fmt.Errorf("csv header: %w", err)
	}
	for _, r := range rows {
		if err := cw.Write(r.Values()); err != nil {
			return fmt.Errorf("csv row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("csv flush: %w", err)
	}
	return nil
}
