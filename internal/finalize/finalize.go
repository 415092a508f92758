// Package finalize deduplicates validated records and translates their
// segmentation codes into the labels written to the output table.
package finalize

import (
	"fmt"

	"github.com/joseph-ayodele/rol-extractor/constants"
	"github.com/joseph-ayodele/rol-extractor/internal/common"
	"github.com/joseph-ayodele/rol-extractor/internal/entity"
)

// Stats summarizes one Finalize call.
type Stats struct {
	Input      int `json:"input"`
	Duplicates int `json:"duplicates"`
	Rows       int `json:"rows"`
}

type key struct {
	procedure string
	code      constants.Segmentation
}

// Finalize drops every repeat of an exact (procedure, code) pair, keeping the
// first occurrence in input order, and translates each code. A code without
// a translation fails the whole call.
func Finalize(records []entity.ValidatedRecord) ([]entity.OutputRow, Stats, error) {
	st := Stats{Input: len(records)}
	seen := make(map[key]struct{}, len(records))
	rows := make([]entity.OutputRow, 0, len(records))
	for _, r := range records {
		k := key{procedure: r.Procedure, code: r.Segmentation}
		if _, dup := seen[k]; dup {
			st.Duplicates++
			continue
		}
		seen[k] = struct{}{}

		label, ok := constants.Label(r.Segmentation)
		if !ok {
			return nil, st, fmt.Errorf("%w: %q (procedure %q, page %d)",
				common.ErrUntranslatable, r.Segmentation, r.Procedure, common.PageNumber(r.SourcePage))
		}
		rows = append(rows, entity.OutputRow{Procedure: r.Procedure, Segmentation: label})
	}
	st.Rows = len(rows)
	return rows, st, nil
}
