package entity

import (
	"github.com/joseph-ayodele/rol-extractor/constants"
)

// Candidate is an unvalidated extraction hit.
type Candidate struct {
	Procedure        string `json:"procedure"`
	SegmentationCode string `json:"segmentation_code"`
	SourcePage       int    `json:"source_page"`
	Pattern          string `json:"pattern"`
}

// ValidatedRecord is a Candidate that passed every validator check.
type ValidatedRecord struct {
	Procedure    string                 `json:"procedure"`
	Segmentation constants.Segmentation `json:"segmentation"`
	SourcePage   int                    `json:"source_page"`
}

// OutputRow is one exported table row; Segmentation holds the translated label.
type OutputRow struct {
	Procedure    string `json:"procedure"`
	Segmentation string `json:"segmentation"`
}

// Values returns the row in header order.
func (r OutputRow) Values() []string {
	return []string{r.Procedure, r.Segmentation}
}
