package constants

import (
	"strings"
)

// Segmentation is the regulatory coverage class tag printed next to each
// procedure in the source document.
type Segmentation string

const (
	SegmentationOD  Segmentation = "OD"
	SegmentationAMB Segmentation = "AMB"
	SegmentationHCO Segmentation = "HCO"
	SegmentationHSO Segmentation = "HSO"
	SegmentationDUT Segmentation = "DUT"
)

var allSegmentations = []Segmentation{
	SegmentationOD,
	SegmentationAMB,
	SegmentationHCO,
	SegmentationHSO,
	SegmentationDUT,
}

// labels is the translation table applied before export.
var labels = map[Segmentation]string{
	SegmentationOD:  "Odontológico",
	SegmentationAMB: "Ambulatorial",
	SegmentationHCO: "Hospitalar com Obstetrícia",
	SegmentationHSO: "Hospitalar sem Obstetrícia",
	SegmentationDUT: "Diretriz de Utilização",
}

func AsStringSlice() []string {
	result := make([]string, len(allSegmentations))
	for i, s := range allSegmentations {
		result[i] = string(s)
	}
	return result
}

// Canonicalize upper-cases and trims input and reports whether it is one of
// the fixed segmentation codes.
func Canonicalize(input string) (Segmentation, bool) {
	normalized := Segmentation(strings.ToUpper(strings.TrimSpace(input)))
	if normalized == "" {
		return "", false
	}
	for _, s := range allSegmentations {
		if normalized == s {
			return s, true
		}
	}
	return normalized, false
}

// Label returns the full-text label for a code.
func Label(s Segmentation) (string, bool) {
	l, ok := labels[s]
	return l, ok
}

// Labels returns every translated label in vocabulary order.
func Labels() []string {
	out := make([]string, len(allSegmentations))
	for i, s := range allSegmentations {
		out[i] = labels[s]
	}
	return out
}
