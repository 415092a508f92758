package constants

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		in   string
		want Segmentation
		ok   bool
	}{
		{"OD", SegmentationOD, true},
		{" amb ", SegmentationAMB, true},
		{"hco", SegmentationHCO, true},
		{"DUT", SegmentationDUT, true},
		{"ABC", "ABC", false},
		{"Hospitalar", "HOSPITALAR", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := Canonicalize(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
	}
}

func TestLabelCoversVocabulary(t *testing.T) {
	for _, code := range AsStringSlice() {
		l, ok := Label(Segmentation(code))
		assert.True(t, ok, code)
		assert.NotEmpty(t, l)
	}
	_, ok := Label("XYZ")
	assert.False(t, ok)
	assert.Equal(t, []string{
		"Odontológico",
		"Ambulatorial",
		"Hospitalar com Obstetrícia",
		"Hospitalar sem Obstetrícia",
		"Diretriz de Utilização",
	}, Labels())
}

func TestFormatForPath(t *testing.T) {
	assert.Equal(t, CSV, FormatForPath("out/Rol.csv"))
	assert.Equal(t, XLSX, FormatForPath("Rol.XLSX"))
	assert.Equal(t, CSV, FormatForPath("Rol"))
}
