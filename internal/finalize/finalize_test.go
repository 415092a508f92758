package finalize

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/rol-extractor/constants"
	"github.com/joseph-ayodele/rol-extractor/internal/common"
	"github.com/joseph-ayodele/rol-extractor/internal/entity"
)

func TestFinalize_SameRowOnTwoPages(t *testing.T) {
	recs := []entity.ValidatedRecord{
		{Procedure: "Exame de punção lombar", Segmentation: constants.SegmentationAMB, SourcePage: 0},
		{Procedure: "Exame de punção lombar", Segmentation: constants.SegmentationAMB, SourcePage: 1},
	}

	rows, st, err := Finalize(recs)
	require.NoError(t, err)
	assert.Equal(t, []entity.OutputRow{{Procedure: "Exame de punção lombar", Segmentation: "Ambulatorial"}}, rows)
	assert.Equal(t, Stats{Input: 2, Duplicates: 1, Rows: 1}, st)
}

func TestFinalize_FirstOccurrenceOrder(t *testing.T) {
	recs := []entity.ValidatedRecord{
		{Procedure: "Mielotomia comissural", Segmentation: constants.SegmentationHSO},
		{Procedure: "Cordotomia percutânea unilateral", Segmentation: constants.SegmentationOD},
		{Procedure: "Mielotomia comissural", Segmentation: constants.SegmentationHSO},
		// same procedure, different code is a distinct row
		{Procedure: "Mielotomia comissural", Segmentation: constants.SegmentationHCO},
		{Procedure: "Terapia imunobiológica", Segmentation: constants.SegmentationDUT},
	}

	rows, st, err := Finalize(recs)
	require.NoError(t, err)
	assert.Equal(t, []entity.OutputRow{
		{Procedure: "Mielotomia comissural", Segmentation: "Hospitalar sem Obstetrícia"},
		{Procedure: "Cordotomia percutânea unilateral", Segmentation: "Odontológico"},
		{Procedure: "Mielotomia comissural", Segmentation: "Hospitalar com Obstetrícia"},
		{Procedure: "Terapia imunobiológica", Segmentation: "Diretriz de Utilização"},
	}, rows)
	assert.Equal(t, 1, st.Duplicates)

	for _, r := range rows {
		assert.Contains(t, constants.Labels(), r.Segmentation)
	}
}

func TestFinalize_Empty(t *testing.T) {
	rows, st, err := Finalize(nil)
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.Equal(t, Stats{}, st)
}

func TestFinalize_UntranslatableFailsLoudly(t *testing.T) {
	_, _, err := Finalize([]entity.ValidatedRecord{
		{Procedure: "Exame de sangue", Segmentation: constants.SegmentationAMB},
		{Procedure: "Cirurgia de catarata", Segmentation: "HOSPITALAR", SourcePage: 7},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrUntranslatable))
	assert.Contains(t, err.Error(), "HOSPITALAR")
}
