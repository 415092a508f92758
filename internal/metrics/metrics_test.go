package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_Pages(t *testing.T) {
	m := NewRecorder()

	m.StartPage()
	m.StartPage()
	assert.Equal(t, 2.0, testutil.ToFloat64(m.pagesInFlight))

	m.FinishPage("OK", 120*time.Millisecond)
	m.FinishPage("OCR_FAILED", time.Second)
	m.SkipPage("SKIPPED")

	assert.Equal(t, 0.0, testutil.ToFloat64(m.pagesInFlight))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.pagesTotal.WithLabelValues("OK")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.pagesTotal.WithLabelValues("OCR_FAILED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.pagesTotal.WithLabelValues("SKIPPED")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.pageDuration))
}

func TestRecorder_Extraction(t *testing.T) {
	m := NewRecorder()

	m.ObservePattern("known-code", 3, 2)
	m.ObservePattern("known-code", 1, 1)
	m.ObserveRejections("keyword", 4)
	m.ObserveRejections("segmentation", 0)
	m.ObserveFinalize(2, 7)

	assert.Equal(t, 4.0, testutil.ToFloat64(m.patternMatches.WithLabelValues("known-code")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.candidates.WithLabelValues("known-code")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.rejections.WithLabelValues("keyword")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.rejections), "zero counts create no series")
	assert.Equal(t, 2.0, testutil.ToFloat64(m.duplicates))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.outputRows))
}

func TestRecorder_OCR(t *testing.T) {
	m := NewRecorder()

	m.ObserveOCR("fake", false, time.Millisecond, nil)
	m.ObserveOCR("fake", true, time.Millisecond, nil)
	m.ObserveOCR("fake", false, time.Millisecond, errors.New("boom"))

	for _, result := range []string{"hit", "miss", "error"} {
		assert.Equal(t, 1.0, testutil.ToFloat64(m.ocrRequests.WithLabelValues("fake", result)), result)
	}
}

func TestRecorder_WriteTextfile(t *testing.T) {
	m := NewRecorder()
	m.FinishPage("OK", time.Second)

	path := filepath.Join(t.TempDir(), "rolextract.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `rolextract_pipeline_pages_total{status="OK"} 1`))
}

func TestRecorder_Nil(t *testing.T) {
	var m *Recorder
	m.StartPage()
	m.FinishPage("OK", time.Second)
	m.ObservePattern("p", 1, 1)
	m.ObserveOCR("fake", true, 0, nil)
	assert.NoError(t, m.WriteTextfile(filepath.Join(t.TempDir(), "x.prom")))
	assert.Nil(t, m.Registry())
}
