package rules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseValidRules(t *testing.T) {
	data := []byte(`
corrections:
  - from: Artroscopía
    to: Artroscopia
keywords:
  - artroscopia
patterns:
  - name: semicolon-code
    expr: '(?P<procedure>[\p{L} ]+);(?P<code>[A-Z]{2,3})'
`)
	r, err := Parse(data)
	require.NoError(t, err)
	require.Len(t, r.Corrections, 1)
	assert.Equal(t, "Artroscopia", r.Corrections[0].To)
	assert.Equal(t, []string{"artroscopia"}, r.Keywords)
	require.Len(t, r.Patterns, 1)
	assert.Equal(t, "semicolon-code", r.Patterns[0].Name)
}

func TestParseRejectsSchemaViolations(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"unknown key", "extra: true\n"},
		{"correction without to", "corrections:\n  - from: abc\n"},
		{"short keyword", "keywords: [ab]\n"},
		{"bad pattern name", "patterns:\n  - name: Bad Name\n    expr: x\n"},
		{"wrong type", "keywords: 3\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestParseEmptyDocument(t *testing.T) {
	r, err := Parse([]byte(""))
	require.NoError(t, err)
	assert.Empty(t, r.Corrections)
	assert.Empty(t, r.Patterns)
}

func TestLoad(t *testing.T) {
	r, err := Load("")
	require.NoError(t, err)
	assert.NotNil(t, r)

	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("keywords: [biópsia]\n"), 0o644))
	r, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"biópsia"}, r.Keywords)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
