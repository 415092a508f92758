package constants

import (
	"path/filepath"
	"strings"
)

// Output column headers, in order.
const (
	HeaderProcedure    = "Procedimento"
	HeaderSegmentation = "Segmentação"
)

// Headers returns the output table header row.
func Headers() []string {
	return []string{HeaderProcedure, HeaderSegmentation}
}

// Output formats understood by the exporter.
const (
	CSV  = "csv"
	XLSX = "xlsx"
)

// Rendered page image formats.
const (
	PNG  = "png"
	TIFF = "tiff"
)

// AllowedOutputExtensions maps lowercased extensions (sans '.') to formats.
var AllowedOutputExtensions = map[string]string{
	"csv":  CSV,
	"txt":  CSV,
	"xlsx": XLSX,
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// FormatForPath picks the output format from the destination extension,
// defaulting to CSV.
func FormatForPath(path string) string {
	if f, ok := AllowedOutputExtensions[NormalizeExt(filepath.Ext(path))]; ok {
		return f
	}
	return CSV
}

// DefaultCharWhitelist restricts recognition to Portuguese letters, digits
// and the punctuation found in the procedure tables.
const DefaultCharWhitelist = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz" +
	"ÀÁÂÃÇÉÊÍÓÔÕÚÜàáâãçéêíóôõúü" +
	"0123456789-(),. "

// DefaultOutputPath is the table written when no destination is given.
const DefaultOutputPath = "Rol_de_Procedimentos.csv"
