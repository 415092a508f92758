// Package validate filters extraction candidates down to records whose code
// is in the segmentation vocabulary and whose procedure names a known
// clinical term.
package validate

import (
	"log/slog"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/joseph-ayodele/rol-extractor/constants"
	"github.com/joseph-ayodele/rol-extractor/internal/common"
	"github.com/joseph-ayodele/rol-extractor/internal/entity"
)

// Rejection reasons.
const (
	ReasonSegmentation = "segmentation"
	ReasonKeyword      = "keyword"
)

// DefaultKeywords is the built-in procedure allowlist.
var DefaultKeywords = []string{
	"cirurgia", "exame", "procedimento", "consulta", "terapia",
	"medula", "cordotomia", "mielotomia", "punção", "lombar",
	"cisternal", "estimulação", "medular", "odontológico",
	"ambulatorial", "hospitalar", "diretriz", "utilização",
}

// Rejections counts dropped candidates by reason.
type Rejections struct {
	Segmentation int `json:"segmentation"`
	Keyword      int `json:"keyword"`
}

func (r Rejections) Total() int { return r.Segmentation + r.Keyword }

// Add accumulates o into r.
func (r *Rejections) Add(o Rejections) {
	r.Segmentation += o.Segmentation
	r.Keyword += o.Keyword
}

type Validator struct {
	keywords []string
	logger   *slog.Logger
}

// New builds a validator from DefaultKeywords plus extra. Keywords are
// matched as lower-cased substrings.
func New(extra []string, logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	seen := make(map[string]bool)
	var kws []string
	for _, k := range append(append([]string(nil), DefaultKeywords...), extra...) {
		k = strings.ToLower(norm.NFC.String(strings.TrimSpace(k)))
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		kws = append(kws, k)
	}
	return &Validator{keywords: kws, logger: logger}
}

// Keywords returns the effective allowlist.
func (v *Validator) Keywords() []string {
	return append([]string(nil), v.keywords...)
}

// Validate keeps the candidates that pass both checks, in input order.
func (v *Validator) Validate(cands []entity.Candidate) ([]entity.ValidatedRecord, Rejections) {
	var (
		out []entity.ValidatedRecord
		rej Rejections
	)
	for _, c := range cands {
		seg, ok := constants.Canonicalize(c.SegmentationCode)
		if !ok {
			rej.Segmentation++
			v.logger.Debug("candidate rejected", "reason", ReasonSegmentation, "code", c.SegmentationCode, "page", common.PageNumber(c.SourcePage))
			continue
		}
		if !v.hasKeyword(c.Procedure) {
			rej.Keyword++
			v.logger.Debug("candidate rejected", "reason", ReasonKeyword, "procedure", c.Procedure, "page", common.PageNumber(c.SourcePage))
			continue
		}
		out = append(out, entity.ValidatedRecord{
			Procedure:    c.Procedure,
			Segmentation: seg,
			SourcePage:   c.SourcePage,
		})
	}
	return out, rej
}

func (v *Validator) hasKeyword(procedure string) bool {
	p := strings.ToLower(norm.NFC.String(procedure))
	for _, k := range v.keywords {
		if strings.Contains(p, k) {
			return true
		}
	}
	return false
}
