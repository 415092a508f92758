// Package extract pulls (procedure, segmentation code) candidates out of
// normalized page text with an ordered list of regular expressions.
package extract

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/joseph-ayodele/rol-extractor/internal/common"
	"github.com/joseph-ayodele/rol-extractor/internal/entity"
	"github.com/joseph-ayodele/rol-extractor/internal/rules"
)

// DefaultMinProcedureLength is the rune count a procedure must exceed.
const DefaultMinProcedureLength = 5

var errNoPatterns = errors.New("no usable extraction patterns")

type compiled struct {
	name    string
	re      *regexp.Regexp
	procIdx int
	codeIdx int // -1 when the pattern has no code group
}

// PatternStats counts what one pattern did on one page.
type PatternStats struct {
	Pattern        string `json:"pattern"`
	Matches        int    `json:"matches"`
	Candidates     int    `json:"candidates"`
	ShortDiscarded int    `json:"short_discarded"`
	Unresolved     int    `json:"unresolved"`
	Errors         int    `json:"errors"`
}

// Config holds extractor settings.
type Config struct {
	MinProcedureLength int
	ExtraPatterns      []rules.Pattern
}

// Extractor is safe for concurrent use once built.
type Extractor struct {
	patterns []compiled
	errs     []*common.PatternError
	minLen   int
	logger   *slog.Logger
}

// New compiles the default patterns followed by cfg.ExtraPatterns. Patterns
// that fail to compile or lack a procedure group are skipped and reported by
// Errors.
func New(cfg Config, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MinProcedureLength <= 0 {
		cfg.MinProcedureLength = DefaultMinProcedureLength
	}
	e := &Extractor{minLen: cfg.MinProcedureLength, logger: logger}
	all := append(append([]rules.Pattern(nil), DefaultPatterns...), cfg.ExtraPatterns...)
	for _, p := range all {
		c, err := compilePattern(p)
		if err != nil {
			pe := &common.PatternError{Pattern: p.Name, Err: err}
			logger.Warn("extraction pattern skipped", "pattern", p.Name, "error", err)
			e.errs = append(e.errs, pe)
			continue
		}
		e.patterns = append(e.patterns, c)
	}
	return e
}

func compilePattern(p rules.Pattern) (compiled, error) {
	re, err := regexp.Compile(p.Expr)
	if err != nil {
		return compiled{}, fmt.Errorf("compile: %w", err)
	}
	procIdx := re.SubexpIndex(groupProcedure)
	if procIdx < 0 {
		return compiled{}, fmt.Errorf("missing %q capture group", groupProcedure)
	}
	return compiled{
		name:    p.Name,
		re:      re,
		procIdx: procIdx,
		codeIdx: re.SubexpIndex(groupCode),
	}, nil
}

// Patterns returns the usable pattern names in evaluation order.
func (e *Extractor) Patterns() []string {
	out := make([]string, len(e.patterns))
	for i, p := range e.patterns {
		out[i] = p.name
	}
	return out
}

// Errors returns the patterns rejected at construction.
func (e *Extractor) Errors() []*common.PatternError {
	return e.errs
}

// Extract runs every pattern over text and returns the candidates in pattern
// order, then match order. Stats has one entry per usable pattern.
func (e *Extractor) Extract(page int, text string) ([]entity.Candidate, []PatternStats, error) {
	if len(e.patterns) == 0 {
		return nil, nil, errNoPatterns
	}
	var out []entity.Candidate
	stats := make([]PatternStats, len(e.patterns))
	for i, p := range e.patterns {
		stats[i].Pattern = p.name
		out = e.scan(page, text, p, &stats[i], out)
	}
	return out, stats, nil
}

func (e *Extractor) scan(page int, text string, p compiled, st *PatternStats, out []entity.Candidate) []entity.Candidate {
	for _, loc := range p.re.FindAllStringSubmatchIndex(text, -1) {
		st.Matches++
		ps, pe := loc[2*p.procIdx], loc[2*p.procIdx+1]
		if ps < 0 {
			st.Errors++
			continue
		}
		procedure := strings.TrimSpace(text[ps:pe])

		code, ok := "", false
		if p.codeIdx >= 0 && loc[2*p.codeIdx] >= 0 {
			code, ok = text[loc[2*p.codeIdx]:loc[2*p.codeIdx+1]], true
		} else {
			// indicator after the procedure first, then the full match span
			code, ok = resolveIndicator(text[pe:loc[1]])
			if !ok {
				code, ok = resolveIndicator(text[loc[0]:loc[1]])
			}
		}
		if !ok {
			st.Unresolved++
			continue
		}

		if utf8.RuneCountInString(procedure) <= e.minLen {
			st.ShortDiscarded++
			continue
		}
		st.Candidates++
		out = append(out, entity.Candidate{
			Procedure:        procedure,
			SegmentationCode: code,
			SourcePage:       page,
			Pattern:          p.name,
		})
	}
	return out
}
