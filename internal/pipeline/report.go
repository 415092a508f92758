package pipeline

import (
	"log/slog"
	"time"

	"github.com/joseph-ayodele/rol-extractor/constants"
	"github.com/joseph-ayodele/rol-extractor/internal/common"
	"github.com/joseph-ayodele/rol-extractor/internal/extract"
	"github.com/joseph-ayodele/rol-extractor/internal/validate"
)

// PageSummary is the diagnostic line for one page. Page counts from 1.
type PageSummary struct {
	Page       int                  `json:"page"`
	Status     constants.PageStatus `json:"status"`
	Candidates int                  `json:"candidates"`
	Validated  int                  `json:"validated"`
	Rejections validate.Rejections  `json:"rejections"`
	Error      string               `json:"error,omitempty"`
	DurationMS int64                `json:"duration_ms"`
}

// Report is the per-page and per-pattern diagnostic summary of a run.
type Report struct {
	Document      string                 `json:"document"`
	Pages         []PageSummary          `json:"pages"`
	Patterns      []extract.PatternStats `json:"patterns"`
	PatternErrors []string               `json:"pattern_errors,omitempty"`
	Candidates    int                    `json:"candidates"`
	Validated     int                    `json:"validated"`
	Rejections    validate.Rejections    `json:"rejections"`
	Duplicates    int                    `json:"duplicates"`
	Rows          int                    `json:"rows"`
	PageErrors    int                    `json:"page_errors"`
	Duration      time.Duration          `json:"duration_ns"`
}

func buildReport(document string, results []PageResult, patternErrs []*common.PatternError) Report {
	r := Report{Document: document, Pages: make([]PageSummary, 0, len(results))}
	for _, pe := range patternErrs {
		r.PatternErrors = append(r.PatternErrors, pe.Error())
	}

	patternIdx := make(map[string]int)
	for _, res := range results {
		ps := PageSummary{
			Page:       common.PageNumber(res.Index),
			Status:     res.Status,
			Candidates: res.Candidates,
			Validated:  len(res.Records),
			Rejections: res.Rejections,
			DurationMS: res.Duration.Milliseconds(),
		}
		if res.Err != nil {
			ps.Error = res.Err.Error()
			r.PageErrors++
		}
		r.Pages = append(r.Pages, ps)

		r.Candidates += res.Candidates
		r.Validated += len(res.Records)
		r.Rejections.Add(res.Rejections)

		for _, st := range res.Patterns {
			i, ok := patternIdx[st.Pattern]
			if !ok {
				i = len(r.Patterns)
				patternIdx[st.Pattern] = i
				r.Patterns = append(r.Patterns, extract.PatternStats{Pattern: st.Pattern})
			}
			agg := &r.Patterns[i]
			agg.Matches += st.Matches
			agg.Candidates += st.Candidates
			agg.ShortDiscarded += st.ShortDiscarded
			agg.Unresolved += st.Unresolved
			agg.Errors += st.Errors
		}
	}
	return r
}

// StatusCounts tallies pages by status.
func (r Report) StatusCounts() map[constants.PageStatus]int {
	out := make(map[constants.PageStatus]int)
	for _, p := range r.Pages {
		out[p.Status]++
	}
	return out
}

// Log writes the summary, one line per pattern and one line per failed page.
func (r Report) Log(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	counts := r.StatusCounts()
	logger.Info("run summary",
		"document", r.Document,
		"pages", len(r.Pages),
		"pages_ok", counts[constants.PageStatusOK],
		"page_errors", r.PageErrors,
		"candidates", r.Candidates,
		"validated", r.Validated,
		"rejected_segmentation", r.Rejections.Segmentation,
		"rejected_keyword", r.Rejections.Keyword,
		"duplicates", r.Duplicates,
		"rows", r.Rows,
		"duration_ms", r.Duration.Milliseconds(),
	)
	for _, p := range r.Patterns {
		logger.Info("pattern summary",
			"pattern", p.Pattern,
			"matches", p.Matches,
			"candidates", p.Candidates,
			"short_discarded", p.ShortDiscarded,
			"unresolved", p.Unresolved,
			"errors", p.Errors,
		)
	}
	for _, e := range r.PatternErrors {
		logger.Warn("pattern skipped", "error", e)
	}
	for _, p := range r.Pages {
		if p.Error != "" {
			logger.Warn("page error", "page", p.Page, "status", p.Status, "error", p.Error)
			continue
		}
		logger.Debug("page summary", "page", p.Page, "status", p.Status, "candidates", p.Candidates, "validated", p.Validated)
	}
}
