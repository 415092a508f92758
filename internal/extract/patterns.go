package extract

import (
	"regexp"

	"github.com/joseph-ayodele/rol-extractor/constants"
	"github.com/joseph-ayodele/rol-extractor/internal/rules"
)

// Capture group names every pattern uses.
const (
	groupProcedure = "procedure"
	groupCode      = "code"
)

// procedureSpan is a letter followed by letters, whitespace or hyphens,
// matched lazily so it stops at the first indicator.
const procedureSpan = `(?P<procedure>\p{L}[\p{L}\s\-]+?)`

// codeEnd ends a code token. RE2's \b is ASCII-only and would accept "ODé",
// so the next rune must not be a letter, mark or digit.
const codeEnd = `(?:[^\p{L}\p{M}\p{N}]|$)`

// DefaultPatterns are evaluated in this order, narrowest first.
var DefaultPatterns = []rules.Pattern{
	{
		Name: "known-code",
		Expr: procedureSpan + `\s+(?P<code>(?i:OD|AMB|HCO|HSO|DUT))` + codeEnd,
	},
	{
		Name: "uppercase-token",
		Expr: procedureSpan + `\s+(?P<code>\p{Lu}{2,4})` + codeEnd,
	},
	{
		Name: "category-word",
		Expr: `(?i)` + procedureSpan + `\s+(?:Diretriz(?:\s+de\s+Utiliza[çc][ãa]o)?|Ambulatorial|Odontol[óo]gico|Hospitalar(?:\s+(?:com|sem)\s+Obstetr[íi]cia)?)`,
	},
}

// indicator resolves a segmentation token inside a match that has no code
// group. An empty code means "use the first submatch".
type indicator struct {
	re   *regexp.Regexp
	code constants.Segmentation
}

// indicators are tried in order; the first rule that matches wins. A bare
// "Hospitalar" cannot be told apart between HCO and HSO and is left
// unresolved for the validator to reject.
var indicators = []indicator{
	{re: regexp.MustCompile(`(?:^|[^\p{L}\p{M}\p{N}])((?i:OD|AMB|HCO|HSO|DUT))` + codeEnd)},
	{re: regexp.MustCompile(`(?i)hospitalar\s+com\s+obstetr[íi]cia`), code: constants.SegmentationHCO},
	{re: regexp.MustCompile(`(?i)hospitalar\s+sem\s+obstetr[íi]cia`), code: constants.SegmentationHSO},
	{re: regexp.MustCompile(`(?i)diretriz(?:\s+de\s+utiliza[çc][ãa]o)?`), code: constants.SegmentationDUT},
	{re: regexp.MustCompile(`(?i)ambulatorial`), code: constants.SegmentationAMB},
	{re: regexp.MustCompile(`(?i)odontol[óo]gico`), code: constants.SegmentationOD},
	{re: regexp.MustCompile(`(?i)hospitalar`), code: "HOSPITALAR"},
}

// resolveIndicator scans s for a segmentation token.
func resolveIndicator(s string) (string, bool) {
	for _, ind := range indicators {
		m := ind.re.FindStringSubmatch(s)
		if m == nil {
			continue
		}
		if ind.code == "" {
			return m[1], true
		}
		return string(ind.code), true
	}
	return "", false
}
