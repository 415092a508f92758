// Package normalize fixes known OCR failure modes in recognized page text
// before pattern extraction.
package normalize

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/joseph-ayodele/rol-extractor/internal/rules"
)

// Rule is one ordered substitution step.
type Rule struct {
	Name  string
	apply func(string) string
}

// Normalizer applies a fixed, ordered list of rules. It is safe for
// concurrent use.
type Normalizer struct {
	rules []Rule
}

var ligatures = strings.NewReplacer(
	"ﬃ", "ffi",
	"ﬄ", "ffl",
	"ﬀ", "ff",
	"ﬁ", "fi",
	"ﬂ", "fl",
	"ﬅ", "st",
	"ﬆ", "st",
	"Ĳ", "IJ",
	"ĳ", "ij",
)

var punctuation = strings.NewReplacer(
	"~", "-",
	"‐", "-", // U+2010
	"‑", "-", // U+2011
	"‒", "-",
	"–", "-",
	"—", "-",
	"’", "'",
	"‘", "'",
	"´", "'",
	"|", " ",
	"¦", " ",
)

// misspellings is the closed set of recognition errors seen in the
// procedure tables ("rn" read for "m", dropped cedillas and tildes).
var misspellings = []rules.Correction{
	{From: "Cordotornia", To: "Cordotomia"},
	{From: "cordotornia", To: "cordotomia"},
	{From: "Mielotornia", To: "Mielotomia"},
	{From: "mielotornia", To: "mielotomia"},
	{From: "Puncao", To: "Punção"},
	{From: "puncao", To: "punção"},
	{From: "Estimulacao", To: "Estimulação"},
	{From: "estimulacao", To: "estimulação"},
	{From: "percutanea", To: "percutânea"},
	{From: "Odontologico", To: "Odontológico"},
	{From: "Obstetricia", To: "Obstetrícia"},
	{From: "Utilizacao", To: "Utilização"},
	{From: "utilizacao", To: "utilização"},
	{From: "Procedirnento", To: "Procedimento"},
	{From: "procedirnento", To: "procedimento"},
	{From: "Cirurgla", To: "Cirurgia"},
	{From: "cirurgla", To: "cirurgia"},
}

// whitespaceClass covers ASCII whitespace, every Unicode separator (spaces,
// NBSP, U+2028, U+2029) and NEL.
const whitespaceClass = `[\s\v\p{Z}\x{85}]`

var reWhitespace = regexp.MustCompile(whitespaceClass + `+`)

// New builds a normalizer from the built-in rules plus extra corrections.
// Sources and replacements are NFC-composed and whitespace-collapsed; the
// words of a multi-word source match across any whitespace run, so a
// correction applies before the final collapse as it would after it.
// A correction whose replacement could produce a match for any correction
// source is rejected, which keeps Normalize idempotent.
func New(extra []rules.Correction) (*Normalizer, error) {
	corrections := make([]rules.Correction, 0, len(misspellings)+len(extra))
	for _, c := range append(append([]rules.Correction(nil), misspellings...), extra...) {
		from := collapseWhitespace(norm.NFC.String(c.From))
		to := collapseWhitespace(norm.NFC.String(c.To))
		if from == "" {
			return nil, fmt.Errorf("correction with empty source")
		}
		if to == "" {
			return nil, fmt.Errorf("correction %q has an empty replacement", c.From)
		}
		if !edgesAreWordRunes(from) || !edgesAreWordRunes(to) {
			return nil, fmt.Errorf("correction %q -> %q must start and end with a letter or digit", c.From, c.To)
		}
		corrections = append(corrections, rules.Correction{From: from, To: to})
	}
	for _, c := range corrections {
		if ligatures.Replace(punctuation.Replace(c.To)) != c.To {
			return nil, fmt.Errorf("correction %q -> %q introduces characters later rewritten", c.From, c.To)
		}
		for _, other := range corrections {
			if retriggers(c.To, other.From) {
				return nil, fmt.Errorf("correction %q -> %q is not idempotent", c.From, c.To)
			}
		}
	}

	// NFC follows the rules that can expose new combining sequences: "ﬁ"
	// followed by U+0301 only composes once the ligature is split.
	rs := []Rule{
		{Name: "ligatures", apply: ligatures.Replace},
		{Name: "punctuation", apply: punctuation.Replace},
		{Name: "unicode-nfc", apply: norm.NFC.String},
	}
	for _, c := range corrections {
		re := phrasePattern(c.From)
		rs = append(rs, Rule{
			Name:  "misspelling:" + c.From,
			apply: func(s string) string { return replaceWord(s, re, c.To) },
		})
	}
	rs = append(rs, Rule{Name: "whitespace", apply: collapseWhitespace})
	return &Normalizer{rules: rs}, nil
}

// Default returns a normalizer with only the built-in rules.
func Default() *Normalizer {
	n, err := New(nil)
	if err != nil {
		panic(err)
	}
	return n
}

// Normalize runs every rule in order.
func (n *Normalizer) Normalize(raw string) string {
	s := raw
	for _, r := range n.rules {
		s = r.apply(s)
	}
	return s
}

// Rules returns the rule names in application order.
func (n *Normalizer) Rules() []string {
	names := make([]string, len(n.rules))
	for i, r := range n.rules {
		names[i] = r.Name
	}
	return names
}

func collapseWhitespace(s string) string {
	return strings.TrimSpace(reWhitespace.ReplaceAllString(s, " "))
}

// phrasePattern matches the space-separated words of from with any
// whitespace run between them.
func phrasePattern(from string) *regexp.Regexp {
	words := strings.Split(from, " ")
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	return regexp.MustCompile(strings.Join(words, whitespaceClass+`+`))
}

// replaceWord replaces whole-word matches of re. Word boundaries are checked
// on runes because RE2's \b only knows ASCII.
func replaceWord(s string, re *regexp.Regexp, to string) string {
	var (
		b        strings.Builder
		replaced bool
		i, pos   int
	)
	for pos < len(s) {
		loc := re.FindStringIndex(s[pos:])
		if loc == nil {
			break
		}
		start, end := pos+loc[0], pos+loc[1]
		if atBoundary(s[:start], s[end:]) {
			b.WriteString(s[i:start])
			b.WriteString(to)
			i, pos, replaced = end, end, true
			continue
		}
		_, size := utf8.DecodeRuneInString(s[start:])
		pos = start + size
	}
	if !replaced {
		return s
	}
	b.WriteString(s[i:])
	return b.String()
}

func containsWord(s, word string) bool {
	for i := 0; ; {
		j := strings.Index(s[i:], word)
		if j < 0 {
			return false
		}
		start, end := i+j, i+j+len(word)
		if atBoundary(s[:start], s[end:]) {
			return true
		}
		_, size := utf8.DecodeRuneInString(s[start:])
		i = start + size
	}
}

func atBoundary(before, after string) bool {
	if r, _ := utf8.DecodeLastRuneInString(before); before != "" && isWordRune(r) {
		return false
	}
	if r, _ := utf8.DecodeRuneInString(after); after != "" && isWordRune(r) {
		return false
	}
	return true
}

// isWordRune counts combining marks as part of the word they follow.
func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r)
}

func edgesAreWordRunes(s string) bool {
	first, _ := utf8.DecodeRuneInString(s)
	last, _ := utf8.DecodeLastRuneInString(s)
	return !unicode.IsMark(first) && isWordRune(first) && isWordRune(last)
}

// retriggers reports whether writing to in place of a whole-word match can
// create a new whole-word match of from. The replaced span always sits
// between non-word runes, so a new match must lie inside to, contain it, or
// cross one of its edges at a non-word rune of from.
func retriggers(to, from string) bool {
	if containsWord(to, from) || containsWord(from, to) {
		return true
	}
	for i, r := range from {
		if isWordRune(r) {
			continue
		}
		if head := from[:i]; head != "" && strings.HasSuffix(to, head) {
			return true
		}
		if tail := from[i+utf8.RuneLen(r):]; tail != "" && strings.HasPrefix(to, tail) {
			return true
		}
	}
	return false
}
