package normalize

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/rol-extractor/internal/rules"
)

func TestNormalize(t *testing.T) {
	n := Default()
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"collapses whitespace", "  Cordotomia   percutânea\tunilateral \n OD  ", "Cordotomia percutânea unilateral OD"},
		{"ligatures", "Classiﬁcação ﬂuxo", "Classificação fluxo"},
		{"tilde to hyphen", "Punção~lombar", "Punção-lombar"},
		{"dashes", "Cirurgia – retina — laser", "Cirurgia - retina - laser"},
		{"table bars", "Exame|AMB|", "Exame AMB"},
		{"misspelling rn for m", "Cordotornia percutanea OD", "Cordotomia percutânea OD"},
		{"misspelling not inside words", "Xpuncaoy puncao", "Xpuncaoy punção"},
		{"adjacent misspellings", "puncao puncao", "punção punção"},
		{"decomposed accents composed", "Punc\u0327a\u0303o", "Punção"},
		{"nbsp", "Exame\u00a0de sangue", "Exame de sangue"},
		{"line and paragraph separators", "Exame\u2028de\u2029sangue\u0085AMB\v", "Exame de sangue AMB"},
		{"ligature before combining accent", "\ufb01\u0301xo exame", "f\u00edxo exame"},
		{"misspelling followed by combining mark", "puncao\u20dd puncao", "puncao\u20dd punção"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, n.Normalize(tt.in))
		})
	}
}

func FuzzNormalizeIsIdempotent(f *testing.F) {
	n, err := New([]rules.Correction{{From: "Artroscopla de", To: "Artroscopia de"}})
	require.NoError(f, err)

	for _, seed := range []string{
		"Cordotornia   percutanea unilateral  OD\n\nMielotornia~HCO",
		"ﬁ ﬂ ﬃ ~ – — | puncao puncaopuncao Puncao",
		"  Estimulacao  medular  AMB ",
		"Utilizacao Diretriz de Utilizacao DUT",
		"\ufb01\u0301xo exame",
		"\ufb02\u0327 \ufb03\u0303",
		"Artroscopla\nde joelho AMB",
		"Artroscopla\u2028\u00a0de joelho",
		"Exame\u2029de\u0085sangue",
		"\u00a0\u0301x puncao\u0301",
	} {
		f.Add(seed)
	}
	f.Fuzz(func(t *testing.T, in string) {
		if !utf8.ValidString(in) {
			t.Skip()
		}
		once := n.Normalize(in)
		assert.Equal(t, once, n.Normalize(once), "input %q", in)
	})
}

func TestRulesOrder(t *testing.T) {
	names := Default().Rules()
	require.NotEmpty(t, names)
	assert.Equal(t, []string{"ligatures", "punctuation", "unicode-nfc"}, names[:3])
	assert.Equal(t, "whitespace", names[len(names)-1])
}

func TestNewWithExtraCorrections(t *testing.T) {
	n, err := New([]rules.Correction{{From: "Artroscopla", To: "Artroscopia"}})
	require.NoError(t, err)
	assert.Equal(t, "Artroscopia de joelho", n.Normalize("Artroscopla de joelho"))
}

func TestNewMultiWordCorrectionSpansWhitespace(t *testing.T) {
	n, err := New([]rules.Correction{{From: "Artroscopla \t de", To: "Artroscopia  de"}})
	require.NoError(t, err)

	tests := []struct {
		in   string
		want string
	}{
		{"Artroscopla\nde joelho AMB", "Artroscopia de joelho AMB"},
		{"Artroscopla \u00a0 de joelho", "Artroscopia de joelho"},
		{"Artroscopla deste", "Artroscopla deste"},
		{"xArtroscopla de", "xArtroscopla de"},
	}
	for _, tt := range tests {
		got := n.Normalize(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, got, n.Normalize(got), tt.in)
	}
}

func TestNewRejectsNonIdempotentCorrections(t *testing.T) {
	tests := []struct {
		name string
		c    []rules.Correction
	}{
		{"self expanding", []rules.Correction{{From: "exame", To: "exame completo"}}},
		{"cycle", []rules.Correction{{From: "foo", To: "bar"}, {From: "bar", To: "foo"}}},
		{"rewritten punctuation", []rules.Correction{{From: "abc", To: "a~c"}}},
		{"empty source", []rules.Correction{{From: "  ", To: "x"}}},
		{"empty replacement", []rules.Correction{{From: "abc", To: " \n"}}},
		{"source edged by punctuation", []rules.Correction{{From: "-abc", To: "abc"}}},
		{"replacement starts with a mark", []rules.Correction{{From: "abc", To: "\u0301abc"}}},
		{"replacement feeds multi-word source", []rules.Correction{
			{From: "de joelho", To: "do joelho"},
			{From: "foo", To: "bar de"},
		}},
		{"source contains replacement", []rules.Correction{{From: "exame de sangue", To: "sangue"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.c)
			assert.Error(t, err)
		})
	}
}
