package normalize

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/MeKo-Tech/comicocr/internal/spelling"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	n := New(nil)

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"plain", "HELLO", "hello"},
		{"trims", "  Hello World \n\f", "hello world"},
		{"drops non-ascii", "Café “quoted”", "caf quoted"},
		{"bracket becomes I", "[T'S ME", "it's me"},
		{"backslash becomes l", `HE\\O`, "hello"},
		{"slash becomes i", "/T /S", "it is"},
		{"trim happens after dropping", "  WOW  ", "wow"},
		{"empty", "", ""},
		{"only non-ascii", "——", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, n.Normalize(tt.raw))
		})
	}
}

func TestNormalizeSubstitutionOrder(t *testing.T) {
	// Every substitution runs before lowercasing, so "[" ends up as "i".
	assert.Equal(t, `i l i`, New(nil).Normalize(`[ \ /`))
}

func TestNormalizeInvalidUTF8(t *testing.T) {
	got := New(nil).Normalize("OK\xff\xfe!")
	assert.Equal(t, "ok!", got)
	assert.True(t, utf8.ValidString(got))
}

type recordingCorrector struct{ seen []string }

func (r *recordingCorrector) Correct(s string) string {
	r.seen = append(r.seen, s)
	return strings.ReplaceAll(s, "helo", "hello")
}

func TestNormalizeRunsCorrectorLast(t *testing.T) {
	rc := &recordingCorrector{}
	n := New(rc)
	assert.Equal(t, "hello there", n.Normalize(" HELO THERE "))
	require.Len(t, rc.seen, 1)
	assert.Equal(t, "helo there", rc.seen[0])
}

func TestNormalizeWithFuzzy(t *testing.T) {
	c := spelling.NewFuzzy(spelling.DefaultDepth)
	c.Add("hello", 10)
	c.Add("world", 10)
	assert.Equal(t, "hello world!", New(c).Normalize("HELO W0RLD!"))
}

func TestNilNormalizer(t *testing.T) {
	var n *Normalizer
	assert.Equal(t, "abc", n.Normalize(" ABC "))
}

func TestNormalize_Properties(t *testing.T) {
	n := New(nil)
	properties := gopter.NewProperties(nil)

	properties.Property("deterministic", prop.ForAll(
		func(s string) bool { return n.Normalize(s) == n.Normalize(s) },
		gen.AnyString(),
	))

	properties.Property("output is ASCII without confusable characters", prop.ForAll(
		func(s string) bool {
			out := n.Normalize(s)
			for _, r := range out {
				if r >= utf8.RuneSelf {
					return false
				}
			}
			return !strings.ContainsAny(out, `[\/`) && out == strings.ToLower(out)
		},
		gen.AnyString(),
	))

	properties.Property("clean lowercase words pass through", prop.ForAll(
		func(s string) bool { return n.Normalize(s) == s },
		gen.RegexMatch(`[a-z]+( [a-z]+)*`),
	))

	properties.TestingRun(t)
}
