// Package normalize cleans raw recognizer output into text tokens.
package normalize

import (
	"strings"
	"unicode"

	"github.com/MeKo-Tech/comicocr/internal/spelling"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// Substitutions for common misreadings of comic lettering, applied in order
// before lowercasing.
var confusionReplacer = []struct{ from, to string }{
	{"[", "I"},
	{`\`, "l"},
	{"/", "i"},
}

var nonASCII = runes.Predicate(func(r rune) bool { return r > unicode.MaxASCII })

// Normalizer turns raw recognizer output into a text token.
type Normalizer struct {
	Corrector spelling.Corrector
}

// New returns a Normalizer using c, or no correction when c is nil.
func New(c spelling.Corrector) *Normalizer {
	if c == nil {
		c = spelling.Identity{}
	}
	return &Normalizer{Corrector: c}
}

// Normalize drops non-ASCII runes, trims, fixes confusable characters,
// lowercases and spell-corrects raw.
func (n *Normalizer) Normalize(raw string) string {
	s := StripNonASCII(raw)
	s = strings.TrimSpace(s)
	for _, sub := range confusionReplacer {
		s = strings.ReplaceAll(s, sub.from, sub.to)
	}
	s = strings.ToLower(s)
	if n == nil || n.Corrector == nil {
		return s
	}
	return n.Corrector.Correct(s)
}

// StripNonASCII removes every rune >= 128. Invalid UTF-8 bytes decode to
// U+FFFD and are removed too.
func StripNonASCII(s string) string {
	out, _, err := transform.String(runes.Remove(nonASCII), s)
	if err != nil {
		// runes.Remove never fails on string input.
		return s
	}
	return out
}
