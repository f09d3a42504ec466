// Package spelling corrects recognized words against a frequency dictionary.
package spelling

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/sajari/fuzzy"
)

// Corrector returns a best-effort corrected version of a lowercase string.
type Corrector interface {
	Correct(s string) string
}

// Identity leaves its input unchanged.
type Identity struct{}

// Correct implements Corrector.
func (Identity) Correct(s string) string { return s }

// Default edit distance and minimum term count of a Fuzzy model.
const (
	DefaultDepth     = 2
	DefaultThreshold = 1
)

// wordPattern matches words, keeping contractions such as "don't" whole.
var wordPattern = regexp.MustCompile(`[\w]*('\w*)+|\w+`)

// Fuzzy corrects each word with a sajari/fuzzy model. Everything between
// words is kept byte for byte. It is safe for concurrent use once trained.
type Fuzzy struct {
	model *fuzzy.Model
	known map[string]struct{}
}

// NewFuzzy returns an untrained corrector with the given maximum edit
// distance.
func NewFuzzy(depth int) *Fuzzy {
	if depth <= 0 {
		depth = DefaultDepth
	}
	m := fuzzy.NewModel()
	m.SetThreshold(DefaultThreshold)
	m.SetDepth(depth)
	return &Fuzzy{model: m, known: make(map[string]struct{})}
}

// Train adds words with a count of one each.
func (f *Fuzzy) Train(words []string) {
	for _, w := range words {
		f.Add(w, 1)
	}
}

// Add sets the frequency of a word. Higher counts win ties between
// suggestions at the same edit distance.
func (f *Fuzzy) Add(word string, count int) {
	word = strings.ToLower(strings.TrimSpace(word))
	if word == "" || count <= 0 {
		return
	}
	f.model.SetCount(word, count, true)
	f.known[word] = struct{}{}
}

// Len returns the number of distinct words in the dictionary.
func (f *Fuzzy) Len() int { return len(f.known) }

// Correct implements Corrector. Words of one character, numbers and words
// with no suggestion within the edit distance are kept.
func (f *Fuzzy) Correct(s string) string {
	if f == nil || len(f.known) == 0 {
		return s
	}
	return wordPattern.ReplaceAllStringFunc(s, func(word string) string {
		if utf8.RuneCountInString(word) <= 1 || isNumber(word) {
			return word
		}
		if _, ok := f.known[word]; ok {
			return word
		}
		if best := f.model.SpellCheck(word); best != "" {
			return best
		}
		return word
	})
}

func isNumber(word string) bool {
	for _, r := range word {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// LoadFrequencyFile builds a Fuzzy corrector from a word-frequency list.
// Each non-empty line holds "word count" or a bare word counted once; lines
// starting with '#' are ignored.
func LoadFrequencyFile(path string, depth int) (*Fuzzy, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open spelling dictionary: %w", err)
	}
	defer func() { _ = f.Close() }()

	c, err := ReadFrequencies(f, depth)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// ReadFrequencies builds a Fuzzy corrector from a word-frequency list read
// from r.
func ReadFrequencies(r io.Reader, depth int) (*Fuzzy, error) {
	c := NewFuzzy(depth)
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		switch len(fields) {
		case 1:
			c.Add(fields[0], 1)
		case 2:
			n, err := strconv.Atoi(fields[1])
			if err != nil || n <= 0 {
				return nil, fmt.Errorf("line %d: invalid count %q", lineNo, fields[1])
			}
			c.Add(fields[0], n)
		default:
			return nil, fmt.Errorf("line %d: expected \"word [count]\", got %q", lineNo, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read spelling dictionary: %w", err)
	}
	if c.Len() == 0 {
		return nil, errors.New("spelling dictionary is empty")
	}
	return c, nil
}
