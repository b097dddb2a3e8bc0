package requisite

import (
	"strings"
	"unicode"
)

// SentenceSplitter breaks free text into sentences. Implementations are built
// once and shared by every Classify call.
type SentenceSplitter interface {
	Sentences(text string) []string
}

// RuleSplitter splits on terminal punctuation followed by whitespace. Periods
// that end a known abbreviation do not end a sentence.
type RuleSplitter struct {
	abbreviations map[string]struct{}
}

var defaultAbbreviations = []string{
	"e.g", "i.e", "approx", "dr", "vs", "dept", "u.s",
}

// NewRuleSplitter returns a splitter; extra abbreviations are matched
// case-insensitively and without the trailing period.
func NewRuleSplitter(extra ...string) *RuleSplitter {
	abbr := make(map[string]struct{}, len(defaultAbbreviations)+len(extra))
	for _, a := range append(defaultAbbreviations, extra...) {
		abbr[strings.ToLower(strings.TrimSuffix(a, "."))] = struct{}{}
	}
	return &RuleSplitter{abbreviations: abbr}
}

// Sentences returns trimmed, non-empty sentences in order.
func (r *RuleSplitter) Sentences(text string) []string {
	runes := []rune(text)
	var (
		sentences []string
		start     int
	)

	for i, ch := range runes {
		if ch != '.' && ch != '!' && ch != '?' {
			continue
		}
		if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
			continue
		}
		if ch == '.' && r.isAbbreviation(runes[start:i]) {
			continue
		}

		if s := strings.TrimSpace(string(runes[start : i+1])); s != "" {
			sentences = append(sentences, s)
		}
		start = i + 1
	}

	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

func (r *RuleSplitter) isAbbreviation(before []rune) bool {
	end := len(before)
	begin := end
	for begin > 0 && !unicode.IsSpace(before[begin-1]) && before[begin-1] != '(' {
		begin--
	}
	if begin == end {
		return false
	}
	_, ok := r.abbreviations[strings.ToLower(string(before[begin:end]))]
	return ok
}
