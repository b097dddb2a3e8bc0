// Package requisite classifies course references found in catalog
// descriptions into prerequisites and corequisites.
//
// Classification is a two-state machine driven sentence by sentence. Scanning
// starts at the first trigger word; text before it is never searched for
// course codes, since catalogs mention unrelated courses in the body of a
// description. Each sentence may switch the mode, and every code in the
// sentence lands in the set of the mode in effect after that switch.
package requisite

import (
	"strings"

	"RequisiteGraph/internal/domain"
	"RequisiteGraph/internal/ports"
)

// Mode is the classification applied to codes in the current sentence.
type Mode int

const (
	ModePrerequisite Mode = iota
	ModeCorequisite
)

func (m Mode) String() string {
	if m == ModeCorequisite {
		return "corequisite"
	}
	return "prerequisite"
}

const initialModeWindow = 20

var triggers = []string{"prerequisite", "corequisite", "concurrent"}

// Classifier extracts requisite references from course descriptions.
type Classifier struct {
	splitter SentenceSplitter
}

var _ ports.Classifier = (*Classifier)(nil)

// NewClassifier wires a sentence splitter; nil selects a RuleSplitter.
func NewClassifier(splitter SentenceSplitter) *Classifier {
	if splitter == nil {
		splitter = NewRuleSplitter()
	}
	return &Classifier{splitter: splitter}
}

// Classify returns the prerequisite and corequisite codes referenced by description.
func (c *Classifier) Classify(description string) domain.Requisites {
	reqs := domain.NewRequisites()

	lower := asciiLower(description)
	start := earliestTrigger(lower)
	if start < 0 {
		return reqs
	}

	block := description[start:]
	window := lower[start:min(len(lower), start+initialModeWindow)]
	mode := ModePrerequisite
	if mentionsCorequisite(window) {
		mode = ModeCorequisite
	}

	for _, sentence := range c.splitter.Sentences(block) {
		mode = sentenceMode(asciiLower(sentence), mode)
		target := reqs.Prerequisites
		if mode == ModeCorequisite {
			target = reqs.Corequisites
		}
		for _, code := range domain.FindCourseCodes(sentence) {
			target.Add(code)
		}
	}

	return reqs
}

func earliestTrigger(lower string) int {
	first := -1
	for _, t := range triggers {
		if idx := strings.Index(lower, t); idx >= 0 && (first < 0 || idx < first) {
			first = idx
		}
	}
	return first
}

// sentenceMode applies a sentence's trigger words; corequisite wording wins
// when both kinds appear.
func sentenceMode(lower string, current Mode) Mode {
	switch {
	case mentionsCorequisite(lower):
		return ModeCorequisite
	case strings.Contains(lower, "prerequisite"):
		return ModePrerequisite
	default:
		return current
	}
}

func mentionsCorequisite(lower string) bool {
	return strings.Contains(lower, "corequisite") || strings.Contains(lower, "concurrent")
}

// asciiLower lowercases A-Z only, so byte offsets stay aligned with the input.
func asciiLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
