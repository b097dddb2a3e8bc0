package domain

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
)

var (
	codeShape = regexp.MustCompile(`^[A-Z]{2,4}(?:-[A-Z]{2,4})? \d{4}$`)
	codeExpr  = regexp.MustCompile(`\b([A-Z]{2,4}(?:-[A-Z]{2,4})?)\s+(\d{4})\b`)
)

// CourseCode identifies a course by department abbreviation and 4-digit number.
type CourseCode struct {
	Department string
	Number     string
}

// ParseCourseCode accepts "DEPT NNNN" with arbitrary whitespace between the parts.
func ParseCourseCode(raw string) (CourseCode, error) {
	fields := strings.Fields(normalizeSpaces(raw))
	if len(fields) != 2 {
		return CourseCode{}, fmt.Errorf("malformed course code %q", raw)
	}

	code := CourseCode{Department: strings.ToUpper(fields[0]), Number: fields[1]}
	if !codeShape.MatchString(code.String()) {
		return CourseCode{}, fmt.Errorf("malformed course code %q", raw)
	}
	return code, nil
}

// MustParseCourseCode panics on malformed input; intended for literals and tests.
func MustParseCourseCode(raw string) CourseCode {
	code, err := ParseCourseCode(raw)
	if err != nil {
		panic(err)
	}
	return code
}

// String renders the canonical "DEPT NNNN" form used for equality and storage keys.
func (c CourseCode) String() string {
	return c.Department + " " + c.Number
}

// IsZero reports whether the code is unset.
func (c CourseCode) IsZero() bool {
	return c.Department == "" && c.Number == ""
}

// SameDepartment reports whether the code belongs to dept. Departments are
// compared by containment, so "ACE 1000" counts as part of department "CE".
func (c CourseCode) SameDepartment(dept string) bool {
	dept = NormalizeDepartment(dept)
	if dept == "" {
		return false
	}
	return strings.Contains(c.Department, dept)
}

// NormalizeDepartment trims and uppercases a department code.
func NormalizeDepartment(dept string) string {
	return strings.ToUpper(strings.TrimSpace(dept))
}

// FindCourseCodes returns every well-formed course code in text, in order of
// first appearance.
func FindCourseCodes(text string) []CourseCode {
	matches := codeExpr.FindAllStringSubmatch(normalizeSpaces(text), -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[CourseCode]struct{}, len(matches))
	codes := make([]CourseCode, 0, len(matches))
	for _, m := range matches {
		code, err := ParseCourseCode(m[1] + " " + m[2])
		if err != nil {
			continue
		}
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		codes = append(codes, code)
	}
	return codes
}

func normalizeSpaces(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '\u00a0', '\u2007', '\u202f', '\t', '\n', '\r':
			return ' '
		}
		return r
	}, s)
}

// CodeSet is an unordered set of course codes.
type CodeSet map[CourseCode]struct{}

// NewCodeSet builds a set from the given codes.
func NewCodeSet(codes ...CourseCode) CodeSet {
	set := make(CodeSet, len(codes))
	for _, c := range codes {
		set.Add(c)
	}
	return set
}

// Add inserts code into the set.
func (s CodeSet) Add(code CourseCode) {
	s[code] = struct{}{}
}

// Has reports membership.
func (s CodeSet) Has(code CourseCode) bool {
	_, ok := s[code]
	return ok
}

// Len returns the number of codes.
func (s CodeSet) Len() int {
	return len(s)
}

// Sorted returns the codes ordered by their canonical string.
func (s CodeSet) Sorted() []CourseCode {
	out := make([]CourseCode, 0, len(s))
	for c := range s {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// Strings returns the sorted canonical strings.
func (s CodeSet) Strings() []string {
	codes := s.Sorted()
	out := make([]string, len(codes))
	for i, c := range codes {
		out[i] = c.String()
	}
	return out
}

// Union returns a new set containing the members of both sets.
func (s CodeSet) Union(other CodeSet) CodeSet {
	out := make(CodeSet, len(s)+len(other))
	for c := range s {
		out.Add(c)
	}
	for c := range other {
		out.Add(c)
	}
	return out
}

// Requisites is the classifier output for one course description. A code may
// appear in both sets when the description mentions it under both modes.
type Requisites struct {
	Prerequisites CodeSet
	Corequisites  CodeSet
}

// NewRequisites returns an empty pair.
func NewRequisites() Requisites {
	return Requisites{Prerequisites: CodeSet{}, Corequisites: CodeSet{}}
}

// All returns the union of both sets, sorted.
func (r Requisites) All() []CourseCode {
	return r.Prerequisites.Union(r.Corequisites).Sorted()
}

// CourseEntry is one course located on a catalog page.
type CourseEntry struct {
	Code        CourseCode
	Name        string
	Description string
}

// Anomaly describes a title block the segmenter could not use.
type Anomaly struct {
	Index  int
	Title  string
	Reason string
}

// Segmentation is the ordered result of segmenting one department page.
type Segmentation struct {
	Entries   []CourseEntry
	Anomalies []Anomaly
}

// Find returns the entry whose code equals target.
func (s Segmentation) Find(target CourseCode) (CourseEntry, bool) {
	for _, e := range s.Entries {
		if e.Code == target {
			return e, true
		}
	}
	return CourseEntry{}, false
}

// CourseRecord is the persisted view of a course, keyed by Code.
type CourseRecord struct {
	Code          CourseCode
	Name          string
	Prerequisites CodeSet
	Corequisites  CodeSet
	Description   string
	UpdatedAt     time.Time
}

// NewCourseRecord combines a catalog entry with its classified requisites.
func NewCourseRecord(entry CourseEntry, reqs Requisites) CourseRecord {
	prereqs := reqs.Prerequisites
	if prereqs == nil {
		prereqs = CodeSet{}
	}
	coreqs := reqs.Corequisites
	if coreqs == nil {
		coreqs = CodeSet{}
	}
	return CourseRecord{
		Code:          entry.Code,
		Name:          entry.Name,
		Prerequisites: prereqs,
		Corequisites:  coreqs,
		Description:   entry.Description,
	}
}
