package parser

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"RequisiteGraph/internal/domain"
	"RequisiteGraph/internal/ports"
	"RequisiteGraph/internal/scanner"
)

// DefaultMaxCourseNumber is the last undergraduate course number; catalogs
// list graduate courses after it.
const DefaultMaxCourseNumber = 5000

var (
	digitRunExpr = regexp.MustCompile(`\d+`)
	creditsExpr  = regexp.MustCompile(`\s*\(\s*\d+\s*-\s*\d+\s*\)\s*\d+(?:\s*-\s*\d+)?\s*$`)
)

// Segmenter splits a department catalog page into course entries.
type Segmenter struct {
	layout    scanner.Layout
	maxNumber int
	logger    *slog.Logger
}

var _ ports.Segmenter = (*Segmenter)(nil)

// NewSegmenter wires a markup layout; maxNumber defaults to DefaultMaxCourseNumber.
func NewSegmenter(layout scanner.Layout, maxNumber int, log *slog.Logger) *Segmenter {
	if maxNumber <= 0 {
		maxNumber = DefaultMaxCourseNumber
	}
	return &Segmenter{layout: layout, maxNumber: maxNumber, logger: log}
}

// Segment pairs the i-th title block with the i-th description block and
// stops at the first course numbered above the graduate boundary.
func (s *Segmenter) Segment(markup string) (domain.Segmentation, error) {
	var result domain.Segmentation

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return result, fmt.Errorf("parse catalog markup: %w", err)
	}

	titles := doc.Find(s.layout.TitleSelector)
	descs := doc.Find(s.layout.DescriptionSelector)
	limit := min(titles.Length(), descs.Length())

	titles.EachWithBreak(func(i int, sel *goquery.Selection) bool {
		if i >= limit {
			return false
		}

		title := collapseSpace(sel.Text())
		entry, number, err := parseTitle(title)
		if number > s.maxNumber {
			s.debug("graduate boundary reached", "title", title, "number", number)
			return false
		}
		if err != nil {
			result.Anomalies = append(result.Anomalies, domain.Anomaly{Index: i, Title: title, Reason: err.Error()})
			s.warn("malformed title block", "index", i, "title", title, "error", err)
			return true
		}

		entry.Description = collapseSpace(descs.Eq(i).Text())
		result.Entries = append(result.Entries, entry)
		return true
	})

	s.debug("segmented catalog", "entries", len(result.Entries), "anomalies", len(result.Anomalies))
	return result, nil
}

// parseTitle splits "CSE 1310. INTRO TO PROGRAMMING (3-0) 3. 3 Hours." into a
// code and a display name. The returned number is the first digit run of the
// code fragment, or 0 when absent. A digit run too long for an int reports
// math.MaxInt so it always lands past the graduate boundary.
func parseTitle(title string) (domain.CourseEntry, int, error) {
	fragments := strings.Split(title, ".")
	codeFragment := fragments[0]

	digits := digitRunExpr.FindString(codeFragment)
	if digits == "" {
		return domain.CourseEntry{}, 0, fmt.Errorf("%w: no course number", domain.ErrParseAnomaly)
	}
	number, err := strconv.Atoi(digits)
	if errors.Is(err, strconv.ErrRange) {
		return domain.CourseEntry{}, math.MaxInt, fmt.Errorf("%w: course number %q out of range", domain.ErrParseAnomaly, digits)
	}
	if err != nil {
		return domain.CourseEntry{}, 0, fmt.Errorf("%w: course number %q", domain.ErrParseAnomaly, digits)
	}

	code, err := domain.ParseCourseCode(codeFragment)
	if err != nil {
		return domain.CourseEntry{}, number, fmt.Errorf("%w: %v", domain.ErrParseAnomaly, err)
	}

	var name string
	if len(fragments) > 1 {
		name = strings.TrimSpace(creditsExpr.ReplaceAllString(fragments[1], ""))
	}

	return domain.CourseEntry{Code: code, Name: name}, number, nil
}

func collapseSpace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

func (s *Segmenter) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func (s *Segmenter) warn(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
