package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"RequisiteGraph/internal/domain"
	"RequisiteGraph/internal/ports"
)

// ResolverDeps wires the driven adapters into the resolver.
type ResolverDeps struct {
	Fetcher    ports.CatalogFetcher
	Store      ports.CourseStore
	Segmenter  ports.Segmenter
	Classifier ports.Classifier
	Logger     *slog.Logger
	// FollowSameDepartment also resolves same-department references met
	// inside a referenced department. References back into the department
	// being resolved are always left to the top-level pass.
	FollowSameDepartment bool
}

// Resolver populates the course store with a department's courses and
// every course transitively reachable through cross-department requisites.
type Resolver struct {
	fetcher    ports.CatalogFetcher
	store      ports.CourseStore
	segmenter  ports.Segmenter
	classifier ports.Classifier
	logger     *slog.Logger
	followSame bool
}

// NewResolver constructs the resolution use case.
func NewResolver(deps ResolverDeps) *Resolver {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		fetcher:    deps.Fetcher,
		store:      deps.Store,
		segmenter:  deps.Segmenter,
		classifier: deps.Classifier,
		logger:     logger,
		followSame: deps.FollowSameDepartment,
	}
}

// Summary counts what a resolution run did.
type Summary struct {
	Departments     []string
	Segmented       int
	Persisted       int
	Skipped         int
	NotFound        int
	FetchFailures   int
	PersistFailures int
	Anomalies       int
	Cancelled       bool
}

// Merge folds other into s.
func (s *Summary) Merge(other Summary) {
	s.Departments = append(s.Departments, other.Departments...)
	s.Segmented += other.Segmented
	s.Persisted += other.Persisted
	s.Skipped += other.Skipped
	s.NotFound += other.NotFound
	s.FetchFailures += other.FetchFailures
	s.PersistFailures += other.PersistFailures
	s.Anomalies += other.Anomalies
	s.Cancelled = s.Cancelled || other.Cancelled
}

// Failures is the number of non-fatal problems met during the run.
func (s Summary) Failures() int {
	return s.NotFound + s.FetchFailures + s.PersistFailures + s.Anomalies
}

func (s Summary) String() string {
	out := fmt.Sprintf("departments=%s segmented=%d persisted=%d skipped=%d not_found=%d fetch_failures=%d persist_failures=%d anomalies=%d",
		strings.Join(s.Departments, ","), s.Segmented, s.Persisted, s.Skipped,
		s.NotFound, s.FetchFailures, s.PersistFailures, s.Anomalies)
	if s.Cancelled {
		out += " cancelled=true"
	}
	return out
}

// LogValue renders the summary as a structured slog group.
func (s Summary) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("departments", strings.Join(s.Departments, ",")),
		slog.Int("segmented", s.Segmented),
		slog.Int("persisted", s.Persisted),
		slog.Int("skipped", s.Skipped),
		slog.Int("not_found", s.NotFound),
		slog.Int("fetch_failures", s.FetchFailures),
		slog.Int("persist_failures", s.PersistFailures),
		slog.Int("anomalies", s.Anomalies),
		slog.Bool("cancelled", s.Cancelled),
	)
}

// ResolveAll resolves each department in turn and merges the summaries.
func (r *Resolver) ResolveAll(ctx context.Context, departments []string) Summary {
	var total Summary
	for _, dept := range departments {
		if ctx.Err() != nil {
			total.Cancelled = true
			break
		}
		total.Merge(r.ResolveDepartment(ctx, dept))
	}
	return total
}

// ResolveDepartment runs one top-level pass. Each course's references are
// resolved before the course itself is stored. Nothing here is fatal: every
// failure is logged, counted and skipped.
func (r *Resolver) ResolveDepartment(ctx context.Context, department string) Summary {
	dept := domain.NormalizeDepartment(department)
	p := &pass{
		Resolver:   r,
		department: dept,
		attempted:  map[domain.CourseCode]struct{}{},
		summary:    Summary{Departments: []string{dept}},
		logger:     r.logger.With("department", dept),
	}

	p.logger.Info("resolution started")

	seg, ok := p.load(ctx, dept)
	if !ok {
		return p.summary
	}
	p.summary.Segmented = len(seg.Entries)

	for _, entry := range seg.Entries {
		if p.cancelled(ctx) {
			break
		}
		reqs := r.classifier.Classify(entry.Description)
		p.resolveReferences(ctx, reqs.All(), dept)
		if p.cancelled(ctx) {
			break
		}
		p.persist(ctx, entry, reqs)
	}

	p.logger.Info("resolution finished", "summary", p.summary)
	return p.summary
}

type workItem struct {
	code   domain.CourseCode
	source string
}

// pass holds the state of one ResolveDepartment call.
type pass struct {
	*Resolver
	department string
	attempted  map[domain.CourseCode]struct{}
	summary    Summary
	logger     *slog.Logger
}

// resolveReferences drains a LIFO worklist seeded with refs.
func (p *pass) resolveReferences(ctx context.Context, refs []domain.CourseCode, source string) {
	var stack []workItem
	stack = p.push(stack, refs, source)

	for len(stack) > 0 {
		if p.cancelled(ctx) {
			return
		}
		item := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		visited, err := p.store.Has(ctx, item.code)
		if err != nil {
			if p.cancelled(ctx) {
				return
			}
			p.summary.PersistFailures++
			p.logger.Warn("visited check failed", "course", item.code.String(), "error", fmt.Errorf("%w: %w", domain.ErrPersistence, err))
			continue
		}
		if visited {
			p.summary.Skipped++
			continue
		}

		entry, ok := p.lookup(ctx, item)
		if p.cancelled(ctx) {
			return
		}
		if !ok {
			continue
		}

		reqs := p.classifier.Classify(entry.Description)
		p.persist(ctx, entry, reqs)
		stack = p.push(stack, reqs.All(), item.code.Department)
	}
}

// push appends the references worth resolving in reverse, so they pop in
// their original order.
func (p *pass) push(stack []workItem, refs []domain.CourseCode, source string) []workItem {
	for i := len(refs) - 1; i >= 0; i-- {
		code := refs[i]
		if !p.follows(code, source) {
			continue
		}
		if _, seen := p.attempted[code]; seen {
			continue
		}
		p.attempted[code] = struct{}{}
		stack = append(stack, workItem{code: code, source: source})
	}
	return stack
}

func (p *pass) follows(code domain.CourseCode, source string) bool {
	if !code.SameDepartment(source) {
		return true
	}
	return p.followSame && !code.SameDepartment(p.department)
}

// lookup finds the referenced course on its own department's page.
func (p *pass) lookup(ctx context.Context, item workItem) (domain.CourseEntry, bool) {
	target := item.code.Department
	seg, ok := p.load(ctx, target)
	if !ok {
		return domain.CourseEntry{}, false
	}

	entry, found := seg.Find(item.code)
	if !found {
		p.summary.NotFound++
		p.logger.Warn("referenced course not found",
			"course", item.code.String(),
			"referenced_from", item.source,
			"error", fmt.Errorf("%w: %s in %s", domain.ErrReferenceNotFound, item.code, target))
		return domain.CourseEntry{}, false
	}
	return entry, true
}

// load fetches and segments one department page. A fetch that fails
// because ctx ended marks the pass cancelled instead of counting a failure.
func (p *pass) load(ctx context.Context, dept string) (domain.Segmentation, bool) {
	markup, err := p.fetcher.FetchDepartment(ctx, dept)
	if err != nil {
		if p.cancelled(ctx) {
			return domain.Segmentation{}, false
		}
		p.summary.FetchFailures++
		p.logger.Warn("catalog fetch failed", "target", dept, "error", err)
		return domain.Segmentation{}, false
	}

	seg, err := p.segmenter.Segment(markup)
	if err != nil {
		p.summary.FetchFailures++
		p.logger.Warn("catalog segmentation failed", "target", dept, "error", err)
		return domain.Segmentation{}, false
	}
	p.summary.Anomalies += len(seg.Anomalies)
	return seg, true
}

func (p *pass) persist(ctx context.Context, entry domain.CourseEntry, reqs domain.Requisites) {
	record := domain.NewCourseRecord(entry, reqs)
	if err := p.store.Put(ctx, record); err != nil {
		if p.cancelled(ctx) {
			return
		}
		p.summary.PersistFailures++
		p.logger.Warn("course persistence failed", "course", record.Code.String(), "error", fmt.Errorf("%w: %w", domain.ErrPersistence, err))
		return
	}
	p.summary.Persisted++
	p.logger.Debug("course persisted",
		"course", record.Code.String(),
		"prerequisites", record.Prerequisites.Len(),
		"corequisites", record.Corequisites.Len())
}

func (p *pass) cancelled(ctx context.Context) bool {
	if ctx.Err() == nil {
		return false
	}
	if !p.summary.Cancelled {
		p.summary.Cancelled = true
		p.logger.Warn("resolution cancelled", "error", ctx.Err())
	}
	return true
}
