package ports

import (
	"context"
	"time"

	"RequisiteGraph/internal/domain"
)

// CatalogFetcher retrieves the raw catalog markup of one department.
type CatalogFetcher interface {
	FetchDepartment(ctx context.Context, department string) (string, error)
}

// CourseStore persists course records keyed by canonical course code. The
// resolver also uses Has as its visited-check.
type CourseStore interface {
	Get(ctx context.Context, code domain.CourseCode) (domain.CourseRecord, error)
	Has(ctx context.Context, code domain.CourseCode) (bool, error)
	// Put inserts or replaces the whole record.
	Put(ctx context.Context, record domain.CourseRecord) error
	List(ctx context.Context, department string) ([]domain.CourseRecord, error)
	Count(ctx context.Context) (int, error)
}

// Segmenter splits catalog markup into ordered course entries.
type Segmenter interface {
	Segment(markup string) (domain.Segmentation, error)
}

// Classifier extracts prerequisite and corequisite references from a description.
type Classifier interface {
	Classify(description string) domain.Requisites
}

// Notifier delivers run summaries to Telegram or other channels.
type Notifier interface {
	PublishSummary(ctx context.Context, message string) error
}

// Scheduler controls when resolution runs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
