package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"RequisiteGraph/internal/domain"
	"RequisiteGraph/internal/ports"
)

// MemoryRepository keeps course records in a map. Records are copied on the
// way in and out so callers never share requisite sets with the store.
type MemoryRepository struct {
	mu      sync.RWMutex
	records map[string]domain.CourseRecord
}

var _ ports.CourseStore = (*MemoryRepository)(nil)

// NewMemoryRepository builds an empty store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{records: map[string]domain.CourseRecord{}}
}

func (m *MemoryRepository) Get(ctx context.Context, code domain.CourseCode) (domain.CourseRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	record, ok := m.records[code.String()]
	if !ok {
		return domain.CourseRecord{}, fmt.Errorf("%s: %w", code, domain.ErrNotFound)
	}
	return cloneRecord(record), nil
}

func (m *MemoryRepository) Has(ctx context.Context, code domain.CourseCode) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.records[code.String()]
	return ok, nil
}

func (m *MemoryRepository) Put(ctx context.Context, record domain.CourseRecord) error {
	if record.Code.IsZero() {
		return fmt.Errorf("put course: empty code")
	}

	record = cloneRecord(record)
	record.UpdatedAt = time.Now().UTC()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[record.Code.String()] = record
	return nil
}

func (m *MemoryRepository) List(ctx context.Context, department string) ([]domain.CourseRecord, error) {
	dept := domain.NormalizeDepartment(department)

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.CourseRecord, 0, len(m.records))
	for _, record := range m.records {
		if dept != "" && record.Code.Department != dept {
			continue
		}
		out = append(out, cloneRecord(record))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code.String() < out[j].Code.String() })
	return out, nil
}

func (m *MemoryRepository) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records), nil
}

func cloneRecord(record domain.CourseRecord) domain.CourseRecord {
	record.Prerequisites = domain.NewCodeSet(record.Prerequisites.Sorted()...)
	record.Corequisites = domain.NewCodeSet(record.Corequisites.Sorted()...)
	return record
}
