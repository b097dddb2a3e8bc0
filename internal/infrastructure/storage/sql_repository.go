package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"RequisiteGraph/internal/config"
	"RequisiteGraph/internal/domain"
	"RequisiteGraph/internal/ports"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

const schema = `
CREATE TABLE IF NOT EXISTS courses (
	course_code   VARCHAR(16) PRIMARY KEY,
	department    VARCHAR(16) NOT NULL,
	name          TEXT NOT NULL,
	prerequisites TEXT NOT NULL DEFAULT '[]',
	corequisites  TEXT NOT NULL DEFAULT '[]',
	description   TEXT NOT NULL DEFAULT '',
	updated_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_courses_department ON courses(department);
`

const upsertSuffix = `ON CONFLICT (course_code) DO UPDATE
              SET department = EXCLUDED.department,
                  name = EXCLUDED.name,
                  prerequisites = EXCLUDED.prerequisites,
                  corequisites = EXCLUDED.corequisites,
                  description = EXCLUDED.description,
                  updated_at = EXCLUDED.updated_at`

var courseColumns = []string{
	"course_code", "department", "name", "prerequisites", "corequisites", "description", "updated_at",
}

// SQLRepository persists course records into sqlite or Postgres.
type SQLRepository struct {
	db      *sql.DB
	builder squirrel.StatementBuilderType
	now     func() time.Time
}

var _ ports.CourseStore = (*SQLRepository)(nil)

// Open connects to the configured database and applies the schema.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*SQLRepository, error) {
	driver := normalizeDriver(cfg.Driver)
	if driver == DriverSQLite {
		if err := ensureSQLiteDir(cfg.DSN); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open(driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	repo := NewSQLRepository(db, driver)
	if err := repo.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// NewSQLRepository wires a sql.DB implementation; driver selects the placeholder style.
func NewSQLRepository(db *sql.DB, driver string) *SQLRepository {
	var placeholder squirrel.PlaceholderFormat = squirrel.Question
	if normalizeDriver(driver) == DriverPostgres {
		placeholder = squirrel.Dollar
	}
	return &SQLRepository{
		db:      db,
		builder: squirrel.StatementBuilder.PlaceholderFormat(placeholder),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Migrate creates the courses table when missing.
func (r *SQLRepository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (r *SQLRepository) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

// Get loads one record or returns domain.ErrNotFound.
func (r *SQLRepository) Get(ctx context.Context, code domain.CourseCode) (domain.CourseRecord, error) {
	query, args, err := r.builder.Select(courseColumns...).
		From("courses").
		Where(squirrel.Eq{"course_code": code.String()}).
		ToSql()
	if err != nil {
		return domain.CourseRecord{}, fmt.Errorf("build select: %w", err)
	}

	record, err := scanRecord(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.CourseRecord{}, fmt.Errorf("%s: %w", code, domain.ErrNotFound)
	}
	if err != nil {
		return domain.CourseRecord{}, fmt.Errorf("select course %s: %w", code, err)
	}
	return record, nil
}

// Has reports whether a record exists for code.
func (r *SQLRepository) Has(ctx context.Context, code domain.CourseCode) (bool, error) {
	query, args, err := r.builder.Select("COUNT(*)").
		From("courses").
		Where(squirrel.Eq{"course_code": code.String()}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build count: %w", err)
	}

	var n int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return false, fmt.Errorf("count course %s: %w", code, err)
	}
	return n > 0, nil
}

// Put upserts the whole record.
func (r *SQLRepository) Put(ctx context.Context, record domain.CourseRecord) error {
	prereqs, err := json.Marshal(record.Prerequisites.Strings())
	if err != nil {
		return fmt.Errorf("marshal prerequisites: %w", err)
	}
	coreqs, err := json.Marshal(record.Corequisites.Strings())
	if err != nil {
		return fmt.Errorf("marshal corequisites: %w", err)
	}

	query, args, err := r.builder.Insert("courses").
		Columns(courseColumns...).
		Values(
			record.Code.String(),
			record.Code.Department,
			record.Name,
			string(prereqs),
			string(coreqs),
			record.Description,
			r.now(),
		).
		Suffix(upsertSuffix).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert course %s: %w", record.Code, err)
	}
	return nil
}

// List returns records ordered by code; an empty department lists everything.
func (r *SQLRepository) List(ctx context.Context, department string) ([]domain.CourseRecord, error) {
	sel := r.builder.Select(courseColumns...).From("courses").OrderBy("course_code")
	if dept := domain.NormalizeDepartment(department); dept != "" {
		sel = sel.Where(squirrel.Eq{"department": dept})
	}

	query, args, err := sel.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query courses: %w", err)
	}

	var records []domain.CourseRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan course: %w", err)
		}
		records = append(records, record)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("rows iteration: %w", rowsErr)
	}

	if closeErr := rows.Close(); closeErr != nil {
		return nil, fmt.Errorf("close rows: %w", closeErr)
	}

	return records, nil
}

// Count returns the number of stored records.
func (r *SQLRepository) Count(ctx context.Context) (int, error) {
	query, args, err := r.builder.Select("COUNT(*)").From("courses").ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count: %w", err)
	}

	var n int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count courses: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (domain.CourseRecord, error) {
	var (
		code, department, name string
		prereqs, coreqs        string
		description            string
		updatedAt              time.Time
	)
	if err := row.Scan(&code, &department, &name, &prereqs, &coreqs, &description, &updatedAt); err != nil {
		return domain.CourseRecord{}, err
	}

	parsed, err := domain.ParseCourseCode(code)
	if err != nil {
		return domain.CourseRecord{}, fmt.Errorf("stored code: %w", err)
	}

	prereqSet, err := decodeCodes(prereqs)
	if err != nil {
		return domain.CourseRecord{}, fmt.Errorf("stored prerequisites of %s: %w", code, err)
	}
	coreqSet, err := decodeCodes(coreqs)
	if err != nil {
		return domain.CourseRecord{}, fmt.Errorf("stored corequisites of %s: %w", code, err)
	}

	return domain.CourseRecord{
		Code:          parsed,
		Name:          name,
		Prerequisites: prereqSet,
		Corequisites:  coreqSet,
		Description:   description,
		UpdatedAt:     updatedAt,
	}, nil
}

func decodeCodes(raw string) (domain.CodeSet, error) {
	set := domain.CodeSet{}
	if strings.TrimSpace(raw) == "" {
		return set, nil
	}

	var values []string
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil, err
	}
	for _, v := range values {
		code, err := domain.ParseCourseCode(v)
		if err != nil {
			continue
		}
		set.Add(code)
	}
	return set, nil
}

func normalizeDriver(driver string) string {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "postgres", "postgresql", "pg":
		return DriverPostgres
	default:
		return DriverSQLite
	}
}

func ensureSQLiteDir(dsn string) error {
	if dsn == "" || strings.HasPrefix(dsn, ":memory:") || strings.HasPrefix(dsn, "file:") {
		return nil
	}
	dir := filepath.Dir(dsn)
	if dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create database dir: %w", err)
	}
	return nil
}
