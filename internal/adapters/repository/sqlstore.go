package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"  // postgres driver
	_ "modernc.org/sqlite" // sqlite driver

	"github.com/okian/eras/internal/domain/model"
	"github.com/okian/eras/pkg/metrics"
)

// Drivers accepted by Open.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// SQLStore implements Store on database/sql for SQLite and PostgreSQL.
type SQLStore struct {
	db       *sql.DB
	driver   string
	maxOpen  int
	maxIdle  int
	postgres bool
}

var _ Store = (*SQLStore)(nil)

// Open opens the store for driver and applies the schema.
func Open(ctx context.Context, driver, dsn string, opts ...Option) (*SQLStore, error) {
	s := &SQLStore{driver: driver, maxOpen: 10, maxIdle: 5}
	for _, opt := range opts {
		opt(s)
	}

	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("%w: dsn is required", ErrNotConfigured)
	}

	var err error
	switch driver {
	case DriverSQLite:
		path := filepath.Clean(dsn)
		s.db, err = sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)")
		if err == nil {
			s.db.SetMaxOpenConns(1)
		}
	case DriverPostgres:
		s.postgres = true
		s.db, err = sql.Open("postgres", dsn)
		if err == nil {
			s.db.SetMaxOpenConns(s.maxOpen)
			s.db.SetMaxIdleConns(s.maxIdle)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s db: %w", driver, err)
	}

	if err := s.db.PingContext(ctx); err != nil {
		_ = s.db.Close()
		return nil, fmt.Errorf("ping %s db: %w", driver, err)
	}
	if err := ensureSchema(ctx, s.db); err != nil {
		_ = s.db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return s, nil
}

// Driver returns the database driver name.
func (s *SQLStore) Driver() string { return s.driver }

// Close closes the database handle.
func (s *SQLStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// rebind rewrites ? placeholders to $n for PostgreSQL.
func (s *SQLStore) rebind(query string) string {
	if !s.postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func toMillis(t time.Time) int64 { return t.UTC().UnixMilli() }

func fromMillis(v int64) time.Time { return time.UnixMilli(v).UTC() }

// SaveRun stores a run and its periods in one transaction.
func (s *SQLStore) SaveRun(ctx context.Context, run Run, periods []model.Period) (err error) {
	defer func() { metrics.RecordStoreOp("save_run", err) }()

	if strings.TrimSpace(run.ID) == "" {
		return fmt.Errorf("run id is required")
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, s.rebind(
		`INSERT INTO extraction_runs (id, created_at, gap_threshold, record_count, period_count, fingerprint)
		 VALUES (?, ?, ?, ?, ?, ?)`),
		run.ID, toMillis(run.CreatedAt), run.GapThreshold, run.RecordCount, len(periods), run.Fingerprint,
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, s.rebind(
		`INSERT INTO periods (run_id, position, entity_code, region_hint, start_year, end_year)
		 VALUES (?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return fmt.Errorf("prepare periods: %w", err)
	}
	defer stmt.Close()

	for i, p := range periods {
		if _, err = stmt.ExecContext(ctx, run.ID, i, p.EntityCode, p.RegionHint, p.StartYear, p.EndYear); err != nil {
			return fmt.Errorf("insert period %d: %w", i, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

const runColumns = `id, created_at, gap_threshold, record_count, period_count, fingerprint`

func scanRun(row *sql.Row) (Run, error) {
	var (
		r       Run
		created int64
	)
	if err := row.Scan(&r.ID, &created, &r.GapThreshold, &r.RecordCount, &r.PeriodCount, &r.Fingerprint); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, ErrNotFound
		}
		return Run{}, err
	}
	r.CreatedAt = fromMillis(created)
	return r, nil
}

// Run returns the run with id.
func (s *SQLStore) Run(ctx context.Context, id string) (run Run, err error) {
	defer func() { metrics.RecordStoreOp("get_run", ignoreNotFound(err)) }()
	return scanRun(s.db.QueryRowContext(ctx, s.rebind(
		`SELECT `+runColumns+` FROM extraction_runs WHERE id = ?`), id))
}

// LatestRun returns the most recently created run.
func (s *SQLStore) LatestRun(ctx context.Context) (run Run, err error) {
	defer func() { metrics.RecordStoreOp("latest_run", ignoreNotFound(err)) }()
	return scanRun(s.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM extraction_runs ORDER BY created_at DESC, id DESC LIMIT 1`))
}

// Periods returns the periods of a run in extraction order.
func (s *SQLStore) Periods(ctx context.Context, runID string) (out []model.Period, err error) {
	defer func() { metrics.RecordStoreOp("list_periods", ignoreNotFound(err)) }()

	if _, err = s.Run(ctx, runID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, s.rebind(
		`SELECT entity_code, region_hint, start_year, end_year
		 FROM periods WHERE run_id = ? ORDER BY position`), runID)
	if err != nil {
		return nil, fmt.Errorf("query periods: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p model.Period
		if err = rows.Scan(&p.EntityCode, &p.RegionHint, &p.StartYear, &p.EndYear); err != nil {
			return nil, fmt.Errorf("scan period: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ReplaceLabeledPeriods swaps the labeled table inside one transaction.
func (s *SQLStore) ReplaceLabeledPeriods(ctx context.Context, periods []model.LabeledPeriod) (err error) {
	defer func() { metrics.RecordStoreOp("replace_labeled", err) }()

	for i, p := range periods {
		if verr := p.Validate(); verr != nil {
			return fmt.Errorf("%w: row %d: %w", ErrInvalidPeriods, i, verr)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM labeled_periods`); err != nil {
		return fmt.Errorf("clear labeled periods: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, s.rebind(
		`INSERT INTO labeled_periods (position, entity_code, label, region_hint, start_year, end_year)
		 VALUES (?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return fmt.Errorf("prepare labeled periods: %w", err)
	}
	defer stmt.Close()

	for i, p := range periods {
		if _, err = stmt.ExecContext(ctx, i, p.EntityCode, p.Label, p.RegionHint, p.StartYear, p.EndYear); err != nil {
			return fmt.Errorf("insert labeled period %d: %w", i, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// LabeledPeriods returns the labeled table in stored order.
func (s *SQLStore) LabeledPeriods(ctx context.Context) (out []model.LabeledPeriod, err error) {
	defer func() { metrics.RecordStoreOp("list_labeled", err) }()

	rows, err := s.db.QueryContext(ctx,
		`SELECT entity_code, label, region_hint, start_year, end_year
		 FROM labeled_periods ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query labeled periods: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p model.LabeledPeriod
		if err = rows.Scan(&p.EntityCode, &p.Label, &p.RegionHint, &p.StartYear, &p.EndYear); err != nil {
			return nil, fmt.Errorf("scan labeled period: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func ignoreNotFound(err error) error {
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}
