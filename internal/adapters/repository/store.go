// Package repository persists extraction runs and the curated labeled
// period table.
package repository

import (
	"context"
	"time"

	"github.com/okian/eras/internal/domain/model"
)

// Run describes one extraction batch.
type Run struct {
	ID           string
	CreatedAt    time.Time
	GapThreshold int
	RecordCount  int
	PeriodCount  int
	Fingerprint  string
}

// Store persists periods across runs.
type Store interface {
	// SaveRun stores a run and its periods atomically, keeping period order.
	SaveRun(ctx context.Context, run Run, periods []model.Period) error
	// Run returns the run with id or ErrNotFound.
	Run(ctx context.Context, id string) (Run, error)
	// LatestRun returns the most recent run or ErrNotFound.
	LatestRun(ctx context.Context) (Run, error)
	// Periods returns the periods of a run in extraction order.
	Periods(ctx context.Context, runID string) ([]model.Period, error)

	// ReplaceLabeledPeriods swaps the whole labeled table; row order is kept
	// because it decides ties between overlapping periods.
	ReplaceLabeledPeriods(ctx context.Context, periods []model.LabeledPeriod) error
	// LabeledPeriods returns the labeled table in stored order.
	LabeledPeriods(ctx context.Context) ([]model.LabeledPeriod, error)

	Close() error
}
