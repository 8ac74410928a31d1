// Package service wires extraction, the join index, persistence and caching
// into the operations exposed by the CLI and the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/okian/eras/internal/adapters/cache"
	"github.com/okian/eras/internal/adapters/repository"
	"github.com/okian/eras/internal/adapters/worker"
	"github.com/okian/eras/internal/domain/efficiency"
	"github.com/okian/eras/internal/domain/join"
	"github.com/okian/eras/internal/domain/model"
	"github.com/okian/eras/internal/domain/period"
	"github.com/okian/eras/pkg/logger"
	"github.com/okian/eras/pkg/metrics"
)

// PeriodCache is the subset of the Redis cache the service uses.
type PeriodCache interface {
	Get(ctx context.Context, fingerprint string) (*cache.Entry, error)
	Set(ctx context.Context, e cache.Entry) error
	Close() error
}

// Service implements the operations behind the CLI and the HTTP API.
type Service struct {
	mu sync.RWMutex

	// Core components
	store      repository.Store
	cache      PeriodCache
	pool       *worker.Pool
	extractor  *period.Extractor
	calculator *efficiency.Calculator
	index      atomic.Pointer[join.Index]

	// Configuration
	workerCount  int
	chunkSize    int
	gapThreshold int
	medalPoints  map[string]float64
	mode         efficiency.ParticipantMode
	keepZero     bool

	// State
	started bool

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of concurrently processed shards.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithChunkSize sets the number of records per annotation shard.
func WithChunkSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.chunkSize = size
		}
	}
}

// WithGapThreshold sets the largest tolerated gap inside one period.
func WithGapThreshold(years int) Option {
	return func(s *Service) {
		if years >= 0 {
			s.gapThreshold = years
		}
	}
}

// WithMedalPoints sets the efficiency weights per medal.
func WithMedalPoints(points map[string]float64) Option {
	return func(s *Service) {
		s.medalPoints = points
	}
}

// WithParticipantMode sets how participants are counted, "entries" or
// "athletes".
func WithParticipantMode(mode string) Option {
	return func(s *Service) {
		s.mode = efficiency.ParticipantMode(mode)
	}
}

// WithZeroMedalRows keeps medal-less labels and label-years in efficiency
// reports.
func WithZeroMedalRows(keep bool) Option {
	return func(s *Service) {
		s.keepZero = keep
	}
}

// WithStore attaches the period repository. The service closes it on Stop.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		s.store = store
	}
}

// WithCache attaches the period cache. The service closes it on Stop.
func WithCache(c PeriodCache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a Service. The join index starts empty until Start,
// Reload or LoadLabeledPeriods fills it.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:  runtime.NumCPU(),
		chunkSize:    10_000,
		gapThreshold: period.DefaultGapThreshold,
		mode:         efficiency.ModeEntries,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.pool = worker.NewPool(s.workerCount, worker.WithLogger(s.logger))
	s.extractor = period.NewExtractor(period.WithGapThreshold(s.gapThreshold))
	s.calculator = efficiency.NewCalculator(
		efficiency.WithMedalPointsFromConfig(s.medalPoints),
		efficiency.WithParticipantMode(s.mode),
		efficiency.WithZeroMedalRows(s.keepZero),
	)
	s.index.Store(join.NewIndex(nil))
	return s
}

// Start loads the labeled period table from the repository, if any.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.logger.Info(ctx, "starting eras service...")

	if s.store != nil {
		if err := s.reload(ctx); err != nil {
			return fmt.Errorf("load labeled periods: %w", err)
		}
	}

	s.started = true
	s.logger.Info(ctx, "eras service started",
		logger.Int("workers", s.pool.Size()),
		logger.Int("chunkSize", s.chunkSize),
		logger.Int("gapThreshold", s.extractor.GapThreshold()),
		logger.Bool("store", s.store != nil),
		logger.Bool("cache", s.cache != nil),
	)
	return nil
}

// Stop releases the repository and the cache.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping eras service...")

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Warn(ctx, "close store", logger.Error(err))
		}
	}
	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			s.logger.Warn(ctx, "close cache", logger.Error(err))
		}
	}

	s.started = false
	s.logger.Info(ctx, "eras service stopped")
}

// Index returns the current join index.
func (s *Service) Index() *join.Index {
	return s.index.Load()
}

// ExtractPeriods segments records into periods. Codes are processed in
// parallel; output keeps first-encounter code order. Results are looked up
// in and written to the cache, and each fresh run is persisted.
func (s *Service) ExtractPeriods(ctx context.Context, records []model.ParticipationRecord) (model.Extraction, error) {
	start := time.Now()
	fp := cache.Fingerprint(records, s.extractor.GapThreshold())

	if s.cache != nil {
		e, err := s.cache.Get(ctx, fp)
		if err != nil {
			s.logger.Warn(ctx, "period cache lookup failed", logger.Error(err))
		} else if e != nil {
			s.logger.Debug(ctx, "period cache hit", logger.String("fingerprint", fp))
			return model.Extraction{RunID: e.RunID, Fingerprint: fp, Periods: e.Periods, Cached: true}, nil
		}
	}

	groups, err := period.Groups(records)
	if err != nil {
		metrics.RecordMalformedBatch()
		return model.Extraction{}, err
	}

	slots := make([][]model.Period, len(groups))
	err = s.pool.Run(ctx, len(groups), func(_ context.Context, i int) error {
		slots[i] = s.extractor.Segment(groups[i])
		return nil
	})
	if err != nil {
		return model.Extraction{}, fmt.Errorf("extract: %w", err)
	}

	var out []model.Period
	for _, ps := range slots {
		out = append(out, ps...)
	}
	metrics.RecordExtraction(len(records), len(out), time.Since(start).Seconds())

	res := model.Extraction{Fingerprint: fp, Periods: out}
	if s.store != nil {
		res.RunID = uuid.NewString()
		run := repository.Run{
			ID:           res.RunID,
			CreatedAt:    time.Now(),
			GapThreshold: s.extractor.GapThreshold(),
			RecordCount:  len(records),
			Fingerprint:  fp,
		}
		if err := s.store.SaveRun(ctx, run, out); err != nil {
			return model.Extraction{}, fmt.Errorf("save run: %w", err)
		}
	}

	if s.cache != nil {
		entry := cache.Entry{
			Fingerprint:  fp,
			RunID:        res.RunID,
			GapThreshold: s.extractor.GapThreshold(),
			Periods:      out,
		}
		if err := s.cache.Set(ctx, entry); err != nil {
			s.logger.Warn(ctx, "period cache store failed", logger.Error(err))
		}
	}

	s.logger.Info(ctx, "periods extracted",
		logger.Int("records", len(records)),
		logger.Int("codes", len(groups)),
		logger.Int("periods", len(out)),
		logger.String("run", res.RunID),
	)
	return res, nil
}

// LoadLabeledPeriods replaces the labeled table, persisting it first when a
// repository is attached, and swaps in a fresh index.
func (s *Service) LoadLabeledPeriods(ctx context.Context, periods []model.LabeledPeriod) error {
	if s.store != nil {
		if err := s.store.ReplaceLabeledPeriods(ctx, periods); err != nil {
			return err
		}
	}
	s.swapIndex(ctx, periods)
	return nil
}

// Reload rebuilds the index from the repository.
func (s *Service) Reload(ctx context.Context) error {
	if s.store == nil {
		return repository.ErrNotConfigured
	}
	return s.reload(ctx)
}

func (s *Service) reload(ctx context.Context) error {
	periods, err := s.store.LabeledPeriods(ctx)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	s.swapIndex(ctx, periods)
	return nil
}

func (s *Service) swapIndex(ctx context.Context, periods []model.LabeledPeriod) {
	idx := join.NewIndex(periods)
	for _, o := range idx.Overlaps() {
		s.logger.Warn(ctx, "overlapping labeled periods, first in table order wins",
			logger.String("code", o.First.EntityCode),
			logger.String("first", o.First.Label+" "+o.First.Period.String()),
			logger.String("second", o.Second.Label+" "+o.Second.Period.String()),
		)
	}
	if idx.Skipped() > 0 {
		s.logger.Warn(ctx, "labeled periods with start after end ignored", logger.Int("rows", idx.Skipped()))
	}
	s.index.Store(idx)
	metrics.UpdateIndex(idx.Size(), len(idx.Codes()), len(idx.Overlaps()))
	s.logger.Info(ctx, "join index loaded",
		logger.Int("periods", idx.Size()),
		logger.Int("codes", len(idx.Codes())),
	)
}

// Annotate labels every record against the current index. Records are
// never dropped; unmatched ones carry model.UnknownLabel.
func (s *Service) Annotate(ctx context.Context, records []model.ParticipationRecord) ([]model.AnnotatedRecord, join.Summary, error) {
	start := time.Now()
	idx := s.index.Load()

	out := make([]model.AnnotatedRecord, len(records))
	shards := worker.ChunkCount(len(records), s.chunkSize)
	sums := make([]join.Summary, shards)

	err := s.pool.Run(ctx, shards, func(_ context.Context, i int) error {
		lo, hi := worker.ChunkBounds(len(records), s.chunkSize, i)
		sums[i] = idx.AnnotateInto(out[lo:hi], records[lo:hi])
		return nil
	})
	if err != nil {
		return nil, join.Summary{}, fmt.Errorf("annotate: %w", err)
	}

	var sum join.Summary
	for _, part := range sums {
		sum.Add(part)
	}

	perLabel := make(map[string]int)
	for _, r := range out {
		perLabel[r.Label]++
	}
	for label, n := range perLabel {
		metrics.RecordAnnotated(label, n)
	}
	metrics.RecordJoin(sum.Unknown, sum.Ambiguous, time.Since(start).Seconds())

	if sum.Ambiguous > 0 {
		s.logger.Warn(ctx, "records matched overlapping periods",
			logger.Int("ambiguous", sum.Ambiguous),
		)
	}
	s.logger.Debug(ctx, "records annotated",
		logger.Int("records", sum.Total),
		logger.Int("unknown", sum.Unknown),
	)
	return out, sum, nil
}

// Label resolves a single code and year.
func (s *Service) Label(ctx context.Context, code string, year int) join.Match {
	m := s.index.Load().Resolve(code, year)
	if m.Ambiguous {
		s.logger.Warn(ctx, "lookup matched overlapping periods",
			logger.String("code", code),
			logger.Int("year", year),
		)
	}
	return m
}

// PeriodsFor returns the labeled periods of code in table order.
func (s *Service) PeriodsFor(code string) []model.LabeledPeriod {
	return s.index.Load().Periods(code)
}

// Efficiency aggregates annotated records into medal efficiency tables.
func (s *Service) Efficiency(ctx context.Context, records []model.AnnotatedRecord) (efficiency.Report, error) {
	return s.calculator.Summarize(ctx, records)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.index.Load()
	stats := map[string]interface{}{
		"started":         s.started,
		"workerCount":     s.pool.Size(),
		"chunkSize":       s.chunkSize,
		"gapThreshold":    s.extractor.GapThreshold(),
		"participantMode": string(s.calculator.Mode()),
		"storeEnabled":    s.store != nil,
		"cacheEnabled":    s.cache != nil,
		"indexPeriods":    idx.Size(),
		"indexCodes":      len(idx.Codes()),
		"indexOverlaps":   len(idx.Overlaps()),
		"indexSkipped":    idx.Skipped(),
	}
	metrics.UpdateIndex(idx.Size(), len(idx.Codes()), len(idx.Overlaps()))
	return stats
}
