package loadtest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/okian/eras/internal/adapters/worker"
	"github.com/okian/eras/internal/domain/model"
	"github.com/okian/eras/internal/domain/types"
	"github.com/okian/eras/pkg/logger"
)

// ErrVerification is returned when a response breaks an invariant.
var ErrVerification = errors.New("verification failed")

// Run generates records, annotates them in concurrent batches, extracts
// periods for the whole set and verifies both responses.
func Run(ctx context.Context, cfg Config) (Stats, error) {
	start := time.Now()
	log := logger.Get().Named("loadtest")
	stats := Stats{}

	log.Info(ctx, "starting eras load test",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("records", cfg.Records),
		logger.Int("codes", cfg.Codes),
		logger.Int("batchSize", cfg.BatchSize),
		logger.Int("workers", cfg.Workers),
	)

	c := newClient(cfg.BaseURL, cfg.Timeout)
	if err := c.health(ctx); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	records := Generate(cfg.Records, cfg.Codes, cfg.Seed)
	stats.RecordsGenerated = len(records)

	if err := annotateAll(ctx, c, cfg, records, &stats); err != nil {
		return stats, err
	}

	ext, err := c.extract(ctx, records)
	if err != nil {
		return stats, fmt.Errorf("extract: %w", err)
	}
	stats.Periods = len(ext.Periods)
	if err := verifyCoverage(records, ext.Periods); err != nil {
		return stats, err
	}

	stats.Duration = time.Since(start)
	log.Info(ctx, "load test completed",
		logger.Int("annotated", stats.Annotated),
		logger.Int("unknown", stats.Unknown),
		logger.Int("ambiguous", stats.Ambiguous),
		logger.Int("periods", stats.Periods),
		logger.String("duration", stats.Duration.String()),
	)
	return stats, nil
}

func annotateAll(ctx context.Context, c *client, cfg Config, records []model.ParticipationRecord, stats *Stats) error {
	size := max(cfg.BatchSize, 1)
	batches := worker.ChunkCount(len(records), size)
	stats.Batches = batches

	var mu sync.Mutex
	pool := worker.NewPool(cfg.Workers)
	return pool.Run(ctx, batches, func(ctx context.Context, i int) error {
		lo, hi := worker.ChunkBounds(len(records), size, i)
		batch := records[lo:hi]

		resp, err := c.annotate(ctx, batch)
		if err == nil {
			err = verifyAnnotation(batch, resp)
		}

		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			stats.BatchesFailed++
			return err
		}
		stats.Annotated += resp.Total
		stats.Unknown += resp.Unknown
		stats.Ambiguous += resp.Ambiguous
		return nil
	})
}

// verifyAnnotation checks that every record came back once, in order.
func verifyAnnotation(sent []model.ParticipationRecord, got types.Annotation) error {
	if len(got.Records) != len(sent) || got.Total != len(sent) {
		return fmt.Errorf("%w: sent %d records, got %d (total %d)", ErrVerification, len(sent), len(got.Records), got.Total)
	}
	for i, r := range got.Records {
		if r.EntityCode != sent[i].EntityCode || r.Year != sent[i].Year {
			return fmt.Errorf("%w: record %d came back as %s/%d", ErrVerification, i, r.EntityCode, r.Year)
		}
		if r.Label == "" {
			return fmt.Errorf("%w: record %d has no label", ErrVerification, i)
		}
	}
	return nil
}

// verifyCoverage checks that every record year lies in exactly one period
// of its code.
func verifyCoverage(records []model.ParticipationRecord, periods []types.Period) error {
	byCode := make(map[string][]types.Period)
	for _, p := range periods {
		if p.StartYear > p.EndYear {
			return fmt.Errorf("%w: period %s[%d-%d] is inverted", ErrVerification, p.EntityCode, p.StartYear, p.EndYear)
		}
		byCode[p.EntityCode] = append(byCode[p.EntityCode], p)
	}
	for i, r := range records {
		n := 0
		for _, p := range byCode[r.EntityCode] {
			if p.StartYear <= r.Year && r.Year <= p.EndYear {
				n++
			}
		}
		if n != 1 {
			return fmt.Errorf("%w: record %d (%s/%d) covered by %d periods", ErrVerification, i, r.EntityCode, r.Year, n)
		}
	}
	return nil
}
