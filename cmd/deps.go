package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/okian/eras/internal/adapters/cache"
	"github.com/okian/eras/internal/adapters/csvio"
	"github.com/okian/eras/internal/adapters/repository"
	app "github.com/okian/eras/internal/app"
	"github.com/okian/eras/internal/config"
	"github.com/okian/eras/internal/domain/model"
	"github.com/okian/eras/pkg/logger"
)

// serviceOptions translates the configuration into service options.
// withStore=false leaves the repository out even when one is configured.
func serviceOptions(ctx context.Context, c *config.Config, withStore bool) ([]app.Option, error) {
	opts := []app.Option{
		app.WithLogger(logger.Get().Named("service")),
		app.WithWorkerCount(c.WorkerCount),
		app.WithChunkSize(c.ChunkSize),
		app.WithGapThreshold(c.GapThreshold),
		app.WithMedalPoints(c.MedalPoints),
		app.WithParticipantMode(c.ParticipantMode),
		app.WithZeroMedalRows(c.KeepZeroMedalRows),
	}

	if withStore && c.StoreDriver != config.StoreNone {
		store, err := repository.Open(ctx, c.StoreDriver, c.StoreDSN)
		if err != nil {
			return nil, fmt.Errorf("open %s store: %w", c.StoreDriver, err)
		}
		opts = append(opts, app.WithStore(store))
	}

	ttl := time.Duration(c.CacheTTLSeconds) * time.Second
	if c.RedisAddr != "" {
		client, err := cache.Connect(ctx, c.RedisAddr, c.RedisDB)
		if err == nil {
			return append(opts, app.WithCache(cache.NewPeriodCache(client, ttl))), nil
		}
		logger.Get().Warn(ctx, "redis period cache unavailable", logger.Error(err))
	}
	if c.MemoryCacheEntries > 0 {
		opts = append(opts, app.WithCache(cache.NewMemoryCache(
			cache.WithMaxEntries(c.MemoryCacheEntries),
			cache.WithTTL(ttl),
		)))
	}
	return opts, nil
}

// startService builds and starts the service; callers must Stop it.
func startService(ctx context.Context, c *config.Config, withStore bool) (*app.Service, error) {
	opts, err := serviceOptions(ctx, c, withStore)
	if err != nil {
		return nil, err
	}
	svc := app.New(opts...)
	if err := svc.Start(ctx); err != nil {
		return nil, err
	}
	return svc, nil
}

// openInput opens path for reading; "-" is stdin.
func openInput(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(path) //nolint:gosec // user supplied input file
}

// createOutput opens path for writing; "" and "-" are stdout.
func createOutput(path string, stdout io.Writer) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopWriteCloser{stdout}, nil
	}
	return os.Create(path) //nolint:gosec // user supplied output file
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

func readRecords(path, regionsPath string) ([]model.ParticipationRecord, error) {
	in, err := openInput(path)
	if err != nil {
		return nil, err
	}
	defer in.Close()

	records, err := csvio.ReadRecords(in)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if regionsPath == "" {
		return records, nil
	}

	rf, err := openInput(regionsPath)
	if err != nil {
		return nil, err
	}
	defer rf.Close()
	regions, err := csvio.ReadRegions(rf)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", regionsPath, err)
	}
	return model.ApplyRegions(records, regions), nil
}

func readLabeledPeriods(path string) ([]model.LabeledPeriod, error) {
	in, err := openInput(path)
	if err != nil {
		return nil, err
	}
	defer in.Close()

	periods, err := csvio.ReadLabeledPeriods(in)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return periods, nil
}

// annotateFile annotates the records at recordsPath. With periodsPath set the
// labeled table comes from that file and the repository is left untouched;
// otherwise the stored table is used.
func annotateFile(ctx context.Context, recordsPath, regionsPath, periodsPath string) (*app.Service, []model.AnnotatedRecord, error) {
	records, err := readRecords(recordsPath, regionsPath)
	if err != nil {
		return nil, nil, err
	}

	svc, err := startService(ctx, cfg, periodsPath == "")
	if err != nil {
		return nil, nil, err
	}
	if periodsPath != "" {
		table, err := readLabeledPeriods(periodsPath)
		if err != nil {
			svc.Stop()
			return nil, nil, err
		}
		if err := svc.LoadLabeledPeriods(ctx, table); err != nil {
			svc.Stop()
			return nil, nil, err
		}
	}

	out, _, err := svc.Annotate(ctx, records)
	if err != nil {
		svc.Stop()
		return nil, nil, err
	}
	return svc, out, nil
}
