// Package cache keeps extracted period tables in Redis, keyed by a
// fingerprint of the input batch.
package cache

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/redis/go-redis/v9"

	"github.com/okian/eras/internal/domain/model"
	"github.com/okian/eras/pkg/metrics"
)

const keyPrefix = "eras:periods:"

// Entry is the cached result of one extraction.
type Entry struct {
	Fingerprint  string         `json:"fingerprint"`
	RunID        string         `json:"run_id,omitempty"`
	GapThreshold int            `json:"gap_threshold"`
	Periods      []model.Period `json:"periods"`
	StoredAt     time.Time      `json:"stored_at"`
}

// PeriodCache stores extraction results in Redis.
type PeriodCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewPeriodCache wraps client. A zero ttl keeps entries until evicted.
func NewPeriodCache(client *redis.Client, ttl time.Duration) *PeriodCache {
	return &PeriodCache{client: client, ttl: ttl}
}

// Connect dials addr and checks the connection.
func Connect(ctx context.Context, addr string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return client, nil
}

// Fingerprint hashes the fields that influence extraction together with the
// gap threshold. Carried-through columns are ignored.
func Fingerprint(records []model.ParticipationRecord, gap int) string {
	d := xxhash.New()
	var buf [8]byte

	binary.LittleEndian.PutUint64(buf[:], uint64(int64(gap)))
	_, _ = d.Write(buf[:])
	for _, r := range records {
		_, _ = d.WriteString(r.EntityCode)
		_, _ = d.Write([]byte{0})
		_, _ = d.WriteString(r.RegionHint)
		_, _ = d.Write([]byte{0})
		binary.LittleEndian.PutUint64(buf[:], uint64(int64(r.Year)))
		_, _ = d.Write(buf[:])
	}
	return strconv.FormatUint(d.Sum64(), 16)
}

// Get returns the entry for fingerprint, or nil on a miss.
func (c *PeriodCache) Get(ctx context.Context, fingerprint string) (*Entry, error) {
	data, err := c.client.Get(ctx, keyPrefix+fingerprint).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			metrics.RecordCacheMiss()
			return nil, nil
		}
		metrics.RecordCacheError()
		return nil, err
	}

	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		metrics.RecordCacheError()
		_ = c.client.Del(ctx, keyPrefix+fingerprint)
		return nil, fmt.Errorf("decode cached periods: %w", err)
	}
	metrics.RecordCacheHit()
	return &e, nil
}

// Set stores e under its fingerprint.
func (c *PeriodCache) Set(ctx context.Context, e Entry) error {
	if e.StoredAt.IsZero() {
		e.StoredAt = time.Now().UTC()
	}
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, keyPrefix+e.Fingerprint, data, c.ttl).Err(); err != nil {
		metrics.RecordCacheError()
		return err
	}
	return nil
}

// Invalidate drops the entry for fingerprint.
func (c *PeriodCache) Invalidate(ctx context.Context, fingerprint string) error {
	return c.client.Del(ctx, keyPrefix+fingerprint).Err()
}

// Close closes the underlying client.
func (c *PeriodCache) Close() error {
	return c.client.Close()
}
