// Package loadtest drives a running eras server with synthetic
// participation records and checks the responses against the core
// invariants: no dropped records and full period coverage.
package loadtest

import "time"

// Config holds configuration for a load test run.
type Config struct {
	BaseURL   string        // Base URL of the service
	Records   int           // Number of records to generate
	Codes     int           // Number of distinct entity codes
	BatchSize int           // Records per request
	Workers   int           // Concurrent requests
	Timeout   time.Duration // HTTP request timeout
	Seed      uint64        // Generator seed; equal seeds give equal records
}

// DefaultConfig returns a small run suitable for a local server.
func DefaultConfig() Config {
	return Config{
		BaseURL:   "http://localhost:9080",
		Records:   50_000,
		Codes:     200,
		BatchSize: 5_000,
		Workers:   4,
		Timeout:   30 * time.Second,
		Seed:      1,
	}
}

// Stats holds run statistics.
type Stats struct {
	RecordsGenerated int
	Batches          int
	BatchesFailed    int
	Annotated        int
	Unknown          int
	Ambiguous        int
	Periods          int
	Duration         time.Duration
}
