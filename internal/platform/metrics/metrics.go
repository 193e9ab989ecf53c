package metrics

import (
	"sync/atomic"
	"time"
)

// Collector keeps process-wide request counters. Cheap enough to sit in the
// hot path; exposed as a snapshot map on /metrics.
type Collector struct {
	totalRequests   uint64
	errorRequests   uint64
	rateLimited     uint64
	conflictRetries uint64
	totalDurationMs uint64
}

func New() *Collector {
	return &Collector{}
}

func (c *Collector) Record(status int, duration time.Duration) {
	atomic.AddUint64(&c.totalRequests, 1)
	if status >= 500 {
		atomic.AddUint64(&c.errorRequests, 1)
	}
	if status == 429 {
		atomic.AddUint64(&c.rateLimited, 1)
	}
	atomic.AddUint64(&c.totalDurationMs, uint64(duration.Milliseconds()))
}

// RecordConflictRetry counts engine transactions replayed after a
// serialization failure.
func (c *Collector) RecordConflictRetry() {
	atomic.AddUint64(&c.conflictRetries, 1)
}

func (c *Collector) Snapshot() map[string]any {
	total := atomic.LoadUint64(&c.totalRequests)
	errs := atomic.LoadUint64(&c.errorRequests)
	limited := atomic.LoadUint64(&c.rateLimited)
	retries := atomic.LoadUint64(&c.conflictRetries)
	totalMs := atomic.LoadUint64(&c.totalDurationMs)
	avg := float64(0)
	if total > 0 {
		avg = float64(totalMs) / float64(total)
	}
	return map[string]any{
		"requestsTotal":        total,
		"errorsTotal":          errs,
		"rateLimitedTotal":     limited,
		"conflictRetriesTotal": retries,
		"avgDurationMs":        avg,
		"totalDurationMs":      totalMs,
	}
}
