package consts

import "time"

// Intervals and limits used across the sync pipeline.
const (
	// SchedulerTickInterval is how often the auto-sync scheduler
	// compares the clock against the configured sync time.
	SchedulerTickInterval = time.Minute

	// ProgressMinInterval throttles progress fan-out: a per-item
	// update is forwarded only after this much time has elapsed or
	// the percentage moved by ProgressMinDelta.
	ProgressMinInterval = 500 * time.Millisecond
	ProgressMinDelta    = 1.0

	// SubscriberTimeout disconnects a stream subscriber that has not
	// pinged within this window.
	SubscriberTimeout = 60 * time.Second

	// RetryBaseBackoff is the delay before the first download retry;
	// it doubles with each further attempt.
	RetryBaseBackoff = 5 * time.Second

	// DefaultMaxRetries bounds transient download retries per item.
	DefaultMaxRetries = 3

	// CatalogPageSize is the page size requested from the remote
	// listing endpoints.
	CatalogPageSize = 50

	// DBOpTimeout bounds individual status flushes to the database.
	DBOpTimeout = 5 * time.Second
)
