// Package timeouts provides centralized timeout values for handler operations.
//
// The values feed context.WithTimeout around database work in HTTP handlers,
// so the budget for each class of operation lives in one place.
//
// Guidelines for choosing a timeout:
//   - Ping: health checks and connectivity verification
//   - Short: simple single-document reads or lookups
//   - Medium: list queries, moderate writes, multi-step reads
//   - Long: operations touching multiple collections
//   - Batch: CSV imports and other bulk work
package timeouts

import (
	"context"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Default timeout values (used unless overridden at startup).
const (
	DefaultPing   = 2 * time.Second
	DefaultShort  = 5 * time.Second
	DefaultMedium = 10 * time.Second
	DefaultLong   = 30 * time.Second
	DefaultBatch  = 60 * time.Second
)

var mu sync.RWMutex

var (
	ping   = DefaultPing
	short  = DefaultShort
	medium = DefaultMedium
	long   = DefaultLong
	batch  = DefaultBatch
)

// Ping returns the timeout for health checks and connectivity verification.
func Ping() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return ping
}

// Short returns the timeout for simple operations like single-document reads.
func Short() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return short
}

// Medium returns the timeout for moderate operations like list queries.
func Medium() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return medium
}

// Long returns the timeout for operations touching multiple collections.
func Long() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return long
}

// Batch returns the timeout for bulk operations like CSV imports.
func Batch() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return batch
}

// ConfigureFromEnv overrides timeouts from environment variables, all
// optional: DUTYHUB_TIMEOUT_PING, DUTYHUB_TIMEOUT_SHORT,
// DUTYHUB_TIMEOUT_MEDIUM, DUTYHUB_TIMEOUT_LONG, DUTYHUB_TIMEOUT_BATCH,
// each a Go duration string like "5s" or "2m". Invalid or non-positive
// values are ignored. Returns how many values were applied.
func ConfigureFromEnv() int {
	mu.Lock()
	defer mu.Unlock()
	configured := 0

	for _, t := range []struct {
		env string
		dst *time.Duration
	}{
		{"DUTYHUB_TIMEOUT_PING", &ping},
		{"DUTYHUB_TIMEOUT_SHORT", &short},
		{"DUTYHUB_TIMEOUT_MEDIUM", &medium},
		{"DUTYHUB_TIMEOUT_LONG", &long},
		{"DUTYHUB_TIMEOUT_BATCH", &batch},
	} {
		v := os.Getenv(t.env)
		if v == "" {
			continue
		}
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			*t.dst = d
			configured++
		}
	}
	return configured
}

// WithTimeout creates a context with timeout and returns a cancel function
// that logs a warning when the operation ran out of budget. Use it around
// bulk work where a timeout is worth knowing about.
func WithTimeout(parent context.Context, timeout time.Duration, log *zap.Logger, operation string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parent, timeout)
	return ctx, func() {
		if ctx.Err() == context.DeadlineExceeded && log != nil {
			log.Warn("operation timed out",
				zap.String("operation", operation),
				zap.Duration("timeout", timeout),
			)
		}
		cancel()
	}
}
