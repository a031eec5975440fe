package store

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

const (
	maxBusyRetries = 3
	busyBaseDelay  = 50 * time.Millisecond
)

// isBusyError reports SQLite lock contention (SQLITE_BUSY or
// "database is locked"), which is worth retrying.
func isBusyError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

// withBusyRetry runs op, retrying busy errors with exponential backoff
// (50ms, 100ms).
func withBusyRetry(ctx context.Context, name string, op func() error) error {
	var err error
	for i := 0; i < maxBusyRetries; i++ {
		err = op()
		if err == nil || !isBusyError(err) || i == maxBusyRetries-1 {
			return err
		}

		delay := busyBaseDelay * time.Duration(1<<i)
		slog.Debug("SQLite busy, retrying", "op", name, "attempt", i+1, "delay", delay)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return err
}
