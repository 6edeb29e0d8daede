// Package fsutil provides the scoped temporary resource cleanup contract:
// file removal under contention retried with a bounded (maxAttempts, delay)
// policy, guaranteed safe to call on every exit path.
package fsutil

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"go.uber.org/zap"
)

// RemoveWithRetry removes path, retrying up to attempts times with delay
// between tries. A missing file counts as success, so deferred cleanup is
// idempotent across exit paths.
func RemoveWithRetry(path string, attempts int, delay time.Duration) error {
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		err := os.Remove(path)
		if err == nil || errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		lastErr = err
		if i < attempts-1 {
			time.Sleep(delay)
		}
	}
	return fmt.Errorf("remove %s after %d attempts: %w", path, attempts, lastErr)
}

// Cleanup is RemoveWithRetry for defer sites: failures are logged, not returned.
func Cleanup(logger *zap.Logger, path string, attempts int, delay time.Duration) {
	if err := RemoveWithRetry(path, attempts, delay); err != nil {
		logger.Warn("temp file cleanup failed", zap.String("path", path), zap.Error(err))
	}
}
