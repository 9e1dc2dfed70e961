package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// IngestKey guards ingestion runs so the CLI and the cron trigger never
// overlap.
const IngestKey = "ingest"

// ErrLocked is returned by Acquire when another holder keeps the lock past
// the timeout.
var ErrLocked = errors.New("lock is held by another run")

// FileLock provides a simple file-based locking mechanism
type FileLock struct {
	logger *slog.Logger
	dir    string
}

// NewFileLock creates a file lock rooted in dir. An empty dir uses a
// directory under os.TempDir.
func NewFileLock(logger *slog.Logger, dir string) *FileLock {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "movieland-locks")
	}
	logger.Debug("Using local file-based locking", slog.String("dir", dir))
	return &FileLock{
		logger: logger,
		dir:    dir,
	}
}

// TryLock attempts to acquire a lock with the given key and timeout
func (fl *FileLock) TryLock(ctx context.Context, key string, timeout time.Duration) (bool, error) {
	lockFile := fl.getLockFilePath(key)

	if err := os.MkdirAll(filepath.Dir(lockFile), 0750); err != nil {
		return false, fmt.Errorf("failed to create lock directory: %w", err)
	}

	deadline := time.Now().Add(timeout)

	for {
		// #nosec G304 - lockFile is generated through controlled logic in getLockFilePath
		file, err := os.OpenFile(lockFile, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
		if err != nil {
			if !os.IsExist(err) {
				return false, fmt.Errorf("failed to create lock file: %w", err)
			}

			if fl.isLockStale(lockFile, StaleAfter) {
				fl.logger.Warn("Removing stale lock file", slog.String("file", lockFile))
				if err := os.Remove(lockFile); err != nil && !os.IsNotExist(err) {
					fl.logger.Error("Failed to remove stale lock file", slog.String("file", lockFile), slog.Any("error", err))
					return false, fmt.Errorf("failed to remove stale lock file: %w", err)
				}
				continue
			}

			if !time.Now().Before(deadline) {
				return false, nil
			}

			select {
			case <-ctx.Done():
				return false, ctx.Err()
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		if _, err := fmt.Fprintf(file, "%d\n%d\n", time.Now().Unix(), os.Getpid()); err != nil {
			fl.logger.Error("Failed to write to lock file", slog.String("file", lockFile), slog.Any("error", err))
			if closeErr := file.Close(); closeErr != nil {
				fl.logger.Error("Failed to close lock file after write error", slog.String("file", lockFile), slog.Any("error", closeErr))
			}
			_ = os.Remove(lockFile)
			return false, fmt.Errorf("failed to write to lock file: %w", err)
		}
		if err := file.Close(); err != nil {
			fl.logger.Error("Failed to close lock file", slog.String("file", lockFile), slog.Any("error", err))
			return false, fmt.Errorf("failed to close lock file: %w", err)
		}

		fl.logger.Debug("Acquired lock", slog.String("key", key), slog.String("file", lockFile))
		return true, nil
	}
}

// StaleAfter is how old a lock file may get before it is treated as left
// behind by a crashed run.
var StaleAfter = 6 * time.Hour

// Acquire takes the lock or returns ErrLocked. The returned func releases it.
func (fl *FileLock) Acquire(ctx context.Context, key string, timeout time.Duration) (func(), error) {
	ok, err := fl.TryLock(ctx, key, timeout)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLocked
	}
	return func() {
		if err := fl.Unlock(context.Background(), key); err != nil {
			fl.logger.Error("Failed to release lock", slog.String("key", key), slog.Any("error", err))
		}
	}, nil
}

// Unlock releases the lock for the given key
func (fl *FileLock) Unlock(ctx context.Context, key string) error {
	lockFile := fl.getLockFilePath(key)

	if err := os.Remove(lockFile); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove lock file: %w", err)
	}

	fl.logger.Debug("Released lock", slog.String("key", key), slog.String("file", lockFile))
	return nil
}

// Held reports whether a non-stale lock file exists for key.
func (fl *FileLock) Held(key string) bool {
	lockFile := fl.getLockFilePath(key)
	if _, err := os.Stat(lockFile); err != nil {
		return false
	}
	return !fl.isLockStale(lockFile, StaleAfter)
}

// getLockFilePath returns the file path for a lock key
func (fl *FileLock) getLockFilePath(key string) string {
	// Clean the path to prevent path traversal attacks
	return filepath.Clean(filepath.Join(fl.dir, filepath.Base(key)+".lock"))
}

// isLockStale checks if a lock file is older than the given duration
func (fl *FileLock) isLockStale(lockFile string, staleDuration time.Duration) bool {
	info, err := os.Stat(lockFile)
	if err != nil {
		return true // If we can't stat it, consider it stale
	}

	return time.Since(info.ModTime()) > staleDuration
}
