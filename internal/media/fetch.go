package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// Source is one downloadable remote attachment. Implementations write the
// full content to the given absolute path, overwriting any existing file.
type Source interface {
	DownloadTo(ctx context.Context, absPath string) error
}

// Fetcher downloads attachment bytes to local storage. Fetch is idempotent:
// repeated calls with the same target overwrite in place.
type Fetcher struct {
	attempts int
	logger   *zap.Logger
}

// NewFetcher creates a fetcher. attempts is the total number of download
// attempts per call (minimum 1); there is deliberately no backoff, the
// caller treats a failed fetch as a skipped attachment.
func NewFetcher(attempts int, logger *zap.Logger) *Fetcher {
	if attempts < 1 {
		attempts = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{attempts: attempts, logger: logger}
}

// Fetch downloads src to absPath, creating parent directories as needed.
// A failure is non-fatal to the surrounding sync; the caller persists the
// message without a media path.
func (f *Fetcher) Fetch(ctx context.Context, src Source, absPath string) error {
	if err := os.MkdirAll(filepath.Dir(absPath), 0700); err != nil {
		return fmt.Errorf("create media dir: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= f.attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := src.DownloadTo(ctx, absPath); err != nil {
			lastErr = err
			f.logger.Warn("media download failed",
				zap.String("path", absPath),
				zap.Int("attempt", attempt),
				zap.Error(err))
			continue
		}
		return nil
	}
	return fmt.Errorf("download after %d attempts: %w", f.attempts, lastErr)
}
