package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/opx-exchange/auth-service/internal/repository"
)

// StartSessionReaper periodically purges expired session rows. Liveness
// checks already enforce expiry on read, so the reaper is housekeeping
// that keeps the ledger small.
func StartSessionReaper(ctx context.Context, sessions repository.SessionRepository, interval time.Duration, logger *zap.Logger) {
	if interval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				purged, err := sessions.PurgeExpired(ctx)
				if err != nil {
					logger.Warn("session purge failed", zap.Error(err))
					continue
				}
				if purged > 0 {
					logger.Info("purged expired sessions", zap.Int64("count", purged))
				}
			}
		}
	}()
}
