// internal/worker/sessions.go
package worker

import (
	"context"
	"time"

	"ermakplan-back/internal/logs"
)

// SessionCleaner is the part of the session store the cleanup job needs.
type SessionCleaner interface {
	CleanupExpired(ctx context.Context) (int64, error)
}

// RunSessionCleanup deletes expired sessions on every tick until ctx is
// cancelled.
func RunSessionCleanup(ctx context.Context, sessions SessionCleaner, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	logs.Log.WithField("interval", interval.String()).Info("Starting session cleanup job")

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := sessions.CleanupExpired(ctx)
			if err != nil {
				logs.Log.WithError(err).Error("Failed to cleanup expired sessions")
				continue
			}
			logs.Log.WithField("removed", removed).Debug("Session cleanup completed")
		}
	}
}
