package workers

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// ReportLapsedStreaks logs how many wallets hold a lapsed streak and returns the count.
func ReportLapsedStreaks(ctx context.Context, wallets StreakReporter, log *zap.SugaredLogger) int64 {
	if ctx.Err() != nil {
		return 0
	}
	lapsed, err := wallets.CountLapsedStreaks(ctx)
	if err != nil {
		log.Errorw("❌ [Scheduler] streak report failed", "error", err)
		return 0
	}
	if lapsed > 0 {
		log.Infow("🔥 [Scheduler] lapsed streaks awaiting reset", "wallets", lapsed)
	}
	return lapsed
}

// EvictSessions closes sessions idle longer than idle.
func EvictSessions(sessions SessionEvictor, idle time.Duration, log *zap.SugaredLogger) int {
	if idle <= 0 {
		return 0
	}
	n := sessions.EvictIdle(idle)
	if n > 0 {
		log.Infow("🧹 [Scheduler] idle sessions closed", "sessions", n)
	}
	return n
}
