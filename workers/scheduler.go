// workers/scheduler.go
package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// StreakReporter counts daily-claim streaks past their deadline.
type StreakReporter interface {
	CountLapsedStreaks(ctx context.Context) (int64, error)
}

// SessionEvictor closes idle per-user sessions.
type SessionEvictor interface {
	EvictIdle(idle time.Duration) int
}

type Options struct {
	StreakReportInterval time.Duration
	SessionEvictInterval time.Duration
	SessionIdleTimeout   time.Duration
}

// Scheduler runs the background jobs on a gocron scheduler.
type Scheduler struct {
	sched gocron.Scheduler
	log   *zap.SugaredLogger
}

// Start registers the jobs and starts the scheduler. Jobs run in singleton
// mode so a slow run is never overlapped by the next tick.
func Start(ctx context.Context, opts Options, wallets StreakReporter, sessions SessionEvictor, clock clockwork.Clock, log *zap.SugaredLogger) (*Scheduler, error) {
	sched, err := gocron.NewScheduler(gocron.WithClock(clock))
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	if opts.SessionEvictInterval <= 0 {
		opts.SessionEvictInterval = time.Minute
	}

	// Every STREAK_REPORT_INTERVAL: report lapsed streaks
	if _, err := sched.NewJob(
		gocron.DurationJob(opts.StreakReportInterval),
		gocron.NewTask(func() { ReportLapsedStreaks(ctx, wallets, log) }),
		gocron.WithName("streak-report"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	); err != nil {
		sched.Shutdown()
		return nil, fmt.Errorf("schedule streak report: %w", err)
	}

	// Every minute: close sessions idle past SESSION_IDLE_TIMEOUT
	if _, err := sched.NewJob(
		gocron.DurationJob(opts.SessionEvictInterval),
		gocron.NewTask(func() { EvictSessions(sessions, opts.SessionIdleTimeout, log) }),
		gocron.WithName("session-eviction"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	); err != nil {
		sched.Shutdown()
		return nil, fmt.Errorf("schedule session eviction: %w", err)
	}

	sched.Start()
	log.Infow("⏰ [Scheduler] background jobs started",
		"streak_report_every", opts.StreakReportInterval, "session_evict_every", opts.SessionEvictInterval)
	return &Scheduler{sched: sched, log: log}, nil
}

// JobNames lists the registered jobs.
func (s *Scheduler) JobNames() []string {
	var names []string
	for _, j := range s.sched.Jobs() {
		names = append(names, j.Name())
	}
	return names
}

func (s *Scheduler) Shutdown() error {
	if err := s.sched.Shutdown(); err != nil {
		return fmt.Errorf("scheduler shutdown: %w", err)
	}
	s.log.Info("⏰ [Scheduler] stopped")
	return nil
}
