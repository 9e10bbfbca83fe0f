package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"useless-progression/gamification"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// SnapshotLoader reads the persisted state a new session starts from.
type SnapshotLoader func(ctx context.Context, userID string) (gamification.Snapshot, error)

// StoreSnapshotLoader builds snapshots from the progress, wallet and
// achievement tables.
func StoreSnapshotLoader(progression *ProgressionService, achievements *AchievementService, wallets *WalletService) SnapshotLoader {
	return func(ctx context.Context, userID string) (gamification.Snapshot, error) {
		prog, _, err := progression.GetLevelInfo(ctx, userID)
		if err != nil {
			return gamification.Snapshot{}, err
		}
		w, err := wallets.EnsureWallet(ctx, userID)
		if err != nil {
			return gamification.Snapshot{}, err
		}
		rows, err := achievements.ListForUser(ctx, userID)
		if err != nil {
			return gamification.Snapshot{}, err
		}

		snap := gamification.Snapshot{
			UserID:        userID,
			TotalXP:       prog.TotalXP,
			Balance:       w.Balance,
			LastClaimAt:   w.LastClaimAt,
			CurrentStreak: w.CurrentStreak,
		}
		for _, r := range rows {
			snap.Unlocked = append(snap.Unlocked, gamification.UnlockedAchievement{
				AchievementType: gamification.AchievementType(r.AchievementType),
				UnlockedAt:      r.UnlockedAt,
			})
		}
		return snap, nil
	}
}

type session struct {
	coord    *gamification.Coordinator
	lastSeen time.Time
}

// SessionRegistry owns one Coordinator per active user.
type SessionRegistry struct {
	mu       sync.Mutex
	sessions map[string]*session

	load     SnapshotLoader
	endpoint gamification.ClaimEndpoint
	notifier gamification.Notifier
	clock    clockwork.Clock
	log      *zap.SugaredLogger
}

func NewSessionRegistry(load SnapshotLoader, endpoint gamification.ClaimEndpoint, notifier gamification.Notifier, clock clockwork.Clock, log *zap.SugaredLogger) *SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[string]*session),
		load:     load,
		endpoint: endpoint,
		notifier: notifier,
		clock:    clock,
		log:      log,
	}
}

// Get returns the user's coordinator, creating it from the stored snapshot
// on first use. Every call counts as activity.
func (r *SessionRegistry) Get(ctx context.Context, userID string) (*gamification.Coordinator, error) {
	if c := r.touch(userID); c != nil {
		return c, nil
	}

	snap, err := r.load(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load session snapshot for %s: %w", userID, err)
	}
	coord := gamification.NewCoordinator(gamification.CoordinatorConfig{
		Clock:    r.clock,
		Endpoint: r.endpoint,
		Notifier: r.notifier,
		Logger:   r.log,
	}, snap)

	r.mu.Lock()
	defer r.mu.Unlock()
	// Another request may have opened the session while we were loading.
	if s, ok := r.sessions[userID]; ok {
		coord.Close()
		s.lastSeen = r.clock.Now()
		return s.coord, nil
	}
	r.sessions[userID] = &session{coord: coord, lastSeen: r.clock.Now()}
	r.log.Debugw("🎮 session opened", "user_id", userID, "total_xp", snap.TotalXP)
	return coord, nil
}

func (r *SessionRegistry) touch(userID string) *gamification.Coordinator {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[userID]
	if !ok {
		return nil
	}
	s.lastSeen = r.clock.Now()
	return s.coord
}

// Drop closes the user's session so the next Get reloads from the store.
func (r *SessionRegistry) Drop(userID string) {
	r.mu.Lock()
	s, ok := r.sessions[userID]
	delete(r.sessions, userID)
	r.mu.Unlock()
	if ok {
		s.coord.Close()
	}
}

// EvictIdle closes sessions not seen for longer than idle and returns how
// many it closed.
func (r *SessionRegistry) EvictIdle(idle time.Duration) int {
	cutoff := r.clock.Now().Add(-idle)

	r.mu.Lock()
	var stale []*gamification.Coordinator
	for id, s := range r.sessions {
		if s.lastSeen.Before(cutoff) {
			stale = append(stale, s.coord)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, c := range stale {
		c.Close()
	}
	return len(stale)
}

// Len returns the number of open sessions.
func (r *SessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// CloseAll closes every session. Used on shutdown.
func (r *SessionRegistry) CloseAll() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*session)
	r.mu.Unlock()

	for _, s := range sessions {
		s.coord.Close()
	}
}
