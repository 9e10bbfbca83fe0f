package services

import (
	"testing"

	"useless-progression/gamification"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationHub_FanOut(t *testing.T) {
	hub := NewNotificationHub(clockwork.NewFakeClockAt(refNow), nopLog)

	a, cancelA := hub.Subscribe("u1")
	b, cancelB := hub.Subscribe("u1")
	other, cancelOther := hub.Subscribe("u2")
	defer cancelA()
	defer cancelB()
	defer cancelOther()
	assert.Equal(t, 2, hub.Subscribers("u1"))

	def, err := gamification.DefaultRegistry().Get(gamification.AchievementStreak365)
	require.NoError(t, err)
	hub.ShowAchievementToast("u1", gamification.ToastFor(def))

	for _, ch := range []<-chan Event{a, b} {
		select {
		case ev := <-ch:
			assert.Equal(t, EventAchievement, ev.Type)
			assert.Equal(t, "🌍 Achievement unlocked: Annual Anomaly (+500 XP)", ev.Text)
			assert.NotEmpty(t, ev.ID)
			assert.Equal(t, refNow, ev.At)
		default:
			t.Fatal("expected an event")
		}
	}
	assert.Empty(t, other)
}

func TestNotificationHub_GroupsLargeNumbers(t *testing.T) {
	hub := NewNotificationHub(clockwork.NewFakeClockAt(refNow), nopLog)
	ch, cancel := hub.Subscribe("u1")
	defer cancel()

	hub.ShowMultipleAchievementsToast("u1", []gamification.AchievementToast{
		{ID: "a", XPReward: 900},
		{ID: "b", XPReward: 600},
	})
	ev := <-ch
	assert.Equal(t, EventAchievements, ev.Type)
	assert.Equal(t, "🏆 2 achievements unlocked (+1,500 XP)", ev.Text)

	hub.LevelUpShown("u1", gamification.LevelUp{Level: 5, Title: "Aspiring Hoarder"})
	ev = <-ch
	assert.Equal(t, EventLevelUp, ev.Type)
	assert.Equal(t, "⬆️ Level 5 reached: Aspiring Hoarder", ev.Text)
}

func TestNotificationHub_SlowSubscriberDoesNotBlock(t *testing.T) {
	hub := NewNotificationHub(clockwork.NewFakeClockAt(refNow), nopLog)
	ch, cancel := hub.Subscribe("u1")
	defer cancel()

	for i := 0; i < hub.buffer+10; i++ {
		hub.LevelUpShown("u1", gamification.LevelUp{Level: i + 2})
	}
	assert.Len(t, ch, hub.buffer)
}

func TestNotificationHub_Cancel(t *testing.T) {
	hub := NewNotificationHub(clockwork.NewFakeClockAt(refNow), nopLog)
	_, cancel := hub.Subscribe("u1")
	cancel()
	cancel()
	assert.Zero(t, hub.Subscribers("u1"))

	hub.LevelUpShown("u1", gamification.LevelUp{Level: 2})
}
