package services

import (
	"bufio"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"useless-progression/gamification"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	EventAchievement  = "achievement"
	EventAchievements = "achievements"
	EventLevelUp      = "level_up"
)

// Event is one notification pushed to a user's subscribers.
type Event struct {
	ID      string    `json:"id"`
	Type    string    `json:"type"`
	Text    string    `json:"text"`
	Payload any       `json:"payload"`
	At      time.Time `json:"at"`
}

// NotificationHub fans events out to every open stream of a user. Sends
// never block: a subscriber whose buffer is full misses the event.
type NotificationHub struct {
	mu      sync.RWMutex
	subs    map[string]map[chan Event]struct{}
	buffer  int
	clock   clockwork.Clock
	printer *message.Printer
	log     *zap.SugaredLogger
}

var _ gamification.Notifier = (*NotificationHub)(nil)

func NewNotificationHub(clock clockwork.Clock, log *zap.SugaredLogger) *NotificationHub {
	return &NotificationHub{
		subs:    make(map[string]map[chan Event]struct{}),
		buffer:  16,
		clock:   clock,
		printer: message.NewPrinter(language.English),
		log:     log,
	}
}

// Subscribe registers a stream for userID. The returned cancel func must be
// called once the stream ends.
func (h *NotificationHub) Subscribe(userID string) (<-chan Event, func()) {
	ch := make(chan Event, h.buffer)

	h.mu.Lock()
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[chan Event]struct{})
	}
	h.subs[userID][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[userID], ch)
			if len(h.subs[userID]) == 0 {
				delete(h.subs, userID)
			}
			h.mu.Unlock()
		})
	}
}

// Subscribers returns how many streams userID has open.
func (h *NotificationHub) Subscribers(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[userID])
}

func (h *NotificationHub) publish(userID, typ, text string, payload any) {
	ev := Event{
		ID:      uuid.NewString(),
		Type:    typ,
		Text:    text,
		Payload: payload,
		At:      h.clock.Now(),
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs[userID] {
		select {
		case ch <- ev:
		default:
			h.log.Warnw("📭 notification dropped for slow subscriber", "user_id", userID, "type", typ)
		}
	}
}

func (h *NotificationHub) ShowAchievementToast(userID string, toast gamification.AchievementToast) {
	text := h.printer.Sprintf("%s Achievement unlocked: %s (+%d XP)", toast.Emoji, toast.Title, toast.XPReward)
	h.publish(userID, EventAchievement, text, toast)
}

func (h *NotificationHub) ShowMultipleAchievementsToast(userID string, toasts []gamification.AchievementToast) {
	var xp int64
	for _, t := range toasts {
		xp += t.XPReward
	}
	text := h.printer.Sprintf("🏆 %d achievements unlocked (+%d XP)", len(toasts), xp)
	h.publish(userID, EventAchievements, text, toasts)
}

func (h *NotificationHub) LevelUpShown(userID string, up gamification.LevelUp) {
	text := h.printer.Sprintf("⬆️ Level %d reached: %s", up.Level, up.Title)
	h.publish(userID, EventLevelUp, text, up)
}

// StreamSSE writes the user's events as server-sent events until the client
// goes away. userID is read from the "user_id" local.
func (h *NotificationHub) StreamSSE(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing user context"})
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no") // nginx

	events, cancel := h.Subscribe(userID)
	done := c.Context().Done()

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer cancel()

		keepalive := time.NewTicker(15 * time.Second)
		defer keepalive.Stop()

		// Initial keepalive (comment event)
		w.WriteString(":\n\n")
		if err := w.Flush(); err != nil {
			return
		}

		for {
			select {
			case ev := <-events:
				if err := writeEvent(w, ev); err != nil {
					h.log.Debugw("SSE write failed", "user_id", userID, "error", err)
					return
				}
			case <-keepalive.C:
				w.WriteString(":\n\n")
				if err := w.Flush(); err != nil {
					// Client disconnected
					return
				}
			case <-done:
				return
			}
		}
	})

	return nil
}

func writeEvent(w *bufio.Writer, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", ev.ID, ev.Type, payload)
	return w.Flush()
}
