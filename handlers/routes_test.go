package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"useless-progression/gamification"
	"useless-progression/models"
	"useless-progression/services"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	refNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	nopLog = zap.NewNop().Sugar()
)

type testApp struct {
	app      *fiber.App
	db       *gorm.DB
	clock    *clockwork.FakeClock
	wallets  *services.WalletService
	sessions *services.SessionRegistry
	hub      *services.NotificationHub
}

func newTestApp(t *testing.T, uploader services.ObjectUploader) *testApp {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(
		&models.Wallet{},
		&models.WalletTransaction{},
		&models.UserProgress{},
		&models.UserAchievement{},
	))

	clock := clockwork.NewFakeClockAt(refNow)
	prog := services.NewProgressionService(db, clock, nopLog)
	ach := services.NewAchievementService(db, prog, clock, nopLog)
	wallets := services.NewWalletService(db, prog, ach, nil, clock, nopLog)
	hub := services.NewNotificationHub(clock, nopLog)
	sessions := services.NewSessionRegistry(services.StoreSnapshotLoader(prog, ach, wallets), wallets, hub, clock, nopLog)
	publisher := services.NewCatalogPublisher(gamification.DefaultRegistry(), uploader, clock, nopLog)

	app := fiber.New()
	SetupCatalogRoutes(app, gamification.DefaultRegistry(), nopLog)
	SetupProgressionRoutes(app, prog, ach, publisher, hub, sessions, nopLog)
	SetupWalletRoutes(app, wallets, sessions, nopLog)
	SetupSessionRoutes(app, sessions, ach, hub, nil, nopLog)

	return &testApp{app: app, db: db, clock: clock, wallets: wallets, sessions: sessions, hub: hub}
}

func (ta *testApp) do(t *testing.T, method, path, userID, body string, roles ...string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	if len(roles) > 0 {
		req.Header.Set("X-User-Roles", strings.Join(roles, ","))
	}
	resp, err := ta.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

type captureUploader struct{ key string }

func (u *captureUploader) Upload(_ context.Context, key string, _ []byte, _ string) (string, error) {
	u.key = key
	return "https://cdn.test/" + key, nil
}

func TestCatalogRoutes(t *testing.T) {
	ta := newTestApp(t, nil)

	status, body := ta.do(t, "GET", "/achievements?sort=rarity", "", "")
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 26, body["count"])
	assert.EqualValues(t, 3950, body["total_xp"])
	first := body["achievements"].([]any)[0].(map[string]any)
	assert.Equal(t, "streak_365", first["id"])

	status, body = ta.do(t, "GET", "/achievements?category=engagement", "", "")
	require.Equal(t, http.StatusOK, status)
	for _, a := range body["achievements"].([]any) {
		assert.Equal(t, "engagement", a.(map[string]any)["category"])
	}

	status, _ = ta.do(t, "GET", "/achievements?category=nonsense", "", "")
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = ta.do(t, "GET", "/achievements/first_purchase", "", "")
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 50, body["xp_reward"])

	status, _ = ta.do(t, "GET", "/achievements/nope", "", "")
	assert.Equal(t, http.StatusNotFound, status)

	status, body = ta.do(t, "GET", "/milestones?streak=5", "", "")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "progress")
	assert.EqualValues(t, 1.5, body["multiplier"])

	status, _ = ta.do(t, "GET", "/milestones?streak=-1", "", "")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestWalletRoutes_ClaimWindow(t *testing.T) {
	ta := newTestApp(t, nil)

	status, _ := ta.do(t, "POST", "/wallet/claim-daily", "", "")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body := ta.do(t, "GET", "/wallet/claim-daily", "u1", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["canClaim"])

	status, body = ta.do(t, "POST", "/wallet/claim-daily", "u1", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])
	assert.EqualValues(t, 1, body["streak"])

	status, body = ta.do(t, "POST", "/wallet/claim-daily", "u1", "")
	require.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Already claimed today! Come back tomorrow.", body["error"])
	next, err := time.Parse(time.RFC3339, body["nextClaimAt"].(string))
	require.NoError(t, err)
	assert.True(t, next.Equal(refNow.Add(24*time.Hour)))

	ta.clock.Advance(25 * time.Hour)
	status, body = ta.do(t, "POST", "/wallet/claim-daily", "u1", "")
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 2, body["streak"])
}

func TestSessionRoutes(t *testing.T) {
	ta := newTestApp(t, nil)

	status, body := ta.do(t, "GET", "/session", "u1", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "u1", body["user_id"])

	status, body = ta.do(t, "POST", "/session/achievements", "u1",
		`{"achievements":["window_shopper","ghost"]}`)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["unlocked"], 2)
	wallet := body["session"].(map[string]any)["wallet"].(map[string]any)
	balance := decimal.RequireFromString(wallet["balance"].(string))
	assert.True(t, balance.Equal(decimal.NewFromInt(1000+5)), "session balance %s", balance)

	// Persisted: a reloaded session sees both.
	ta.sessions.Drop("u1")
	status, body = ta.do(t, "GET", "/user/achievements", "u1", "")
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 2, body["unlocked_count"])
	assert.EqualValues(t, 50, body["earned_xp"])

	status, body = ta.do(t, "POST", "/session/achievements", "u1", `{"achievements":["ghost"]}`)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, body["unlocked"])

	status, _ = ta.do(t, "POST", "/session/achievements", "u1", `{"achievements":["made_up"]}`)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = ta.do(t, "POST", "/session/achievements", "u1", `{"achievements":[]}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = ta.do(t, "POST", "/session/claim", "u1", "")
	require.Equal(t, http.StatusOK, status)
	claim := body["claim"].(map[string]any)
	assert.Equal(t, true, claim["success"])

	status, _ = ta.do(t, "POST", "/session/claim", "u1", "")
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = ta.do(t, "GET", "/user/progress", "u1", "")
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 50+gamification.DailyClaimXP, body["xp"])
}

func TestAdminRoutes(t *testing.T) {
	up := &captureUploader{}
	ta := newTestApp(t, up)

	status, _ := ta.do(t, "POST", "/s/admin/xp/grant", "admin1", `{"user_id":"u1","xp":250}`)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = ta.do(t, "POST", "/s/admin/xp/grant", "admin1", `{"user_id":"u1","xp":0}`, "admin")
	assert.Equal(t, http.StatusBadRequest, status)

	status, body := ta.do(t, "POST", "/s/admin/xp/grant", "admin1", `{"user_id":"u1","xp":250,"reason":"bug bounty"}`, "admin")
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 250, body["total_xp"])
	assert.EqualValues(t, 3, body["level"])
	assert.Len(t, body["level_ups"], 2)

	status, body = ta.do(t, "POST", "/s/admin/achievements/publish", "admin1", "", "admin")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "https://cdn.test/"+services.CatalogKey, body["url"])
	assert.Equal(t, services.CatalogKey, up.key)
}

func TestAdminPublish_Unconfigured(t *testing.T) {
	ta := newTestApp(t, nil)
	status, _ := ta.do(t, "POST", "/s/admin/achievements/publish", "admin1", "", "admin")
	assert.Equal(t, http.StatusServiceUnavailable, status)
}

func TestSessionRoutes_FailedStoreShowsNothing(t *testing.T) {
	ta := newTestApp(t, nil)

	status, _ := ta.do(t, "GET", "/session", "u1", "")
	require.Equal(t, http.StatusOK, status)

	events, cancel := ta.hub.Subscribe("u1")
	defer cancel()

	sqlDB, err := ta.db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	status, _ = ta.do(t, "POST", "/session/achievements", "u1", `{"achievements":["whale_watcher"]}`)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Empty(t, events)

	coord, err := ta.sessions.Get(testContext(t), "u1")
	require.NoError(t, err)
	assert.False(t, coord.IsUnlocked(gamification.AchievementWhaleWatcher))
	assert.Zero(t, coord.Progress().TotalXP)
}
