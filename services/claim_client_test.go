package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"useless-progression/gamification"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClaimClient_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/wallet/claim-daily", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "u1", r.Header.Get("X-User-ID"))

		json.NewEncoder(w).Encode(gamification.ClaimResult{
			Success:    true,
			NewBalance: decimal.RequireFromString("1015.00"),
			Amount:     15,
			Streak:     3,
			Multiplier: 1.5,
		})
	}))
	defer srv.Close()

	c := NewClaimClient(srv.URL, "tok", time.Second, nopLog)
	res, err := c.ClaimDaily(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 3, res.Streak)
	assert.True(t, res.NewBalance.Equal(decimal.NewFromInt(1015)))
}

func TestClaimClient_Errors(t *testing.T) {
	next := refNow.Add(5 * time.Hour)

	tests := []struct {
		name   string
		status int
		body   any
		check  func(t *testing.T, err error)
	}{
		{
			name:   "cooldown",
			status: http.StatusBadRequest,
			body:   map[string]any{"success": false, "error": "Already claimed today! Come back tomorrow.", "nextClaimAt": next},
			check: func(t *testing.T, err error) {
				var window *gamification.InvalidWindowStateError
				require.ErrorAs(t, err, &window)
				assert.True(t, window.NextClaimAt.Equal(next))
			},
		},
		{
			name:   "in flight",
			status: http.StatusConflict,
			body:   map[string]any{"success": false},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, gamification.ErrClaimInFlight)
			},
		},
		{
			name:   "server error",
			status: http.StatusInternalServerError,
			body:   map[string]any{"error": "Internal server error"},
			check: func(t *testing.T, err error) {
				var remote *gamification.RemoteClaimError
				require.ErrorAs(t, err, &remote)
				assert.Equal(t, "Internal server error", remote.Message)
				assert.True(t, errors.Is(err, gamification.ErrRemoteClaimFailure))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				json.NewEncoder(w).Encode(tt.body)
			}))
			defer srv.Close()

			_, err := NewClaimClient(srv.URL, "tok", time.Second, nopLog).ClaimDaily(context.Background(), "u1")
			tt.check(t, err)
		})
	}
}

func TestClaimClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClaimClient(url, "tok", time.Second, nopLog).ClaimDaily(context.Background(), "u1")
	assert.True(t, errors.Is(err, gamification.ErrRemoteClaimFailure))
}
