package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"useless-progression/gamification"

	"go.uber.org/zap"
)

// ClaimClient calls a remote wallet service's POST /wallet/claim-daily.
type ClaimClient struct {
	BaseURL string
	Token   string
	Client  *http.Client
	Log     *zap.SugaredLogger
}

var _ gamification.ClaimEndpoint = (*ClaimClient)(nil)

func NewClaimClient(baseURL, token string, timeout time.Duration, log *zap.SugaredLogger) *ClaimClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ClaimClient{
		BaseURL: baseURL,
		Token:   token,
		Client:  &http.Client{Timeout: timeout},
		Log:     log,
	}
}

func (c *ClaimClient) ClaimDaily(ctx context.Context, userID string) (*gamification.ClaimResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/wallet/claim-daily", nil)
	if err != nil {
		return nil, &gamification.RemoteClaimError{Cause: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.Token)
	req.Header.Set("X-User-ID", userID)

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, &gamification.RemoteClaimError{Cause: fmt.Errorf("call claim endpoint: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return nil, &gamification.RemoteClaimError{Cause: fmt.Errorf("read claim response: %w", err)}
	}

	var out gamification.ClaimResult
	decodeErr := json.Unmarshal(body, &out)

	switch {
	case resp.StatusCode == http.StatusOK && decodeErr == nil:
		return &out, nil
	case resp.StatusCode == http.StatusBadRequest && decodeErr == nil && out.NextClaimAt != nil:
		return nil, &gamification.InvalidWindowStateError{NextClaimAt: *out.NextClaimAt}
	case resp.StatusCode == http.StatusConflict:
		return nil, gamification.ErrClaimInFlight
	}

	c.Log.Warnw("❌ [CLAIM] claim endpoint rejected request", "user_id", userID, "status", resp.StatusCode, "body", string(body))
	msg := out.Error
	if msg == "" {
		msg = fmt.Sprintf("claim endpoint returned %d", resp.StatusCode)
	}
	return nil, &gamification.RemoteClaimError{Message: msg, Cause: decodeErr}
}
