// Package slack posts digests to Slack channels.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/danielolaszy/nudge/internal/auth"
	"github.com/danielolaszy/nudge/internal/logging"
	"github.com/danielolaszy/nudge/pkg/models"
	"golang.org/x/time/rate"
)

const (
	postMessagePath = "/api/chat.postMessage"
	maxResponseBody = 1 << 20
)

// Client posts messages through the Slack Web API.
type Client struct {
	baseURL    string
	authorizer auth.Authorizer
	httpClient *http.Client
	limiter    *rate.Limiter
}

// postMessageRequest is the JSON body of chat.postMessage.
type postMessageRequest struct {
	Channel   string `json:"channel"`
	Text      string `json:"text"`
	LinkNames bool   `json:"link_names"`
}

// apiResponse is the envelope every Slack Web API method returns.
type apiResponse struct {
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
	Warning string `json:"warning,omitempty"`
}

// NewClient creates a Slack client for the API rooted at baseURL
// (normally https://slack.com). Requests are authorized with authorizer and
// bounded by timeout. ratePerSec paces outgoing posts; zero disables pacing.
func NewClient(baseURL string, authorizer auth.Authorizer, timeout time.Duration, ratePerSec float64) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		authorizer: authorizer,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
	if ratePerSec > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(ratePerSec), 1)
	}
	return c
}

// PostMessage posts text to channel with @-mention resolution enabled.
// Every call posts at most once; it never retries. Any failure, including
// an HTTP 200 carrying "ok": false, wraps models.ErrPostFailed.
func (c *Client) PostMessage(ctx context.Context, channel, text string) error {
	payload, err := json.Marshal(postMessageRequest{
		Channel:   channel,
		Text:      text,
		LinkNames: true,
	})
	if err != nil {
		return fmt.Errorf("%w: failed to encode message: %w", models.ErrPostFailed, err)
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%w: rate limiter: %w", models.ErrPostFailed, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+postMessagePath, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%w: failed to build request: %w", models.ErrPostFailed, err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	c.authorizer.Authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: failed to post message: %w", models.ErrPostFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: slack returned %d", models.ErrPostFailed, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return fmt.Errorf("%w: failed to read response: %w", models.ErrPostFailed, err)
	}

	var result apiResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("%w: unreadable slack response: %w", models.ErrPostFailed, err)
	}
	if !result.OK {
		return fmt.Errorf("%w: slack error: %s", models.ErrPostFailed, result.Error)
	}
	if result.Warning != "" {
		logging.Warn("slack accepted message with warning",
			"channel", channel,
			"warning", result.Warning)
	}

	logging.Debug("slack message posted", "channel", channel, "length", len(text))
	return nil
}
