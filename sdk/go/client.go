package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"scorekit/core"
)

// Option configures the Client.
type Option func(*Client)

// Client provides typed access to the scorekit HTTP + WebSocket API.
type Client struct {
	baseURL    string
	wsURL      string
	httpClient *http.Client
	headers    http.Header
}

// NewClient constructs a new SDK client targeting the given baseURL
// (e.g., http://localhost:8080).
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("baseURL is required")
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	c := &Client{
		baseURL:    baseURL,
		wsURL:      deriveWSURL(baseURL),
		httpClient: http.DefaultClient,
		headers:    make(http.Header),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithAPIKey adds an X-API-Key header to all requests (HTTP + WS).
func WithAPIKey(key string) Option {
	return func(c *Client) {
		if strings.TrimSpace(key) != "" {
			c.headers.Set("X-API-Key", key)
		}
	}
}

// WithHeader sets an arbitrary header applied to HTTP and WS calls.
func WithHeader(k, v string) Option {
	return func(c *Client) {
		if k != "" {
			c.headers.Set(k, v)
		}
	}
}

// IssueToken requests a fresh single-use action token for user/category.
func (c *Client) IssueToken(ctx context.Context, user, category string) (string, error) {
	if strings.TrimSpace(user) == "" {
		return "", ErrEmptyUserID
	}
	var out struct {
		Token string `json:"token"`
	}
	err := c.postJSON(ctx, "/tokens", map[string]string{"user": user, "category": category}, &out)
	if err != nil {
		return "", err
	}
	return out.Token, nil
}

// SubmitScore redeems the token against a positive delta and returns the new
// total. Each token works exactly once; on any error mint a fresh one.
func (c *Client) SubmitScore(ctx context.Context, user, category, token string, delta int64) (int64, error) {
	if strings.TrimSpace(user) == "" {
		return 0, ErrEmptyUserID
	}
	var out struct {
		NewScore int64 `json:"new_score"`
	}
	err := c.postJSON(ctx, "/scores", map[string]any{
		"user": user, "category": category, "token": token, "delta": delta,
	}, &out)
	if err != nil {
		return 0, err
	}
	return out.NewScore, nil
}

// Leaderboard fetches the current top-N snapshot for a category.
func (c *Client) Leaderboard(ctx context.Context, category string) (Snapshot, error) {
	if strings.TrimSpace(category) == "" {
		return Snapshot{}, errors.New("category is required")
	}
	u := fmt.Sprintf("%s/leaderboards/%s", c.baseURL, url.PathEscape(category))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Snapshot{}, err
	}
	c.applyHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Snapshot{}, err
	}
	defer resp.Body.Close()

	var snap Snapshot
	if err := decodeJSON(resp, &snap); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// Health probes /healthz.
func (c *Client) Health(ctx context.Context) (HealthStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return HealthStatus{}, err
	}
	c.applyHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return HealthStatus{}, err
	}
	defer resp.Body.Close()

	var hs HealthStatus
	if err := json.NewDecoder(resp.Body).Decode(&hs); err != nil {
		return HealthStatus{}, err
	}
	return hs, nil
}

// SubscribeLeaderboard connects to the WebSocket stream for one category and
// emits snapshots, starting with the current state. The returned channel
// closes when ctx is done or the connection drops.
func (c *Client) SubscribeLeaderboard(ctx context.Context, category string) (<-chan core.Snapshot, error) {
	if c.wsURL == "" {
		return nil, errors.New("wsURL is not set; ensure baseURL is http/https")
	}
	if strings.TrimSpace(category) == "" {
		return nil, errors.New("category is required")
	}
	dialer := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}
	conn, _, err := dialer.DialContext(ctx, c.wsURL+"?category="+url.QueryEscape(category), c.headers)
	if err != nil {
		return nil, err
	}

	out := make(chan core.Snapshot, 32)
	go func() {
		defer close(out)
		defer conn.Close()
		for {
			select {
			case <-ctx.Done():
				return
			default:
				var snap core.Snapshot
				if err := conn.ReadJSON(&snap); err != nil {
					return
				}
				select {
				case out <- snap:
				default:
					// drop if consumer is slow
				}
			}
		}
	}()
	return out, nil
}

func (c *Client) postJSON(ctx context.Context, path string, body any, target any) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.applyHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return decodeJSON(resp, target)
}

func (c *Client) applyHeaders(r *http.Request) {
	for k, vals := range c.headers {
		for _, v := range vals {
			r.Header.Add(k, v)
		}
	}
}

func deriveWSURL(httpBase string) string {
	u, err := url.Parse(httpBase)
	if err != nil {
		return ""
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	default:
		// leave as-is for custom schemes
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	return u.String()
}
