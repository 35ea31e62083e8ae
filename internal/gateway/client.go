package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/park285/cheese-board-client/internal/domain"
	"github.com/valyala/fasthttp"
)

var (
	ErrRemoteCallFailed    = errors.New("remote call failed")
	ErrSessionJoinFailed   = errors.New("session join failed")
	ErrUnrecognizedMessage = errors.New("unrecognized push message")
)

// HeaderProvider allows injecting per-request headers
type HeaderProvider func() map[string]string

// StatusError is a non-2xx answer from the game service.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("game service error: status=%d body=%s", e.Status, e.Body)
}

type JoinRequest struct {
	Session string `json:"session"`
}

// JoinResponse carries either a board or an explicit error, never both.
type JoinResponse struct {
	Board string `json:"board"`
	Error string `json:"error,omitempty"`
}

type MoveRequest struct {
	Session      string `json:"session"`
	FromPosition string `json:"fromPosition"`
	ToPosition   string `json:"toPosition"`
}

type MoveResponse struct {
	Board string `json:"board"`
}

type Client struct {
	baseURL string
	http    *fasthttp.Client
	headers HeaderProvider

	defaultTimeout time.Duration
	retryMax       int
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.defaultTimeout = d }
}

func WithMaxConnsPerHost(n int) Option {
	return func(c *Client) { c.http.MaxConnsPerHost = n }
}

func WithHeaderProvider(h HeaderProvider) Option {
	return func(c *Client) { c.headers = h }
}

func WithRetry(max int) Option {
	return func(c *Client) { c.retryMax = max }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 16},
		defaultTimeout: 10 * time.Second,
		retryMax:       3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Join fetches the current board of a session. Transport failures are retried;
// an explicit error field in the body is returned as-is for the caller to judge.
func (c *Client) Join(ctx context.Context, sessionID string) (*JoinResponse, error) {
	var resp JoinResponse
	if err := c.doJSON(ctx, fasthttp.MethodPost, "/join", JoinRequest{Session: sessionID}, &resp, true); err != nil {
		return nil, fmt.Errorf("join %s: %w", sessionID, err)
	}
	return &resp, nil
}

// Move is sent exactly once; a rejected move is never retried here.
func (c *Client) Move(ctx context.Context, req domain.MoveRequest) (*MoveResponse, error) {
	body := MoveRequest{Session: req.SessionID, FromPosition: req.From, ToPosition: req.To}
	var resp MoveResponse
	if err := c.doJSON(ctx, fasthttp.MethodPost, "/move", body, &resp, false); err != nil {
		return nil, fmt.Errorf("move %s%s: %w", req.From, req.To, err)
	}
	return &resp, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in any, out any, retry bool) error {
	url := c.baseURL + path
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(method)
	req.SetRequestURI(url)
	req.Header.SetContentType("application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())

	if c.headers != nil {
		for k, v := range c.headers() {
			if strings.TrimSpace(k) != "" && strings.TrimSpace(v) != "" {
				req.Header.Set(k, v)
			}
		}
	}

	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		req.SetBody(payload)
	}

	attempts := 1
	if retry {
		attempts = c.retryMax
		if attempts <= 0 {
			attempts = 1
		}
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %w", ErrRemoteCallFailed, err)
		}
		deadline := c.computeDeadline(ctx)
		err := c.http.DoDeadline(req, resp, deadline)
		if err != nil {
			lastErr = fmt.Errorf("%w: %w", ErrRemoteCallFailed, err)
			if attempt == attempts || !retry {
				return lastErr
			}
			if sleepErr := sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return lastErr
			}
			continue
		}

		status := resp.StatusCode()
		if status < 200 || status >= 300 {
			lastErr = fmt.Errorf("%w: %w", ErrRemoteCallFailed, &StatusError{Status: status, Body: truncate(string(resp.Body()), 512)})
			if attempt == attempts || !retry || !shouldRetryStatus(status) {
				return lastErr
			}
			if sleepErr := sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return lastErr
			}
			continue
		}

		if out != nil {
			if err := json.Unmarshal(resp.Body(), out); err != nil {
				return fmt.Errorf("%w: decode response: %w", ErrRemoteCallFailed, err)
			}
		}
		return nil
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("%w: unknown error", ErrRemoteCallFailed)
	}
	return lastErr
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	if dl, ok := ctx.Deadline(); ok {
		clientDL := time.Now().Add(c.defaultTimeout)
		if dl.Before(clientDL) {
			return dl
		}
		return clientDL
	}
	return time.Now().Add(c.defaultTimeout)
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	base := 100 * time.Millisecond
	return time.Duration(1<<uint(attempt-1)) * base // 100ms, 200ms ...
}

func shouldRetryStatus(code int) bool {
	switch code {
	case 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
