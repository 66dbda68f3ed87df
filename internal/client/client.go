// Package client wraps the Finsense backend HTTP API. It owns the session
// identifier: the backend assigns one on the first chat turn and the client
// echoes it unchanged on every later call until the process exits.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"finsense/internal/auth"
	"finsense/internal/models"
)

// ErrNoSession is returned when an operation requires a backend-assigned
// session id before any chat turn has established one.
var ErrNoSession = errors.New("client: no session established")

const maxErrorBody = 4 << 10

type Client struct {
	baseURL string
	httpc   *http.Client
	gate    auth.Gate
	log     *zap.Logger

	// welcomeTimeout bounds only the first (welcome) call.
	welcomeTimeout time.Duration

	mu        sync.Mutex
	sessionID string
	state     string
}

func New(baseURL string, gate auth.Gate, log *zap.Logger, welcomeTimeout time.Duration) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	if welcomeTimeout <= 0 {
		welcomeTimeout = 10 * time.Second
	}
	return &Client{
		baseURL:        baseURL,
		httpc:          &http.Client{},
		gate:           gate,
		log:            log,
		welcomeTimeout: welcomeTimeout,
	}
}

func (c *Client) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

func (c *Client) State() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SetGate swaps the credential source, e.g. after a guest fallback or a
// completed login. The session is dropped: a new identity means a new
// backend conversation.
func (c *Client) SetGate(gate auth.Gate) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gate = gate
	c.sessionID = ""
	c.state = ""
}

// Reset drops the session so the next chat turn starts a fresh one.
func (c *Client) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessionID = ""
	c.state = ""
}

// Chat sends one conversational turn. An empty message is the load-time
// convention that elicits the welcome message; that first call is the only
// one bounded by a timeout. On any failure the stored session id and state
// are left unchanged.
func (c *Client) Chat(ctx context.Context, message string) (*models.ChatResponse, error) {
	c.mu.Lock()
	sessionID := c.sessionID
	c.mu.Unlock()

	if sessionID == "" && message == "" {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.welcomeTimeout)
		defer cancel()
	}

	var resp models.ChatResponse
	start := time.Now()
	err := c.post(ctx, "/api/chat", models.ChatRequest{SessionID: sessionID, Message: message}, &resp)
	if err != nil {
		c.log.Warn("chat turn failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		return nil, err
	}
	if resp.SessionID == "" {
		return nil, fmt.Errorf("chat response missing session_id")
	}

	c.mu.Lock()
	c.sessionID = resp.SessionID
	c.state = resp.State
	c.mu.Unlock()

	c.log.Info("chat turn",
		zap.String("session_id", resp.SessionID),
		zap.String("state", resp.State),
		zap.Duration("elapsed", time.Since(start)))
	return &resp, nil
}

// Research triggers the analysis run for the current session. The call can
// take a while; pacing and progress display are the caller's concern.
func (c *Client) Research(ctx context.Context) (*models.ResearchResponse, error) {
	c.mu.Lock()
	sessionID := c.sessionID
	c.mu.Unlock()
	if sessionID == "" {
		return nil, ErrNoSession
	}

	var resp models.ResearchResponse
	start := time.Now()
	if err := c.post(ctx, "/api/research", models.ResearchRequest{SessionID: sessionID}, &resp); err != nil {
		c.log.Warn("research failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		return nil, err
	}
	if resp.Results == nil || resp.Results.HTML == "" {
		return nil, fmt.Errorf("research response missing results")
	}

	c.mu.Lock()
	c.state = models.StateComplete
	c.mu.Unlock()

	c.log.Info("research complete",
		zap.String("session_id", sessionID),
		zap.Duration("elapsed", time.Since(start)))
	return &resp, nil
}

// History fetches the server-side transcript of the authenticated user.
func (c *Client) History(ctx context.Context) ([]models.HistoryMessage, error) {
	var resp models.HistoryResponse
	if err := c.get(ctx, "/api/history", &resp); err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

// Status re-reads the backend's view of the session state.
func (c *Client) Status(ctx context.Context) (*models.StatusResponse, error) {
	c.mu.Lock()
	sessionID := c.sessionID
	c.mu.Unlock()
	if sessionID == "" {
		return nil, ErrNoSession
	}

	var resp models.StatusResponse
	if err := c.get(ctx, "/api/status/"+sessionID, &resp); err != nil {
		return nil, err
	}

	if resp.State != "" {
		c.mu.Lock()
		c.state = resp.State
		c.mu.Unlock()
	}
	return &resp, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	c.mu.Lock()
	gate := c.gate
	c.mu.Unlock()

	headers, err := gate.Headers()
	if err != nil {
		return fmt.Errorf("credentials unavailable: %w", err)
	}
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Set(k, v)
		}
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apiError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", req.URL.Path, err)
	}
	return nil
}

// apiError extracts the backend's detail string when present.
func apiError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var detail struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &detail); err == nil && detail.Detail != "" {
		return fmt.Errorf("backend returned %d: %s", resp.StatusCode, detail.Detail)
	}
	return fmt.Errorf("backend returned %d", resp.StatusCode)
}
