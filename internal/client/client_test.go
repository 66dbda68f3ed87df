package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"finsense/internal/auth"
	"finsense/internal/config"
	"finsense/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type headerGate struct {
	headers http.Header
}

func (*headerGate) Mode() config.AuthMode           { return config.AuthToken }
func (*headerGate) Enabled() bool                   { return true }
func (g *headerGate) Headers() (http.Header, error) { return g.headers, nil }
func (*headerGate) User() auth.User                 { return auth.User{} }

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL, &auth.DisabledGate{}, nil, 0), srv
}

func TestChatAssignsAndEchoesSessionID(t *testing.T) {
	var bodies []models.ChatRequest
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req models.ChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		bodies = append(bodies, req)
		json.NewEncoder(w).Encode(models.ChatResponse{
			SessionID:  "abc-123",
			BotMessage: "hello",
			State:      "collecting_goals",
		})
	}))

	resp, err := c.Chat(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "abc-123", resp.SessionID)
	assert.Equal(t, "abc-123", c.SessionID())
	assert.Equal(t, "collecting_goals", c.State())

	_, err = c.Chat(context.Background(), "more")
	require.NoError(t, err)

	require.Len(t, bodies, 2)
	assert.Empty(t, bodies[0].SessionID)
	assert.Equal(t, "abc-123", bodies[1].SessionID)
}

func TestChatWelcomeSendsEmptyMessage(t *testing.T) {
	var raw map[string]any
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		json.NewEncoder(w).Encode(models.ChatResponse{
			SessionID:  "s1",
			BotMessage: "welcome",
			State:      "initial",
		})
	}))

	resp, err := c.Chat(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "welcome", resp.BotMessage)

	// session_id is omitted entirely before one is assigned
	_, hasSession := raw["session_id"]
	assert.False(t, hasSession)
	assert.Equal(t, "", raw["message"])
}

func TestChatFailureLeavesSessionUnchanged(t *testing.T) {
	fail := false
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"detail": "engine offline"}`))
			return
		}
		json.NewEncoder(w).Encode(models.ChatResponse{
			SessionID:  "s9",
			BotMessage: "ok",
			State:      "conversational",
		})
	}))

	_, err := c.Chat(context.Background(), "hi")
	require.NoError(t, err)

	fail = true
	_, err = c.Chat(context.Background(), "again")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "engine offline")
	assert.Equal(t, "s9", c.SessionID())
	assert.Equal(t, "conversational", c.State())
}

func TestChatMalformedReplyLeavesSessionUnchanged(t *testing.T) {
	replies := 0
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		replies++
		if replies == 1 {
			json.NewEncoder(w).Encode(models.ChatResponse{SessionID: "s1", BotMessage: "ok", State: "initial"})
			return
		}
		w.Write([]byte(`{"bot_message": "no session here"}`))
	}))

	_, err := c.Chat(context.Background(), "hi")
	require.NoError(t, err)

	_, err = c.Chat(context.Background(), "again")
	require.Error(t, err)
	assert.Equal(t, "s1", c.SessionID())
	assert.Equal(t, "initial", c.State())
}

func TestResearchRequiresSession(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	}))

	_, err := c.Research(context.Background())
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestResearchSuccessAndFailure(t *testing.T) {
	fail := false
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/chat":
			json.NewEncoder(w).Encode(models.ChatResponse{SessionID: "s2", BotMessage: "ok", State: "ready_to_research"})
		case "/api/research":
			if fail {
				w.WriteHeader(http.StatusBadGateway)
				w.Write([]byte(`{"detail": "research engine unavailable"}`))
				return
			}
			var req models.ResearchRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "s2", req.SessionID)
			json.NewEncoder(w).Encode(models.ResearchResponse{
				SessionID: "s2",
				Status:    "complete",
				Results: &models.ResearchResults{
					HTML: `<div class="result-section"><h2>Picks</h2></div>`,
					Raw:  map[string]any{"picks": []any{"AAPL"}},
				},
			})
		}
	}))

	_, err := c.Chat(context.Background(), "go")
	require.NoError(t, err)

	fail = true
	_, err = c.Research(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "research engine unavailable")
	assert.Equal(t, "ready_to_research", c.State())
	assert.Equal(t, "s2", c.SessionID())

	fail = false
	resp, err := c.Research(context.Background())
	require.NoError(t, err)
	require.NotNil(t, resp.Results)
	assert.Contains(t, resp.Results.HTML, "result-section")
	assert.Equal(t, models.StateComplete, c.State())
}

func TestResearchMissingResultsIsError(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/chat" {
			json.NewEncoder(w).Encode(models.ChatResponse{SessionID: "s3", BotMessage: "ok", State: "ready_to_research"})
			return
		}
		json.NewEncoder(w).Encode(models.ResearchResponse{SessionID: "s3", Status: "complete"})
	}))

	_, err := c.Chat(context.Background(), "go")
	require.NoError(t, err)

	_, err = c.Research(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing results")
	assert.Equal(t, "ready_to_research", c.State())
}

func TestWelcomeTimeoutConfigurable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		json.NewEncoder(w).Encode(models.ChatResponse{SessionID: "s7", BotMessage: "ok", State: "initial"})
	}))
	defer srv.Close()

	c := New(srv.URL, &auth.DisabledGate{}, nil, 20*time.Millisecond)

	_, err := c.Chat(context.Background(), "")
	require.Error(t, err)
	assert.Empty(t, c.SessionID())

	// Only the welcome call is bounded; a real turn waits the server out.
	_, err = c.Chat(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "s7", c.SessionID())
}

func TestGateHeadersAttached(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(models.ChatResponse{SessionID: "s4", BotMessage: "ok", State: "initial"})
	}))
	defer srv.Close()

	gate := &headerGate{headers: http.Header{"Authorization": []string{"Bearer tok-xyz"}}}
	c := New(srv.URL, gate, nil, 0)

	_, err := c.Chat(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-xyz", gotAuth)
}

func TestGuestSendsNoAuthorizationHeader(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(models.ChatResponse{SessionID: "s5", BotMessage: "ok", State: "initial"})
	}))
	defer srv.Close()

	c := New(srv.URL, auth.NewGuestGate(), nil, 0)
	_, err := c.Chat(context.Background(), "hi")
	require.NoError(t, err)
	assert.Empty(t, gotAuth)
}

func TestStatusUpdatesState(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/chat":
			json.NewEncoder(w).Encode(models.ChatResponse{SessionID: "s6", BotMessage: "ok", State: "researching"})
		case r.URL.Path == "/api/status/s6":
			json.NewEncoder(w).Encode(models.StatusResponse{SessionID: "s6", State: "complete"})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))

	_, err := c.Chat(context.Background(), "go")
	require.NoError(t, err)

	resp, err := c.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "complete", resp.State)
	assert.Equal(t, "complete", c.State())
}

func TestHistory(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/history", r.URL.Path)
		json.NewEncoder(w).Encode(models.HistoryResponse{
			Messages: []models.HistoryMessage{
				{Role: "user", Message: "hi"},
				{Role: "bot", Message: "hello"},
			},
		})
	}))

	msgs, err := c.History(context.Background())
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "user", msgs[0].Role)
	assert.Equal(t, "hello", msgs[1].Message)
}
