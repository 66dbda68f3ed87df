package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"finsense/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestFromConfigSelectsGateByMode(t *testing.T) {
	tests := []struct {
		name string
		auth config.AuthConfig
		mode config.AuthMode
	}{
		{"disabled by default", config.AuthConfig{Mode: config.AuthDisabled}, config.AuthDisabled},
		{"token", config.AuthConfig{Mode: config.AuthToken, Domain: "x.auth0.com", ClientID: "cid"}, config.AuthToken},
		{"session", config.AuthConfig{Mode: config.AuthSession, EmbeddedUser: `{"sub":"u1","email":"u@x.com"}`}, config.AuthSession},
		{"guest", config.AuthConfig{Mode: config.AuthGuest}, config.AuthGuest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gate, err := FromConfig(&config.Config{Auth: tt.auth})
			require.NoError(t, err)
			assert.Equal(t, tt.mode, gate.Mode())
		})
	}
}

func TestFromConfigRejectsBadEmbeddedUser(t *testing.T) {
	_, err := FromConfig(&config.Config{Auth: config.AuthConfig{
		Mode:         config.AuthSession,
		EmbeddedUser: "not json",
	}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FINSENSE_USER")
}

func TestDisabledGateAlwaysEnabled(t *testing.T) {
	g := &DisabledGate{}
	assert.True(t, g.Enabled())
	h, err := g.Headers()
	require.NoError(t, err)
	assert.Empty(t, h)
}

func TestSessionGateNeedsIdentity(t *testing.T) {
	empty := &SessionGate{}
	assert.False(t, empty.Enabled())

	gate, err := FromConfig(&config.Config{Auth: config.AuthConfig{
		Mode:         config.AuthSession,
		EmbeddedUser: `{"sub":"auth0|123","name":"Pat","email":"pat@example.com"}`,
	}})
	require.NoError(t, err)
	assert.True(t, gate.Enabled())
	assert.Equal(t, "auth0|123", gate.User().ID)
	assert.Equal(t, "Pat", gate.User().Name)
}

func TestGuestGateFabricatesIdentity(t *testing.T) {
	g := NewGuestGate()
	assert.True(t, g.Enabled())
	assert.True(t, strings.HasPrefix(g.User().ID, "guest-"))
	assert.Equal(t, "Guest", g.User().Name)

	h, err := g.Headers()
	require.NoError(t, err)
	assert.Empty(t, h.Get("Authorization"))
}

func TestTokenGateDisabledBeforeLogin(t *testing.T) {
	g := NewTokenGate("x.auth0.com", "cid", "https://api.example.com")
	assert.False(t, g.Enabled())

	_, err := g.Headers()
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestTokenGateHeadersAfterToken(t *testing.T) {
	g := NewTokenGate("x.auth0.com", "cid", "")
	g.setToken(&oauth2.Token{
		AccessToken: "opaque-token",
		Expiry:      time.Now().Add(time.Hour),
	})

	assert.True(t, g.Enabled())
	h, err := g.Headers()
	require.NoError(t, err)
	assert.Equal(t, "Bearer opaque-token", h.Get("Authorization"))

	g.Logout()
	assert.False(t, g.Enabled())
}

func TestTokenGateExpiredTokenDisables(t *testing.T) {
	g := NewTokenGate("x.auth0.com", "cid", "")
	g.setToken(&oauth2.Token{
		AccessToken: "stale",
		Expiry:      time.Now().Add(-time.Minute),
	})
	assert.False(t, g.Enabled())
	_, err := g.Headers()
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestClassifyDeviceError(t *testing.T) {
	denied := classifyDeviceError(&oauth2.RetrieveError{ErrorCode: "access_denied"})
	assert.ErrorIs(t, denied, ErrLoginCancelled)

	expired := classifyDeviceError(&oauth2.RetrieveError{ErrorCode: "expired_token"})
	assert.Contains(t, expired.Error(), "expired")
	assert.NotErrorIs(t, expired, ErrLoginCancelled)

	other := classifyDeviceError(errors.New("network down"))
	assert.Contains(t, other.Error(), "login failed")
}

func TestLoginFailureMessageCategories(t *testing.T) {
	cancelled := LoginFailureMessage(ErrLoginCancelled)
	blocked := LoginFailureMessage(ErrBrowserBlocked)
	generic := LoginFailureMessage(errors.New("boom"))

	assert.Contains(t, cancelled, "cancelled")
	assert.Contains(t, blocked, "browser")
	assert.Contains(t, generic, "failed")

	// Three distinct texts, all pointing at the retry keys.
	assert.NotEqual(t, cancelled, blocked)
	assert.NotEqual(t, cancelled, generic)
	assert.NotEqual(t, blocked, generic)
	for _, msg := range []string{cancelled, generic} {
		assert.Contains(t, msg, "ctrl+l")
		assert.Contains(t, msg, "ctrl+g")
	}
}
