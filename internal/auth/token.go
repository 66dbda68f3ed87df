package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"

	"finsense/internal/config"
)

// DevicePrompt carries the verification details the UI must show the user
// while the device-authorization poll is running.
type DevicePrompt struct {
	UserCode        string
	VerificationURI string
}

// TokenGate authenticates through the OAuth2 device-authorization flow
// against the configured identity-provider domain. Until Login completes
// the gate is disabled and Headers fails.
type TokenGate struct {
	clientID string
	audience string
	endpoint oauth2.Endpoint

	mu     sync.Mutex
	token  *oauth2.Token
	expiry time.Time
	user   User

	// openURL is swapped in tests; defaults to launching the browser.
	openURL func(string) error
}

func NewTokenGate(domain, clientID, audience string) *TokenGate {
	return &TokenGate{
		clientID: clientID,
		audience: audience,
		endpoint: oauth2.Endpoint{
			DeviceAuthURL: "https://" + domain + "/oauth/device/code",
			TokenURL:      "https://" + domain + "/oauth/token",
		},
		openURL: openBrowser,
	}
}

func (*TokenGate) Mode() config.AuthMode { return config.AuthToken }

func (g *TokenGate) Enabled() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.hasValidToken()
}

func (g *TokenGate) Headers() (http.Header, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.hasValidToken() {
		return nil, ErrNoToken
	}
	h := http.Header{}
	h.Set("Authorization", "Bearer "+g.token.AccessToken)
	return h, nil
}

func (g *TokenGate) User() User {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.user
}

// Login runs the device flow: request a device code, show it to the user,
// open the verification page, then poll for the token. Blocks until the
// user approves, denies, or the code expires.
func (g *TokenGate) Login(ctx context.Context, prompt func(DevicePrompt)) error {
	conf := &oauth2.Config{
		ClientID: g.clientID,
		Endpoint: g.endpoint,
		Scopes:   []string{"openid", "profile", "email"},
	}

	var opts []oauth2.AuthCodeOption
	if g.audience != "" {
		opts = append(opts, oauth2.SetAuthURLParam("audience", g.audience))
	}

	da, err := conf.DeviceAuth(ctx, opts...)
	if err != nil {
		return fmt.Errorf("device authorization: %w", err)
	}

	if prompt != nil {
		prompt(DevicePrompt{UserCode: da.UserCode, VerificationURI: da.VerificationURI})
	}

	target := da.VerificationURIComplete
	if target == "" {
		target = da.VerificationURI
	}
	if err := g.openURL(target); err != nil {
		return ErrBrowserBlocked
	}

	tok, err := conf.DeviceAccessToken(ctx, da, opts...)
	if err != nil {
		return classifyDeviceError(err)
	}

	g.setToken(tok)
	return nil
}

func (g *TokenGate) Logout() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.token = nil
	g.expiry = time.Time{}
	g.user = User{}
}

func (g *TokenGate) hasValidToken() bool {
	if g.token == nil || g.token.AccessToken == "" {
		return false
	}
	return g.expiry.IsZero() || time.Now().Before(g.expiry)
}

func (g *TokenGate) setToken(tok *oauth2.Token) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.token = tok
	g.expiry = tok.Expiry
	g.user = User{Name: "Authenticated User"}

	// The backend verifies signatures; here the claims only feed the
	// display name and expiry.
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tok.AccessToken, claims); err != nil {
		return
	}
	if sub, _ := claims["sub"].(string); sub != "" {
		g.user.ID = sub
	}
	if name, _ := claims["name"].(string); name != "" {
		g.user.Name = name
	}
	if email, _ := claims["email"].(string); email != "" {
		g.user.Email = email
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		g.expiry = exp.Time
	}
}

func classifyDeviceError(err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		switch re.ErrorCode {
		case "access_denied":
			return ErrLoginCancelled
		case "expired_token":
			return fmt.Errorf("auth: login code expired: %w", err)
		}
	}
	return fmt.Errorf("auth: login failed: %w", err)
}

// LoginFailureMessage maps a Login error onto the status text shown in the
// transcript. The three categories get distinct wording.
func LoginFailureMessage(err error) string {
	switch {
	case errors.Is(err, ErrLoginCancelled):
		return "Login cancelled. Press ctrl+l to try again, or ctrl+g to continue as guest."
	case errors.Is(err, ErrBrowserBlocked):
		return "Could not open your browser for login. Check your desktop settings and retry with ctrl+l."
	default:
		return "Login failed. Press ctrl+l to retry, or ctrl+g to continue as guest."
	}
}

func openBrowser(url string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	default:
		return exec.Command("xdg-open", url).Start()
	}
}
