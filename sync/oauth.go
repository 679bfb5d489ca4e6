// ABOUTME: OAuth configuration and token lifecycle for the Calendar API
// ABOUTME: Loads, validates, refreshes or re-authorizes, and persists the token before handing out a client
package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"

	"github.com/harperreed/calimport/config"
)

const (
	callbackPath = "/oauth/callback"

	// expiryDelta treats a token as expired slightly early to absorb clock skew.
	expiryDelta = 10 * time.Second
)

// Grant obtains a fresh token through an interactive consent flow.
type Grant interface {
	Authorize(ctx context.Context, cfg *oauth2.Config) (*oauth2.Token, error)
}

// RedirectURL is the callback URL registered for the local grant listener.
func RedirectURL(port int) string {
	return fmt.Sprintf("http://localhost:%d%s", port, callbackPath)
}

// NewOAuthConfig reads the OAuth client from the client secret file. When the file does not
// exist it falls back to GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET.
func NewOAuthConfig(cfg *config.Config) (*oauth2.Config, error) {
	data, err := os.ReadFile(cfg.ClientSecretPath)
	switch {
	case err == nil:
		oauthCfg, err := google.ConfigFromJSON(data, calendar.CalendarScope)
		if err != nil {
			return nil, fmt.Errorf("failed to parse client secret file %s: %w", cfg.ClientSecretPath, err)
		}
		oauthCfg.RedirectURL = RedirectURL(cfg.CallbackPort)
		return oauthCfg, nil

	case errors.Is(err, fs.ErrNotExist):
		if cfg.ClientID == "" || cfg.ClientSecret == "" {
			return nil, fmt.Errorf("google OAuth credentials not configured. Provide %s or set GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET", cfg.ClientSecretPath)
		}
		return &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  RedirectURL(cfg.CallbackPort),
			Scopes:       []string{calendar.CalendarScope},
			Endpoint:     google.Endpoint,
		}, nil

	default:
		return nil, fmt.Errorf("failed to read client secret file: %w", err)
	}
}

// SaveToken writes token to path, replacing any previous content.
func SaveToken(path string, token *oauth2.Token) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	// Write token file with restricted permissions
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create token file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := json.NewEncoder(f).Encode(token); err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}

	return nil
}

// LoadToken reads the token stored at path. A missing file yields an error wrapping fs.ErrNotExist.
func LoadToken(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open token file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var token oauth2.Token
	if err := json.NewDecoder(f).Decode(&token); err != nil {
		return nil, fmt.Errorf("failed to decode token: %w", err)
	}

	return &token, nil
}

type authState int

const (
	stateNoToken authState = iota
	stateTokenLoaded
	stateValidating
	stateRefreshing
	stateReauthorizing
	statePersisted
	stateReady
)

func (s authState) String() string {
	switch s {
	case stateNoToken:
		return "no-token"
	case stateTokenLoaded:
		return "token-loaded"
	case stateValidating:
		return "validating"
	case stateRefreshing:
		return "refreshing"
	case stateReauthorizing:
		return "reauthorizing"
	case statePersisted:
		return "persisted"
	case stateReady:
		return "ready"
	}
	return "unknown"
}

// Authenticator owns the token for one run.
type Authenticator struct {
	TokenPath string

	// OAuthConfig is only called when a refresh or a new grant is needed.
	OAuthConfig func() (*oauth2.Config, error)
	Grant       Grant
	Logger      *log.Logger
	Now         func() time.Time

	token     *oauth2.Token
	oauthCfg  *oauth2.Config
	refreshed bool
}

// NewAuthenticator wires an Authenticator from the run configuration.
func NewAuthenticator(cfg *config.Config, logger *log.Logger) *Authenticator {
	return &Authenticator{
		TokenPath:   cfg.TokenPath,
		OAuthConfig: func() (*oauth2.Config, error) { return NewOAuthConfig(cfg) },
		Grant:       NewLocalServerGrant(cfg.CallbackPort, cfg.AuthTimeout, logger),
		Logger:      logger,
		Now:         time.Now,
	}
}

// Authenticate runs the token state machine once and returns an HTTP client bound to the
// resulting token. The client does not refresh in the background.
func (a *Authenticator) Authenticate(ctx context.Context) (*http.Client, error) {
	a.token, a.oauthCfg, a.refreshed = nil, nil, false

	state := stateNoToken
	for state != stateReady {
		next, err := a.step(ctx, state)
		if err != nil {
			return nil, err
		}
		a.Logger.Debug("auth state", "from", state, "to", next)
		state = next
	}

	return oauth2.NewClient(ctx, oauth2.StaticTokenSource(a.token)), nil
}

// Token returns the token produced by the last successful Authenticate call.
func (a *Authenticator) Token() *oauth2.Token {
	return a.token
}

func (a *Authenticator) step(ctx context.Context, state authState) (authState, error) {
	switch state {
	case stateNoToken:
		token, err := LoadToken(a.TokenPath)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				a.Logger.Info("No stored token found", "path", a.TokenPath)
			} else {
				a.Logger.Warn("Stored token is unusable", "path", a.TokenPath, "err", err)
			}
			return stateReauthorizing, nil
		}
		a.token = token
		a.Logger.Debug("Found existing token file", "path", a.TokenPath)
		return stateTokenLoaded, nil

	case stateTokenLoaded:
		return stateValidating, nil

	case stateValidating:
		if a.valid(a.token) {
			return stateReady, nil
		}
		a.Logger.Debug("Credentials are missing or invalid")
		if a.token.RefreshToken != "" {
			return stateRefreshing, nil
		}
		return stateReauthorizing, nil

	case stateRefreshing:
		token, err := a.refresh(ctx)
		if err != nil {
			a.Logger.Warn("Token refresh failed, starting a new authorization", "err", err)
			return stateReauthorizing, nil
		}
		a.token = token
		a.refreshed = true
		return statePersisted, nil

	case stateReauthorizing:
		cfg, err := a.clientConfig()
		if err != nil {
			return 0, &AuthError{Op: "client configuration", Err: err}
		}
		a.Logger.Info("Starting new authentication flow")
		token, err := a.Grant.Authorize(ctx, cfg)
		if err != nil {
			return 0, &AuthError{Op: "authorization", Err: err}
		}
		if token == nil || token.AccessToken == "" {
			return 0, &AuthError{Op: "authorization", Err: errors.New("grant returned no access token")}
		}
		a.token = token
		return statePersisted, nil

	case statePersisted:
		if err := SaveToken(a.TokenPath, a.token); err != nil {
			return 0, &AuthError{Op: "token persistence", Err: err}
		}
		a.Logger.Debug("Saved credentials", "path", a.TokenPath, "refreshed", a.refreshed)
		return stateReady, nil
	}

	return 0, fmt.Errorf("unexpected auth state %v", state)
}

// valid reports whether token has an access token that has not expired by the local clock.
func (a *Authenticator) valid(token *oauth2.Token) bool {
	if token == nil || token.AccessToken == "" {
		return false
	}
	if token.Expiry.IsZero() {
		return true
	}
	return a.now().Add(expiryDelta).Before(token.Expiry)
}

func (a *Authenticator) refresh(ctx context.Context) (*oauth2.Token, error) {
	cfg, err := a.clientConfig()
	if err != nil {
		return nil, err
	}
	a.Logger.Debug("Attempting to refresh expired credentials")
	// An access-token-less token forces exactly one refresh exchange.
	return cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: a.token.RefreshToken}).Token()
}

func (a *Authenticator) clientConfig() (*oauth2.Config, error) {
	if a.oauthCfg != nil {
		return a.oauthCfg, nil
	}
	cfg, err := a.OAuthConfig()
	if err != nil {
		return nil, err
	}
	a.oauthCfg = cfg
	return cfg, nil
}

func (a *Authenticator) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

// TokenStatus describes the stored token without touching the network.
type TokenStatus struct {
	Path        string
	Present     bool
	Valid       bool
	Expiry      time.Time
	Refreshable bool
}

// InspectToken reports on the token stored at path.
func InspectToken(path string, now time.Time) (TokenStatus, error) {
	status := TokenStatus{Path: path}
	token, err := LoadToken(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return status, nil
		}
		return status, err
	}
	a := &Authenticator{Now: func() time.Time { return now }}
	status.Present = true
	status.Valid = a.valid(token)
	status.Expiry = token.Expiry
	status.Refreshable = token.RefreshToken != ""
	return status, nil
}
