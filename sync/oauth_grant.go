// ABOUTME: Interactive browser-based OAuth grant with a local callback listener
// ABOUTME: Opens the consent page, waits for the redirect with a deadline, and exchanges the code
package sync

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"runtime"
	"time"

	"github.com/charmbracelet/log"
	"github.com/oklog/ulid/v2"
	"golang.org/x/oauth2"
)

// LocalServerGrant runs the authorization-code flow against a listener on the loopback interface.
type LocalServerGrant struct {
	// Port is the callback port; 0 picks a free one.
	Port    int
	Timeout time.Duration

	// OpenBrowser is called with the consent URL. Failures are ignored since the URL is also printed.
	OpenBrowser func(url string) error
	Out         io.Writer
	Logger      *log.Logger
}

// NewLocalServerGrant returns a grant that prints to stdout and opens the system browser.
func NewLocalServerGrant(port int, timeout time.Duration, logger *log.Logger) *LocalServerGrant {
	return &LocalServerGrant{
		Port:        port,
		Timeout:     timeout,
		OpenBrowser: openBrowser,
		Out:         os.Stdout,
		Logger:      logger,
	}
}

type callbackResult struct {
	token *oauth2.Token
	err   error
}

// Authorize blocks until the browser redirect arrives, the flow fails, or the timeout expires.
func (g *LocalServerGrant) Authorize(ctx context.Context, cfg *oauth2.Config) (*oauth2.Token, error) {
	if g.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.Timeout)
		defer cancel()
	}

	listener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", g.Port))
	if err != nil {
		return nil, fmt.Errorf("failed to listen for OAuth callback: %w", err)
	}

	// Copy so the caller's config keeps its redirect URL when the port was picked here.
	flowCfg := *cfg
	flowCfg.RedirectURL = RedirectURL(listener.Addr().(*net.TCPAddr).Port)

	state := newState()
	results := make(chan callbackResult, 1)

	mux := http.NewServeMux()
	mux.HandleFunc(callbackPath, func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		var res callbackResult
		switch {
		case query.Get("state") != state:
			res.err = errors.New("state mismatch in OAuth callback")
		case query.Get("error") != "":
			res.err = fmt.Errorf("authorization denied: %s", query.Get("error"))
		case query.Get("code") == "":
			res.err = errors.New("no authorization code received")
		default:
			res.token, res.err = flowCfg.Exchange(ctx, query.Get("code"))
			if res.err != nil {
				res.err = fmt.Errorf("failed to exchange code: %w", res.err)
			}
		}

		if res.err != nil {
			http.Error(w, "Authorization failed. You can close this window.", http.StatusBadRequest)
		} else {
			_, _ = fmt.Fprintf(w, "Authorization successful! You can close this window.")
		}

		select {
		case results <- res:
		default:
		}
	})

	server := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	serveErr := make(chan error, 1)
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	authURL := flowCfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)

	_, _ = fmt.Fprintln(g.Out, "Opening browser for Google OAuth...")
	_, _ = fmt.Fprintf(g.Out, "\nIf browser doesn't open, visit this URL:\n%s\n\n", authURL)
	if g.OpenBrowser != nil {
		if err := g.OpenBrowser(authURL); err != nil && g.Logger != nil {
			g.Logger.Debug("Could not open browser", "err", err)
		}
	}

	select {
	case res := <-results:
		return res.token, res.err
	case err := <-serveErr:
		return nil, fmt.Errorf("OAuth callback server failed: %w", err)
	case <-ctx.Done():
		return nil, fmt.Errorf("timed out waiting for authorization: %w", ctx.Err())
	}
}

// newState returns an unguessable value for the OAuth state parameter.
func newState() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
}

// openBrowser attempts to open URL in default browser
func openBrowser(url string) error {
	var cmd string
	var args []string

	switch runtime.GOOS {
	case "darwin":
		cmd = "open"
		args = []string{url}
	case "windows":
		cmd = "cmd"
		args = []string{"/c", "start", url}
	default:
		cmd = "xdg-open"
		args = []string{url}
	}

	command := exec.Command(cmd, args...)
	return command.Start()
}
