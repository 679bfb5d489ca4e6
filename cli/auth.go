// ABOUTME: Google OAuth CLI commands
// ABOUTME: Forces a fresh browser authorization and reports on the stored token
package cli

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/harperreed/calimport/config"
	"github.com/harperreed/calimport/logger"
	"github.com/harperreed/calimport/sync"
)

// AuthCommand runs the browser authorization flow and stores the resulting token,
// replacing any token already on disk.
func AuthCommand(ctx context.Context, env Env, args []string) error {
	fs := flag.NewFlagSet("auth", flag.ContinueOnError)
	fs.SetOutput(env.Stderr)
	debug := fs.Bool("debug", false, "Enable debug logging")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(env.LoadOptions)
	if err != nil {
		return err
	}
	l := logger.New(env.Stderr, cfg.Debug || *debug)

	oauthCfg, err := sync.NewOAuthConfig(cfg)
	if err != nil {
		return &sync.AuthError{Op: "client configuration", Err: err}
	}

	grant := sync.NewLocalServerGrant(cfg.CallbackPort, cfg.AuthTimeout, l)
	grant.Out = env.Stdout

	token, err := grant.Authorize(ctx, oauthCfg)
	if err != nil {
		return &sync.AuthError{Op: "authorization", Err: err}
	}
	if err := sync.SaveToken(cfg.TokenPath, token); err != nil {
		return &sync.AuthError{Op: "token persistence", Err: err}
	}

	_, _ = fmt.Fprintf(env.Stdout, "\n%s Authenticated successfully\n", okMark)
	_, _ = fmt.Fprintf(env.Stdout, "%s Tokens saved to %s\n\n", okMark, cfg.TokenPath)
	_, _ = fmt.Fprintln(env.Stdout, "Ready to import! Run 'calimport import' to create events.")
	return nil
}

// StatusCommand prints what is known about the stored token without network access.
func StatusCommand(ctx context.Context, env Env, args []string) error {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	fs.SetOutput(env.Stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(env.LoadOptions)
	if err != nil {
		return err
	}

	status, err := sync.InspectToken(cfg.TokenPath, time.Now())
	if err != nil {
		return fmt.Errorf("failed to read token: %w", err)
	}

	_, _ = fmt.Fprintf(env.Stdout, "Calendar: %s\n", cfg.CalendarID)
	_, _ = fmt.Fprintf(env.Stdout, "Time zone: %s\n", cfg.TimeZone)
	printTokenStatus(env.Stdout, status)
	return nil
}
