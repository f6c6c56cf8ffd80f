package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/crate/internal/discogs"
	"github.com/desertthunder/crate/internal/models"
	"github.com/desertthunder/crate/internal/server"
	"github.com/desertthunder/crate/internal/shared"
)

const defaultAuthTimeout = 2 * time.Minute

// AuthLogin performs the OAuth 1.0a flow and stores the resulting token pair.
//
// Starts a local callback server, opens the browser on the authorization page and
// exchanges the verifier for an access token. The user is created or updated by username.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	if !r.config.HasConsumerCredentials() {
		return fmt.Errorf("%w: set discogs.consumer_key and discogs.consumer_secret in %s", shared.ErrMissingCredentials, r.configPath)
	}
	if err := r.open(ctx); err != nil {
		return err
	}

	creds, err := r.authorize(ctx, cmd.Duration("timeout"), !cmd.Bool("no-browser"))
	if err != nil {
		return err
	}

	identity, err := r.client.Identity(ctx, creds)
	if err != nil {
		return fmt.Errorf("%w: identity lookup failed: %w", shared.ErrAuthFailed, err)
	}

	user, err := r.users.SaveAuthorized(ctx, identity.Username, identity.ID, creds.Token, creds.TokenSecret)
	if err != nil {
		return fmt.Errorf("failed to save tokens: %w", err)
	}

	r.logger.Info("authorization saved", "user", user.Username(), "id", user.ID())
	r.writePlainln("✓ Authorized as %s", user.Username())
	r.writePlain("You can now use: crate sync --user %s\n", user.Username())
	return nil
}

// authorize runs the browser half of the flow and returns the access token pair.
func (r *Runner) authorize(ctx context.Context, timeout time.Duration, browser bool) (*discogs.Credentials, error) {
	callback, err := url.Parse(r.config.Discogs.CallbackURL)
	if err != nil || callback.Host == "" {
		return nil, fmt.Errorf("%w: discogs.callback_url %q", shared.ErrInvalidConfig, r.config.Discogs.CallbackURL)
	}

	listener, err := net.Listen("tcp", callback.Host)
	if err != nil {
		return nil, fmt.Errorf("failed to listen for the OAuth callback: %w", err)
	}
	// Port 0 in the config picks a free port.
	callback.Host = listener.Addr().String()
	callback.Path = "/callback"

	requestToken, err := r.client.RequestToken(ctx, callback.String())
	if err != nil {
		listener.Close()
		return nil, err
	}
	if !requestToken.CallbackConfirmed {
		r.logger.Warn("callback not confirmed by the request token endpoint")
	}

	oauthHandler := server.NewOAuthHandler(r.client, &requestToken.Credentials)
	router := server.NewBasicRouter()
	router.Use(server.Logging(r.logger))
	router.Handler(oauthHandler)

	httpServer := &http.Server{Handler: router, ReadHeaderTimeout: 10 * time.Second}
	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("starting OAuth callback server at %v", callback.Host)
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			r.logger.Warn("error shutting down server", "error", err)
		}
	}()

	authURL := r.client.AuthorizeURL(requestToken.Token)
	if browser {
		r.writePlain("→ Opening browser for Discogs authorization...\n")
		if err := r.openBrowser(ctx, authURL); err != nil {
			r.logger.Warnf("failed to open browser automatically %v", err)
			r.writePlainln("⚠ Could not open browser automatically.")
			browser = false
		}
	}
	if !browser {
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (%s timeout)...\n", timeout)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var result server.OAuthResult
	select {
	case result = <-oauthHandler.Result():
	case err := <-serverErrors:
		return nil, fmt.Errorf("server error: %w", err)
	case <-timer.C:
		return nil, fmt.Errorf("%w: authorization timed out after %s", shared.ErrTimeout, timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if result.Error() != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrAuthFailed, result.Error())
	}
	if result.Token == nil {
		return nil, fmt.Errorf("%w: no token received", shared.ErrAuthFailed)
	}
	return result.Token, nil
}

// AuthStatus lists users with stored tokens, optionally checking each against the identity endpoint.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	if err := r.open(ctx); err != nil {
		return err
	}

	users, err := r.users.List(ctx)
	if err != nil {
		return err
	}
	if name := cmd.String("user"); name != "" {
		user, err := r.resolveUser(ctx, name)
		if err != nil {
			return err
		}
		users = []*models.User{user}
	}

	if len(users) == 0 {
		return r.writePlain("No authorized users. Run 'crate auth login'.\n")
	}

	verify := cmd.Bool("verify")
	for _, user := range users {
		r.writePlain("%s (id %s)\n", user.Username(), user.ID())
		if !user.HasTokens() {
			r.writePlain("  Authentication: ✗ No access token\n")
			continue
		}
		if !verify {
			r.writePlain("  Authentication: token stored\n")
			continue
		}

		identity, err := r.client.Identity(ctx, &discogs.Credentials{Token: user.AccessToken(), TokenSecret: user.AccessTokenSecret()})
		switch {
		case err != nil:
			r.logger.Warn("identity check failed", "user", user.Username(), "error", err)
			r.writePlain("  Authentication: ✗ %v\n", err)
		case identity.Username != user.Username():
			r.writePlain("  Authentication: ⚠ token belongs to %s\n", identity.Username)
		default:
			r.writePlain("  Authentication: ✓ Authenticated\n")
		}
	}
	return nil
}
