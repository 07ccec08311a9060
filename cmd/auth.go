package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/spotctl/internal/credentials"
	"github.com/desertthunder/spotctl/internal/server"
	"github.com/desertthunder/spotctl/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

// authStatus is the JSON shape of auth status.
type authStatus struct {
	Storage         string `json:"storage"`
	Authenticated   bool   `json:"authenticated"`
	HasAccessToken  bool   `json:"has_access_token"`
	HasRefreshToken bool   `json:"has_refresh_token"`
}

// AuthLogin performs the OAuth2 authorization code flow.
//
// Starts a local callback server, opens the browser on the consent page and waits until the
// callback has exchanged the code and stored both tokens.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	authorizer, err := r.getAuthorizer()
	if err != nil {
		return err
	}

	state, err := shared.GenerateState()
	if err != nil {
		return fmt.Errorf("failed to generate state token: %w", err)
	}

	handler := server.NewOAuthHandler(authorizer, state)
	router := server.NewBasicRouter()
	router.Use(server.Recovery(r.logger), server.Logging(shared.Slog(r.logger)), server.NoStore)
	router.Handler(handler)

	srv, err := server.Listen(r.config.Server.Address(), router, r.logger)
	if err != nil {
		return err
	}
	r.logger.Info("callback server started", "addr", srv.Addr())

	ctx, cancel := context.WithTimeout(ctx, r.loginTimeout)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Serve)

	g.Go(func() error {
		defer func() {
			shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
			defer stop()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				r.logger.Warn("error shutting down server", "error", err)
			}
		}()

		authURL := authorizer.AuthorizeURL(state)
		if cmd.Bool("no-browser") {
			r.writePlain("Open this URL in your browser:\n%s\n\n", authURL)
		} else {
			r.writePlain("→ Opening browser for Spotify authorization...\n")
			if err := r.openBrowser(authURL); err != nil {
				r.logger.Warn("failed to open browser automatically", "error", err)
				r.writePlainln("⚠ Could not open browser automatically.")
				r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
			}
		}
		r.writePlain("→ Waiting for authorization (%s timeout)...\n", r.loginTimeout)

		select {
		case result := <-handler.Result():
			return result.Err
		case <-gctx.Done():
			if errors.Is(gctx.Err(), context.DeadlineExceeded) {
				return fmt.Errorf("%w: authorization timed out after %s", shared.ErrTimeout, r.loginTimeout)
			}
			return gctx.Err()
		}
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("authorization failed: %w", err)
	}

	r.writePlainln("✓ Authorization successful")
	r.writePlain("✓ Tokens saved to %s storage\n\n", r.config.Auth.Storage)
	r.writePlain("You can now use: spotctl player status\n")
	return nil
}

// AuthLogout removes both stored tokens.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	store, err := r.credentialStore()
	if err != nil {
		return err
	}
	if err := store.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}

	r.logger.Info("credentials cleared", "storage", r.config.Auth.Storage)
	return r.writePlain("✓ Signed out\n")
}

// AuthStatus reports which tokens are stored without revealing them.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	store, err := r.credentialStore()
	if err != nil {
		return err
	}

	status := authStatus{Storage: r.config.Auth.Storage}
	cred, err := store.Load(ctx)
	switch {
	case errors.Is(err, credentials.ErrNotFound):
	case err != nil:
		return fmt.Errorf("failed to read credentials: %w", err)
	default:
		status.HasAccessToken = cred.AccessToken != ""
		status.HasRefreshToken = cred.RefreshToken != ""
		status.Authenticated = status.HasAccessToken
	}

	if cmd.Bool("json") {
		return r.writeJSON(status, true)
	}

	r.writePlain("Storage: %s\n", status.Storage)
	if !status.Authenticated {
		return r.writePlain("✗ Not signed in. Run: spotctl auth login\n")
	}
	r.writePlain("✓ Signed in\n")
	r.writePlain("Access token: %s\n", present(status.HasAccessToken))
	return r.writePlain("Refresh token: %s\n", present(status.HasRefreshToken))
}

// AuthRefresh exchanges the stored refresh token for a new access token.
func (r *Runner) AuthRefresh(ctx context.Context, cmd *cli.Command) error {
	authorizer, err := r.getAuthorizer()
	if err != nil {
		return err
	}

	if _, err := authorizer.Refresh(ctx); err != nil {
		return err
	}
	return r.writePlain("✓ Access token refreshed\n")
}

func present(ok bool) string {
	if ok {
		return "stored"
	}
	return "missing"
}
