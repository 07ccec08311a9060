package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-resty/resty/v2"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/desertthunder/spotctl/internal/credentials"
	"github.com/desertthunder/spotctl/internal/shared"
)

// Refresher obtains a new access token and persists it.
// It returns the new token so the caller can replay the failed request.
type Refresher interface {
	Refresh(ctx context.Context) (string, error)
}

// RefresherFunc adapts a function to [Refresher].
type RefresherFunc func(ctx context.Context) (string, error)

func (f RefresherFunc) Refresh(ctx context.Context) (string, error) { return f(ctx) }

// Client sends [Request] values with the stored bearer token.
type Client struct {
	http      *resty.Client
	store     credentials.Store
	refresher Refresher
	limiter   *rate.Limiter
	logger    *log.Logger
	timeout   time.Duration
	refreshes singleflight.Group
}

// refreshTimeout bounds a shared refresh, which outlives the caller that started it.
const refreshTimeout = 30 * time.Second

// Option configures a [Client].
type Option func(*Client)

// WithRestyClient replaces the underlying HTTP client.
func WithRestyClient(rc *resty.Client) Option {
	return func(c *Client) { c.http = rc }
}

// WithTimeout sets the per-attempt timeout. It applies to the client set by
// [WithRestyClient] regardless of option order.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithRateLimit paces outgoing attempts to rps requests per second. Zero disables pacing.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a Client that reads tokens from store and refreshes through refresher.
func NewClient(store credentials.Store, refresher Refresher, opts ...Option) (*Client, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: credential store", shared.ErrMissingArgument)
	}
	if refresher == nil {
		return nil, fmt.Errorf("%w: refresher", shared.ErrMissingArgument)
	}

	c := &Client{
		http:      resty.New(),
		store:     store,
		refresher: refresher,
		logger:    log.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 {
		c.http.SetTimeout(c.timeout)
	}
	return c, nil
}

// HTTP exposes the underlying resty client.
func (c *Client) HTTP() *resty.Client {
	return c.http
}

// Send performs req with the stored access token.
//
// A 401 triggers one refresh and one replay with the new token; the replay's outcome
// is returned as-is. A failed refresh is reported as [General] without a replay.
// Every failure is an [*Error].
func (c *Client) Send(ctx context.Context, req Request) ([]byte, error) {
	if !req.Method.Valid() {
		return nil, &Error{Kind: General, Err: fmt.Errorf("%w: method %q", shared.ErrInvalidArgument, req.Method)}
	}

	cred, err := c.store.Load(ctx)
	if err != nil {
		return nil, &Error{Kind: General, Err: fmt.Errorf("%w: %w", shared.ErrNotAuthenticated, err)}
	}

	status, body, err := c.attempt(ctx, req, cred.AccessToken)
	if err != nil {
		return nil, err
	}
	if status != http.StatusUnauthorized {
		return result(status, body)
	}

	c.logger.Debug("access token rejected, refreshing", "url", req.URL)
	token, err := c.refresh(ctx, cred.AccessToken)
	if err != nil {
		c.logger.Warn("token refresh failed", "err", err)
		return nil, &Error{Kind: General, StatusCode: status, Err: err}
	}

	status, body, err = c.attempt(ctx, req, token)
	if err != nil {
		return nil, err
	}
	return result(status, body)
}

// refresh runs the refresher at most once across concurrent callers. A caller whose
// stale token was already replaced in the store reuses the stored token.
//
// The shared refresh is detached from any single caller's context so one caller
// giving up does not fail the others; each caller still stops waiting when its own
// context ends.
func (c *Client) refresh(ctx context.Context, stale string) (string, error) {
	if cred, err := c.store.Load(ctx); err == nil && cred.AccessToken != "" && cred.AccessToken != stale {
		return cred.AccessToken, nil
	}

	ch := c.refreshes.DoChan("refresh", func() (any, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()
		return c.refresher.Refresh(rctx)
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (c *Client) attempt(ctx context.Context, req Request, token string) (int, []byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return 0, nil, &Error{Kind: General, Err: err}
		}
	}

	r := c.http.R().
		SetContext(ctx).
		SetHeaders(req.Headers).
		SetHeader("Authorization", "Bearer "+token)

	if params := EncodeParameters(req.Parameters); params != "" {
		if req.inBody() {
			r.SetHeader("Content-Type", "application/x-www-form-urlencoded").SetBody(params)
		} else {
			r.SetQueryString(params)
		}
	}

	resp, err := r.Execute(string(req.Method), req.URL)
	if err != nil {
		return 0, nil, &Error{Kind: General, Err: fmt.Errorf("%w: %w", shared.ErrAPIRequest, err)}
	}

	c.logger.Debug("api request", "method", req.Method, "url", req.URL, "status", resp.StatusCode(), "duration", resp.Time())
	return resp.StatusCode(), resp.Body(), nil
}

func result(status int, body []byte) ([]byte, error) {
	ok, kind := Classify(status)
	if !ok {
		return nil, statusError(status, kind, body)
	}
	if status >= 300 {
		return []byte{}, nil
	}
	return body, nil
}
