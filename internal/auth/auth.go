package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-resty/resty/v2"
	"golang.org/x/oauth2"

	"github.com/desertthunder/spotctl/internal/api"
	"github.com/desertthunder/spotctl/internal/credentials"
	"github.com/desertthunder/spotctl/internal/shared"
)

// DefaultAccountsURL is the Spotify accounts service host.
const DefaultAccountsURL = "https://accounts.spotify.com"

// Scopes requested during login.
var Scopes = []string{
	"user-read-private",
	"user-read-email",
	"user-library-modify",
	"user-library-read",
	"streaming",
	"user-modify-playback-state",
	"user-read-playback-state",
	"user-read-recently-played",
}

// tokenResponse is the JSON body returned by the token endpoint.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	Scope        string `json:"scope"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
}

// Authorizer runs the OAuth flows against the Spotify accounts service.
type Authorizer struct {
	oauth    *oauth2.Config
	http     *resty.Client
	store    credentials.Store
	tokenURL string
	logger   *log.Logger
	timeout  time.Duration
}

// Option configures an [Authorizer].
type Option func(*Authorizer)

// WithRestyClient replaces the HTTP client used for token requests.
func WithRestyClient(rc *resty.Client) Option {
	return func(a *Authorizer) { a.http = rc }
}

// WithTimeout bounds each token request, including those sent through a client
// set by [WithRestyClient].
func WithTimeout(d time.Duration) Option {
	return func(a *Authorizer) { a.timeout = d }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(a *Authorizer) { a.logger = l }
}

// NewAuthorizer creates an Authorizer for the given application credentials.
// accountsURL defaults to [DefaultAccountsURL].
func NewAuthorizer(app shared.SpotifyConfig, accountsURL string, store credentials.Store, opts ...Option) (*Authorizer, error) {
	if app.ClientID == "" || app.ClientSecret == "" {
		return nil, fmt.Errorf("%w: client id and secret are required", shared.ErrMissingCredentials)
	}
	if store == nil {
		return nil, fmt.Errorf("%w: credential store", shared.ErrMissingArgument)
	}
	if accountsURL == "" {
		accountsURL = DefaultAccountsURL
	}
	accountsURL = strings.TrimSuffix(accountsURL, "/")

	a := &Authorizer{
		oauth: &oauth2.Config{
			ClientID:     app.ClientID,
			ClientSecret: app.ClientSecret,
			RedirectURL:  app.RedirectURI,
			Scopes:       Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   accountsURL + "/authorize",
				TokenURL:  accountsURL + "/api/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		http:     resty.New(),
		store:    store,
		tokenURL: accountsURL + "/api/token",
		logger:   log.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.timeout > 0 {
		a.http.SetTimeout(a.timeout)
	}
	return a, nil
}

// AuthorizeURL returns the consent page URL carrying client_id, redirect_uri,
// response_type=code, the space-joined scopes and state.
func (a *Authorizer) AuthorizeURL(state string) string {
	return a.oauth.AuthCodeURL(state)
}

// Exchange trades an authorization code for a token pair and persists both tokens
// before returning them.
func (a *Authorizer) Exchange(ctx context.Context, code string) (credentials.Credential, error) {
	if code == "" {
		return credentials.Credential{}, fmt.Errorf("%w: empty authorization code", shared.ErrAuthFailed)
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, a.http.GetClient())
	token, err := a.oauth.Exchange(ctx, code)
	if err != nil {
		return credentials.Credential{}, fmt.Errorf("%w: %w", shared.ErrAuthFailed, err)
	}
	if token.RefreshToken == "" {
		return credentials.Credential{}, fmt.Errorf("%w: token response has no refresh_token", shared.ErrAuthFailed)
	}

	cred := credentials.Credential{AccessToken: token.AccessToken, RefreshToken: token.RefreshToken}
	if err := a.store.Save(ctx, cred); err != nil {
		return credentials.Credential{}, fmt.Errorf("%w: failed to persist tokens: %w", shared.ErrAuthFailed, err)
	}

	a.logger.Debug("authorization code exchanged", "token_type", token.TokenType, "expiry", token.Expiry)
	return cred, nil
}

// Refresh obtains a new access token using the stored refresh token, stores it and
// returns it. The stored refresh token is left untouched. Without a stored refresh
// token it fails with [shared.ErrNoRefreshToken] and sends nothing.
func (a *Authorizer) Refresh(ctx context.Context) (string, error) {
	cred, err := a.store.Load(ctx)
	if err != nil && !errors.Is(err, credentials.ErrNotFound) {
		return "", fmt.Errorf("%w: %w", shared.ErrRefreshFailed, err)
	}
	if cred.RefreshToken == "" {
		return "", shared.ErrNoRefreshToken
	}

	body := api.EncodeParameters(api.Parameters{
		"grant_type":    "refresh_token",
		"refresh_token": cred.RefreshToken,
	})

	resp, err := a.http.R().
		SetContext(ctx).
		SetHeader("Authorization", BasicAuthorization(a.oauth.ClientID, a.oauth.ClientSecret)).
		SetHeader("Content-Type", "application/x-www-form-urlencoded").
		SetBody(body).
		Post(a.tokenURL)
	if err != nil {
		return "", fmt.Errorf("%w: %w", shared.ErrRefreshFailed, err)
	}
	if !resp.IsSuccess() {
		return "", fmt.Errorf("%w: token endpoint returned %d", shared.ErrRefreshFailed, resp.StatusCode())
	}

	var tr tokenResponse
	if err := json.Unmarshal(resp.Body(), &tr); err != nil {
		return "", fmt.Errorf("%w: decode token response: %w", shared.ErrRefreshFailed, err)
	}
	if tr.AccessToken == "" {
		return "", fmt.Errorf("%w: token response has no access_token", shared.ErrRefreshFailed)
	}

	if err := a.store.SaveAccessToken(ctx, tr.AccessToken); err != nil {
		return "", fmt.Errorf("%w: failed to persist access token: %w", shared.ErrRefreshFailed, err)
	}

	a.logger.Debug("access token refreshed", "expires_in", tr.ExpiresIn)
	return tr.AccessToken, nil
}

// BasicAuthorization returns the "Basic base64(id:secret)" header value.
func BasicAuthorization(clientID, clientSecret string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(clientID+":"+clientSecret))
}
