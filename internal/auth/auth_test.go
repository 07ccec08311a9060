package auth

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/jarcoal/httpmock"

	"github.com/desertthunder/spotctl/internal/credentials"
	"github.com/desertthunder/spotctl/internal/shared"
	th "github.com/desertthunder/spotctl/internal/testing"
)

var testApp = shared.SpotifyConfig{
	ClientID:     "client-id",
	ClientSecret: "client-secret",
	RedirectURI:  "http://127.0.0.1:3000/callback",
}

// accountsServer fakes the /api/token endpoint.
type accountsServer struct {
	hits     atomic.Int32
	status   int
	response string
	form     url.Values
	header   http.Header
}

func (s *accountsServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.hits.Add(1)
	if r.URL.Path != "/api/token" {
		http.NotFound(w, r)
		return
	}
	body, _ := io.ReadAll(r.Body)
	s.form, _ = url.ParseQuery(string(body))
	s.header = r.Header.Clone()

	w.Header().Set("Content-Type", "application/json")
	if s.status != 0 {
		w.WriteHeader(s.status)
	}
	w.Write([]byte(s.response))
}

func newTestAuthorizer(t *testing.T, baseURL string, store credentials.Store) *Authorizer {
	t.Helper()
	a, err := NewAuthorizer(testApp, baseURL, store)
	if err != nil {
		t.Fatalf("NewAuthorizer() error = %v", err)
	}
	return a
}

func TestNewAuthorizer(t *testing.T) {
	store := credentials.NewMemoryStore(credentials.Credential{})

	t.Run("requires client credentials", func(t *testing.T) {
		_, err := NewAuthorizer(shared.SpotifyConfig{ClientID: "id"}, "", store)
		if !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})

	t.Run("requires store", func(t *testing.T) {
		if _, err := NewAuthorizer(testApp, "", nil); err == nil {
			t.Error("expected error for nil store")
		}
	})

	t.Run("defaults accounts url", func(t *testing.T) {
		a, err := NewAuthorizer(testApp, "", store)
		if err != nil {
			t.Fatalf("NewAuthorizer() error = %v", err)
		}
		if a.tokenURL != "https://accounts.spotify.com/api/token" {
			t.Errorf("tokenURL = %q", a.tokenURL)
		}
	})

	t.Run("timeout applies regardless of option order", func(t *testing.T) {
		rc := resty.New()
		if _, err := NewAuthorizer(testApp, "", store, WithTimeout(3*time.Second), WithRestyClient(rc)); err != nil {
			t.Fatalf("NewAuthorizer() error = %v", err)
		}
		if rc.GetClient().Timeout != 3*time.Second {
			t.Errorf("timeout = %v, want 3s", rc.GetClient().Timeout)
		}
	})
}

func TestAuthorizeURL(t *testing.T) {
	a := newTestAuthorizer(t, "https://accounts.spotify.com/", credentials.NewMemoryStore(credentials.Credential{}))

	u, err := url.Parse(a.AuthorizeURL("xyz-state"))
	if err != nil {
		t.Fatalf("invalid url: %v", err)
	}
	if u.Host != "accounts.spotify.com" || u.Path != "/authorize" {
		t.Errorf("unexpected endpoint %s%s", u.Host, u.Path)
	}

	q := u.Query()
	expected := map[string]string{
		"client_id":     "client-id",
		"redirect_uri":  "http://127.0.0.1:3000/callback",
		"response_type": "code",
		"state":         "xyz-state",
		"scope":         strings.Join(Scopes, " "),
	}
	for k, v := range expected {
		if q.Get(k) != v {
			t.Errorf("%s = %q, want %q", k, q.Get(k), v)
		}
	}
}

func TestBasicAuthorization(t *testing.T) {
	got := BasicAuthorization("id", "secret")
	if got != "Basic aWQ6c2VjcmV0" {
		t.Errorf("BasicAuthorization() = %q", got)
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(got, "Basic "))
	if err != nil || string(decoded) != "id:secret" {
		t.Errorf("decoded = %q, err = %v", decoded, err)
	}
}

func TestExchange(t *testing.T) {
	ctx := context.Background()

	t.Run("persists both tokens", func(t *testing.T) {
		srv := &accountsServer{response: `{"access_token":"BQD-access","token_type":"Bearer","expires_in":3600,"refresh_token":"AQB-refresh","scope":"streaming"}`}
		ts := httptest.NewServer(srv)
		defer ts.Close()

		store := credentials.NewMemoryStore(credentials.Credential{})
		a := newTestAuthorizer(t, ts.URL, store)

		cred, err := a.Exchange(ctx, "auth-code")
		if err != nil {
			t.Fatalf("Exchange() error = %v", err)
		}
		if cred.AccessToken != "BQD-access" || cred.RefreshToken != "AQB-refresh" {
			t.Errorf("unexpected credential %+v", cred)
		}

		stored, err := store.Load(ctx)
		if err != nil || stored != cred {
			t.Errorf("stored = %+v, err = %v", stored, err)
		}

		form := map[string]string{
			"client_id":     "client-id",
			"client_secret": "client-secret",
			"grant_type":    "authorization_code",
			"code":          "auth-code",
			"redirect_uri":  "http://127.0.0.1:3000/callback",
		}
		for k, v := range form {
			if srv.form.Get(k) != v {
				t.Errorf("form %s = %q, want %q", k, srv.form.Get(k), v)
			}
		}
		if srv.header.Get("Authorization") != "" {
			t.Error("code exchange should not send a Basic header")
		}
	})

	t.Run("token endpoint rejects code", func(t *testing.T) {
		srv := &accountsServer{status: http.StatusBadRequest, response: `{"error":"invalid_grant","error_description":"Invalid authorization code"}`}
		ts := httptest.NewServer(srv)
		defer ts.Close()

		store := credentials.NewMemoryStore(credentials.Credential{})
		a := newTestAuthorizer(t, ts.URL, store)

		if _, err := a.Exchange(ctx, "bad-code"); !errors.Is(err, shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", err)
		}
		if _, err := store.Load(ctx); !errors.Is(err, credentials.ErrNotFound) {
			t.Error("nothing should be stored on failure")
		}
	})

	t.Run("missing refresh token", func(t *testing.T) {
		srv := &accountsServer{response: `{"access_token":"BQD-access","token_type":"Bearer"}`}
		ts := httptest.NewServer(srv)
		defer ts.Close()

		a := newTestAuthorizer(t, ts.URL, credentials.NewMemoryStore(credentials.Credential{}))
		if _, err := a.Exchange(ctx, "auth-code"); !errors.Is(err, shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", err)
		}
	})

	t.Run("empty code", func(t *testing.T) {
		srv := &accountsServer{}
		ts := httptest.NewServer(srv)
		defer ts.Close()

		a := newTestAuthorizer(t, ts.URL, credentials.NewMemoryStore(credentials.Credential{}))
		if _, err := a.Exchange(ctx, ""); !errors.Is(err, shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", err)
		}
		if srv.hits.Load() != 0 {
			t.Error("no request should be sent for an empty code")
		}
	})
}

func TestRefresh(t *testing.T) {
	ctx := context.Background()

	t.Run("overwrites access token only", func(t *testing.T) {
		srv := &accountsServer{response: `{"access_token":"new-access","token_type":"Bearer","expires_in":3600,"refresh_token":"rotated"}`}
		ts := httptest.NewServer(srv)
		defer ts.Close()

		store := credentials.NewMemoryStore(credentials.Credential{AccessToken: "old-access", RefreshToken: "refresh me"})
		a := newTestAuthorizer(t, ts.URL, store)

		token, err := a.Refresh(ctx)
		if err != nil {
			t.Fatalf("Refresh() error = %v", err)
		}
		if token != "new-access" {
			t.Errorf("token = %q", token)
		}

		stored, _ := store.Load(ctx)
		if stored.AccessToken != "new-access" || stored.RefreshToken != "refresh me" {
			t.Errorf("unexpected stored credential %+v", stored)
		}

		if got := srv.header.Get("Authorization"); got != BasicAuthorization("client-id", "client-secret") {
			t.Errorf("Authorization = %q", got)
		}
		if srv.form.Get("grant_type") != "refresh_token" || srv.form.Get("refresh_token") != "refresh me" {
			t.Errorf("unexpected form %v", srv.form)
		}
		if srv.form.Has("client_secret") {
			t.Error("refresh should not send the secret in the body")
		}
	})

	t.Run("no refresh token sends nothing", func(t *testing.T) {
		srv := &accountsServer{response: `{"access_token":"x"}`}
		ts := httptest.NewServer(srv)
		defer ts.Close()

		for _, initial := range []credentials.Credential{{}, {AccessToken: "only-access"}} {
			a := newTestAuthorizer(t, ts.URL, credentials.NewMemoryStore(initial))
			if _, err := a.Refresh(ctx); !errors.Is(err, shared.ErrNoRefreshToken) {
				t.Errorf("expected ErrNoRefreshToken, got %v", err)
			}
		}
		if srv.hits.Load() != 0 {
			t.Errorf("server hits = %d, want 0", srv.hits.Load())
		}
	})

	t.Run("non-2xx fails", func(t *testing.T) {
		srv := &accountsServer{status: http.StatusBadRequest, response: `{"error":"invalid_grant"}`}
		ts := httptest.NewServer(srv)
		defer ts.Close()

		store := credentials.NewMemoryStore(credentials.Credential{AccessToken: "old", RefreshToken: "revoked"})
		a := newTestAuthorizer(t, ts.URL, store)

		if _, err := a.Refresh(ctx); !errors.Is(err, shared.ErrRefreshFailed) {
			t.Errorf("expected ErrRefreshFailed, got %v", err)
		}
		stored, _ := store.Load(ctx)
		if stored.AccessToken != "old" {
			t.Error("access token should be unchanged on failure")
		}
	})

	t.Run("undecodable body fails", func(t *testing.T) {
		for _, body := range []string{"not json", `{"token_type":"Bearer"}`} {
			srv := &accountsServer{response: body}
			ts := httptest.NewServer(srv)

			a := newTestAuthorizer(t, ts.URL, credentials.NewMemoryStore(credentials.Credential{RefreshToken: "r"}))
			if _, err := a.Refresh(ctx); !errors.Is(err, shared.ErrRefreshFailed) {
				t.Errorf("body %q: expected ErrRefreshFailed, got %v", body, err)
			}
			ts.Close()
		}
	})

	t.Run("network failure", func(t *testing.T) {
		rc := resty.New().SetTransport(th.NewMockRoundTripper(nil, errors.New("connection refused")))
		store := credentials.NewMemoryStore(credentials.Credential{AccessToken: "old", RefreshToken: "r"})
		a, err := NewAuthorizer(testApp, "", store, WithRestyClient(rc))
		if err != nil {
			t.Fatalf("NewAuthorizer() error = %v", err)
		}

		if _, err := a.Refresh(ctx); !errors.Is(err, shared.ErrRefreshFailed) {
			t.Errorf("expected ErrRefreshFailed, got %v", err)
		}
	})

	t.Run("store failure", func(t *testing.T) {
		a := newTestAuthorizer(t, "", th.FailingStore{})
		if _, err := a.Refresh(ctx); !errors.Is(err, shared.ErrRefreshFailed) || !errors.Is(err, th.ErrStoreUnavailable) {
			t.Errorf("expected wrapped store failure, got %v", err)
		}
	})

	t.Run("mock transport", func(t *testing.T) {
		rc := resty.New()
		httpmock.ActivateNonDefault(rc.GetClient())
		defer httpmock.DeactivateAndReset()

		responder, _ := httpmock.NewJsonResponder(http.StatusOK, map[string]any{"access_token": "mocked", "expires_in": 3600})
		httpmock.RegisterResponder(http.MethodPost, "https://accounts.spotify.com/api/token", responder)

		store := credentials.NewMemoryStore(credentials.Credential{RefreshToken: "r"})
		a, err := NewAuthorizer(testApp, "", store, WithRestyClient(rc))
		if err != nil {
			t.Fatalf("NewAuthorizer() error = %v", err)
		}

		token, err := a.Refresh(ctx)
		if err != nil || token != "mocked" {
			t.Fatalf("Refresh() = %q, %v", token, err)
		}
		if httpmock.GetTotalCallCount() != 1 {
			t.Errorf("calls = %d, want 1", httpmock.GetTotalCallCount())
		}
	})
}
