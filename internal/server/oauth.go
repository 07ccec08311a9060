package server

import (
	"context"
	"crypto/subtle"
	"fmt"
	"html/template"
	"net/http"
	"sync"
	"time"

	"github.com/desertthunder/spotctl/internal/credentials"
	"github.com/desertthunder/spotctl/internal/shared"
)

// Exchanger trades an authorization code for a persisted token pair.
type Exchanger interface {
	Exchange(ctx context.Context, code string) (credentials.Credential, error)
}

// OAuthResult is the outcome of a callback.
type OAuthResult struct {
	Credential credentials.Credential
	Err        error
}

// exchangeTimeout bounds the token exchange, which runs independently of the browser connection.
const exchangeTimeout = 30 * time.Second

// OAuthHandler serves the OAuth redirect exactly once.
type OAuthHandler struct {
	exchanger   Exchanger
	state       string
	resultChan  chan OAuthResult
	once        sync.Once
	mu          sync.Mutex
	callbackHit bool
}

// NewOAuthHandler creates a handler expecting state and exchanging codes through exchanger.
func NewOAuthHandler(exchanger Exchanger, state string) *OAuthHandler {
	return &OAuthHandler{
		exchanger:  exchanger,
		state:      state,
		resultChan: make(chan OAuthResult, 1),
	}
}

func (h *OAuthHandler) Routes() []string {
	return []string{"/callback"}
}

func (h *OAuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if h.callbackHit {
		h.mu.Unlock()
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}
	h.callbackHit = true
	h.mu.Unlock()

	q := r.URL.Query()
	if subtle.ConstantTimeCompare([]byte(q.Get("state")), []byte(h.state)) != 1 {
		h.Send(OAuthResult{Err: fmt.Errorf("%w: state mismatch", shared.ErrAuthFailed)})
		renderPage(w, http.StatusBadRequest, failurePage, "The login request could not be verified.")
		return
	}

	code := q.Get("code")
	if code == "" {
		err := fmt.Errorf("%w: %s", shared.ErrAuthFailed, q.Get("error"))
		h.Send(OAuthResult{Err: err})
		renderPage(w, http.StatusBadRequest, failurePage, "Spotify did not grant access: "+q.Get("error"))
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), exchangeTimeout)
	defer cancel()

	cred, err := h.exchanger.Exchange(ctx, code)
	if err != nil {
		h.Send(OAuthResult{Err: err})
		renderPage(w, http.StatusBadGateway, failurePage, "Token exchange with Spotify failed.")
		return
	}

	h.Send(OAuthResult{Credential: cred})
	renderPage(w, http.StatusOK, successPage, "")
}

// Send publishes result. Only the first call has any effect.
func (h *OAuthHandler) Send(result OAuthResult) {
	h.once.Do(func() {
		h.resultChan <- result
		close(h.resultChan)
	})
}

// Result yields exactly one [OAuthResult] and is then closed.
func (h *OAuthHandler) Result() <-chan OAuthResult {
	return h.resultChan
}

const (
	successPage = "success"
	failurePage = "failure"
)

var pages = template.Must(template.New(successPage).Parse(`<!DOCTYPE html>
<html>
<head><title>spotctl</title>{{template "style"}}</head>
<body><div class="box"><h1>Logged in to Spotify</h1><p>You can close this window and return to the terminal.</p></div></body>
</html>
{{define "style"}}<style>
body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif; display: flex;
       align-items: center; justify-content: center; height: 100vh; margin: 0; background: #121212; }
.box { text-align: center; background: #181818; color: #b3b3b3; padding: 2rem; border-radius: 8px; }
h1 { color: #1DB954; margin: 0 0 1rem 0; }
h1.err { color: #e22134; }
</style>{{end}}
{{define "failure"}}<!DOCTYPE html>
<html>
<head><title>spotctl</title>{{template "style"}}</head>
<body><div class="box"><h1 class="err">Login failed</h1><p>{{.}}</p></div></body>
</html>{{end}}`))

func renderPage(w http.ResponseWriter, status int, name, message string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_ = pages.ExecuteTemplate(w, name, message)
}
