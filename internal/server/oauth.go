package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/desertthunder/crate/internal/discogs"
)

// TokenExchanger trades an authorized request token and verifier for an access token.
type TokenExchanger interface {
	AccessToken(ctx context.Context, requestToken *discogs.Credentials, verifier string) (*discogs.Credentials, error)
}

// OAuthResult contains the result of an OAuth authorization flow.
type OAuthResult struct {
	Token *discogs.Credentials
	err   error
}

func (o *OAuthResult) Error() error {
	return o.err
}

// OAuthHandler handles the OAuth 1.0a callback that follows user authorization.
// Implements the Handler interface for registration with a Router.
type OAuthHandler struct {
	exchanger    TokenExchanger
	requestToken *discogs.Credentials
	timeout      time.Duration
	resultChan   chan OAuthResult
	once         sync.Once
	callbackHit  bool
	mu           sync.Mutex
}

// NewOAuthHandler creates a handler expecting a callback for requestToken.
//
// A callback naming any other token is rejected, which plays the role of the state check in OAuth 2.
func NewOAuthHandler(exchanger TokenExchanger, requestToken *discogs.Credentials) *OAuthHandler {
	return &OAuthHandler{
		exchanger:    exchanger,
		requestToken: requestToken,
		timeout:      30 * time.Second,
		resultChan:   make(chan OAuthResult, 1),
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *OAuthHandler) Routes() []string {
	return []string{"/callback"}
}

// ServeHTTP handles the OAuth callback request.
//
// Checks oauth_token, exchanges it with oauth_verifier for an access token, and sends the result through the result channel.
func (h *OAuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if h.callbackHit {
		h.mu.Unlock()
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}
	h.callbackHit = true
	h.mu.Unlock()

	query := r.URL.Query()
	if denied := query.Get("denied"); denied != "" {
		h.Send(OAuthResult{err: fmt.Errorf("authorization denied for token %s", denied)})
		http.Error(w, "Authorization denied", http.StatusBadRequest)
		return
	}

	if query.Get("oauth_token") != h.requestToken.Token {
		h.Send(OAuthResult{err: fmt.Errorf("callback token does not match request token")})
		http.Error(w, "Invalid oauth_token parameter", http.StatusBadRequest)
		return
	}

	verifier := query.Get("oauth_verifier")
	if verifier == "" {
		h.Send(OAuthResult{err: fmt.Errorf("authorization failed: missing oauth_verifier")})
		http.Error(w, "Authorization failed", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), h.timeout)
	defer cancel()

	token, err := h.exchanger.AccessToken(ctx, h.requestToken, verifier)
	if err != nil {
		h.Send(OAuthResult{err: fmt.Errorf("token exchange failed: %w", err)})
		http.Error(w, "Token exchange failed", http.StatusInternalServerError)
		return
	}

	h.Send(OAuthResult{Token: token})

	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, `
<!DOCTYPE html>
<html>
<head>
    <title>Authorization Successful</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #f5f5f5; }
        .container { text-align: center; background: white; padding: 2rem;
                     border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        h1 { color: #333333; margin: 0 0 1rem 0; }
        p { color: #666; margin: 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1>Authorization Successful</h1>
        <p>crate can now read your collection. Close this window and return to the terminal.</p>
    </div>
</body>
</html>
`)
}

// Send sends the OAuth result through the channel (only once).
func (h *OAuthHandler) Send(result OAuthResult) {
	h.once.Do(func() {
		h.resultChan <- result
		close(h.resultChan)
	})
}

// Result returns the result channel for receiving OAuth flow completion.
//
// Channel will receive exactly one result and then be closed.
func (h *OAuthHandler) Result() <-chan OAuthResult {
	return h.resultChan
}
