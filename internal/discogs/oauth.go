package discogs

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/desertthunder/crate/internal/shared"
)

const (
	requestTokenEndpoint = "/oauth/request_token"
	accessTokenEndpoint  = "/oauth/access_token"
	identityEndpoint     = "/oauth/identity"
)

// RequestToken is the temporary token issued at the start of the OAuth flow.
type RequestToken struct {
	Credentials
	CallbackConfirmed bool
}

// RequestToken starts the OAuth flow. The request is signed without a token.
func (c *Client) RequestToken(ctx context.Context, callbackURL string) (*RequestToken, error) {
	req := request{
		method:      http.MethodGet,
		endpoint:    requestTokenEndpoint,
		contentType: "application/x-www-form-urlencoded",
	}
	if callbackURL != "" {
		req.auth = []AuthOption{WithCallback(callbackURL)}
	}

	values, err := c.form(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to get request token: %w", err)
	}

	return &RequestToken{
		Credentials:       Credentials{Token: values.Get("oauth_token"), TokenSecret: values.Get("oauth_token_secret")},
		CallbackConfirmed: values.Get("oauth_callback_confirmed") == "true",
	}, nil
}

// AuthorizeURL is where the user approves the request token.
func (c *Client) AuthorizeURL(requestToken string) string {
	return c.authorizeURL + "?oauth_token=" + url.QueryEscape(requestToken)
}

// AccessToken exchanges an approved request token and its verifier for a permanent token pair.
func (c *Client) AccessToken(ctx context.Context, requestToken *Credentials, verifier string) (*Credentials, error) {
	if requestToken == nil || requestToken.Token == "" {
		return nil, fmt.Errorf("%w: request token", shared.ErrMissingCredentials)
	}
	if verifier == "" {
		return nil, fmt.Errorf("%w: oauth verifier", shared.ErrMissingArgument)
	}

	values, err := c.form(ctx, request{
		method:      http.MethodPost,
		endpoint:    accessTokenEndpoint,
		contentType: "application/x-www-form-urlencoded",
		creds:       requestToken,
		auth:        []AuthOption{WithVerifier(verifier)},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get access token: %w", err)
	}

	return &Credentials{Token: values.Get("oauth_token"), TokenSecret: values.Get("oauth_token_secret")}, nil
}

// Identity returns the user that creds belong to.
func (c *Client) Identity(ctx context.Context, creds *Credentials) (*Identity, error) {
	var identity Identity
	if err := c.Call(ctx, http.MethodGet, identityEndpoint, nil, creds, &identity); err != nil {
		return nil, err
	}
	return &identity, nil
}

// form sends req and parses a form-encoded token response.
func (c *Client) form(ctx context.Context, req request) (url.Values, error) {
	data, err := c.do(ctx, req)
	if err != nil {
		return nil, err
	}

	values, err := url.ParseQuery(string(data))
	if err != nil {
		return nil, newMalformedError(req.method, req.endpoint, err)
	}
	if values.Get("oauth_token") == "" || values.Get("oauth_token_secret") == "" {
		return nil, newMalformedError(req.method, req.endpoint, fmt.Errorf("token response is missing oauth_token or oauth_token_secret"))
	}
	return values, nil
}
