package discogs

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Credentials is a user's OAuth token pair. A nil *Credentials signs without a token.
type Credentials struct {
	Token       string
	TokenSecret string
}

// Signer builds PLAINTEXT OAuth 1.0a Authorization headers for one consumer.
type Signer struct {
	consumerKey    string
	consumerSecret string
	nonce          func() string
	now            func() time.Time
}

// NewSigner creates a [Signer] for the application's consumer key and secret.
func NewSigner(consumerKey, consumerSecret string) *Signer {
	return &Signer{
		consumerKey:    consumerKey,
		consumerSecret: consumerSecret,
		nonce:          func() string { return strings.ReplaceAll(uuid.NewString(), "-", "") },
		now:            time.Now,
	}
}

// Signature returns the PLAINTEXT signature: the consumer secret, "&", then the token secret.
func (s *Signer) Signature(tokenSecret string) string {
	return s.consumerSecret + "&" + tokenSecret
}

type authParams struct {
	callback string
	verifier string
}

// AuthOption adds an optional parameter to the Authorization header.
type AuthOption func(*authParams)

// WithCallback sets oauth_callback, used when requesting a request token.
func WithCallback(callbackURL string) AuthOption {
	return func(p *authParams) { p.callback = callbackURL }
}

// WithVerifier sets oauth_verifier, used when exchanging for an access token.
func WithVerifier(verifier string) AuthOption {
	return func(p *authParams) { p.verifier = verifier }
}

// Authorization builds the header value for one request.
//
// Every call uses a fresh nonce and the current Unix timestamp. The token is
// omitted when creds is nil or has no token.
func (s *Signer) Authorization(creds *Credentials, opts ...AuthOption) string {
	var params authParams
	for _, opt := range opts {
		opt(&params)
	}

	var token, tokenSecret string
	if creds != nil {
		token, tokenSecret = creds.Token, creds.TokenSecret
	}

	var b strings.Builder
	b.WriteString("OAuth ")
	fmt.Fprintf(&b, `oauth_consumer_key="%s"`, s.consumerKey)
	if token != "" {
		fmt.Fprintf(&b, `, oauth_token="%s"`, token)
	}
	fmt.Fprintf(&b, `, oauth_nonce="%s"`, s.nonce())
	b.WriteString(`, oauth_signature_method="PLAINTEXT"`)
	fmt.Fprintf(&b, `, oauth_signature="%s"`, s.Signature(tokenSecret))
	fmt.Fprintf(&b, `, oauth_timestamp="%s"`, strconv.FormatInt(s.now().Unix(), 10))
	if params.callback != "" {
		fmt.Fprintf(&b, `, oauth_callback="%s"`, url.QueryEscape(params.callback))
	}
	if params.verifier != "" {
		fmt.Fprintf(&b, `, oauth_verifier="%s"`, params.verifier)
	}
	return b.String()
}
