package discogs

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOAuthFlow(t *testing.T) {
	ctx := context.Background()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /oauth/request_token", func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		assert.NotContains(t, auth, "oauth_token=")
		assert.Contains(t, auth, `oauth_signature="CS&"`)
		assert.Contains(t, auth, "oauth_callback=")
		w.Write([]byte("oauth_token=RT&oauth_token_secret=RS&oauth_callback_confirmed=true"))
	})
	mux.HandleFunc("POST /oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		assert.Contains(t, auth, `oauth_token="RT"`)
		assert.Contains(t, auth, `oauth_signature="CS&RS"`)
		assert.Contains(t, auth, `oauth_verifier="V"`)
		w.Write([]byte("oauth_token=AT&oauth_token_secret=AS"))
	})

	c, _ := newTestClient(t, mux)

	rt, err := c.RequestToken(ctx, "http://localhost:3000/callback")
	require.NoError(t, err)
	assert.Equal(t, "RT", rt.Token)
	assert.Equal(t, "RS", rt.TokenSecret)
	assert.True(t, rt.CallbackConfirmed)

	authURL, err := url.Parse(c.AuthorizeURL(rt.Token))
	require.NoError(t, err)
	assert.Equal(t, "www.discogs.com", authURL.Host)
	assert.Equal(t, "RT", authURL.Query().Get("oauth_token"))

	creds, err := c.AccessToken(ctx, &rt.Credentials, "V")
	require.NoError(t, err)
	assert.Equal(t, &Credentials{Token: "AT", TokenSecret: "AS"}, creds)
}

func TestOAuthErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("incomplete token response", func(t *testing.T) {
		c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("oauth_token=RT"))
		}))

		_, err := c.RequestToken(ctx, "")
		assert.Equal(t, Malformed, KindOf(err))
	})

	t.Run("access token requires verifier", func(t *testing.T) {
		c, _ := newTestClient(t, http.NotFoundHandler())
		_, err := c.AccessToken(ctx, &Credentials{Token: "RT", TokenSecret: "RS"}, "")
		assert.Error(t, err)

		_, err = c.AccessToken(ctx, nil, "V")
		assert.Error(t, err)
	})

	t.Run("unauthorized identity", func(t *testing.T) {
		c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))

		_, err := c.Identity(ctx, &Credentials{Token: "bad", TokenSecret: "bad"})
		assert.Equal(t, 401, StatusOf(err))
	})
}
