package discogs

import (
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fixedSigner(key, secret string) *Signer {
	s := NewSigner(key, secret)
	s.nonce = func() string { return "nonce" }
	s.now = func() time.Time { return time.Unix(1700000000, 0) }
	return s
}

func TestSigner(t *testing.T) {
	t.Run("signature without token secret", func(t *testing.T) {
		s := NewSigner("CK", "CS")
		assert.Equal(t, "CS&", s.Signature(""))
	})

	t.Run("header without credentials omits token", func(t *testing.T) {
		got := fixedSigner("CK", "CS").Authorization(nil)
		want := `OAuth oauth_consumer_key="CK", oauth_nonce="nonce", oauth_signature_method="PLAINTEXT", oauth_signature="CS&", oauth_timestamp="1700000000"`
		assert.Equal(t, want, got)
		assert.NotContains(t, got, "oauth_token")
	})

	t.Run("header with credentials", func(t *testing.T) {
		got := fixedSigner("CK", "CS").Authorization(&Credentials{Token: "T", TokenSecret: "TS"})
		want := `OAuth oauth_consumer_key="CK", oauth_token="T", oauth_nonce="nonce", oauth_signature_method="PLAINTEXT", oauth_signature="CS&TS", oauth_timestamp="1700000000"`
		assert.Equal(t, want, got)
	})

	t.Run("callback and verifier", func(t *testing.T) {
		s := fixedSigner("CK", "CS")

		got := s.Authorization(nil, WithCallback("http://localhost:3000/callback"))
		assert.True(t, strings.HasSuffix(got, `, oauth_callback="`+url.QueryEscape("http://localhost:3000/callback")+`"`))

		got = s.Authorization(&Credentials{Token: "RT", TokenSecret: "RS"}, WithVerifier("v123"))
		assert.Contains(t, got, `oauth_signature="CS&RS"`)
		assert.True(t, strings.HasSuffix(got, `, oauth_verifier="v123"`))
	})

	t.Run("fresh nonce per call", func(t *testing.T) {
		s := NewSigner("CK", "CS")
		assert.NotEqual(t, s.Authorization(nil), s.Authorization(nil))
	})
}
