// Package discogs is a client for the Discogs REST API.
//
// Requests are signed with OAuth 1.0a PLAINTEXT by a [Signer]. [Client] adds
// request pacing, bounded retries for transient statuses (429, 502, 503) with
// exponential backoff, an optional circuit breaker and typed [APIError]s.
//
// On top of the raw [Client.Call] the package implements the calls crate needs:
//   - [Client.FetchCollection] : the complete, ordered collection of a user
//   - [Client.RequestToken], [Client.AccessToken], [Client.Identity] : the three-legged OAuth flow
//   - [Client.ReleaseVideos] : deduplicated, sanitized videos of a release
package discogs
