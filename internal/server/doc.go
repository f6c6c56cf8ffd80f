// Package server provides HTTP routing, middleware, the JSON API and the OAuth callback handler.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation registers method-qualified [http.ServeMux] patterns,
// so path wildcards and 405 responses come from the standard mux.
//
// # API
//
// [NewHandler] serves:
//
//	GET  /health
//	POST /users/{id}/sync       run a sync, respond with the summary
//	GET  /users/{id}/releases   list synced releases (artist, label, genre, style, year, q, limit, offset)
//	GET  /users/{id}/stats      collection counts
//	GET  /metrics               Prometheus exposition
//
// Errors are JSON objects with an error message and, for sync failures, the failed stage.
//
// # OAuth Callback Handler
//
// [OAuthHandler] receives the OAuth 1.0a callback after the user authorizes crate.
// It checks the returned oauth_token against the pending request token, exchanges
// the verifier for an access token and sends the result through a channel.
//
// It only processes one callback to prevent replay attacks.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
