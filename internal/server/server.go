// package server contains the router, middleware and handlers for crate's HTTP surface
package server

import (
	"net/http"
)

// Middleware decorates an [http.Handler].
type Middleware func(http.Handler) http.Handler

// Handler is an [http.Handler] that knows the patterns it serves, like [OAuthHandler].
type Handler interface {
	http.Handler
	Routes() []string
}

// Router is what [API.Register] and the OAuth callback server mount onto.
type Router interface {
	Use(middleware ...Middleware)
	Handle(method, path string, handler http.Handler)
	Handler(handler Handler)
	http.Handler
}
