// Package httpmiddleware provides reusable net/http middleware used by the
// API server: panic recovery, request IDs, request logging, CORS, and
// rate limiting.
package httpmiddleware

import "net/http"

// Middleware wraps an http.Handler with extra behaviour.
type Middleware = func(http.Handler) http.Handler

// Wrap applies middlewares to h in order, so the first middleware in the
// list is the outermost one at request time.
func Wrap(h http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}
