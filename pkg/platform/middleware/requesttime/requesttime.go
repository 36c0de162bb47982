// Package requesttime pins a single "now" per request so every relative
// date rendered for one response agrees.
package requesttime

import (
	"net/http"

	"k8s.io/utils/clock"

	"docstatus/pkg/requestcontext"
)

// Middleware pins the wall clock time at request start.
var Middleware = WithClock(clock.RealClock{})

// WithClock pins c.Now() at request start; read it with requestcontext.Now.
func WithClock(c clock.PassiveClock) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(requestcontext.WithTime(r.Context(), c.Now())))
		})
	}
}
