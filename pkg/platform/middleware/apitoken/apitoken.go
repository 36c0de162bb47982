// Package apitoken guards routes with a shared secret header.
package apitoken

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"docstatus/pkg/platform/httputil"
	"docstatus/pkg/requestcontext"
)

// Header carries the shared API token.
const Header = "X-Api-Token"

// Require rejects requests whose X-Api-Token does not match expected. An
// empty expected token disables the check.
func Require(expected string, logger *slog.Logger) func(http.Handler) http.Handler {
	want := []byte(expected)
	return func(next http.Handler) http.Handler {
		if len(want) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if subtle.ConstantTimeCompare([]byte(r.Header.Get(Header)), want) == 1 {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()
			logger.WarnContext(ctx, "api token mismatch",
				"request_id", requestcontext.RequestID(ctx),
				"client_ip", requestcontext.ClientIP(ctx),
				"token_present", r.Header.Get(Header) != "",
			)
			httputil.WriteError(w, http.StatusUnauthorized, httputil.ErrorResponse{
				Error:            "unauthorized",
				ErrorDescription: "api token required",
			})
		})
	}
}
