package middleware

import (
	"context"
	"net/http"
	"net/url"

	authcore "github.com/sentralhq/authcore"
)

type stateContextKey struct{}

// StateFromContext returns the auth snapshot injected by Guard.
func StateFromContext(ctx context.Context) (authcore.AuthState, bool) {
	state, ok := ctx.Value(stateContextKey{}).(authcore.AuthState)
	return state, ok
}

// Guard enforces a route requirement for every request. Loading states
// answer 503 with a Retry-After hint; redirects become 303s to the
// guard's configured target with a return_to query parameter on login
// redirects.
func Guard(view *authcore.View, req authcore.Requirement) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if view == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			routeReq := req
			if routeReq.Path == "" {
				routeReq.Path = r.URL.Path
			}

			decision := view.Decide(routeReq)
			switch decision.Action {
			case authcore.ActionAllow:
				ctx := context.WithValue(r.Context(), stateContextKey{}, view.State())
				next.ServeHTTP(w, r.WithContext(ctx))
			case authcore.ActionShowLoading:
				w.Header().Set("Retry-After", "1")
				http.Error(w, "authenticating", http.StatusServiceUnavailable)
			default:
				target := decision.Target
				if decision.ReturnTo != "" {
					target += "?return_to=" + url.QueryEscape(decision.ReturnTo)
				}
				http.Redirect(w, r, target, http.StatusSeeOther)
			}
		})
	}
}
