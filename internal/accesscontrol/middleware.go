package accesscontrol

import (
	"log/slog"
	"net/http"
)

// DecisionRecorder receives every route-gate decision, for metrics.
type DecisionRecorder interface {
	RecordAuthzDecision(role, operation string, allowed bool)
}

// Middleware wires the engine's static route gates for HTTP handlers.
// Handlers still run the dynamic checks (ownership, field masks) through
// the Authorizer; the middleware only performs the fast table reject.
type Middleware struct {
	Authorizer *Authorizer
	Logger     *slog.Logger
	Recorder   DecisionRecorder
}

// Require gates a route on the static (operation, resource) grant of the
// current principal. Requests without a resolved principal are rejected.
func (m Middleware) Require(op Operation, res Resource) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			decision := m.Authorizer.Authorize(principal, op, res, nil)
			if m.Recorder != nil {
				m.Recorder.RecordAuthzDecision(string(principal.Role), string(op), decision.Allowed)
			}
			if !decision.Allowed {
				if m.Logger != nil {
					m.Logger.Warn("access denied",
						slog.String("role", string(principal.Role)),
						slog.String("operation", string(op)),
						slog.String("resource", string(res)),
						slog.String("reason", decision.Reason))
				}
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuthenticated only checks that a principal was resolved, leaving
// all authorization to the handler. Used for routes whose resource depends
// on the target record.
func (m Middleware) RequireAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := PrincipalFromContext(r.Context()); !ok {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
