package auth

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/registria/registria/internal/accesscontrol"
	"github.com/registria/registria/internal/shared"
)

// PrincipalResolver turns the request session into an access-control
// principal. It never rejects: routes decide themselves whether an
// unauthenticated request is acceptable, through the engine's gates.
type PrincipalResolver struct {
	Service *Service
	Logger  *slog.Logger
}

// Middleware resolves the session's user and stores the principal in the
// request context. Sessions pointing at revoked tokens or deleted users
// are treated as anonymous.
func (pr PrincipalResolver) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		if sess == nil || sess.User() == "" {
			next.ServeHTTP(w, r)
			return
		}
		userID, err := strconv.ParseInt(sess.User(), 10, 64)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		user, err := pr.Service.UserBySession(r.Context(), sess.ID, userID)
		if err != nil {
			if pr.Logger != nil {
				pr.Logger.Warn("stale session", slog.String("session", sess.ID), slog.Int64("user", userID))
			}
			next.ServeHTTP(w, r)
			return
		}
		principal := accesscontrol.Principal{
			ID:        user.ID,
			Role:      user.Role,
			BranchID:  user.Details.BranchID,
			SessionID: sess.ID,
		}
		next.ServeHTTP(w, r.WithContext(accesscontrol.ContextWithPrincipal(r.Context(), principal)))
	})
}
