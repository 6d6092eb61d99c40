package middleware

import (
	"net/http"

	"github.com/casbin/casbin/v2"

	"github.com/owaso30/ManualApp/internal/session"
)

// Session keys written by the auth handler on login.
const (
	SessionKeyUserSubject = "user_subject"
	SessionKeyIsAdmin     = "user_is_admin"
)

// Authorizer creates a new middleware for route-level authorization.
// It resolves the actor from the session, stores it on the request
// context, and enforces the Casbin policy for the requested path.
// Resource-level decisions are made later by the access evaluator; this
// gate only separates anonymous, user and admin route groups.
func Authorizer(e *casbin.Enforcer, sm session.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject := sm.GetString(r.Context(), SessionKeyUserSubject)

			actor := Actor{}
			enforceSubject := "anonymous"
			if subject != "" {
				actor = Actor{
					UserID:          subject,
					IsAuthenticated: true,
					IsAdmin:         sm.GetBool(r.Context(), SessionKeyIsAdmin),
				}
				enforceSubject = subject
			}
			r = r.WithContext(SetActor(r.Context(), actor))

			allowed, err := e.Enforce(enforceSubject, r.URL.Path, r.Method)
			if err != nil {
				http.Error(w, "Authorization error", http.StatusInternalServerError)
				return
			}
			if !allowed {
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
