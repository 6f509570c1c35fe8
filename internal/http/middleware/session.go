// Package middleware holds the HTTP middleware shared by the page and API
// routes: session cookies, role checks and request logging.
package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/aanand-mishra/mentor-mentee/internal/session"
	"github.com/aanand-mishra/mentor-mentee/internal/types"
	"github.com/aanand-mishra/mentor-mentee/internal/utils/response"
)

type ctxKey string

const (
	ctxSessionKey ctxKey = "sessionID"
	ctxStateKey   ctxKey = "sessionState"
)

// SessionID returns the session ID placed in ctx by Session.
func SessionID(ctx context.Context) string {
	id, _ := ctx.Value(ctxSessionKey).(string)
	return id
}

// StateFromContext returns the state loaded by RequireRole.
func StateFromContext(ctx context.Context) (session.State, bool) {
	st, ok := ctx.Value(ctxStateKey).(session.State)
	return st, ok
}

// Session makes sure every request carries a known session ID, issuing a
// new cookie when the client has none or presents one the server has
// forgotten (for example after a restart).
func Session(store *session.Store, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var id string
			if c, err := r.Cookie(cookieName); err == nil {
				if _, ok := store.Get(c.Value); ok {
					id = c.Value
				}
			}
			if id == "" {
				id = store.Create()
				http.SetCookie(w, &http.Cookie{
					Name:     cookieName,
					Value:    id,
					Path:     "/",
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				})
			}

			ctx := context.WithValue(r.Context(), ctxSessionKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects requests whose session is not logged in (401) or is
// logged in with a role outside roles (403). The session state is put in
// the request context for the handler.
func RequireRole(store *session.Store, roles ...types.Role) func(http.Handler) http.Handler {
	allowed := make(map[types.Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			st, ok := store.Get(SessionID(r.Context()))
			if !ok || !st.LoggedIn {
				response.WriteJSON(w, http.StatusUnauthorized,
					response.GeneralError(errors.New("login required")))
				return
			}
			if _, ok := allowed[st.Role]; !ok {
				response.WriteJSON(w, http.StatusForbidden,
					response.GeneralError(errors.New("forbidden")))
				return
			}

			ctx := context.WithValue(r.Context(), ctxStateKey, st)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Logger logs one line per request with slog.
func Logger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			log.Info("request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Int("bytes", ww.BytesWritten()),
				slog.Duration("duration", time.Since(start)),
				slog.String("request_id", chimw.GetReqID(r.Context())),
			)
		})
	}
}
