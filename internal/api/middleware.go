// Package api implements the filedeck JSON API using chi.
package api

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/starford/filedeck/internal/fileops"
	"github.com/starford/filedeck/internal/metrics"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
	AuthModeBasic    = "basic"
)

// AuthOptions configures AuthMiddleware.
type AuthOptions struct {
	Mode         string
	Token        string
	Username     string
	PasswordHash string
}

type actorKey struct{}

// WithActor returns a context carrying a.
func WithActor(ctx context.Context, a fileops.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

// ActorFrom returns the actor stored in ctx, or an unauthenticated one.
func ActorFrom(ctx context.Context) fileops.Actor {
	a, _ := ctx.Value(actorKey{}).(fileops.Actor)
	return a
}

// AuthMiddleware authenticates the request and stores the resulting Actor in
// the request context.
//   - disabled: every request acts as the local operator.
//   - token: requests must carry "Authorization: Bearer <token>".
//   - basic: HTTP Basic credentials checked against a bcrypt hash.
func AuthMiddleware(opts AuthOptions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var actor fileops.Actor
			switch opts.Mode {
			case AuthModeToken:
				auth := r.Header.Get("Authorization")
				given, ok := strings.CutPrefix(auth, "Bearer ")
				if ok && subtle.ConstantTimeCompare([]byte(given), []byte(opts.Token)) == 1 {
					actor = fileops.Actor{Name: "token", Authenticated: true}
				}
			case AuthModeBasic:
				user, pass, ok := r.BasicAuth()
				if ok && subtle.ConstantTimeCompare([]byte(user), []byte(opts.Username)) == 1 &&
					bcrypt.CompareHashAndPassword([]byte(opts.PasswordHash), []byte(pass)) == nil {
					actor = fileops.Actor{Name: user, Authenticated: true}
				}
			default:
				next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), fileops.Actor{Name: "local", Authenticated: true})))
				return
			}

			metrics.RecordAuthAttempt(actor.Authenticated)
			if !actor.Authenticated {
				if opts.Mode == AuthModeBasic {
					w.Header().Set("WWW-Authenticate", `Basic realm="filedeck", charset="UTF-8"`)
				}
				writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}
