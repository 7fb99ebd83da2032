package handlers

import (
	"net/http"
	"strings"

	"github.com/parcelio/api/internal/platform/requestctx"
)

const (
	actorIDHeader   = "X-Actor-Id"
	actorRoleHeader = "X-Actor-Role"
)

// ActorMiddleware copies the gateway-forwarded principal headers onto the
// request context. The API gateway authenticates callers upstream; requests
// without the headers stay anonymous and services treat actor fields as
// optional audit data.
func ActorMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actorID := strings.TrimSpace(r.Header.Get(actorIDHeader))
			if actorID == "" {
				next.ServeHTTP(w, r)
				return
			}
			ctx := requestctx.WithActor(r.Context(), requestctx.Actor{
				ID:   actorID,
				Role: strings.TrimSpace(r.Header.Get(actorRoleHeader)),
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
