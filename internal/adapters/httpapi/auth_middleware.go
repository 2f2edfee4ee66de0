package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/atvirokodosprendimai/envadmin/internal/core/domain"
)

type ctxKey string

const (
	principalCtxKey  ctxKey = "principal"
	auditActorCtxKey ctxKey = "audit_actor"
)

// auditActor is placed in the context by captureAudit, which runs outside
// authentication, and filled in once the caller is known.
type auditActor struct {
	principal domain.Principal
	known     bool
}

func (h *Handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := h.auth.Authenticate(r.Context(), bearerToken(r))
		if err != nil {
			h.handleDomainError(w, r, err)
			return
		}

		if actor, ok := r.Context().Value(auditActorCtxKey).(*auditActor); ok {
			actor.principal = p
			actor.known = true
		}
		ctx := context.WithValue(r.Context(), principalCtxKey, p)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) require(permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := h.auth.Authorize(principalFromContext(r.Context()), permission); err != nil {
				h.handleDomainError(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

func principalFromContext(ctx context.Context) domain.Principal {
	p, _ := ctx.Value(principalCtxKey).(domain.Principal)
	return p
}
