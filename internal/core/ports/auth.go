package ports

import (
	"context"
	"time"

	"github.com/atvirokodosprendimai/envadmin/internal/core/domain"
)

// TokenVerifier validates a raw bearer token and returns its principal.
type TokenVerifier interface {
	Verify(ctx context.Context, raw string) (domain.Principal, error)
}

type SessionRepository interface {
	Create(ctx context.Context, s domain.Session) error
	FindByTokenHash(ctx context.Context, tokenHash string) (domain.Session, error)
	DeleteByTokenHash(ctx context.Context, tokenHash string) (bool, error)
}

// SessionCache is an optional read-through cache in front of SessionRepository.
type SessionCache interface {
	Get(ctx context.Context, tokenHash string) (domain.Session, bool, error)
	Set(ctx context.Context, s domain.Session, ttl time.Duration) error
	Delete(ctx context.Context, tokenHash string) error
}

// SessionResolver maps an opaque session token to its session.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (domain.Session, error)
}
