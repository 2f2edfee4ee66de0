package auth

import (
	"context"

	"github.com/atvirokodosprendimai/envadmin/internal/core/domain"
)

// StaticVerifier accepts any non-empty token as a fixed principal. It backs
// --auth-mode=none for local development.
type StaticVerifier struct {
	principal domain.Principal
}

func NewStaticVerifier(p domain.Principal) *StaticVerifier {
	if p.Subject == "" {
		p.Subject = "dev"
	}
	if len(p.Roles) == 0 {
		p.Roles = []string{"admin"}
	}
	return &StaticVerifier{principal: p}
}

func (v *StaticVerifier) Verify(_ context.Context, raw string) (domain.Principal, error) {
	if raw == "" {
		return domain.Principal{}, domain.ErrUnauthorized
	}
	return v.principal, nil
}
