package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/atvirokodosprendimai/envadmin/internal/core/domain"
	"github.com/atvirokodosprendimai/envadmin/internal/core/ports"
)

const (
	PermVehiclesRead   = "vehicles:read"
	PermVehiclesWrite  = "vehicles:write"
	PermEmissionsRead  = "emissions:read"
	PermEmissionsWrite = "emissions:write"
	PermAuditRead      = "audit:read"
)

const RoleAdmin = "admin"

// RolePermissions is the static role to permission lookup. Admin is granted
// everything and is not listed.
var RolePermissions = map[string][]string{
	"inspector": {PermVehiclesRead, PermEmissionsRead, PermEmissionsWrite},
	"clerk":     {PermVehiclesRead, PermVehiclesWrite, PermEmissionsRead},
	"auditor":   {PermAuditRead, PermVehiclesRead, PermEmissionsRead},
}

type AuthService struct {
	verifier ports.TokenVerifier
}

func NewAuthService(verifier ports.TokenVerifier) *AuthService {
	return &AuthService{verifier: verifier}
}

// Authenticate verifies a bearer token. Any verification failure is reported
// as domain.ErrUnauthorized.
func (s *AuthService) Authenticate(ctx context.Context, token string) (domain.Principal, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.Principal{}, domain.ErrUnauthorized
	}

	p, err := s.verifier.Verify(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			return domain.Principal{}, err
		}
		return domain.Principal{}, errors.Join(domain.ErrUnauthorized, err)
	}
	if strings.TrimSpace(p.Subject) == "" {
		return domain.Principal{}, domain.ErrUnauthorized
	}
	return p, nil
}

func (s *AuthService) Authorize(p domain.Principal, permission string) error {
	if HasPermission(p, permission) {
		return nil
	}
	return domain.ErrForbidden
}

func HasPermission(p domain.Principal, permission string) bool {
	for _, role := range p.Roles {
		role = strings.ToLower(strings.TrimSpace(role))
		if role == RoleAdmin {
			return true
		}
		for _, granted := range RolePermissions[role] {
			if granted == permission {
				return true
			}
		}
	}
	return false
}

func HashToken(token string) string {
	digest := sha256.Sum256([]byte(token))
	return hex.EncodeToString(digest[:])
}
