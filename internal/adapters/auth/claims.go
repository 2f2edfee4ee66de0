// Package auth holds the bearer token verifiers.
package auth

import (
	"strings"

	"github.com/atvirokodosprendimai/envadmin/internal/core/domain"
)

// Claims are the identity provider claims this service reads.
type Claims struct {
	Subject string   `json:"sub"`
	Email   string   `json:"email"`
	Roles   []string `json:"roles"`
}

func (c Claims) principal() domain.Principal {
	roles := make([]string, 0, len(c.Roles))
	for _, r := range c.Roles {
		if r = strings.ToLower(strings.TrimSpace(r)); r != "" {
			roles = append(roles, r)
		}
	}
	return domain.Principal{Subject: c.Subject, Email: c.Email, Roles: roles}
}
