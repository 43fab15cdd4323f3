package auth

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// AdminTokenClaims is the JWT presented to the admin API. Group membership is
// asserted by the identity provider that minted the token.
type AdminTokenClaims struct {
	Name   string   `json:"name,omitempty"`
	Groups []string `json:"groups"`
	jwt.RegisteredClaims
}

// InGroup reports whether the token carries group, compared case-insensitively.
func (c *AdminTokenClaims) InGroup(group string) bool {
	if c == nil {
		return false
	}
	group = strings.TrimSpace(group)
	if group == "" {
		return false
	}
	for _, g := range c.Groups {
		if strings.EqualFold(strings.TrimSpace(g), group) {
			return true
		}
	}
	return false
}
