package session

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is the authenticated user as presented by the backend's bearer
// token: an id, a role, and the capability set role gating is derived from.
type Identity struct {
	UserID       string
	Role         string
	Capabilities []string
}

// Can reports whether the identity carries a capability.
func (i *Identity) Can(capability string) bool {
	for _, c := range i.Capabilities {
		if c == capability {
			return true
		}
	}
	return false
}

// ParseIdentity extracts identity claims from a bearer token without
// verifying the signature. Verification is the backend's job; the client
// only needs the claim values to scope its own behavior.
func ParseIdentity(token string) (*Identity, error) {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	identity := &Identity{}
	if sub, err := claims.GetSubject(); err == nil {
		identity.UserID = sub
	}
	if userID, ok := claims["user_id"].(string); ok && userID != "" {
		identity.UserID = userID
	}
	if role, ok := claims["role"].(string); ok {
		identity.Role = role
	}
	if caps, ok := claims["capabilities"].([]interface{}); ok {
		for _, c := range caps {
			if s, ok := c.(string); ok {
				identity.Capabilities = append(identity.Capabilities, s)
			}
		}
	}

	if identity.UserID == "" {
		return nil, fmt.Errorf("token carries no user id claim")
	}
	return identity, nil
}
