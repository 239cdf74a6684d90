// Package auth provides JWT-based authentication for sendbridge-engine.
// It validates HMAC-signed bearer tokens issued by the identity service.
package auth

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/sendbridge/sendbridge-engine/pkg/models"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

// ClaimsKey is the context key for storing JWT claims.
const ClaimsKey contextKey = "claims"

// Claims is the token claim structure issued by the identity service. The
// subject carries the reviewer UUID.
type Claims struct {
	jwt.RegisteredClaims
	Role  string `json:"role"`            // review role, e.g. "toxicologist"
	Name  string `json:"name,omitempty"`  // display name
	Email string `json:"email,omitempty"` // reviewer email
}

// GetClaims retrieves JWT claims from the request context.
// Returns nil and false if claims are not present.
func GetClaims(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(ClaimsKey).(*Claims)
	return claims, ok
}

// ActorFromClaims builds the acting-reviewer identity out of validated
// claims. The subject must be a reviewer UUID and the role must be known.
func ActorFromClaims(claims *Claims) (models.Actor, error) {
	if claims == nil {
		return models.Actor{}, fmt.Errorf("authentication required: no claims")
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return models.Actor{}, fmt.Errorf("invalid subject in token: %w", err)
	}

	role := models.ReviewRole(claims.Role)
	if !models.IsValidReviewRole(role) {
		return models.Actor{}, fmt.Errorf("unknown role %q in token", claims.Role)
	}

	return models.Actor{UserID: userID, Role: role}, nil
}
