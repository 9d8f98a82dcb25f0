package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/haulmart-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
// UserID is the id of the account the role acts for: the customer, vendor
// or driver row, or the admin user.
type AccessTokenPayload struct {
	UserID uuid.UUID
	Role   enums.ActorRole
	JTI    string
}

// AccessTokenClaims represents the typed JWT issued to clients.
type AccessTokenClaims struct {
	UserID uuid.UUID       `json:"user_id"`
	Role   enums.ActorRole `json:"role"`
	jwt.RegisteredClaims
}

// Actor is the authenticated caller handed to services.
type Actor struct {
	UserID uuid.UUID
	Role   enums.ActorRole
}

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool {
	return a.Role == enums.ActorRoleAdmin
}

// Is reports whether the actor acts under role for the account id.
func (a Actor) Is(role enums.ActorRole, id uuid.UUID) bool {
	return a.Role == role && a.UserID == id
}

// System is the actor used for gateway-driven changes.
func System() Actor {
	return Actor{Role: enums.ActorRoleSystem}
}
