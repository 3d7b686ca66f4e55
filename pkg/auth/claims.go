package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/storelinehq/storeline-backend/pkg/enums"
)

// AccessTokenPayload is the data minted into an access token.
type AccessTokenPayload struct {
	UserID   uuid.UUID
	TenantID string
	Role     enums.ActorRole
	ShopID   *uuid.UUID
	AgentID  *uuid.UUID
	JTI      string
}

// AccessTokenClaims are the typed JWT claims carried by API callers.
type AccessTokenClaims struct {
	UserID   uuid.UUID       `json:"uid"`
	TenantID string          `json:"tid"`
	Role     enums.ActorRole `json:"role"`
	ShopID   *uuid.UUID      `json:"shop_id,omitempty"`
	AgentID  *uuid.UUID      `json:"agent_id,omitempty"`
	jwt.RegisteredClaims
}
