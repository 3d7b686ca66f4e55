package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/storelinehq/storeline-backend/pkg/config"
	"github.com/storelinehq/storeline-backend/pkg/enums"
)

func jwtTestConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:    "unit-test-secret",
		Issuer:    "storeline",
		AccessTTL: time.Hour,
	}
}

func TestMintAndParseAccessToken(t *testing.T) {
	cfg := jwtTestConfig()
	shopID := uuid.New()
	payload := AccessTokenPayload{
		UserID:   uuid.New(),
		TenantID: "acme",
		Role:     enums.RoleVendor,
		ShopID:   &shopID,
	}

	token, err := MintAccessToken(cfg, time.Now(), payload)
	if err != nil {
		t.Fatalf("MintAccessToken: %v", err)
	}

	claims, err := ParseAccessToken(cfg, token)
	if err != nil {
		t.Fatalf("ParseAccessToken: %v", err)
	}
	if claims.UserID != payload.UserID {
		t.Fatalf("user id mismatch")
	}
	if claims.TenantID != "acme" || claims.Role != enums.RoleVendor {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if claims.ShopID == nil || *claims.ShopID != shopID {
		t.Fatalf("shop id lost in round trip")
	}
}

func TestParseRejectsExpiredToken(t *testing.T) {
	cfg := jwtTestConfig()
	token, err := MintAccessToken(cfg, time.Now().Add(-2*time.Hour), AccessTokenPayload{
		UserID:   uuid.New(),
		TenantID: "acme",
		Role:     enums.RoleCustomer,
	})
	if err != nil {
		t.Fatalf("MintAccessToken: %v", err)
	}
	if _, err := ParseAccessToken(cfg, token); err == nil {
		t.Fatalf("expected expiry error")
	}
}

func TestParseRejectsWrongIssuer(t *testing.T) {
	mintCfg := jwtTestConfig()
	mintCfg.Issuer = "someone-else"
	token, err := MintAccessToken(mintCfg, time.Now(), AccessTokenPayload{
		UserID:   uuid.New(),
		TenantID: "acme",
		Role:     enums.RoleCustomer,
	})
	if err != nil {
		t.Fatalf("MintAccessToken: %v", err)
	}
	if _, err := ParseAccessToken(jwtTestConfig(), token); err == nil {
		t.Fatalf("expected issuer error")
	}
}

func TestMintRejectsInvalidInput(t *testing.T) {
	cfg := jwtTestConfig()

	if _, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{
		UserID: uuid.New(), TenantID: "acme", Role: enums.ActorRole("superuser"),
	}); err == nil {
		t.Fatalf("expected role validation error")
	}
	if _, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{
		UserID: uuid.New(), Role: enums.RoleCustomer,
	}); err == nil {
		t.Fatalf("expected tenant validation error")
	}
}
