package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/haulmart-backend/pkg/config"
	"github.com/angelmondragon/haulmart-backend/pkg/enums"
)

func TestMintAndParseAccessToken(t *testing.T) {
	cfg := config.JWTConfig{
		Secret:            "secret",
		Issuer:            "haulmart",
		ExpirationMinutes: 30,
	}
	now := time.Now().UTC()
	vendorID := uuid.New()

	token, err := MintAccessToken(cfg, now, AccessTokenPayload{UserID: vendorID, Role: enums.ActorRoleVendor})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	claims, err := ParseAccessToken(cfg, token)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}

	if claims.UserID != vendorID {
		t.Fatalf("expected user_id %s, got %s", vendorID, claims.UserID)
	}
	if claims.Role != enums.ActorRoleVendor {
		t.Fatalf("unexpected role %s", claims.Role)
	}
	if claims.Issuer != cfg.Issuer {
		t.Fatalf("expected issuer %s, got %s", cfg.Issuer, claims.Issuer)
	}
	if claims.ID == "" {
		t.Fatal("expected a generated jti")
	}

	exp := now.Add(time.Duration(cfg.ExpirationMinutes) * time.Minute)
	diff := claims.ExpiresAt.Sub(exp)
	if diff < 0 {
		diff = -diff
	}
	if diff >= time.Second {
		t.Fatalf("expected exp roughly %v, got %v (diff %v)", exp.UTC(), claims.ExpiresAt.UTC(), diff)
	}
}

func TestParseAccessTokenInvalidSignature(t *testing.T) {
	cfg := config.JWTConfig{Secret: "secret", Issuer: "haulmart", ExpirationMinutes: 10}

	token, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{UserID: uuid.New(), Role: enums.ActorRoleCustomer})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	if _, err := ParseAccessToken(cfg, token+"x"); err == nil {
		t.Fatal("expected invalid signature error")
	}
}

func TestParseAccessTokenExpired(t *testing.T) {
	cfg := config.JWTConfig{Secret: "secret", Issuer: "haulmart", ExpirationMinutes: 15}

	token, err := MintAccessToken(cfg, time.Now().Add(-time.Hour), AccessTokenPayload{UserID: uuid.New(), Role: enums.ActorRoleDriver})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	_, err = ParseAccessToken(cfg, token)
	if err == nil {
		t.Fatal("expected expiration error")
	}
	if !strings.Contains(err.Error(), "expired") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestMintAccessTokenRejectsInvalidRoles(t *testing.T) {
	cfg := config.JWTConfig{Secret: "secret", Issuer: "haulmart", ExpirationMinutes: 5}

	for _, role := range []enums.ActorRole{"", "owner", enums.ActorRoleSystem} {
		if _, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{UserID: uuid.New(), Role: role}); err == nil {
			t.Fatalf("expected invalid role error for %q", role)
		}
	}
}

func TestActorHelpers(t *testing.T) {
	id := uuid.New()
	vendor := Actor{UserID: id, Role: enums.ActorRoleVendor}
	if !vendor.Is(enums.ActorRoleVendor, id) {
		t.Fatal("expected vendor actor to match its own id")
	}
	if vendor.Is(enums.ActorRoleDriver, id) || vendor.IsAdmin() {
		t.Fatal("vendor actor must not match other roles")
	}
	if !(Actor{Role: enums.ActorRoleAdmin}).IsAdmin() {
		t.Fatal("expected admin actor")
	}
	if System().Role != enums.ActorRoleSystem {
		t.Fatal("expected system role")
	}
}

func TestParseAccessTokenRejectsForgedSystemRole(t *testing.T) {
	cfg := config.JWTConfig{Secret: "secret", Issuer: "haulmart", ExpirationMinutes: 5}
	now := time.Now()
	forged := jwt.NewWithClaims(jwt.SigningMethodHS256, AccessTokenClaims{
		UserID: uuid.New(),
		Role:   enums.ActorRoleSystem,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
		},
	})
	signed, err := forged.SignedString([]byte(cfg.Secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := ParseAccessToken(cfg, signed); !errors.Is(err, ErrRoleNotAllowed) {
		t.Fatalf("expected ErrRoleNotAllowed, got %v", err)
	}
}

func TestParseAccessTokenRequiresExpiry(t *testing.T) {
	cfg := config.JWTConfig{Secret: "secret", Issuer: "haulmart", ExpirationMinutes: 5}
	forever := jwt.NewWithClaims(jwt.SigningMethodHS256, AccessTokenClaims{
		UserID:           uuid.New(),
		Role:             enums.ActorRoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{Issuer: cfg.Issuer},
	})
	signed, err := forever.SignedString([]byte(cfg.Secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := ParseAccessToken(cfg, signed); err == nil {
		t.Fatal("expected token without exp to be rejected")
	}
}

func TestClaimsActor(t *testing.T) {
	cfg := config.JWTConfig{Secret: "secret", Issuer: "haulmart", ExpirationMinutes: 5}
	driverID := uuid.New()
	token, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{UserID: driverID, Role: enums.ActorRoleDriver})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	claims, err := ParseAccessToken(cfg, token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Subject != driverID.String() {
		t.Fatalf("expected subject %s, got %s", driverID, claims.Subject)
	}
	if !claims.Actor().Is(enums.ActorRoleDriver, driverID) {
		t.Fatalf("unexpected actor %+v", claims.Actor())
	}
}
