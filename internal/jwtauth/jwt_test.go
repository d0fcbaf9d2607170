package jwtauth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	dErrors "civreg/pkg/domain-errors"
)

const testKey = "test-signing-key"

func signToken(t *testing.T, key string, method jwt.SigningMethod, claims Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString([]byte(key))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func baseClaims(expiry time.Duration) Claims {
	return Claims{
		Scope: "record.declare record.register",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "c5e1c1f2-9f63-4f60-9c4a-6f2c7c1a1111",
			Issuer:    "civreg-auth",
			Audience:  jwt.ClaimStrings{"civreg"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
}

func TestVerify(t *testing.T) {
	t.Run("valid token yields subject and split scopes", func(t *testing.T) {
		v := NewVerifier(testKey, "civreg-auth", "civreg")
		token := signToken(t, testKey, jwt.SigningMethodHS256, baseClaims(time.Hour))

		claims, err := v.Verify(token)
		if err != nil {
			t.Fatalf("verify: %v", err)
		}
		if claims.Subject != "c5e1c1f2-9f63-4f60-9c4a-6f2c7c1a1111" {
			t.Fatalf("subject = %s", claims.Subject)
		}
		if len(claims.Scopes) != 2 || claims.Scopes[0] != "record.declare" || claims.Scopes[1] != "record.register" {
			t.Fatalf("scopes = %v", claims.Scopes)
		}
	})

	t.Run("issuer and audience checks are skipped when unconfigured", func(t *testing.T) {
		v := NewVerifier(testKey, "", "")
		claims := baseClaims(time.Hour)
		claims.Issuer = "someone-else"
		claims.Audience = nil

		if _, err := v.Verify(signToken(t, testKey, jwt.SigningMethodHS256, claims)); err != nil {
			t.Fatalf("verify: %v", err)
		}
	})

	t.Run("expired token is unauthorized", func(t *testing.T) {
		v := NewVerifier(testKey, "civreg-auth", "civreg")
		token := signToken(t, testKey, jwt.SigningMethodHS256, baseClaims(-time.Minute))

		_, err := v.Verify(token)
		if !dErrors.HasCode(err, dErrors.CodeUnauthorized) {
			t.Fatalf("err = %v, want unauthorized", err)
		}
		if dErrors.Message(err) != "token has expired" {
			t.Fatalf("message = %q", dErrors.Message(err))
		}
	})

	t.Run("wrong signing key is rejected", func(t *testing.T) {
		v := NewVerifier(testKey, "civreg-auth", "civreg")
		token := signToken(t, "another-key", jwt.SigningMethodHS256, baseClaims(time.Hour))

		if _, err := v.Verify(token); !dErrors.HasCode(err, dErrors.CodeUnauthorized) {
			t.Fatalf("err = %v, want unauthorized", err)
		}
	})

	t.Run("wrong issuer is rejected", func(t *testing.T) {
		v := NewVerifier(testKey, "civreg-auth", "civreg")
		claims := baseClaims(time.Hour)
		claims.Issuer = "impostor"

		if _, err := v.Verify(signToken(t, testKey, jwt.SigningMethodHS256, claims)); !dErrors.HasCode(err, dErrors.CodeUnauthorized) {
			t.Fatalf("err = %v, want unauthorized", err)
		}
	})

	t.Run("unsigned token is rejected", func(t *testing.T) {
		v := NewVerifier(testKey, "civreg-auth", "civreg")
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, baseClaims(time.Hour)).
			SignedString(jwt.UnsafeAllowNoneSignatureType)
		if err != nil {
			t.Fatalf("sign token: %v", err)
		}

		if _, err := v.Verify(token); !dErrors.HasCode(err, dErrors.CodeUnauthorized) {
			t.Fatalf("err = %v, want unauthorized", err)
		}
	})

	t.Run("garbage token is rejected", func(t *testing.T) {
		v := NewVerifier(testKey, "civreg-auth", "civreg")

		if _, err := v.Verify("not.a.jwt"); !dErrors.HasCode(err, dErrors.CodeUnauthorized) {
			t.Fatalf("err = %v, want unauthorized", err)
		}
	})
}
