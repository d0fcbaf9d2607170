package jwtauth

import (
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	dErrors "civreg/pkg/domain-errors"
	mwauth "civreg/pkg/platform/middleware/auth"
)

// Claims are the JWT claims issued by the auth collaborator. Scope is a
// space-separated string, OAuth style.
type Claims struct {
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

// Verifier validates bearer tokens issued by the auth service. The service
// only verifies; it never issues tokens.
type Verifier struct {
	signingKey []byte
	issuer     string
	audience   string
}

func NewVerifier(signingKey, issuer, audience string) *Verifier {
	return &Verifier{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
	}
}

// Verify parses and validates a token, returning the actor subject and the
// granted scopes.
func (v *Verifier) Verify(tokenString string) (*mwauth.Claims, error) {
	opts := []jwt.ParserOption{}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return v.signingKey, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}

	return &mwauth.Claims{
		Subject: claims.Subject,
		Scopes:  strings.Fields(claims.Scope),
	}, nil
}
