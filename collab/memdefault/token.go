package memdefault

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"

	domainerrors "github.com/techmad220/hackerexperience-go/infrastructure/errors"
)

// JWTIssuer is the default collab.TokenIssuer, grounded on the teacher's
// golang-jwt/jwt/v5 session token issuance.
type JWTIssuer struct {
	secret []byte
	issuer string
}

// NewJWTIssuer builds an issuer signing HS256 tokens with secret, tagged
// with iss.
func NewJWTIssuer(secret []byte, issuer string) *JWTIssuer {
	return &JWTIssuer{secret: secret, issuer: issuer}
}

func (j *JWTIssuer) Issue(ctx context.Context, subject string, ttlSeconds int64) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    j.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(ttlSeconds) * time.Second)),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(j.secret)
	if err != nil {
		return "", domainerrors.StoreError("issue_token", err)
	}
	return signed, nil
}

func (j *JWTIssuer) Validate(ctx context.Context, token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return j.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return "", domainerrors.NotAuthorized("token", "invalid or expired")
	}
	return claims.Subject, nil
}
