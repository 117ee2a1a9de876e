package identity

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"stockwatch/internal/domain/model"
	"stockwatch/internal/domain/port"
)

// JWTVerifier validates HMAC-signed bearer tokens issued by the identity
// provider and maps the claims to an Identity.
type JWTVerifier struct {
	secret []byte
	issuer string
}

var _ port.TokenVerifier = (*JWTVerifier)(nil)

func NewJWTVerifier(secret, issuer string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret), issuer: issuer}
}

type claims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

func (v *JWTVerifier) Verify(_ context.Context, token string) (*model.Identity, error) {
	var c claims

	parsed, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))
	if err != nil {
		return nil, fmt.Errorf("token verification failed: %w", err)
	}
	if !parsed.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	if v.issuer != "" && c.Issuer != v.issuer {
		return nil, fmt.Errorf("unexpected issuer %q", c.Issuer)
	}
	if c.Subject == "" {
		return nil, fmt.Errorf("token missing subject")
	}

	return &model.Identity{
		UserID: c.Subject,
		Email:  c.Email,
		Name:   c.Name,
	}, nil
}
