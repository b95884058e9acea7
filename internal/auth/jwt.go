// Package auth verifies the staff session tokens issued by the identity
// provider. It never issues long-lived credentials itself.
package auth

import (
	"context"
	"errors"
	"menu-service/internal/service"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrUnknownRole  = errors.New("unknown role")
)

type Claims struct {
	UserID uuid.UUID
	Role   service.Role
	Exp    time.Time
}

type customClaims struct {
	Sub  string `json:"sub"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// JWTIntrospector validates HS256 access tokens.
type JWTIntrospector struct {
	secret   []byte
	issuer   string
	audience string
	now      func() time.Time
}

func NewJWTIntrospector(secret, issuer, audience string) *JWTIntrospector {
	return &JWTIntrospector{
		secret:   []byte(secret),
		issuer:   issuer,
		audience: audience,
		now:      time.Now,
	}
}

func (p *JWTIntrospector) Introspect(ctx context.Context, token string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithTimeFunc(p.now)}
	if p.issuer != "" {
		opts = append(opts, jwt.WithIssuer(p.issuer))
	}
	if p.audience != "" {
		opts = append(opts, jwt.WithAudience(p.audience))
	}
	parsed, err := jwt.ParseWithClaims(token, &customClaims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return p.secret, nil
	}, opts...)
	if err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}
	cc, ok := parsed.Claims.(*customClaims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	uid, err := uuid.Parse(cc.Sub)
	if err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}
	role := service.Role(cc.Role)
	if !role.IsStaff() {
		return nil, ErrUnknownRole
	}
	out := &Claims{UserID: uid, Role: role}
	if cc.ExpiresAt != nil {
		out.Exp = cc.ExpiresAt.Time
	}
	return out, nil
}

// Sign issues a short-lived access token; used by local tooling and tests.
func (p *JWTIntrospector) Sign(sub uuid.UUID, role service.Role, ttl time.Duration) (string, error) {
	now := p.now()
	claims := customClaims{
		Sub:  sub.String(),
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    p.issuer,
			Subject:   sub.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if p.audience != "" {
		claims.Audience = []string{p.audience}
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
}
