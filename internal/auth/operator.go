package auth

import (
	"fmt"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"avatarbook/internal/config"
	apperrors "avatarbook/internal/errors"
)

// PermOrdersAdmin grants the operator recovery actions.
const PermOrdersAdmin = "orders.admin"

const clockSkew = 30 * time.Second

type OperatorClaims struct {
	Perms []string `json:"perms"`
	jwt.RegisteredClaims
}

// OperatorTokens mints and verifies HMAC-signed operator tokens.
type OperatorTokens struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewOperatorTokens(cfg config.SecurityConfig) *OperatorTokens {
	return &OperatorTokens{
		secret: []byte(cfg.JWTSecret),
		issuer: cfg.Issuer,
		ttl:    cfg.TokenTTL,
		now:    time.Now,
	}
}

func (o *OperatorTokens) Mint(subject string, perms ...string) (string, error) {
	if len(o.secret) == 0 {
		return "", fmt.Errorf("security.jwtSecret is not configured")
	}
	if len(perms) == 0 {
		perms = []string{PermOrdersAdmin}
	}

	now := o.now()
	claims := OperatorClaims{
		Perms: perms,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    o.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(o.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(o.secret)
}

// Verify returns the claims of a valid token carrying perm. Bad or expired
// tokens are an AuthenticationError; a valid token without perm is a
// ForbiddenError.
func (o *OperatorTokens) Verify(raw, perm string) (*OperatorClaims, error) {
	if len(o.secret) == 0 {
		return nil, apperrors.NewAuthenticationError("operator authentication is not configured")
	}

	claims := &OperatorClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return o.secret, nil
	},
		jwt.WithLeeway(clockSkew),
		jwt.WithIssuer(o.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(o.now),
	)
	if err != nil || !token.Valid {
		return nil, apperrors.NewAuthenticationError("invalid operator token")
	}

	if !slices.Contains(claims.Perms, perm) {
		return nil, apperrors.NewForbiddenError("operator token lacks " + perm)
	}
	return claims, nil
}
