package service

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/vibast-solutions/ms-go-identity/config"
)

// Token scopes. Email-verification tokens carry no scope; they are
// distinguished by the operation that decodes them.
const (
	ScopeAccessToken   = "access_token"
	ScopeRefreshToken  = "refresh_token"
	ScopePasswordReset = "password_reset"
)

type Claims struct {
	Scope string `json:"scope,omitempty"`
	jwt.RegisteredClaims
}

// TokenCodec issues and decodes the signed, expiring tokens used across the
// service. The secret and algorithm are fixed at construction; expiry is
// compared in UTC with no leeway.
type TokenCodec struct {
	secret     []byte
	method     jwt.SigningMethod
	accessTTL  time.Duration
	refreshTTL time.Duration
	emailTTL   time.Duration
	resetTTL   time.Duration
}

func NewTokenCodec(cfg *config.Config) (*TokenCodec, error) {
	method := jwt.GetSigningMethod(cfg.JWTAlgorithm)
	if method == nil {
		return nil, fmt.Errorf("unknown signing algorithm %q", cfg.JWTAlgorithm)
	}
	if _, ok := method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("signing algorithm %q is not in the HMAC family", cfg.JWTAlgorithm)
	}

	return &TokenCodec{
		secret:     []byte(cfg.JWTSecret),
		method:     method,
		accessTTL:  cfg.JWTAccessTokenTTL,
		refreshTTL: cfg.JWTRefreshTokenTTL,
		emailTTL:   cfg.EmailTokenTTL,
		resetTTL:   cfg.ResetTokenTTL,
	}, nil
}

func (c *TokenCodec) IssueAccessToken(email string) (string, error) {
	return c.issue(email, ScopeAccessToken, c.accessTTL)
}

func (c *TokenCodec) IssueRefreshToken(email string) (string, error) {
	return c.issue(email, ScopeRefreshToken, c.refreshTTL)
}

func (c *TokenCodec) IssueEmailToken(email string) (string, error) {
	return c.issue(email, "", c.emailTTL)
}

func (c *TokenCodec) IssuePasswordResetToken(email string) (string, error) {
	return c.issue(email, ScopePasswordReset, c.resetTTL)
}

func (c *TokenCodec) issue(subject, scope string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := &Claims{
		Scope: scope,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(c.method, claims)
	return token.SignedString(c.secret)
}

// Decode verifies signature and expiry only. Scope checks belong to the
// operation expecting the token.
func (c *TokenCodec) Decode(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return c.secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

func (c *TokenCodec) DecodeWithScope(tokenString, scope string) (*Claims, error) {
	claims, err := c.Decode(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Scope != scope {
		return nil, ErrWrongScope
	}
	return claims, nil
}
