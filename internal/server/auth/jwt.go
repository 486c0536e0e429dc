// Package auth contains the credential primitives of the server: the
// password hasher and the bearer token codec.
package auth

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/server/config"
	"github.com/golang-jwt/jwt/v5"
)

// TokenPayload is what a valid token carries: the user id and the expiry.
type TokenPayload struct {
	Subject   string
	ExpiresAt time.Time
}

// TokenCodec signs and verifies JWTs carrying only "sub" and "exp".
type TokenCodec struct {
	secret   []byte
	method   jwt.SigningMethod
	validity time.Duration
	now      func() time.Time
}

// NewTokenCodec builds a codec from cfg. The algorithm must be one of the
// HMAC methods known to jwt (HS256, HS384, HS512). An empty secret is
// accepted here and reported by Issue/Decode instead.
func NewTokenCodec(cfg *config.Config) (*TokenCodec, error) {
	method := jwt.GetSigningMethod(cfg.Algorithm)
	if _, ok := method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unsupported signing algorithm %q", cfg.Algorithm)
	}

	return &TokenCodec{
		secret:   []byte(cfg.SecretKey),
		method:   method,
		validity: cfg.AccessTokenValidityDuration,
		now:      time.Now,
	}, nil
}

// Issue signs a token for subject. The optional ttl overrides the configured
// validity; a zero ttl means the default, a negative one yields an already
// expired token.
func (c *TokenCodec) Issue(subject string, ttl ...time.Duration) (string, error) {
	if len(c.secret) == 0 {
		return "", common.ErrMissingSecretKey
	}

	validity := c.validity
	if len(ttl) > 0 && ttl[0] != 0 {
		validity = ttl[0]
	}

	token := jwt.NewWithClaims(c.method, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(c.now().Add(validity)),
	})

	return token.SignedString(c.secret)
}

// Decode verifies signature and expiry and returns the payload. Every
// failure, expired or forged or malformed, is reported as common.ErrInvalidToken.
func (c *TokenCodec) Decode(tokenString string) (*TokenPayload, error) {
	if len(c.secret) == 0 {
		return nil, common.ErrMissingSecretKey
	}

	claims := &jwt.RegisteredClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) {
			return c.secret, nil
		},
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil || !token.Valid || claims.Subject == "" {
		return nil, common.ErrInvalidToken
	}

	return &TokenPayload{Subject: claims.Subject, ExpiresAt: claims.ExpiresAt.Time}, nil
}
