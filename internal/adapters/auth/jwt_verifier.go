package auth

import (
	"context"
	"crypto/rsa"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/atvirokodosprendimai/envadmin/internal/core/domain"
)

type jwtClaims struct {
	Email string   `json:"email"`
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// JWTVerifier checks RS256 tokens against the identity provider's public key.
type JWTVerifier struct {
	key    *rsa.PublicKey
	parser *jwt.Parser
}

type JWTConfig struct {
	PublicKeyPEM []byte
	Issuer       string
	Audience     string
	Leeway       time.Duration
}

func NewJWTVerifier(cfg JWTConfig) (*JWTVerifier, error) {
	key, err := jwt.ParseRSAPublicKeyFromPEM(cfg.PublicKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(cfg.Leeway),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	return &JWTVerifier{key: key, parser: jwt.NewParser(opts...)}, nil
}

// NewJWTVerifierFromFile reads the PEM public key from path.
func NewJWTVerifierFromFile(path string, cfg JWTConfig) (*JWTVerifier, error) {
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read public key: %w", err)
	}
	cfg.PublicKeyPEM = pem
	return NewJWTVerifier(cfg)
}

func (v *JWTVerifier) Verify(_ context.Context, raw string) (domain.Principal, error) {
	claims := &jwtClaims{}
	_, err := v.parser.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.key, nil
	})
	if err != nil {
		return domain.Principal{}, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}
	return Claims{Subject: claims.Subject, Email: claims.Email, Roles: claims.Roles}.principal(), nil
}
