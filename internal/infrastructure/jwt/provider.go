package jwtinfra

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/campus-push/internal/config"
	"github.com/campus-push/internal/domain"
)

// Claims holds the operator JWT payload fields.
type Claims struct {
	UserID       string `json:"user_id"`
	Role         string `json:"role"`
	UniversityID string `json:"university_id,omitempty"`
	jwt.RegisteredClaims
}

// Provider signs and verifies RS256 operator tokens.
type Provider struct {
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
	expiry     time.Duration
}

// NewProvider loads the key pair. The private key is optional so services
// that only verify can run without it.
func NewProvider(cfg *config.Config) (*Provider, error) {
	pubBytes, err := os.ReadFile(cfg.JWTPublicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read public key: %w", err)
	}
	pubKey, err := jwt.ParseRSAPublicKeyFromPEM(pubBytes)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}
	p := &Provider{publicKey: pubKey, expiry: time.Duration(cfg.JWTExpiryDays) * 24 * time.Hour}

	privBytes, err := os.ReadFile(cfg.JWTPrivateKeyPath)
	if errors.Is(err, os.ErrNotExist) {
		return p, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read private key: %w", err)
	}
	if p.privateKey, err = jwt.ParseRSAPrivateKeyFromPEM(privBytes); err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return p, nil
}

func (p *Provider) Sign(userID, role, universityID string) (string, error) {
	if p.privateKey == nil {
		return "", fmt.Errorf("%w: no JWT private key loaded", domain.ErrConfiguration)
	}
	now := time.Now()
	claims := Claims{
		UserID:       userID,
		Role:         role,
		UniversityID: universityID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(p.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	return token.SignedString(p.privateKey)
}

func (p *Provider) Parse(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return p.publicKey, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// Verify parses the token and returns the caller it identifies.
func (p *Provider) Verify(_ context.Context, tokenStr string) (*domain.Principal, error) {
	c, err := p.Parse(tokenStr)
	if err != nil {
		return nil, fmt.Errorf("invalid operator token: %w", domain.ErrUnauthorized)
	}
	return &domain.Principal{UserID: c.UserID, Role: c.Role, UniversityID: c.UniversityID}, nil
}
