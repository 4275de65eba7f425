package tokens

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/progreview/progreview-api/internal/config"
	"github.com/progreview/progreview-api/internal/models"
	"github.com/progreview/progreview-api/pkg/middleware"
)

const issuer = "progreview-api"

// GenerateAccessToken creates a signed JWT access token for the user. The
// subject is the user's id; username, groups and root feed access checks.
func GenerateAccessToken(cfg *config.Config, u *models.User, ttl time.Duration) (string, error) {
	if cfg.JWT.Secret == "" {
		return "", errors.New("jwt secret is not configured")
	}
	groups := u.Groups
	if groups == nil {
		groups = []string{}
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"iss":      issuer,
		"sub":      u.ID,
		"username": u.Username,
		"email":    u.Email,
		"groups":   groups,
		"root":     u.Root,
		"iat":      now.Unix(),
		"exp":      now.Add(ttl).Unix(),
	}
	jt := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return jt.SignedString([]byte(cfg.JWT.Secret))
}

// ParseAccessToken validates signature, algorithm, issuer and expiry and returns the claims.
func ParseAccessToken(secret, raw string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("parse access token: %w", err)
	}
	return claims, nil
}

type localToken struct {
	claims jwt.MapClaims
}

func (t localToken) Claims(v interface{}) error {
	b, err := json.Marshal(t.claims)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

// Verifier checks access tokens issued by this service.
type Verifier struct {
	secret string
}

func NewVerifier(secret string) *Verifier { return &Verifier{secret: secret} }

func (v *Verifier) Verify(_ context.Context, raw string) (middleware.Token, error) {
	claims, err := ParseAccessToken(v.secret, raw)
	if err != nil {
		return nil, err
	}
	return localToken{claims: claims}, nil
}
