package oidc

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/progreview/progreview-api/pkg/middleware"
)

// IDToken is a minimal interface for token payloads that allows extracting claims
// It is satisfied by *oidc.IDToken and by test fakes.
type IDToken interface {
	Claims(v interface{}) error
}

// Verifier wraps the OIDC provider and token verifier
type Verifier struct {
	provider *oidc.Provider
	verifier *oidc.IDTokenVerifier
}

// Issuer builds the Keycloak realm issuer URL. An empty realm means url is
// already the issuer.
func Issuer(url, realm string) string {
	if realm == "" {
		return url
	}
	return strings.TrimRight(url, "/") + "/realms/" + realm
}

// NewVerifier creates a new OIDC verifier for the given issuer and client ID
func NewVerifier(ctx context.Context, issuer, clientID string) (*Verifier, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to discover OIDC provider: %w", err)
	}
	verifier := provider.Verifier(&oidc.Config{ClientID: clientID})
	return &Verifier{provider: provider, verifier: verifier}, nil
}

// Verify verifies the raw ID token and returns it with claims mapped to the
// shape the access middleware reads.
func (v *Verifier) Verify(ctx context.Context, raw string) (middleware.Token, error) {
	idToken, err := v.verifier.Verify(ctx, raw)
	if err != nil {
		return nil, err
	}
	return keycloakToken{tok: idToken}, nil
}

// keycloakToken fills "username" from preferred_username and "groups" from
// realm roles when the IdP does not emit a groups claim.
type keycloakToken struct {
	tok IDToken
}

func (k keycloakToken) Claims(v interface{}) error {
	var claims map[string]interface{}
	if err := k.tok.Claims(&claims); err != nil {
		return err
	}
	normalize(claims)
	b, err := json.Marshal(claims)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

func normalize(claims map[string]interface{}) {
	if _, ok := claims["username"]; !ok {
		if pu, ok := claims["preferred_username"].(string); ok {
			claims["username"] = pu
		}
	}
	if _, ok := claims["groups"]; ok {
		return
	}
	ra, ok := claims["realm_access"].(map[string]interface{})
	if !ok {
		return
	}
	if roles, ok := ra["roles"].([]interface{}); ok {
		claims["groups"] = roles
	}
}
