package oidc

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIDToken struct {
	raw string
}

func (f fakeIDToken) Claims(v interface{}) error { return json.Unmarshal([]byte(f.raw), v) }

func TestIssuer(t *testing.T) {
	assert.Equal(t, "https://kc.example.com/realms/review", Issuer("https://kc.example.com/", "review"))
	assert.Equal(t, "https://kc.example.com/realms/review", Issuer("https://kc.example.com/realms/review", ""))
}

func TestKeycloakToken_MapsRealmRoles(t *testing.T) {
	tok := keycloakToken{tok: fakeIDToken{raw: `{"sub":"kc-1","preferred_username":"alice","realm_access":{"roles":["Administrators","offline_access"]}}`}}
	var claims map[string]interface{}
	require.NoError(t, tok.Claims(&claims))
	assert.Equal(t, "alice", claims["username"])
	assert.Equal(t, []interface{}{"Administrators", "offline_access"}, claims["groups"])
}

func TestKeycloakToken_KeepsExplicitGroups(t *testing.T) {
	tok := keycloakToken{tok: fakeIDToken{raw: `{"sub":"kc-2","username":"bob","groups":["Chairs"],"realm_access":{"roles":["Administrators"]}}`}}
	var claims map[string]interface{}
	require.NoError(t, tok.Claims(&claims))
	assert.Equal(t, "bob", claims["username"])
	assert.Equal(t, []interface{}{"Chairs"}, claims["groups"])
}
