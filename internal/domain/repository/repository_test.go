package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dropDatabas3/hellojohn-oidc/internal/domain/types"
)

func TestAuthorization_CoversScopes(t *testing.T) {
	a := &Authorization{Scopes: []string{"openid", "profile", "email"}}

	assert.True(t, a.CoversScopes([]string{"openid"}))
	assert.True(t, a.CoversScopes([]string{"profile", "openid"}))
	assert.True(t, a.CoversScopes(nil))
	assert.False(t, a.CoversScopes([]string{"openid", "roles"}))
}

func TestToken_IsActive(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	tests := []struct {
		name string
		tok  Token
		want bool
	}{
		{"valid without expiry", Token{Status: types.StatusValid}, true},
		{"valid not expired", Token{Status: types.StatusValid, ExpiresAt: &future}, true},
		{"valid but expired", Token{Status: types.StatusValid, ExpiresAt: &past}, false},
		{"expires exactly now", Token{Status: types.StatusValid, ExpiresAt: &now}, false},
		{"revoked", Token{Status: types.StatusRevoked, ExpiresAt: &future}, false},
		{"redeemed", Token{Status: types.StatusRedeemed}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.tok.IsActive(now))
		})
	}
}

func TestUser_IsLockedOut(t *testing.T) {
	now := time.Now()
	end := now.Add(5 * time.Minute)

	u := &User{LockoutEnabled: true, LockoutEnd: &end}
	assert.True(t, u.IsLockedOut(now))
	assert.False(t, u.IsLockedOut(end.Add(time.Second)))

	u.LockoutEnabled = false
	assert.False(t, u.IsLockedOut(now))
}

func TestApplication_Permissions(t *testing.T) {
	app := &Application{
		ClientType:   types.ClientTypeConfidential,
		Permissions:  []string{"gt:password", "scp:profile"},
		RedirectURIs: []string{"https://app.example/cb"},
	}
	assert.True(t, app.HasPermission("gt:password"))
	assert.False(t, app.HasPermission("gt:client_credentials"))
	assert.True(t, app.IsConfidential())
	assert.True(t, app.HasRedirectURI("https://app.example/cb"))
	assert.False(t, app.HasRedirectURI("https://app.example/cb/"))
	assert.False(t, app.HasRedirectURI(""))
}
