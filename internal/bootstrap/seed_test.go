package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/hellojohn-oidc/internal/domain/types"
	"github.com/dropDatabas3/hellojohn-oidc/internal/security/password"
	"github.com/dropDatabas3/hellojohn-oidc/internal/store/memory"
)

const seedYAML = `
scopes:
  - name: api
    display_name: API
    resources: [resource-server]
applications:
  - client_id: web
    display_name: Web App
    client_type: public
    consent_type: explicit
    redirect_uris: [https://app.example.test/callback]
    permissions: [ept:authorization, ept:token, gt:authorization_code, scp:api]
  - client_id: rs
    client_type: confidential
    consent_type: implicit
    client_secret: rs-secret
    permissions: [ept:introspection]
users:
  - username: alice
    email: alice@example.test
    password: Correct-Horse-1
    roles: [admin]
`

// params baratos para tests
var testParams = password.Params{Memory: 8 * 1024, Time: 1, Parallelism: 1, KeyLen: 32}

func TestApply_Idempotent(t *testing.T) {
	ctx := context.Background()
	p := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(p, []byte(seedYAML), 0o600))

	f, err := LoadSeedFile(p)
	require.NoError(t, err)

	st := memory.New()
	cfg := SeedConfig{
		Repos:  Repos{Applications: st.Applications(), Users: st.Users(), Scopes: st.Scopes()},
		Policy: password.DefaultPolicy,
		Params: testParams,
	}

	res, err := Apply(ctx, cfg, f)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Scopes)
	assert.Equal(t, 2, res.Applications)
	assert.Equal(t, 1, res.Users)
	assert.Zero(t, res.Skipped)

	web, err := st.Applications().GetByClientID(ctx, "web")
	require.NoError(t, err)
	assert.Equal(t, types.ConsentExplicit, web.ConsentType)
	assert.Empty(t, web.SecretHash)

	rs, err := st.Applications().GetByClientID(ctx, "rs")
	require.NoError(t, err)
	assert.True(t, password.Verify("rs-secret", rs.SecretHash))

	alice, err := st.Users().FindByLogin(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, password.Verify("Correct-Horse-1", alice.PasswordHash))
	assert.NotEmpty(t, alice.SecurityStamp)

	res, err = Apply(ctx, cfg, f)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Skipped)
	assert.Zero(t, res.Applications+res.Users)
}

func TestApply_Rejects(t *testing.T) {
	st := memory.New()
	cfg := SeedConfig{
		Repos:  Repos{Applications: st.Applications(), Users: st.Users(), Scopes: st.Scopes()},
		Policy: password.DefaultPolicy,
		Params: testParams,
	}
	cases := map[string]*SeedFile{
		"scope inválido":          {Scopes: []ScopeSeed{{Name: "Bad Scope"}}},
		"confidential sin secret": {Applications: []ApplicationSeed{{ClientID: "c", ClientType: types.ClientTypeConfidential}}},
		"public con secret":       {Applications: []ApplicationSeed{{ClientID: "p", ClientType: types.ClientTypePublic, ClientSecret: "x"}}},
		"client_type vacío":       {Applications: []ApplicationSeed{{ClientID: "x"}}},
		"password débil":          {Users: []UserSeed{{UserName: "bob", Password: "short"}}},
	}
	for name, f := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Apply(context.Background(), cfg, f)
			assert.Error(t, err)
		})
	}
}
