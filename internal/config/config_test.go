package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	t.Setenv("HJ_JWT_ISSUER", "http://localhost:8080")

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "dev", c.App.Env)
	assert.Equal(t, ":8080", c.Server.Addr)
	assert.Equal(t, "memory", c.Storage.Driver)
	assert.Equal(t, "memory", c.Cache.Kind)
	assert.Equal(t, 15*time.Minute, c.JWT.AccessTTL)
	assert.Equal(t, 720*time.Hour, c.JWT.RefreshTTL)
	assert.Equal(t, "sid", c.Auth.Session.CookieName)
	assert.Equal(t, "Lax", c.Auth.Session.SameSite)
	assert.Equal(t, 5, c.Auth.Lockout.MaxFailedAttempts)
	assert.Equal(t, "/connect/login", c.Auth.LoginURL)
}

func TestLoad_YAMLAndEnvOverride(t *testing.T) {
	p := writeYAML(t, `
app:
  env: staging
server:
  addr: ":9000"
storage:
  driver: postgres
  dsn: postgres://localhost/hj
jwt:
  issuer: https://id.example.test
  access_ttl: 5m
auth:
  require_pkce: true
  grant_types: [authorization_code, refresh_token]
  session:
    ttl: 2h
`)
	t.Setenv("HJ_SERVER_ADDR", ":9100")
	t.Setenv("HJ_JWT_ACCESS_TTL", "10m")

	c, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "staging", c.App.Env)
	assert.Equal(t, ":9100", c.Server.Addr)
	assert.Equal(t, "postgres", c.Storage.Driver)
	assert.Equal(t, 10*time.Minute, c.JWT.AccessTTL)
	assert.Equal(t, 2*time.Hour, c.Auth.Session.TTL)
	assert.True(t, c.Auth.RequirePKCE)
	assert.Equal(t, []string{"authorization_code", "refresh_token"}, c.Auth.GrantTypes)
}

func TestLoad_ValidationErrors(t *testing.T) {
	cases := map[string]struct {
		yaml string
		env  map[string]string
	}{
		"missing issuer":    {yaml: "server: {addr: ':1'}\n"},
		"postgres sin dsn":  {yaml: "jwt: {issuer: 'https://x.test'}\nstorage: {driver: postgres}\n"},
		"driver inválido":   {yaml: "jwt: {issuer: 'https://x.test'}\nstorage: {driver: sqlite}\n"},
		"redis sin addr":    {yaml: "jwt: {issuer: 'https://x.test'}\ncache: {kind: redis}\n"},
		"samesite none":     {yaml: "jwt: {issuer: 'https://x.test'}\nauth: {session: {samesite: None}}\n"},
		"grant desconocido": {yaml: "jwt: {issuer: 'https://x.test'}\nauth: {grant_types: [implicit]}\n"},
		"prod sin key_file": {yaml: "app: {env: prod}\njwt: {issuer: 'https://x.test'}\n"},
		"env mal formado": {
			yaml: "jwt: {issuer: 'https://x.test'}\n",
			env:  map[string]string{"HJ_JWT_ACCESS_TTL": "soon"},
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load(writeYAML(t, tc.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("HJ_JWT_ISSUER=https://dotenv.example.test\n"), 0o600))
	t.Setenv("HJ_JWT_ISSUER", "")
	require.NoError(t, os.Unsetenv("HJ_JWT_ISSUER"))

	LoadDotEnv(dir)
	t.Cleanup(func() { _ = os.Unsetenv("HJ_JWT_ISSUER") })

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "https://dotenv.example.test", c.JWT.Issuer)
}
