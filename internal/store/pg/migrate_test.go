package pg

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrator_ParseEmbedded(t *testing.T) {
	migs, err := newMigrator().parse()
	require.NoError(t, err)
	require.NotEmpty(t, migs)
	assert.Equal(t, 1, migs[0].Version)
	assert.Equal(t, "init", migs[0].Name)
	assert.Contains(t, migs[0].SQL, "CREATE TABLE IF NOT EXISTS oidc_token")
}

func TestMigrator_ParseOrdersAndSkips(t *testing.T) {
	m := &migrator{dir: "m", fsys: fstest.MapFS{
		"m/0010_tokens.sql": {Data: []byte("B")},
		"m/0002_users.sql":  {Data: []byte("A")},
		"m/README.md":       {Data: []byte("ignored")},
	}}
	migs, err := m.parse()
	require.NoError(t, err)
	require.Len(t, migs, 2)
	assert.Equal(t, 2, migs[0].Version)
	assert.Equal(t, 10, migs[1].Version)
	assert.Equal(t, "tokens", migs[1].Name)
}
