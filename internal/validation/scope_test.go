package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidScopeName(t *testing.T) {
	valids := []string{"a", "ab", "profile", "profile:read", "email:read:e2e123", "a_b-c.d:scope2",
		"a" + strings.Repeat("a", 62) + "b"}
	for _, v := range valids {
		assert.True(t, ValidScopeName(v), v)
	}

	invalids := []string{"", ":lead", "trail:", "bad space", "UPPER", "semicolon;hack",
		strings.Repeat("a", 65)}
	for _, v := range invalids {
		assert.False(t, ValidScopeName(v), v)
	}
}

func TestParseScopeParam(t *testing.T) {
	got, ok := ParseScopeParam("  openid profile  openid email ")
	require.True(t, ok)
	assert.Equal(t, []string{"openid", "profile", "email"}, got)

	got, ok = ParseScopeParam("")
	require.True(t, ok)
	assert.Empty(t, got)

	_, ok = ParseScopeParam("openid BAD")
	assert.False(t, ok)
}

func TestNew_RegistersTags(t *testing.T) {
	type req struct {
		Scope string `validate:"scopelist"`
		Name  string `validate:"required,scopename"`
	}
	v := New()
	assert.NoError(t, v.Struct(req{Scope: "openid profile", Name: "api:read"}))
	assert.Error(t, v.Struct(req{Scope: "openid;drop", Name: "api"}))
	assert.Error(t, v.Struct(req{Name: "Api"}))
}
