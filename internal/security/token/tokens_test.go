package tokens

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateOpaqueToken(t *testing.T) {
	a, err := GenerateOpaqueToken(32)
	require.NoError(t, err)
	b, err := GenerateOpaqueToken(32)
	require.NoError(t, err)

	assert.Len(t, a, 43)
	assert.NotEqual(t, a, b)
}

func TestVerifyPKCE(t *testing.T) {
	// RFC 7636 Appendix B
	verifier := "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
	challenge := "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM"

	assert.True(t, VerifyPKCE(verifier, challenge, "S256"))
	assert.False(t, VerifyPKCE("other", challenge, "S256"))
	assert.True(t, VerifyPKCE("abc", "abc", "plain"))
	assert.True(t, VerifyPKCE("abc", "abc", ""))
	assert.False(t, VerifyPKCE("abc", "abc", "S512"))
	assert.False(t, VerifyPKCE("", "", "plain"))
}
