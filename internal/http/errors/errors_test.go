package errors

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/hellojohn-oidc/internal/domain/oauth"
)

func TestWriteError_AppError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, ErrMissingFields.WithDetail("username"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "MISSING_FIELDS", body["code"])
	assert.Equal(t, "username", body["detail"])
	assert.Empty(t, ErrMissingFields.Detail, "base error must not be mutated")
}

func TestWriteError_GenericIs500(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, stderrors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "boom")
}

func TestWriteOAuthError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteOAuthError(rec, oauth.InvalidClient("bad secret"))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "invalid_client", body["error"])
	assert.Equal(t, "bad secret", body["error_description"])

	rec = httptest.NewRecorder()
	WriteOAuthError(rec, oauth.InvalidGrant(""))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, rec.Header().Get("WWW-Authenticate"))
}

func TestWriteOAuthErrorStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteOAuthErrorStatus(rec, oauth.InvalidClient("unknown client"), http.StatusBadRequest)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, rec.Header().Get("WWW-Authenticate"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.Contains(t, rec.Body.String(), "invalid_client")
}
