package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOAuthConfigExposesClientID(t *testing.T) {
	h := NewAuthHandler(nil, "client-123.apps.googleusercontent.com")

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/oauth-config", nil)
	rec := httptest.NewRecorder()
	require.NoError(t, h.OAuthConfig(e.NewContext(req, rec)))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "client-123.apps.googleusercontent.com")
}
