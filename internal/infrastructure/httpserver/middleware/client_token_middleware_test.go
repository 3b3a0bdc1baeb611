package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casamapa/casamapa/internal/infrastructure/httpserver/helpers"
)

func resolveToken(t *testing.T, req *http.Request) (string, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var resolved string
	handler := NewClientTokenMiddleware().ResolveClientToken()(func(c echo.Context) error {
		var err error
		resolved, err = helpers.GetClientToken(c)
		return err
	})
	require.NoError(t, handler(c))
	return resolved, rec
}

func TestClientTokenFromHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("X-Client-Token", "tok-header")

	token, rec := resolveToken(t, req)
	assert.Equal(t, "tok-header", token)
	assert.Empty(t, rec.Result().Cookies(), "an existing token is not re-issued")
}

func TestClientTokenFromCookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.AddCookie(&http.Cookie{Name: "client_token", Value: "tok-cookie"})

	token, _ := resolveToken(t, req)
	assert.Equal(t, "tok-cookie", token)
}

func TestClientTokenHeaderWinsOverCookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("X-Client-Token", "tok-header")
	req.AddCookie(&http.Cookie{Name: "client_token", Value: "tok-cookie"})

	token, _ := resolveToken(t, req)
	assert.Equal(t, "tok-header", token)
}

func TestClientTokenIssuedWhenMissing(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", nil)

	token, rec := resolveToken(t, req)
	assert.NotEmpty(t, token)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "client_token", cookies[0].Name)
	assert.Equal(t, token, cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, 365*24*3600, cookies[0].MaxAge)
}
