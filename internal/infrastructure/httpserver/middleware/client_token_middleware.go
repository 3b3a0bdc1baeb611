package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/casamapa/casamapa/internal/infrastructure/httpserver/helpers"
)

const (
	clientTokenCookie = "client_token"
	clientTokenHeader = "X-Client-Token"
	clientTokenMaxAge = 365 * 24 * time.Hour
)

// ClientTokenMiddleware assigns and propagates the opaque identity token
// the rate limiter keys on. The token is not authentication: a client that
// discards it simply starts over with fresh quotas, which is the accepted
// trust model.
type ClientTokenMiddleware struct{}

func NewClientTokenMiddleware() *ClientTokenMiddleware {
	return &ClientTokenMiddleware{}
}

func (m *ClientTokenMiddleware) ResolveClientToken() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := c.Request().Header.Get(clientTokenHeader)
			if token == "" {
				if cookie, err := c.Cookie(clientTokenCookie); err == nil {
					token = cookie.Value
				}
			}
			if token == "" {
				token = uuid.NewString()
				c.SetCookie(&http.Cookie{
					Name:     clientTokenCookie,
					Value:    token,
					Path:     "/",
					MaxAge:   int(clientTokenMaxAge.Seconds()),
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				})
			}
			helpers.SetClientToken(c, token)
			return next(c)
		}
	}
}
