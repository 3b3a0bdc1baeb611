package helpers

import (
	"fmt"

	"github.com/labstack/echo/v4"
)

const clientTokenContextKey = "client_token"

// SetClientToken stores the resolved opaque identity token on the request
// context for downstream handlers.
func SetClientToken(c echo.Context, token string) {
	c.Set(clientTokenContextKey, token)
}

// GetClientToken returns the opaque identity token resolved by the client
// token middleware.
func GetClientToken(c echo.Context) (string, error) {
	token, ok := c.Get(clientTokenContextKey).(string)
	if !ok || token == "" {
		return "", fmt.Errorf("client token not found in context")
	}
	return token, nil
}
