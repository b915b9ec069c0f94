package auth

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

type contextKey string

// ClaimsContextKey is the echo context key the validated claims are stored
// under.
const ClaimsContextKey = string(contextKey("device_claims"))

// Middleware returns an echo middleware enforcing a valid bearer token with
// the given permission. A nil manager disables enforcement, for local
// development without tokens.
func Middleware(manager *JWTManager, permission string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if manager == nil {
				return next(c)
			}

			header := c.Request().Header.Get(echo.HeaderAuthorization)
			token, found := strings.CutPrefix(header, "Bearer ")
			if !found || token == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
			}

			claims, err := manager.Validate(token)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			if permission != "" && !claims.HasPermission(permission) {
				return echo.NewHTTPError(http.StatusForbidden, "missing permission")
			}

			c.Set(ClaimsContextKey, claims)
			return next(c)
		}
	}
}
