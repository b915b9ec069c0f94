package health

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/projektkevin/smart-attendance/internal/api"
)

func GetHealthyRoute(s *api.Server) *echo.Route {
	return s.Router.Management.GET("/healthy", getHealthyHandler(s))
}

func getHealthyHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := s.DB.PingContext(c.Request().Context()); err != nil {
			return c.String(http.StatusServiceUnavailable, "unhealthy: database unreachable")
		}

		return c.String(http.StatusOK, "ready")
	}
}
