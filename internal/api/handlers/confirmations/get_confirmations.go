package confirmations

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/projektkevin/smart-attendance/internal/api"
	"github.com/projektkevin/smart-attendance/internal/auth"
	"github.com/projektkevin/smart-attendance/internal/engine"
)

type GetConfirmationsResponse struct {
	Confirmations []engine.PendingConfirmation `json:"confirmations"`
}

func GetConfirmationsRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1.GET("/confirmations", getConfirmationsHandler(s),
		auth.Middleware(s.JWT, auth.PermissionConfirmationsWrite))
}

func getConfirmationsHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, &GetConfirmationsResponse{
			Confirmations: s.Broker.Pending(),
		})
	}
}
