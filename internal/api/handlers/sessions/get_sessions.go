package sessions

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/projektkevin/smart-attendance/internal/api"
	"github.com/projektkevin/smart-attendance/internal/models"
	"github.com/projektkevin/smart-attendance/internal/util"
)

type GetSessionsResponse struct {
	Sessions []*models.Session `json:"sessions"`
}

func GetSessionsRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1.GET("/sessions", getSessionsHandler(s))
}

func getSessionsHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		log := util.LogFromContext(ctx)

		sessions, err := s.Sessions.ListSessions(ctx)
		if err != nil {
			log.Error().Err(err).Msg("Failed to list sessions")
			return err
		}

		return c.JSON(http.StatusOK, &GetSessionsResponse{Sessions: sessions})
	}
}
