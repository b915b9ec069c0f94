package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/projektkevin/smart-attendance/internal/api"
	"github.com/projektkevin/smart-attendance/internal/api/handlers/attendance"
	"github.com/projektkevin/smart-attendance/internal/api/handlers/confirmations"
	"github.com/projektkevin/smart-attendance/internal/api/handlers/health"
	"github.com/projektkevin/smart-attendance/internal/api/handlers/sessions"
)

// AttachAllRoutes registers every handler on the server's route groups.
func AttachAllRoutes(s *api.Server) {
	s.Router.Routes = []*echo.Route{
		attendance.PostDetectionRoute(s),
		confirmations.GetConfirmationsRoute(s),
		confirmations.PostConfirmationRoute(s),
		sessions.GetSessionsRoute(s),
		sessions.PostSessionStatusRoute(s),
		health.GetHealthyRoute(s),
	}
}
