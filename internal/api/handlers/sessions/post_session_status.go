package sessions

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/projektkevin/smart-attendance/internal/api"
	"github.com/projektkevin/smart-attendance/internal/api/httperrors"
	"github.com/projektkevin/smart-attendance/internal/auth"
	"github.com/projektkevin/smart-attendance/internal/models"
	"github.com/projektkevin/smart-attendance/internal/storage"
	"github.com/projektkevin/smart-attendance/internal/util"
)

type PostSessionStatusPayload struct {
	Status string `json:"status"`
}

type PostSessionStatusResponse struct {
	Session *models.Session `json:"session"`
}

// PostSessionStatusRoute is the manual open/close path. It enforces the
// same one-open invariant as the rule chain.
func PostSessionStatusRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1.POST("/sessions/:id/status", postSessionStatusHandler(s),
		auth.Middleware(s.JWT, auth.PermissionSessionsWrite))
}

func postSessionStatusHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		log := util.LogFromContext(ctx)

		var body PostSessionStatusPayload
		if err := c.Bind(&body); err != nil {
			return httperrors.NewHTTPError(http.StatusBadRequest, httperrors.TypeValidation, "invalid body")
		}

		next := models.SessionStatus(body.Status)
		if next != models.SessionStatusOpen && next != models.SessionStatusClosed {
			return httperrors.NewHTTPError(http.StatusBadRequest, httperrors.TypeValidation, "status must be open or closed")
		}

		session, err := s.Sessions.GetSession(ctx, c.Param("id"))
		if err == storage.ErrNotFound {
			return httperrors.NewHTTPError(http.StatusNotFound, httperrors.TypeNotFound, "session not found")
		}
		if err != nil {
			return err
		}

		if !models.CanTransitionSession(session.Status, next) {
			return httperrors.NewHTTPError(http.StatusConflict, httperrors.TypeConflict, "illegal session transition")
		}

		if next == models.SessionStatusOpen {
			open, err := s.Sessions.OpenSessionExists(ctx)
			if err != nil {
				return err
			}
			if open {
				return httperrors.NewHTTPError(http.StatusConflict, httperrors.TypeConflict, "another session is already open")
			}
		}

		if err := s.Sessions.UpdateSessionStatus(ctx, session.ID, next); err != nil {
			log.Error().Err(err).Str("session_id", session.ID).Msg("Failed to update session status")
			return err
		}

		session.Status = next
		return c.JSON(http.StatusOK, &PostSessionStatusResponse{Session: session})
	}
}
