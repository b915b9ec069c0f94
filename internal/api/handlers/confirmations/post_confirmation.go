package confirmations

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/projektkevin/smart-attendance/internal/api"
	"github.com/projektkevin/smart-attendance/internal/api/httperrors"
	"github.com/projektkevin/smart-attendance/internal/auth"
	"github.com/projektkevin/smart-attendance/internal/engine"
)

type PostConfirmationPayload struct {
	Confirmed *bool `json:"confirmed"`
}

type PostConfirmationResponse struct {
	Status string `json:"status"`
}

func PostConfirmationRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1.POST("/confirmations/:id", postConfirmationHandler(s),
		auth.Middleware(s.JWT, auth.PermissionConfirmationsWrite))
}

func postConfirmationHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		var body PostConfirmationPayload
		if err := c.Bind(&body); err != nil {
			return httperrors.NewHTTPError(http.StatusBadRequest, httperrors.TypeValidation, "invalid body")
		}
		if body.Confirmed == nil {
			return httperrors.NewHTTPError(http.StatusBadRequest, httperrors.TypeValidation, "confirmed is required")
		}

		err := s.Broker.Resolve(c.Param("id"), *body.Confirmed)
		if errors.Is(err, engine.ErrConfirmationNotFound) {
			return httperrors.NewHTTPError(http.StatusNotFound, httperrors.TypeNotFound, "confirmation request not found")
		}
		if err != nil {
			return err
		}

		return c.JSON(http.StatusOK, &PostConfirmationResponse{Status: "resolved"})
	}
}
