package attendance

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/projektkevin/smart-attendance/internal/api"
	"github.com/projektkevin/smart-attendance/internal/api/httperrors"
	"github.com/projektkevin/smart-attendance/internal/auth"
	"github.com/projektkevin/smart-attendance/internal/engine"
	"github.com/projektkevin/smart-attendance/internal/models"
	"github.com/projektkevin/smart-attendance/internal/util"
)

// PostDetectionPayload is one recognition or manual marking event from a
// camera agent or the operator console.
type PostDetectionPayload struct {
	StudentID  string    `json:"student_id"`
	SessionID  string    `json:"session_id"`
	Confidence float64   `json:"confidence"`
	ObservedAt time.Time `json:"observed_at,omitempty"`
	Source     string    `json:"source,omitempty"`
}

type PostDetectionResponse struct {
	Status string `json:"status"`
}

func PostDetectionRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1.POST("/detections", postDetectionHandler(s),
		auth.Middleware(s.JWT, auth.PermissionDetectionsWrite))
}

func postDetectionHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		log := util.LogFromContext(ctx)

		var body PostDetectionPayload
		if err := c.Bind(&body); err != nil {
			return httperrors.NewHTTPError(http.StatusBadRequest, httperrors.TypeValidation, "invalid body")
		}
		if body.StudentID == "" || body.SessionID == "" {
			return httperrors.NewHTTPError(http.StatusBadRequest, httperrors.TypeValidation, "student_id and session_id are required")
		}
		if body.Confidence < 0 || body.Confidence > 1 {
			return httperrors.NewHTTPError(http.StatusBadRequest, httperrors.TypeValidation, "confidence must be within [0, 1]")
		}

		source := models.MarkMethodAuto
		if body.Source != "" {
			switch models.MarkMethod(body.Source) {
			case models.MarkMethodAuto, models.MarkMethodManual:
				source = models.MarkMethod(body.Source)
			default:
				return httperrors.NewHTTPError(http.StatusBadRequest, httperrors.TypeValidation, "source must be auto or manual")
			}
		}

		event := engine.DetectionEvent{
			StudentID:  body.StudentID,
			SessionID:  body.SessionID,
			Confidence: body.Confidence,
			ObservedAt: body.ObservedAt,
			Source:     source,
		}

		if err := s.Engine.HandleDetectionEvent(ctx, event); err != nil {
			// The engine already emitted a not-marked notification; the
			// caller only needs to know the event was consumed.
			log.Warn().Err(err).
				Str("student_id", body.StudentID).
				Str("session_id", body.SessionID).
				Msg("Detection event failed")
		}

		return c.JSON(http.StatusAccepted, &PostDetectionResponse{Status: "accepted"})
	}
}
