package api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/projektkevin/smart-attendance/internal/api/httperrors"
)

// InitRouter creates the echo instance, installs middleware and the route
// groups. Handlers attach themselves via the Attach* functions in the
// handlers packages; see router wiring in cmd/server.
func InitRouter(s *Server) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler

	if s.Config.Echo.EnableRecoverMiddleware {
		e.Use(middleware.Recover())
	}
	if s.Config.Echo.EnableRequestIDMiddleware {
		e.Use(middleware.RequestID())
	}
	e.Use(requestLogger())

	s.Echo = e
	s.Router = &Router{
		Root:       e.Group(""),
		Management: e.Group("/-"),
		APIV1:      e.Group("/api/v1"),
	}

	s.Router.Management.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// requestLogger attaches a request-scoped zerolog logger to the request
// context so handlers can use util.LogFromContext.
func requestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := c.Response().Header().Get(echo.HeaderXRequestID)
			if id == "" {
				id = uuid.New().String()
			}

			logger := log.With().
				Str("request_id", id).
				Str("method", c.Request().Method).
				Str("path", c.Path()).
				Logger()

			req := c.Request()
			c.SetRequest(req.WithContext(logger.WithContext(req.Context())))

			return next(c)
		}
	}
}

func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	switch e := err.(type) {
	case *httperrors.HTTPError:
		_ = c.JSON(e.Code, e)
	case *echo.HTTPError:
		_ = c.JSON(e.Code, httperrors.NewHTTPError(e.Code, httperrors.TypeGeneric, http.StatusText(e.Code)))
	default:
		log.Error().Err(err).Msg("Unhandled error")
		_ = c.JSON(http.StatusInternalServerError,
			httperrors.NewHTTPError(http.StatusInternalServerError, httperrors.TypeGeneric, "Internal Server Error"))
	}
}
