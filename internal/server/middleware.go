package server

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/splitit-app/splitit/internal/auth"
)

const userIDContextKey = "user_id"

// userID extracts the authenticated user ID from the request context.
// Empty when the route did not pass through requireAuth.
func userID(c echo.Context) string {
	id, _ := c.Get(userIDContextKey).(string)
	return id
}

// requireAuth validates the Bearer token and stores the user ID on the
// request context.
func (s *Server) requireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get("Authorization")
		if header == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, auth.ErrMissingToken.Error())
		}

		parts := strings.Split(header, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return echo.NewHTTPError(http.StatusUnauthorized, auth.ErrInvalidToken.Error())
		}

		claims, err := s.jwt.Validate(parts[1])
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, auth.ErrInvalidToken.Error())
		}

		c.Set(userIDContextKey, claims.UserID)
		return next(c)
	}
}

// requestLogging logs every request with its outcome and duration.
func requestLogging(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)

		attrs := []any{
			"method", c.Request().Method,
			"path", c.Request().URL.Path,
			"user_id", userID(c),
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if err != nil {
			slog.Warn("request failed", append(attrs, "error", err)...)
		} else {
			slog.Info("request ok", append(attrs, "status", c.Response().Status)...)
		}
		return err
	}
}
