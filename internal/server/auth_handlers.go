package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/splitit-app/splitit/internal/auth"
)

type registerRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token       string `json:"token"`
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
}

func (s *Server) handleRegister(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "request body must be JSON")
	}
	if req.Email == "" || req.DisplayName == "" {
		return badRequest(c, "email and display_name are required")
	}

	user, err := s.authn.Register(c.Request().Context(), req.Email, req.DisplayName, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrWeakPassword) || errors.Is(err, auth.ErrEmailExists) {
			return badRequest(c, err.Error())
		}
		slog.Error("register failed", "email", req.Email, "error", err)
		return jsonError(c, err)
	}

	token, err := s.jwt.Generate(user)
	if err != nil {
		slog.Error("token generation failed", "user_id", user.ID, "error", err)
		return jsonError(c, err)
	}

	slog.Info("user registered", "user_id", user.ID)
	return c.JSON(http.StatusCreated, authResponse{Token: token, UserID: user.ID, DisplayName: user.DisplayName})
}

func (s *Server) handleLogin(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "request body must be JSON")
	}

	user, err := s.authn.Authenticate(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, auth.ErrInvalidCredentials.Error())
	}

	token, err := s.jwt.Generate(user)
	if err != nil {
		slog.Error("token generation failed", "user_id", user.ID, "error", err)
		return jsonError(c, err)
	}

	return c.JSON(http.StatusOK, authResponse{Token: token, UserID: user.ID, DisplayName: user.DisplayName})
}
