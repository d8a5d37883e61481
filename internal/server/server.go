// Package server exposes the SplitIt HTTP API: authentication, receipt and
// participant management, split computation, and ledger operations.
package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/splitit-app/splitit/internal/auth"
	"github.com/splitit-app/splitit/internal/ledger"
	"github.com/splitit-app/splitit/internal/splitter"
	"github.com/splitit-app/splitit/internal/storage"
)

// Server wires the storage, auth, and split policy behind the HTTP routes.
type Server struct {
	store  storage.Store
	authn  auth.Authenticator
	jwt    *auth.JWTManager
	policy splitter.Policy
}

// New creates a Server. policy selects the remainder distribution rule used
// for every split this server performs; it must not vary per request.
func New(store storage.Store, authn auth.Authenticator, jwt *auth.JWTManager, policy splitter.Policy) *Server {
	if policy == "" {
		policy = splitter.PolicyLowestTotal
	}
	return &Server{store: store, authn: authn, jwt: jwt, policy: policy}
}

// Handler builds the echo engine with all routes and middleware registered.
func (s *Server) Handler() http.Handler {
	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(requestLogging)
	e.Use(metricsMiddleware)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api")
	api.GET("/health", s.handleHealth)
	api.POST("/auth/register", s.handleRegister)
	api.POST("/auth/login", s.handleLogin)
	// Calculation is a pure function over the request body; the original
	// exposes it without authentication and so do we.
	api.POST("/calculate", s.handleCalculate)

	authed := api.Group("", s.requireAuth)
	authed.POST("/participants", s.handleCreateParticipant)
	authed.GET("/participants", s.handleListParticipants)
	authed.GET("/participants/:id/outstanding", s.handleOutstanding)
	authed.POST("/receipts", s.handleCreateReceipt)
	authed.GET("/receipts/:id", s.handleGetReceipt)
	authed.PUT("/receipts/:id/items", s.handleReplaceItems)
	authed.POST("/receipts/:id/split", s.handleSplitReceipt)
	authed.GET("/receipts/:id/summary", s.handleSummary)
	authed.POST("/settlements", s.handleCreateSettlement)

	return e
}

// errorBody matches the original API's error envelope.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// jsonError maps ledger taxonomy errors onto HTTP statuses. Validation
// errors carry enough detail (which item, which participant) for the caller
// to correct the input.
func jsonError(c echo.Context, err error) error {
	var verr *ledger.ValidationError
	switch {
	case errors.As(err, &verr):
		return c.JSON(http.StatusBadRequest, errorBody{errorDetail{"validation_failed", verr.Error()}})
	case errors.Is(err, ledger.ErrNotFound):
		return c.JSON(http.StatusNotFound, errorBody{errorDetail{"not_found", err.Error()}})
	case errors.Is(err, ledger.ErrConflict):
		return c.JSON(http.StatusConflict, errorBody{errorDetail{"conflict", err.Error()}})
	default:
		return c.JSON(http.StatusInternalServerError, errorBody{errorDetail{"internal", "internal error"}})
	}
}

func badRequest(c echo.Context, message string) error {
	return c.JSON(http.StatusBadRequest, errorBody{errorDetail{"bad_request", message}})
}
