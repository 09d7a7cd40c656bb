package router // package router defines how HTTP routes are registered for the API

import (
	"database/sql"

	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iliyamo/parking-lot/internal/handler"    // import the handlers that implement business logic
	"github.com/iliyamo/parking-lot/internal/middleware" // JWT identity gate
)

// RegisterRoutes registers routes that do not require authentication:
// the health check, the Prometheus scrape endpoint and the vehicle
// catalogue.  cache wraps only the catalogue, whose response is the same
// for every caller.
func RegisterRoutes(e *echo.Echo, db *sql.DB, cache echo.MiddlewareFunc) {
	e.GET("/healthz", handler.Health(db))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/v1/vehicles", handler.Vehicles, cache)
}

// RegisterAuth registers authentication and profile routes.  Login,
// refresh and logout live under /v1/auth and need no access token; the
// profile endpoints under /v1/me require one.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	// Login registers unknown usernames on the fly.
	g.POST("/login", a.Login)
	// Rotates the refresh token.
	g.POST("/refresh", a.Refresh)
	// Accepts a refresh token in the body, or a bearer to revoke every session.
	g.POST("/logout", a.Logout)

	me := e.Group("/v1/me", middleware.JWTAuth(jwtSecret))
	me.GET("", a.Me)
	me.POST("/vehicle", a.UpdateVehicle)
}

// RegisterUsers registers the user directory under /v1/users.
func RegisterUsers(e *echo.Echo, u *handler.UsersHandler, jwtSecret string) {
	g := e.Group("/v1/users", middleware.JWTAuth(jwtSecret))
	g.GET("", u.ListUsers)
	g.POST("", u.CreateUser)
}

// RegisterGrid registers the shared grid under /v1/grid.  limiter applies
// to toggles only; reads drain the caller's mailbox and must stay
// uncached and unthrottled.
func RegisterGrid(e *echo.Echo, h *handler.GridHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
	g := e.Group("/v1/grid", middleware.JWTAuth(jwtSecret))
	g.GET("", h.GetGrid)
	g.POST("/toggle", h.Toggle, limiter)
}
