package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
    "net/http" // HTTP status codes for responses
    "strings"  // string utilities for prefix checking and trimming

    "github.com/labstack/echo/v4" // Echo framework used for defining middleware and handlers

    "github.com/iliyamo/parking-lot/internal/utils"
)

// UserIDKey is the echo.Context key under which JWTAuth stores the
// authenticated user's ID as a uint64.
const UserIDKey = "user_id"

// JWTAuth returns an Echo middleware that validates a Bearer access token
// and stores the token's subject in the request context under UserIDKey.
// Requests without a valid token are rejected with 401 before any handler
// runs, so handlers behind it always see a resolved identity.
func JWTAuth(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            auth := c.Request().Header.Get("Authorization")
            if !strings.HasPrefix(auth, "Bearer ") {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
            }
            uid, err := utils.ParseAccessToken(secret, strings.TrimPrefix(auth, "Bearer "))
            if err != nil {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
            }
            c.Set(UserIDKey, uid)
            return next(c)
        }
    }
}
