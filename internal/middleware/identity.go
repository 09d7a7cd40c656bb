package middleware

// identity.go exposes the authenticated user resolved by JWTAuth to
// handlers and to the other middleware in this package.

import (
    "strconv"

    "github.com/labstack/echo/v4"
)

// UserID returns the authenticated user's ID, or false when the request
// did not pass through JWTAuth.
func UserID(c echo.Context) (uint64, bool) {
    id, ok := c.Get(UserIDKey).(uint64)
    return id, ok && id != 0
}

// identityKey renders the user for cache and rate-limit keys; "anon" when
// unauthenticated.
func identityKey(c echo.Context) string {
    if id, ok := UserID(c); ok {
        return strconv.FormatUint(id, 10)
    }
    return "anon"
}
