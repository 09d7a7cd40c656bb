package handler // handler defines http handlers

import (
    "errors"   // errors.Is against repository sentinels
    "net/http" // HTTP status codes

    "github.com/labstack/echo/v4" // echo defines request context types

    "github.com/iliyamo/parking-lot/internal/model"      // vehicle catalogue
    "github.com/iliyamo/parking-lot/internal/repository" // storage sentinels
)

// storageError logs err and writes a 500.  Storage that stayed unusable
// after its repair attempt is reported as storage_unavailable; anything
// else uses msg.
func storageError(c echo.Context, err error, msg string) error {
    c.Logger().Errorf("%s %s: %s: %v", c.Request().Method, c.Path(), msg, err)
    if errors.Is(err, repository.ErrStorageUnavailable) {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "storage_unavailable"})
    }
    return c.JSON(http.StatusInternalServerError, echo.Map{"error": msg})
}

// Vehicles lists the vehicle symbols a user can select.  The response is
// identical for every caller, which makes it safe to cache.
func Vehicles(c echo.Context) error {
    return c.JSON(http.StatusOK, echo.Map{"items": model.Vehicles, "default": model.DefaultVehicle})
}
