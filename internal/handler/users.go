package handler

import (
    "context"
    "errors"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/parking-lot/internal/config"
    "github.com/iliyamo/parking-lot/internal/model"
    "github.com/iliyamo/parking-lot/internal/repository"
)

// UsersHandler serves the user directory.
type UsersHandler struct {
    Cfg   config.Config
    Users *repository.UserRepo
}

// NewUsersHandler constructs a UsersHandler.
func NewUsersHandler(cfg config.Config, u *repository.UserRepo) *UsersHandler {
    if u == nil {
        panic("nil repository passed to NewUsersHandler")
    }
    return &UsersHandler{Cfg: cfg, Users: u}
}

// PublicUser is the directory view of a user; credentials never leave
// the repository layer.
type PublicUser struct {
    ID        uint64    `json:"id"`
    Username  string    `json:"username"`
    Vehicle   string    `json:"vehicle"`
    CreatedAt time.Time `json:"created_at"`
}

func toPublicUser(u model.User) PublicUser {
    return PublicUser{ID: u.ID, Username: u.Username, Vehicle: u.Vehicle, CreatedAt: u.CreatedAt}
}

// queryInt parses an integer query parameter, returning def when it is
// absent or malformed.
func queryInt(c echo.Context, name string, def int) int {
    if n, err := strconv.Atoi(c.QueryParam(name)); err == nil {
        return n
    }
    return def
}

// ListUsers handles GET /v1/users?limit=&offset=.  limit is clamped to
// [1, 200] (default 50) and offset to >= 0.
func (h *UsersHandler) ListUsers(c echo.Context) error {
    limit := min(max(queryInt(c, "limit", 50), 1), 200)
    offset := max(queryInt(c, "offset", 0), 0)

    ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
    defer cancel()

    users, err := h.Users.List(ctx, limit, offset)
    if err != nil {
        return storageError(c, err, "list users failed")
    }
    out := make([]PublicUser, 0, len(users))
    for _, u := range users {
        out = append(out, toPublicUser(u))
    }
    return c.JSON(http.StatusOK, echo.Map{"data": out})
}

// CreateUser handles POST /v1/users with {username, password}.
func (h *UsersHandler) CreateUser(c echo.Context) error {
    var req credentialsReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation_error"})
    }
    details := map[string]string{}
    if req.Username == "" {
        details["username"] = "required"
    }
    if req.Password == "" {
        details["password"] = "required"
    }
    if len(details) > 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation_error", "details": details})
    }
    if strings.TrimSpace(req.Username) == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_username"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
    defer cancel()

    u, err := h.Users.Create(ctx, req.Username, req.Password, h.Cfg.BcryptCost)
    if errors.Is(err, repository.ErrUsernameExists) {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "username_already_exists"})
    }
    if err != nil {
        return storageError(c, err, "create user failed")
    }
    return c.JSON(http.StatusCreated, echo.Map{"data": toPublicUser(u)})
}
