package handler

import (
    "bytes"
    "context"
    "encoding/json"
    "errors"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/parking-lot/internal/grid"
    "github.com/iliyamo/parking-lot/internal/mailbox"
    "github.com/iliyamo/parking-lot/internal/metrics"
    "github.com/iliyamo/parking-lot/internal/middleware"
    "github.com/iliyamo/parking-lot/internal/model"
    "github.com/iliyamo/parking-lot/internal/repository"
)

// publishTimeout bounds a towing event publish after the response is sent.
const publishTimeout = 5 * time.Second

// TowPublisher forwards committed tows to downstream consumers.
type TowPublisher interface {
    PublishTowed(ctx context.Context, tow grid.TowEvent) error
}

// GridHandler serves the shared parking grid.  Every route assumes JWTAuth
// has resolved the caller.
type GridHandler struct {
    Engine  *grid.Engine
    Mailbox *mailbox.Mailbox
    Users   *repository.UserRepo
    Events  TowPublisher // optional
}

// NewGridHandler constructs a GridHandler.  events may be nil.
func NewGridHandler(e *grid.Engine, m *mailbox.Mailbox, u *repository.UserRepo, events TowPublisher) *GridHandler {
    if e == nil || m == nil || u == nil {
        panic("nil dependency passed to NewGridHandler")
    }
    return &GridHandler{Engine: e, Mailbox: m, Users: u, Events: events}
}

type gridResp struct {
    Size  int            `json:"size"`
    Cells model.Snapshot `json:"cells"`
    Logs  []string       `json:"logs"`
}

type toggleReq struct {
    Index json.RawMessage `json:"index"`
}

type toggleResp struct {
    Index int            `json:"index"`
    Cell  model.GridCell `json:"cell"`
}

// GetGrid handles GET /v1/grid.  It returns every cell plus the caller's
// pending notifications, which are removed by this read.  If the mailbox
// cannot be drained the grid is still returned and the messages stay
// pending for the next read.
func (h *GridHandler) GetGrid(c echo.Context) error {
    uid, ok := middleware.UserID(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
    defer cancel()

    cells, err := h.Engine.Read(ctx)
    if err != nil {
        return storageError(c, err, "read grid failed")
    }
    logs, err := h.Mailbox.Drain(ctx, uid)
    if err != nil {
        c.Logger().Warnf("grid: drain mailbox of user %d: %v", uid, err)
        logs = []string{}
    }
    return c.JSON(http.StatusOK, gridResp{Size: h.Engine.Size(), Cells: cells, Logs: logs})
}

// Toggle handles POST /v1/grid/toggle with {"index": n}.  An empty cell
// is claimed with the caller's current vehicle; an occupied cell is
// vacated whoever holds it.
func (h *GridHandler) Toggle(c echo.Context) error {
    uid, ok := middleware.UserID(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var req toggleReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_index"})
    }
    index, ok := parseIndex(req.Index)
    if !ok || index < 0 || index >= h.Engine.CellCount() {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_index"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
    defer cancel()

    u, err := h.Users.GetByID(ctx, uid)
    if errors.Is(err, repository.ErrUserNotFound) {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    if err != nil {
        return storageError(c, err, "load user failed")
    }
    if u.Vehicle == "" {
        u.Vehicle = model.DefaultVehicle
    }

    cell, tow, err := h.Engine.Toggle(ctx, index, grid.Actor{ID: u.ID, Username: u.Username, Vehicle: u.Vehicle})
    if errors.Is(err, grid.ErrInvalidIndex) {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_index"})
    }
    if err != nil {
        return storageError(c, err, "toggle failed")
    }
    if tow != nil {
        h.publish(c, *tow)
    }
    return c.JSON(http.StatusOK, toggleResp{Index: index, Cell: cell})
}

// publish sends the tow to the broker in the background.  Failures are
// logged and counted; the toggle has already committed.
func (h *GridHandler) publish(c echo.Context, tow grid.TowEvent) {
    if h.Events == nil {
        return
    }
    logger := c.Logger()
    go func() {
        ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
        defer cancel()
        if err := h.Events.PublishTowed(ctx, tow); err != nil {
            metrics.EventPublishFailures.Inc()
            logger.Warnf("grid: publish tow of cell %d: %v", tow.Index, err)
        }
    }()
}

// parseIndex accepts only a JSON integer.  Strings, floats, booleans,
// null and a missing field are rejected.
func parseIndex(raw json.RawMessage) (int, bool) {
    raw = bytes.TrimSpace(raw)
    if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
        return 0, false
    }
    var n int
    if err := json.Unmarshal(raw, &n); err != nil {
        return 0, false
    }
    return n, true
}
