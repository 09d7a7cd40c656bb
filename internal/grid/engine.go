// Package grid owns the shared parking grid: a fixed-size square of cells
// that any authenticated user may claim or vacate.  All mutations go
// through Engine, which serializes the read-modify-write of the persisted
// snapshot and hands towing messages to the mailbox once a release
// commits.
package grid

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/parking-lot/internal/metrics"
	"github.com/iliyamo/parking-lot/internal/model"
)

// ErrInvalidIndex is returned by Toggle for an index outside the grid.
// Handlers should translate this into an HTTP 400 response.
var ErrInvalidIndex = errors.New("invalid index")

// deliveryTimeout bounds the mailbox write that follows a committed tow.
const deliveryTimeout = 5 * time.Second

// Store persists the snapshot.  UpdateSnapshot must run fn and the write
// of its result as one atomic unit against concurrent callers, including
// callers in other processes.
type Store interface {
	UpdateSnapshot(ctx context.Context, fn func(model.Snapshot) (model.Snapshot, bool, error)) (model.Snapshot, error)
}

// Notifier receives towing messages.  Enqueue is best-effort and does not
// report failure.
type Notifier interface {
	Enqueue(ctx context.Context, recipientID uint64, text string)
}

// Actor is the authenticated user performing a toggle.
type Actor struct {
	ID       uint64
	Username string
	Vehicle  string
}

// TowEvent describes a release of a cell that belonged to someone else.
type TowEvent struct {
	Index       int
	RecipientID uint64
	Vehicle     string
	Actor       Actor
	Text        string
	At          time.Time
}

// TowMessage renders the text delivered to the owner of a towed vehicle.
func TowMessage(actorName, vehicle string) string {
	return fmt.Sprintf("%s towed your %s from its spot!", actorName, vehicle)
}

// Engine applies toggles to the shared grid.
type Engine struct {
	size   int
	store  Store
	notify Notifier
	logger echo.Logger

	// mu keeps toggles from this process off the database row lock; the
	// store's transaction provides the same guarantee across processes.
	mu sync.Mutex
}

// NewEngine returns an Engine for a size×size grid.  notify may be nil, in
// which case towing messages are only returned to the caller.
func NewEngine(size int, store Store, notify Notifier, logger echo.Logger) *Engine {
	if store == nil || logger == nil {
		panic("nil dependency passed to grid.NewEngine")
	}
	if size < 1 {
		size = 1
	}
	return &Engine{size: size, store: store, notify: notify, logger: logger}
}

// Size returns the side length of the grid.
func (e *Engine) Size() int { return e.size }

// CellCount returns the number of addressable cells.
func (e *Engine) CellCount() int { return e.size * e.size }

// Read returns the current snapshot at the configured length.  A stored
// snapshot of the wrong length is repaired and written back before it is
// returned.
func (e *Engine) Read(ctx context.Context) (model.Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	cells, err := e.store.UpdateSnapshot(ctx, func(cells model.Snapshot) (model.Snapshot, bool, error) {
		fixed, changed := e.repair(cells)
		return fixed, changed, nil
	})
	if err != nil {
		return nil, fmt.Errorf("read grid: %w", err)
	}
	return cells, nil
}

// Toggle claims the cell at index for actor when it is empty and vacates
// it when it is occupied, whoever the occupant is.  Vacating another
// user's cell returns a TowEvent and delivers its text to the owner's
// mailbox after the change is committed.  Vacating one's own cell is
// silent.
func (e *Engine) Toggle(ctx context.Context, index int, actor Actor) (model.GridCell, *TowEvent, error) {
	if index < 0 || index >= e.CellCount() {
		return model.GridCell{}, nil, ErrInvalidIndex
	}

	var (
		result model.GridCell
		tow    *TowEvent
	)
	e.mu.Lock()
	_, err := e.store.UpdateSnapshot(ctx, func(cells model.Snapshot) (model.Snapshot, bool, error) {
		fixed, _ := e.repair(cells)
		next := append(model.Snapshot(nil), fixed...)
		result, tow = apply(next, index, actor)
		return next, true, nil
	})
	e.mu.Unlock()
	if err != nil {
		return model.GridCell{}, nil, fmt.Errorf("toggle cell %d: %w", index, err)
	}

	switch {
	case tow != nil:
		metrics.Toggles.WithLabelValues(metrics.OutcomeTow).Inc()
		e.logger.Infof("grid: user %d towed user %d from cell %d", actor.ID, tow.RecipientID, index)
		e.deliver(ctx, tow)
	case result.IsEmpty():
		metrics.Toggles.WithLabelValues(metrics.OutcomeRelease).Inc()
	default:
		metrics.Toggles.WithLabelValues(metrics.OutcomeClaim).Inc()
	}
	return result, tow, nil
}

// apply mutates cells[index] and reports the new cell and any tow.
func apply(cells model.Snapshot, index int, actor Actor) (model.GridCell, *TowEvent) {
	occ, occupied := cells[index].Occupant()
	if !occupied {
		cells[index] = model.OccupiedCell(actor.ID, actor.Vehicle)
		return cells[index], nil
	}
	cells[index] = model.EmptyCell()
	if occ.UserID == actor.ID {
		return cells[index], nil
	}
	return cells[index], &TowEvent{
		Index:       index,
		RecipientID: occ.UserID,
		Vehicle:     occ.Vehicle,
		Actor:       actor,
		Text:        TowMessage(actor.Username, occ.Vehicle),
		At:          time.Now().UTC(),
	}
}

func (e *Engine) repair(cells model.Snapshot) (model.Snapshot, bool) {
	fixed, changed := Repair(cells, e.CellCount())
	if changed {
		metrics.SnapshotRepairs.Inc()
		e.logger.Warnf("grid: repaired snapshot from %d to %d cells", len(cells), len(fixed))
	}
	return fixed, changed
}

// deliver hands the tow message to the mailbox.  The toggle is already
// committed, so the write must outlive a client that hangs up now.
func (e *Engine) deliver(ctx context.Context, tow *TowEvent) {
	if e.notify == nil {
		return
	}
	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), deliveryTimeout)
	defer cancel()
	e.notify.Enqueue(dctx, tow.RecipientID, tow.Text)
}
