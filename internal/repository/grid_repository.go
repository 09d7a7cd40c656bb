package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/parking-lot/internal/model"
)

// gridRowID is the primary key of the singleton grid_state row.
const gridRowID = 1

// GridRepo stores the whole grid snapshot as one JSON document in the
// singleton grid_state row.
type GridRepo struct {
	db   *sql.DB
	prov *Provisioner
}

// NewGridRepo returns a GridRepo bound to the provided database.
func NewGridRepo(db *sql.DB, p *Provisioner) *GridRepo { return &GridRepo{db: db, prov: p} }

// UpdateSnapshot loads the snapshot inside a transaction that holds the
// grid row, passes it to fn and writes back fn's result when fn reports a
// change.  The row is created on first use.  Returns the snapshot as it
// stands after the transaction: fn's result when committed, the original
// otherwise.  If fn returns an error the transaction rolls back and the
// error is returned unchanged.
func (r *GridRepo) UpdateSnapshot(ctx context.Context, fn func(model.Snapshot) (model.Snapshot, bool, error)) (model.Snapshot, error) {
	var out model.Snapshot
	err := r.prov.withRepair(ctx, "update grid", func() error {
		var err error
		out, err = r.updateTx(ctx, fn)
		return err
	})
	return out, err
}

func (r *GridRepo) updateTx(ctx context.Context, fn func(model.Snapshot) (model.Snapshot, bool, error)) (model.Snapshot, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	raw, err := r.selectCellsTx(ctx, tx)
	if errors.Is(err, sql.ErrNoRows) {
		if _, err = tx.ExecContext(ctx, r.prov.Dialect().SeedGrid); err != nil {
			return nil, err
		}
		raw, err = r.selectCellsTx(ctx, tx)
	}
	if err != nil {
		return nil, err
	}

	cells := model.DecodeSnapshot(raw)
	next, changed, err := fn(cells)
	if err != nil {
		return nil, err
	}
	if !changed {
		// Read-only pass; nothing to write, rollback releases the row lock.
		return cells, nil
	}
	enc, err := model.EncodeSnapshot(next)
	if err != nil {
		return nil, fmt.Errorf("encode grid: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "UPDATE grid_state SET cells_json=? WHERE id=?", enc, gridRowID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return next, nil
}

func (r *GridRepo) selectCellsTx(ctx context.Context, tx *sql.Tx) (string, error) {
	var raw string
	err := tx.QueryRowContext(ctx,
		"SELECT cells_json FROM grid_state WHERE id=?"+r.prov.Dialect().LockSuffix, gridRowID).Scan(&raw)
	return raw, err
}

// ReplaceRaw overwrites the stored document verbatim.  It exists for
// operational repair and tests that need to simulate a layout written by
// an older grid size.
func (r *GridRepo) ReplaceRaw(ctx context.Context, raw string) error {
	return r.prov.withRepair(ctx, "replace grid", func() error {
		if _, err := r.db.ExecContext(ctx, r.prov.Dialect().SeedGrid); err != nil {
			return err
		}
		_, err := r.db.ExecContext(ctx, "UPDATE grid_state SET cells_json=? WHERE id=?", raw, gridRowID)
		return err
	})
}
