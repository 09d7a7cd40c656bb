package model

import (
	"bytes"
	"encoding/json"
)

// Occupant identifies who claimed a grid cell and which vehicle they parked
// there.  The vehicle is stamped at claim time; later profile changes do not
// rewrite cells that are already occupied.
type Occupant struct {
	UserID  uint64 `json:"user_id"`
	Vehicle string `json:"vehicle"`
}

// GridCell is one slot of the parking grid.  The zero value is an empty
// cell.  A cell is either empty or holds exactly one Occupant; use
// EmptyCell and OccupiedCell to construct values and Occupant to inspect
// them.
//
// On the wire and in storage an empty cell is JSON null and an occupied
// cell is {"user_id": ..., "vehicle": ...}.
type GridCell struct {
	occ *Occupant
}

// EmptyCell returns a vacant cell.
func EmptyCell() GridCell { return GridCell{} }

// OccupiedCell returns a cell claimed by userID with the given vehicle.
func OccupiedCell(userID uint64, vehicle string) GridCell {
	return GridCell{occ: &Occupant{UserID: userID, Vehicle: vehicle}}
}

// IsEmpty reports whether nobody occupies the cell.
func (c GridCell) IsEmpty() bool { return c.occ == nil }

// Occupant returns the cell's occupant and true, or a zero Occupant and
// false when the cell is empty.
func (c GridCell) Occupant() (Occupant, bool) {
	if c.occ == nil {
		return Occupant{}, false
	}
	return *c.occ, true
}

// MarshalJSON encodes an empty cell as null and an occupied cell as an
// occupant object.
func (c GridCell) MarshalJSON() ([]byte, error) {
	if c.occ == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*c.occ)
}

// UnmarshalJSON accepts null or an occupant object.  Anything else that is
// still valid JSON (legacy booleans, objects without an owner) decodes to
// an empty cell so that a damaged snapshot degrades instead of failing.
func (c *GridCell) UnmarshalJSON(b []byte) error {
	c.occ = nil
	b = bytes.TrimSpace(b)
	if len(b) == 0 || b[0] != '{' {
		return nil
	}
	var o Occupant
	if err := json.Unmarshal(b, &o); err != nil || o.UserID == 0 {
		return nil
	}
	c.occ = &o
	return nil
}

// Snapshot is the full ordered sequence of grid cells in row-major order.
type Snapshot []GridCell

// EncodeSnapshot serializes cells into the JSON array stored in the
// grid_state row.
func EncodeSnapshot(cells Snapshot) (string, error) {
	if cells == nil {
		cells = Snapshot{}
	}
	b, err := json.Marshal(cells)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodeSnapshot parses a stored JSON array.  A blob that is not a JSON
// array decodes to an empty snapshot; the grid engine pads it back to the
// configured size on the next read.
func DecodeSnapshot(raw string) Snapshot {
	var elems []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &elems); err != nil {
		return Snapshot{}
	}
	cells := make(Snapshot, len(elems))
	for i, e := range elems {
		_ = cells[i].UnmarshalJSON(e)
	}
	return cells
}
