package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGridCellJSON(t *testing.T) {
	b, err := json.Marshal(Snapshot{EmptyCell(), OccupiedCell(7, "🚀")})
	require.NoError(t, err)
	assert.JSONEq(t, `[null,{"user_id":7,"vehicle":"🚀"}]`, string(b))
}

func TestGridCellZeroValueIsEmpty(t *testing.T) {
	var c GridCell
	assert.True(t, c.IsEmpty())
	_, ok := c.Occupant()
	assert.False(t, ok)
}

func TestDecodeSnapshotTolerant(t *testing.T) {
	cells := DecodeSnapshot(`[null, {"user_id": 3, "vehicle": "🚗"}, true, 5, {"vehicle": "🚀"}, "x", {"user_id": "bad"}]`)
	require.Len(t, cells, 7)

	occ, ok := cells[1].Occupant()
	require.True(t, ok)
	assert.Equal(t, Occupant{UserID: 3, Vehicle: "🚗"}, occ)

	for _, i := range []int{0, 2, 3, 4, 5, 6} {
		assert.True(t, cells[i].IsEmpty(), "cell %d", i)
	}
}

func TestDecodeSnapshotGarbage(t *testing.T) {
	for _, raw := range []string{"", "not json", "{}", "null", `{"cells":[]}`} {
		cells := DecodeSnapshot(raw)
		assert.NotNil(t, cells, raw)
		assert.Empty(t, cells, raw)
	}
}

func TestEncodeSnapshot(t *testing.T) {
	raw, err := EncodeSnapshot(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", raw)

	in := Snapshot{OccupiedCell(1, "🚑"), EmptyCell()}
	raw, err = EncodeSnapshot(in)
	require.NoError(t, err)
	assert.Equal(t, in, DecodeSnapshot(raw))
}

func TestIsAllowedVehicle(t *testing.T) {
	assert.True(t, IsAllowedVehicle(DefaultVehicle))
	assert.True(t, IsAllowedVehicle("🚒"))
	assert.False(t, IsAllowedVehicle("🐢"))
	assert.False(t, IsAllowedVehicle(""))
}
