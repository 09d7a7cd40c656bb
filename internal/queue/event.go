package queue

// VehicleTowedEvent is published after a user vacates a cell that another
// user occupied.  The recipient's mailbox is written before publication;
// the event exists for downstream consumers such as the audit log.
type VehicleTowedEvent struct {
    EventID     string `json:"event_id"`
    CellIndex   int    `json:"cell_index"`
    GridSize    int    `json:"grid_size"`
    OwnerID     uint64 `json:"owner_id"`
    Vehicle     string `json:"vehicle"`
    TowedByID   uint64 `json:"towed_by_id"`
    TowedByName string `json:"towed_by_name"`
    Message     string `json:"message"`
    TowedAt     string `json:"towed_at"`
}
