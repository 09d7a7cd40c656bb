// Package mailbox delivers deferred per-user notifications.  Any actor may
// enqueue a message for any user; only the recipient drains it.  Delivery
// is at-most-once: a drain removes the messages it returns.
package mailbox

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/parking-lot/internal/metrics"
	"github.com/iliyamo/parking-lot/internal/model"
)

// Store is the durable log behind the mailbox.  Drain must return and
// delete the returned rows atomically, newest first.
type Store interface {
	Append(ctx context.Context, recipientID uint64, text string, at time.Time) error
	Drain(ctx context.Context, userID uint64) ([]model.NotificationMessage, error)
}

// Mailbox wraps a Store with best-effort enqueue semantics.
type Mailbox struct {
	store  Store
	logger echo.Logger
	now    func() time.Time
}

// New returns a Mailbox backed by store.
func New(store Store, logger echo.Logger) *Mailbox {
	if store == nil || logger == nil {
		panic("nil dependency passed to mailbox.New")
	}
	return &Mailbox{store: store, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// Enqueue appends text to recipientID's mailbox.  A failure is logged and
// dropped; the caller's request carries on.
func (m *Mailbox) Enqueue(ctx context.Context, recipientID uint64, text string) {
	if err := m.store.Append(ctx, recipientID, text, m.now()); err != nil {
		metrics.NotificationFailures.Inc()
		m.logger.Errorf("mailbox: drop message for user %d: %v", recipientID, err)
		return
	}
	metrics.NotificationsEnqueued.Inc()
}

// Drain returns the texts of all pending messages for userID, newest
// first, and removes them.  An empty mailbox yields an empty slice.
func (m *Mailbox) Drain(ctx context.Context, userID uint64) ([]string, error) {
	msgs, err := m.store.Drain(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		out = append(out, msg.Text)
	}
	return out, nil
}
