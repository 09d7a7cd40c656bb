package mailbox

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	glog "github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/parking-lot/internal/metrics"
	"github.com/iliyamo/parking-lot/internal/model"
)

type fakeStore struct {
	msgs      []model.NotificationMessage
	appendErr error
	drainErr  error
}

func (f *fakeStore) Append(ctx context.Context, recipientID uint64, text string, at time.Time) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.msgs = append(f.msgs, model.NotificationMessage{
		ID: uint64(len(f.msgs) + 1), RecipientID: recipientID, Text: text, CreatedAt: at,
	})
	return nil
}

func (f *fakeStore) Drain(ctx context.Context, userID uint64) ([]model.NotificationMessage, error) {
	if f.drainErr != nil {
		return nil, f.drainErr
	}
	var out, keep []model.NotificationMessage
	for i := len(f.msgs) - 1; i >= 0; i-- {
		if f.msgs[i].RecipientID == userID {
			out = append(out, f.msgs[i])
		}
	}
	for _, m := range f.msgs {
		if m.RecipientID != userID {
			keep = append(keep, m)
		}
	}
	f.msgs = keep
	return out, nil
}

func newTestMailbox(s Store) *Mailbox {
	l := glog.New("test")
	l.SetOutput(io.Discard)
	return New(s, l)
}

func TestEnqueueAndDrain(t *testing.T) {
	store := &fakeStore{}
	m := newTestMailbox(store)
	ctx := context.Background()

	m.Enqueue(ctx, 1, "first")
	m.Enqueue(ctx, 2, "other")
	m.Enqueue(ctx, 1, "second")

	got, err := m.Drain(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"second", "first"}, got)

	got, err = m.Drain(ctx, 1)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	got, err = m.Drain(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"other"}, got)
}

func TestEnqueueStampsUTC(t *testing.T) {
	store := &fakeStore{}
	m := newTestMailbox(store)
	m.Enqueue(context.Background(), 1, "x")
	require.Len(t, store.msgs, 1)
	assert.Equal(t, time.UTC, store.msgs[0].CreatedAt.Location())
}

func TestEnqueueFailureIsSwallowed(t *testing.T) {
	m := newTestMailbox(&fakeStore{appendErr: errors.New("disk full")})

	before := testutil.ToFloat64(metrics.NotificationFailures)
	assert.NotPanics(t, func() { m.Enqueue(context.Background(), 1, "lost") })
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.NotificationFailures))
}

func TestDrainError(t *testing.T) {
	boom := errors.New("boom")
	m := newTestMailbox(&fakeStore{drainErr: boom})
	_, err := m.Drain(context.Background(), 1)
	assert.ErrorIs(t, err, boom)
}
