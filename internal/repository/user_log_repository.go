package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/parking-lot/internal/model"
)

// UserLogRepo is the durable per-user notification log backing the
// mailbox.  Rows are appended by any actor and deleted when the
// recipient drains them.
type UserLogRepo struct {
	db   *sql.DB
	prov *Provisioner
}

// NewUserLogRepo returns a UserLogRepo bound to the provided database.
func NewUserLogRepo(db *sql.DB, p *Provisioner) *UserLogRepo { return &UserLogRepo{db: db, prov: p} }

// Append inserts one pending message for recipientID.
func (r *UserLogRepo) Append(ctx context.Context, recipientID uint64, text string, at time.Time) error {
	return r.prov.withRepair(ctx, "append user log", func() error {
		_, err := r.db.ExecContext(ctx,
			"INSERT INTO user_logs (user_id, message, created_at) VALUES (?,?,?)",
			recipientID, text, at.UTC())
		return err
	})
}

// Drain returns every pending message for userID, newest first, and
// deletes exactly those rows in the same transaction.  A user with no
// messages gets an empty slice.
func (r *UserLogRepo) Drain(ctx context.Context, userID uint64) ([]model.NotificationMessage, error) {
	var out []model.NotificationMessage
	err := r.prov.withRepair(ctx, "drain user log", func() error {
		var err error
		out, err = r.drainTx(ctx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *UserLogRepo) drainTx(ctx context.Context, userID uint64) ([]model.NotificationMessage, error) {
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

	rows, err := tx.QueryContext(ctx,
		"SELECT id, user_id, message, created_at FROM user_logs WHERE user_id=? ORDER BY created_at DESC, id DESC"+
			r.prov.Dialect().LockSuffix, userID)
	if err != nil {
		return nil, err
	}
	msgs := []model.NotificationMessage{}
	for rows.Next() {
		var m model.NotificationMessage
		if err := rows.Scan(&m.ID, &m.RecipientID, &m.Text, &m.CreatedAt); err != nil {
			rows.Close()
			return nil, err
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return msgs, nil
	}

	query := "DELETE FROM user_logs WHERE id IN (?" + strings.Repeat(",?", len(msgs)-1) + ")"
	args := make([]interface{}, 0, len(msgs))
	for _, m := range msgs {
		args = append(args, m.ID)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return msgs, nil
}
