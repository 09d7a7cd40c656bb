package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/parking-lot/internal/model"
	"github.com/iliyamo/parking-lot/internal/utils"
)

const userColumns = "id,username,password_hash,vehicle,created_at"

type UserRepo struct {
	DB   *sql.DB
	prov *Provisioner
}

func NewUserRepo(db *sql.DB, p *Provisioner) *UserRepo { return &UserRepo{DB: db, prov: p} }

// Create hashes password, inserts the user with the default vehicle and
// returns the stored row.
func (r *UserRepo) Create(ctx context.Context, username, password string, cost int) (model.User, error) {
	username = strings.TrimSpace(username)
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return model.User{}, err
	}
	var id int64
	err = r.prov.withRepair(ctx, "create user", func() error {
		res, err := r.DB.ExecContext(ctx,
			"INSERT INTO users (username, password_hash, vehicle) VALUES (?,?,?)",
			username, hash, model.DefaultVehicle)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		if isDuplicateKey(err) {
			return model.User{}, ErrUsernameExists
		}
		return model.User{}, err
	}
	return r.GetByID(ctx, uint64(id))
}

// GetByUsername fetches a user by trimmed username.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (model.User, error) {
	username = strings.TrimSpace(username)
	var u model.User
	err := r.prov.withRepair(ctx, "get user", func() error {
		return scanUser(r.DB.QueryRowContext(ctx,
			"SELECT "+userColumns+" FROM users WHERE username=? LIMIT 1", username), &u)
	})
	return u, notFound(err)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	var u model.User
	err := r.prov.withRepair(ctx, "get user", func() error {
		return scanUser(r.DB.QueryRowContext(ctx,
			"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id), &u)
	})
	return u, notFound(err)
}

// List returns users ordered by id.  Callers are expected to clamp limit
// and offset.
func (r *UserRepo) List(ctx context.Context, limit, offset int) ([]model.User, error) {
	var out []model.User
	err := r.prov.withRepair(ctx, "list users", func() error {
		out = out[:0]
		rows, err := r.DB.QueryContext(ctx,
			"SELECT "+userColumns+" FROM users ORDER BY id ASC LIMIT ? OFFSET ?", limit, offset)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var u model.User
			if err := scanUser(rows, &u); err != nil {
				return err
			}
			out = append(out, u)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateVehicle sets the user's vehicle symbol.
func (r *UserRepo) UpdateVehicle(ctx context.Context, id uint64, vehicle string) error {
	err := r.prov.withRepair(ctx, "update vehicle", func() error {
		res, err := r.DB.ExecContext(ctx, "UPDATE users SET vehicle=? WHERE id=?", vehicle, id)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			// MySQL reports 0 affected rows when the value is unchanged.
			var one int
			return r.DB.QueryRowContext(ctx, "SELECT 1 FROM users WHERE id=?", id).Scan(&one)
		}
		return nil
	})
	return notFound(err)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(s rowScanner, u *model.User) error {
	return s.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Vehicle, &u.CreatedAt)
}
