package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/iliyamo/parking-lot/internal/database"
)

// Provisioner re-creates the schema when an operation finds its tables
// missing.  It is shared by every repository bound to the same database.
type Provisioner struct {
	db      *sql.DB
	dialect database.Dialect
	mu      sync.Mutex
}

// NewProvisioner returns a Provisioner for db using the given dialect.
func NewProvisioner(db *sql.DB, d database.Dialect) *Provisioner {
	return &Provisioner{db: db, dialect: d}
}

// Dialect returns the SQL dialect of the underlying database.
func (p *Provisioner) Dialect() database.Dialect { return p.dialect }

// Ensure runs the idempotent schema statements.
func (p *Provisioner) Ensure(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return database.EnsureSchema(ctx, p.db, p.dialect)
}

// withRepair runs op.  If op fails because a table is missing, the schema
// is provisioned and op runs exactly once more.  A failed repair, or a
// retry that still finds tables missing, is reported as
// ErrStorageUnavailable; other errors pass through unchanged.
func (p *Provisioner) withRepair(ctx context.Context, name string, op func() error) error {
	err := op()
	if err == nil || !isMissingTable(err) {
		return err
	}
	if perr := p.Ensure(ctx); perr != nil {
		return fmt.Errorf("%s: %w: %v", name, ErrStorageUnavailable, perr)
	}
	if err := op(); err != nil {
		if isMissingTable(err) {
			return fmt.Errorf("%s: %w: %v", name, ErrStorageUnavailable, err)
		}
		return err
	}
	return nil
}
