// Package repository defines error types that are reused across multiple
// repositories.  These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios without
// inspecting driver-specific errors.
package repository

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// ErrStorageUnavailable is returned when a storage operation still fails
// after one attempt to re-provision missing tables.  Handlers should
// translate this into an HTTP 500 response.
var ErrStorageUnavailable = errors.New("storage unavailable")

// ErrUsernameExists is returned when creating a user whose username is
// already taken.  Handlers should translate this into an HTTP 400 or 409.
var ErrUsernameExists = errors.New("username already exists")

// ErrUserNotFound is returned when no user matches the lookup.
var ErrUserNotFound = errors.New("user not found")

// isMissingTable reports whether err means the schema has not been
// provisioned yet: MySQL error 1146 (ER_NO_SUCH_TABLE) or SQLite's
// "no such table".
func isMissingTable(err error) bool {
	if err == nil {
		return false
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1146
	}
	return strings.Contains(strings.ToLower(err.Error()), "no such table")
}

// isDuplicateKey reports whether err is a unique constraint violation.
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1062
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint")
}

// notFound maps sql.ErrNoRows to ErrUserNotFound.
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrUserNotFound
	}
	return err
}
