package repository

import (
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/mongo"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("already exists")
	ErrInvalidOperation = errors.New("invalid operation")
)

// isUniqueViolation reports whether err comes from a primary key or unique
// constraint on any of the supported backends.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY || code == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}

	return mongo.IsDuplicateKeyError(err)
}
