package repository_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"productsapi/config"
	"productsapi/db"
	"productsapi/db/sqlite"
	"productsapi/models"
	"productsapi/repository"
)

// openSQLite returns a fresh database migrated to version (0 means latest).
func openSQLite(t *testing.T, version uint) *sql.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "repo.db")
	require.NoError(t, db.MigrateTo(db.SQLite, sqlite.DSN(path), version))

	store := sqlite.NewSQLiteDB(path)
	require.NoError(t, store.Connect())
	t.Cleanup(func() { store.Disconnect() })
	return store.Conn
}

func newProductRepo(conn *sql.DB, mode string) *repository.SQLProductRepo {
	return repository.NewSQLProductRepo(conn, repository.DialectSQLite, &repository.ProductSchemaResolver{
		Mode:   mode,
		Inspector: repository.NewSchemaInspector(conn, repository.DialectSQLite),
	})
}

func createUser(t *testing.T, repo repository.UserRepository, email string) *models.AppUser {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	require.NoError(t, err)

	u := &models.AppUser{Email: email, Name: "Test", PasswordHash: string(hash)}
	require.NoError(t, repo.CreateUser(context.Background(), u))
	return u
}

func scopedSQLite(t *testing.T) (*sql.DB, *repository.SQLProductRepo) {
	conn := openSQLite(t, 0)
	return conn, newProductRepo(conn, config.ScopingEnabled)
}
