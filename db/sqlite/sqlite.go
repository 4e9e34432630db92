package sqlite

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

type SQLiteDB struct {
	Conn   *sql.DB
	Ctx    context.Context
	Cancel context.CancelFunc
	Path   string
}

func NewSQLiteDB(path string) *SQLiteDB {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	return &SQLiteDB{
		Ctx:    ctx,
		Cancel: cancel,
		Path:   path,
	}
}

// DSN returns the connection string used for both queries and migrations.
func DSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return "file:" + path + sep + "_time_format=sqlite&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
}

func (s *SQLiteDB) Connect() error {
	if dir := filepath.Dir(s.Path); dir != "." {
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			return err
		}
	}

	conn, err := sql.Open("sqlite", DSN(s.Path))
	if err != nil {
		return err
	}
	// single writer; sqlite serialises writes anyway
	conn.SetMaxOpenConns(1)

	s.Conn = conn
	return s.Conn.PingContext(s.Ctx)
}

func (s *SQLiteDB) Disconnect() error {
	s.Cancel()
	if s.Conn != nil {
		return s.Conn.Close()
	}
	return nil
}

func (s *SQLiteDB) GetContext() context.Context {
	return s.Ctx
}
