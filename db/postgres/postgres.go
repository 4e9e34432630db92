package postgres

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/lib/pq"
)

type PostgresDB struct {
	Conn         *sql.DB
	Ctx          context.Context
	Cancel       context.CancelFunc
	URL          string
	MaxOpenConns int
	MaxIdleConns int
}

func NewPostgresDB(url string, maxOpen, maxIdle int) *PostgresDB {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	return &PostgresDB{
		Ctx:          ctx,
		Cancel:       cancel,
		URL:          url,
		MaxOpenConns: maxOpen,
		MaxIdleConns: maxIdle,
	}
}

func (p *PostgresDB) Connect() error {
	conn, err := sql.Open("postgres", p.URL)
	if err != nil {
		return err
	}

	// requests wait for a free connection once the pool is exhausted
	conn.SetMaxOpenConns(p.MaxOpenConns)
	conn.SetMaxIdleConns(p.MaxIdleConns)
	conn.SetConnMaxLifetime(30 * time.Minute)

	p.Conn = conn
	return p.Conn.PingContext(p.Ctx)
}

func (p *PostgresDB) Disconnect() error {
	p.Cancel()
	if p.Conn != nil {
		return p.Conn.Close()
	}
	return nil
}

func (p *PostgresDB) GetContext() context.Context {
	return p.Ctx
}
