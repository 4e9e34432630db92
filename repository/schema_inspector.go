package repository

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"productsapi/config"
)

// Dialect selects the few statements that differ between the SQL backends.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// lockClause is appended to a SELECT that must hold the row until commit.
func (d Dialect) lockClause() string {
	if d == DialectPostgres {
		return " FOR UPDATE"
	}
	// sqlite locks the whole database for the write transaction
	return ""
}

// ColumnSet is the set of column names a table currently has.
type ColumnSet map[string]struct{}

func (c ColumnSet) Has(name string) bool {
	_, ok := c[name]
	return ok
}

func (c ColumnSet) Names() []string {
	names := make([]string, 0, len(c))
	for n := range c {
		names = append(names, n)
	}
	return names
}

// SchemaInspector lists the columns of a table. A missing table yields an
// empty set, not an error.
type SchemaInspector interface {
	Columns(ctx context.Context, table string) (ColumnSet, error)
}

type PostgresSchemaInspector struct {
	DB *sql.DB
}

func (p *PostgresSchemaInspector) Columns(ctx context.Context, table string) (ColumnSet, error) {
	return queryColumns(ctx, p.DB, `
		SELECT column_name
		FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = $1
	`, table)
}

type SQLiteSchemaInspector struct {
	DB *sql.DB
}

func (p *SQLiteSchemaInspector) Columns(ctx context.Context, table string) (ColumnSet, error) {
	return queryColumns(ctx, p.DB, `SELECT name FROM pragma_table_info($1)`, table)
}

func NewSchemaInspector(db *sql.DB, dialect Dialect) SchemaInspector {
	if dialect == DialectSQLite {
		return &SQLiteSchemaInspector{DB: db}
	}
	return &PostgresSchemaInspector{DB: db}
}

func queryColumns(ctx context.Context, db *sql.DB, query, table string) (ColumnSet, error) {
	rows, err := db.QueryContext(ctx, query, table)
	if err != nil {
		return nil, errors.Wrapf(err, "inspect columns of %s", table)
	}
	defer rows.Close()

	cols := ColumnSet{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errors.Wrapf(err, "inspect columns of %s", table)
		}
		cols[name] = struct{}{}
	}
	return cols, errors.Wrapf(rows.Err(), "inspect columns of %s", table)
}

// ProductSchema describes the optional product columns the queries may use.
type ProductSchema struct {
	TableExists  bool
	HasUserID    bool
	HasCreatedAt bool
}

// Scoped reports whether product queries filter by owner.
func (s ProductSchema) Scoped() bool {
	return s.HasUserID
}

// ProductSchemaResolver answers which ProductSchema applies to a request.
// With the auto mode it inspects the live table every time; the other modes
// are fixed by the migrated schema.
type ProductSchemaResolver struct {
	Mode   string
	Inspector SchemaInspector
}

func (r *ProductSchemaResolver) Resolve(ctx context.Context) (ProductSchema, error) {
	switch r.Mode {
	case config.ScopingDisabled:
		return ProductSchema{TableExists: true, HasCreatedAt: true}, nil
	case config.ScopingAuto:
		cols, err := r.Inspector.Columns(ctx, "products")
		if err != nil {
			return ProductSchema{}, err
		}
		return ProductSchema{
			TableExists:  len(cols) > 0,
			HasUserID:    cols.Has("user_id"),
			HasCreatedAt: cols.Has("created_at"),
		}, nil
	default:
		return ProductSchema{TableExists: true, HasUserID: true, HasCreatedAt: true}, nil
	}
}
