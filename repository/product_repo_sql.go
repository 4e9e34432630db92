package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"productsapi/models"
)

const productBaseColumns = "id, name, price, price_in, quantity, image_path, price_out, image_url, updated_at"

// SQLProductRepo serves products from Postgres or SQLite.
type SQLProductRepo struct {
	DB      *sql.DB
	Dialect Dialect
	Schema  *ProductSchemaResolver
}

func NewSQLProductRepo(db *sql.DB, dialect Dialect, schema *ProductSchemaResolver) *SQLProductRepo {
	return &SQLProductRepo{DB: db, Dialect: dialect, Schema: schema}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func selectColumns(s ProductSchema) string {
	cols := productBaseColumns
	if s.HasUserID {
		cols += ", user_id"
	}
	if s.HasCreatedAt {
		cols += ", created_at"
	}
	return cols
}

func orderBy(s ProductSchema) string {
	if s.HasCreatedAt {
		return " ORDER BY created_at DESC, id DESC"
	}
	return " ORDER BY id DESC"
}

func scanProduct(row rowScanner, s ProductSchema) (*models.Product, error) {
	var (
		p                            models.Product
		price                        decimal.NullDecimal
		priceIn, imagePath, imageURL sql.NullString
		updatedAt, createdAt         sql.NullTime
		userID                       sql.NullInt64
	)

	dest := []any{&p.ID, &p.Name, &price, &priceIn, &p.Quantity, &imagePath, &p.PriceOut, &imageURL, &updatedAt}
	if s.HasUserID {
		dest = append(dest, &userID)
	}
	if s.HasCreatedAt {
		dest = append(dest, &createdAt)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	p.Price = price.Decimal
	p.PriceIn = priceIn.String
	p.ImagePath = imagePath.String
	p.ImageURL = imageURL.String
	if updatedAt.Valid {
		p.UpdatedAt = &updatedAt.Time
	}
	if createdAt.Valid {
		p.CreatedAt = &createdAt.Time
	}
	if userID.Valid {
		p.UserID = &userID.Int64
	}
	return &p, nil
}

func (r *SQLProductRepo) queryProducts(ctx context.Context, s ProductSchema, query string, args ...any) ([]*models.Product, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := []*models.Product{}
	for rows.Next() {
		p, err := scanProduct(rows, s)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// ownerFilter returns the WHERE fragment and argument restricting rows to
// userID, or nothing when the query is unscoped.
func ownerFilter(s ProductSchema, userID *int64, n int) (string, []any) {
	if !s.Scoped() || userID == nil {
		return "", nil
	}
	return fmt.Sprintf(" AND user_id = $%d", n), []any{*userID}
}

func (r *SQLProductRepo) List(ctx context.Context, userID *int64) ([]*models.Product, error) {
	s, err := r.Schema.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	if !s.TableExists {
		return []*models.Product{}, nil
	}

	where, args := ownerFilter(s, userID, 1)
	query := "SELECT " + selectColumns(s) + " FROM products WHERE 1=1" + where + orderBy(s)

	products, err := r.queryProducts(ctx, s, query, args...)
	return products, errors.Wrap(err, "list products")
}

func (r *SQLProductRepo) Get(ctx context.Context, id string, userID *int64) (*models.Product, error) {
	s, err := r.Schema.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	if !s.TableExists {
		return nil, ErrNotFound
	}

	where, args := ownerFilter(s, userID, 2)
	query := "SELECT " + selectColumns(s) + " FROM products WHERE id = $1" + where

	p, err := scanProduct(r.DB.QueryRowContext(ctx, query, append([]any{id}, args...)...), s)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, errors.Wrapf(err, "get product %s", id)
}

func (r *SQLProductRepo) Create(ctx context.Context, p *models.Product, userID *int64) error {
	s, err := r.Schema.Resolve(ctx)
	if err != nil {
		return err
	}
	if !s.TableExists {
		return errors.New("products table does not exist")
	}

	p.ApplyCreateDefaults()
	now := time.Now().UTC()

	cols := []string{"id", "name", "price", "price_in", "quantity", "image_path", "price_out", "image_url", "updated_at"}
	args := []any{p.ID, p.Name, p.Price, p.PriceIn, p.Quantity, p.ImagePath, p.PriceOut, p.ImageURL, now}
	p.UpdatedAt = &now
	p.UserID = nil
	if s.HasUserID && userID != nil {
		cols = append(cols, "user_id")
		args = append(args, *userID)
		uid := *userID
		p.UserID = &uid
	}
	if s.HasCreatedAt {
		cols = append(cols, "created_at")
		args = append(args, now)
		p.CreatedAt = &now
	}

	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	query := "INSERT INTO products (" + strings.Join(cols, ", ") + ") VALUES (" + strings.Join(placeholders, ", ") + ")"

	if _, err := r.DB.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return errors.Wrapf(err, "create product %s", p.ID)
	}
	return nil
}

func (r *SQLProductRepo) Update(ctx context.Context, id string, p *models.Product, userID *int64) (*models.Product, error) {
	s, err := r.Schema.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	if !s.TableExists {
		return nil, ErrNotFound
	}

	if p.PriceIn == "" {
		p.PriceIn = "0"
	}
	where, ownerArgs := ownerFilter(s, userID, 10)
	query := `UPDATE products
		SET name = $1, price = $2, price_in = $3, quantity = $4, image_path = $5,
			price_out = $6, image_url = $7, updated_at = $8
		WHERE id = $9` + where
	args := append([]any{p.Name, p.Price, p.PriceIn, p.Quantity, p.ImagePath, p.PriceOut, p.ImageURL, time.Now().UTC(), id}, ownerArgs...)

	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "update product %s", id)
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, errors.Wrapf(err, "update product %s", id)
	} else if n == 0 {
		return nil, ErrNotFound
	}

	return r.Get(ctx, id, userID)
}

func (r *SQLProductRepo) Delete(ctx context.Context, id string, userID *int64) error {
	s, err := r.Schema.Resolve(ctx)
	if err != nil {
		return err
	}
	if !s.TableExists {
		return ErrNotFound
	}

	where, args := ownerFilter(s, userID, 2)
	res, err := r.DB.ExecContext(ctx, "DELETE FROM products WHERE id = $1"+where, append([]any{id}, args...)...)
	if err != nil {
		return errors.Wrapf(err, "delete product %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrapf(err, "delete product %s", id)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// likePattern escapes LIKE wildcards in q and wraps it for a substring match.
func likePattern(q string) string {
	q = strings.ToLower(q)
	q = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(q)
	return "%" + q + "%"
}

func (r *SQLProductRepo) Search(ctx context.Context, q string) ([]*models.Product, error) {
	s, err := r.Schema.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	if !s.TableExists {
		return []*models.Product{}, nil
	}

	pattern := likePattern(q)
	query := "SELECT " + selectColumns(s) + ` FROM products
		WHERE LOWER(name) LIKE $1 ESCAPE '\' OR LOWER(id) LIKE $2 ESCAPE '\'` + orderBy(s)

	products, err := r.queryProducts(ctx, s, query, pattern, pattern)
	return products, errors.Wrapf(err, "search products %q", q)
}

func (r *SQLProductRepo) AdjustStock(ctx context.Context, id string, quantity int, op string) (*models.StockChange, error) {
	if _, ok := models.ApplyStock(0, quantity, op); !ok {
		return nil, ErrInvalidOperation
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "begin stock update")
	}
	defer tx.Rollback()

	var current int
	err = tx.QueryRowContext(ctx, "SELECT quantity FROM products WHERE id = $1"+r.Dialect.lockClause(), id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read stock of %s", id)
	}

	next, _ := models.ApplyStock(current, quantity, op)
	if _, err := tx.ExecContext(ctx, "UPDATE products SET quantity = $1, updated_at = $2 WHERE id = $3", next, time.Now().UTC(), id); err != nil {
		return nil, errors.Wrapf(err, "write stock of %s", id)
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "commit stock update")
	}

	return &models.StockChange{ProductID: id, OldQuantity: current, NewQuantity: next}, nil
}

func (r *SQLProductRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM products").Scan(&n)
	return n, errors.Wrap(err, "count products")
}
