package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"productsapi/models"
)

const saleColumns = "id, timestamp, items, total_amount, payment_method, customer_name, notes, created_at"

type SQLSaleRepo struct {
	DB *sql.DB
}

func NewSQLSaleRepo(db *sql.DB) *SQLSaleRepo {
	return &SQLSaleRepo{DB: db}
}

// decodeItems turns the stored items text back into line items. Empty or
// null text is an empty sale.
func decodeItems(raw []byte) ([]models.SaleItem, error) {
	items := []models.SaleItem{}
	if len(raw) == 0 || string(raw) == "null" {
		return items, nil
	}
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, errors.Wrap(err, "decode sale items")
	}
	return items, nil
}

func encodeItems(items []models.SaleItem) (string, error) {
	if items == nil {
		items = []models.SaleItem{}
	}
	raw, err := json.Marshal(items)
	return string(raw), errors.Wrap(err, "encode sale items")
}

func scanSale(row rowScanner) (*models.Sale, error) {
	var (
		s            models.Sale
		items        []byte
		customerName sql.NullString
		notes        sql.NullString
	)
	if err := row.Scan(&s.ID, &s.Timestamp, &items, &s.TotalAmount, &s.PaymentMethod, &customerName, &notes, &s.CreatedAt); err != nil {
		return nil, err
	}

	decoded, err := decodeItems(items)
	if err != nil {
		return nil, err
	}
	s.Items = decoded
	if customerName.Valid {
		s.CustomerName = &customerName.String
	}
	if notes.Valid {
		s.Notes = &notes.String
	}
	return &s, nil
}

func (r *SQLSaleRepo) List(ctx context.Context, start, end *time.Time) ([]*models.Sale, error) {
	query := "SELECT " + saleColumns + " FROM sales"
	var args []any
	if start != nil && end != nil {
		query += " WHERE timestamp BETWEEN $1 AND $2"
		args = append(args, start.UTC(), end.UTC())
	}
	query += " ORDER BY timestamp DESC, id DESC"

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list sales")
	}
	defer rows.Close()

	sales := []*models.Sale{}
	for rows.Next() {
		s, err := scanSale(rows)
		if err != nil {
			return nil, errors.Wrap(err, "list sales")
		}
		sales = append(sales, s)
	}
	return sales, errors.Wrap(rows.Err(), "list sales")
}

func (r *SQLSaleRepo) Get(ctx context.Context, id string) (*models.Sale, error) {
	s, err := scanSale(r.DB.QueryRowContext(ctx, "SELECT "+saleColumns+" FROM sales WHERE id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return s, errors.Wrapf(err, "get sale %s", id)
}

func (r *SQLSaleRepo) Create(ctx context.Context, s *models.Sale) error {
	items, err := encodeItems(s.Items)
	if err != nil {
		return err
	}

	s.Timestamp = s.Timestamp.UTC()
	s.CreatedAt = time.Now().UTC()
	_, err = r.DB.ExecContext(ctx, `
		INSERT INTO sales (id, timestamp, items, total_amount, payment_method, customer_name, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, s.ID, s.Timestamp, items, s.TotalAmount, s.PaymentMethod, s.CustomerName, s.Notes, s.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return errors.Wrapf(err, "create sale %s", s.ID)
	}
	return nil
}

func (r *SQLSaleRepo) Summary(ctx context.Context, dayStart, dayEnd time.Time) (*models.SalesSummary, error) {
	sum := &models.SalesSummary{}

	err := r.DB.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(total_amount), 0), COALESCE(AVG(total_amount), 0)
		FROM sales
	`).Scan(&sum.TotalSales, &sum.TotalRevenue, &sum.AverageSaleAmount)
	if err != nil {
		return nil, errors.Wrap(err, "summarise sales")
	}

	err = r.DB.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(total_amount), 0)
		FROM sales
		WHERE timestamp >= $1 AND timestamp < $2
	`, dayStart.UTC(), dayEnd.UTC()).Scan(&sum.TodaySales, &sum.TodayRevenue)
	if err != nil {
		return nil, errors.Wrap(err, "summarise today's sales")
	}

	sum.AverageSaleAmount = sum.AverageSaleAmount.Round(2)
	return sum, nil
}
