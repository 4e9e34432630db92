package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/go-chi/chi/v5"
	"github.com/spf13/cast"
	"go.uber.org/zap"

	"productsapi/models"
	"productsapi/repository"
)

type SaleHandler struct {
	Repo repository.SaleRepository
	Log  *zap.Logger
	Now  func() time.Time
}

type saleInput struct {
	ID            string            `json:"id" validate:"required"`
	Timestamp     interface{}       `json:"timestamp" validate:"required"`
	Items         []models.SaleItem `json:"items" validate:"required"`
	TotalAmount   interface{}       `json:"totalAmount" validate:"required"`
	PaymentMethod string            `json:"paymentMethod" validate:"required"`
	CustomerName  string            `json:"customerName"`
	Notes         string            `json:"notes"`
}

// parseTime accepts any common date string or unix milliseconds.
func parseTime(v interface{}) (time.Time, error) {
	if s, ok := v.(string); ok {
		return dateparse.ParseIn(strings.TrimSpace(s), time.UTC)
	}
	ms, err := cast.ToInt64E(v)
	if err != nil {
		return time.Time{}, fmt.Errorf("unsupported time %v", v)
	}
	return time.UnixMilli(ms).UTC(), nil
}

func optional(s string) *string {
	if s = strings.TrimSpace(s); s == "" {
		return nil
	}
	return &s
}

func (h *SaleHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func (h *SaleHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	var start, end *time.Time
	q := r.URL.Query()
	if s, e := q.Get("startDate"), q.Get("endDate"); s != "" && e != "" {
		st, err := parseTime(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid startDate")
			return
		}
		en, err := parseTime(e)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid endDate")
			return
		}
		start, end = &st, &en
	}

	sales, err := h.Repo.List(r.Context(), start, end)
	if err != nil {
		writeRepoError(w, h.Log, err, "Sale not found", "Failed to fetch sales")
		return
	}
	writeJSON(w, http.StatusOK, sales)
}

func (h *SaleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in saleInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	if err := validate.Struct(in); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err, "Invalid sale"))
		return
	}

	ts, err := parseTime(in.Timestamp)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid timestamp")
		return
	}
	total, err := parseDecimal(in.TotalAmount)
	if err != nil || total.IsNegative() {
		writeError(w, http.StatusBadRequest, "totalAmount must be a non-negative number")
		return
	}

	sale := &models.Sale{
		ID:            in.ID,
		Timestamp:     ts,
		Items:         in.Items,
		TotalAmount:   total,
		PaymentMethod: in.PaymentMethod,
		CustomerName:  optional(in.CustomerName),
		Notes:         optional(in.Notes),
	}
	if err := h.Repo.Create(r.Context(), sale); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			writeError(w, http.StatusConflict, "Sale with this ID already exists")
			return
		}
		writeRepoError(w, h.Log, err, "Sale not found", "Failed to create sale")
		return
	}

	h.Log.Info("sale created",
		zap.String("sale_id", sale.ID),
		zap.Int("items", len(sale.Items)),
		zap.String("total", sale.TotalAmount.String()),
	)
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Sale created successfully",
		"saleId":  sale.ID,
		"sale":    sale,
	})
}

func (h *SaleHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	sale, err := h.Repo.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeRepoError(w, h.Log, err, "Sale not found", "Failed to fetch sale")
		return
	}
	writeJSON(w, http.StatusOK, sale)
}

// Summary reports totals for all sales and for the server's current day.
func (h *SaleHandler) Summary(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	sum, err := h.Repo.Summary(r.Context(), dayStart, dayStart.AddDate(0, 0, 1))
	if err != nil {
		writeRepoError(w, h.Log, err, "Sale not found", "Failed to fetch sales summary")
		return
	}
	writeJSON(w, http.StatusOK, sum)
}
