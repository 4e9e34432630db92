package handlers

import (
	"errors"
	"math"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
	"go.uber.org/zap"

	"productsapi/auth"
	"productsapi/models"
	"productsapi/repository"
)

type ProductHandler struct {
	Repo repository.ProductRepository
	Log  *zap.Logger
	// ScopedDelete limits deletes to the caller's own products.
	ScopedDelete bool
}

// productInput accepts numbers or numeric strings for the numeric fields.
type productInput struct {
	ID        string      `json:"id" validate:"required"`
	Name      string      `json:"name" validate:"required"`
	Price     interface{} `json:"price"`
	PriceIn   interface{} `json:"price_in"`
	Quantity  interface{} `json:"quantity"`
	ImagePath string      `json:"image_path"`
	PriceOut  interface{} `json:"price_out"`
	ImageURL  string      `json:"image_url"`
}

var (
	errBadNumber = errors.New("bad number")
	maxQuantity  = decimal.NewFromInt(math.MaxInt32)
)

func parseDecimal(v interface{}) (decimal.Decimal, error) {
	if v == nil {
		return decimal.Zero, nil
	}
	s := strings.TrimSpace(cast.ToString(v))
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, errBadNumber
	}
	return d, nil
}

// parseWholeNumber accepts integral numbers and numeric strings; 2.7 is
// rejected rather than truncated.
func parseWholeNumber(v interface{}) (int, error) {
	d, err := parseDecimal(v)
	if err != nil || !d.IsInteger() || d.Abs().GreaterThan(maxQuantity) {
		return 0, errBadNumber
	}
	return int(d.IntPart()), nil
}

func (in productInput) toProduct() (*models.Product, string) {
	price, err := parseDecimal(in.Price)
	if err != nil || price.IsNegative() {
		return nil, "price must be a non-negative number"
	}

	priceIn := ""
	if in.PriceIn != nil {
		if _, err := parseDecimal(in.PriceIn); err != nil {
			return nil, "price_in must be a number"
		}
		// cost is stored as text, verbatim
		priceIn = strings.TrimSpace(cast.ToString(in.PriceIn))
	}

	quantity := 0
	if in.Quantity != nil {
		q, err := parseWholeNumber(in.Quantity)
		if err != nil || q < 0 {
			return nil, "quantity must be a non-negative integer"
		}
		quantity = q
	}

	p := &models.Product{
		ID:        in.ID,
		Name:      in.Name,
		Price:     price,
		PriceIn:   priceIn,
		Quantity:  quantity,
		ImagePath: in.ImagePath,
		ImageURL:  in.ImageURL,
	}
	if in.PriceOut != nil {
		po, err := parseDecimal(in.PriceOut)
		if err != nil || po.IsNegative() {
			return nil, "price_out must be a non-negative number"
		}
		p.PriceOut = decimal.NewNullDecimal(po)
	}
	return p, ""
}

func (h *ProductHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	products, err := h.Repo.List(r.Context(), userID)
	if err != nil {
		writeRepoError(w, h.Log, err, "Product not found", "Failed to fetch products")
		return
	}

	h.Log.Debug("products listed", zap.Int("count", len(products)), zap.Int64p("user_id", userID))
	writeJSON(w, http.StatusOK, models.ProductsForClient(products))
}

func (h *ProductHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	p, err := h.Repo.Get(r.Context(), chi.URLParam(r, "id"), auth.UserIDFromContext(r.Context()))
	if err != nil {
		writeRepoError(w, h.Log, err, "Product not found", "Failed to fetch product")
		return
	}
	writeJSON(w, http.StatusOK, p.ForClient())
}

func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in productInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	if err := validate.Struct(in); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err, "Invalid product"))
		return
	}
	p, msg := in.toProduct()
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	userID := auth.UserIDFromContext(r.Context())
	if err := h.Repo.Create(r.Context(), p, userID); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			writeError(w, http.StatusConflict, "Product with this ID already exists")
			return
		}
		writeRepoError(w, h.Log, err, "Product not found", "Failed to create product")
		return
	}

	h.Log.Info("product created", zap.String("product_id", p.ID), zap.Int64p("user_id", userID))
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Product created successfully",
		"product": p.ForClient(),
	})
}

func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var in productInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	in.ID = id
	if err := validate.Struct(in); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err, "Invalid product"))
		return
	}
	p, msg := in.toProduct()
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	userID := auth.UserIDFromContext(r.Context())
	updated, err := h.Repo.Update(r.Context(), id, p, userID)
	if err != nil {
		writeRepoError(w, h.Log, err, "Product not found or access denied", "Failed to update product")
		return
	}

	h.Log.Info("product updated", zap.String("product_id", id), zap.Int64p("user_id", userID))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Product updated successfully",
		"product": updated.ForClient(),
	})
}

func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var userID *int64
	if h.ScopedDelete {
		userID = auth.UserIDFromContext(r.Context())
	}
	if err := h.Repo.Delete(r.Context(), id, userID); err != nil {
		writeRepoError(w, h.Log, err, "Product not found", "Failed to delete product")
		return
	}

	h.Log.Info("product deleted", zap.String("product_id", id), zap.Int64p("user_id", userID))
	writeJSON(w, http.StatusOK, map[string]string{"message": "Product deleted successfully"})
}

func (h *ProductHandler) Search(w http.ResponseWriter, r *http.Request) {
	products, err := h.Repo.Search(r.Context(), chi.URLParam(r, "query"))
	if err != nil {
		writeRepoError(w, h.Log, err, "Product not found", "Failed to search products")
		return
	}
	writeJSON(w, http.StatusOK, models.ProductsForClient(products))
}

type stockInput struct {
	Quantity  interface{} `json:"quantity" validate:"required"`
	Operation string      `json:"operation" validate:"required"`
}

func (h *ProductHandler) UpdateStock(w http.ResponseWriter, r *http.Request) {
	var in stockInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	if err := validate.Struct(in); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err, "Invalid stock update"))
		return
	}
	quantity, err := parseWholeNumber(in.Quantity)
	if err != nil || quantity <= 0 {
		writeError(w, http.StatusBadRequest, "quantity must be a positive integer")
		return
	}

	change, err := h.Repo.AdjustStock(r.Context(), chi.URLParam(r, "id"), quantity, in.Operation)
	if err != nil {
		writeRepoError(w, h.Log, err, "Product not found", "Failed to update product stock")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":     "Product stock updated successfully",
		"productId":   change.ProductID,
		"oldQuantity": change.OldQuantity,
		"newQuantity": change.NewQuantity,
	})
}
