package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"productsapi/repository"
	"productsapi/utils"
)

type ReceiptHandler struct {
	Repo          *repository.ReceiptRepository
	Log           *zap.Logger
	CurrencyMajor string
	CurrencyMinor string
	// Render turns receipt HTML into a PDF; headless Chrome when nil.
	Render func(ctx context.Context, html []byte) ([]byte, error)
}

// SaleReceipt renders a sale as a PDF receipt.
func (h *ReceiptHandler) SaleReceipt(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	sale, err := h.Repo.GetSaleForReceipt(r.Context(), id)
	if err != nil {
		writeRepoError(w, h.Log, err, "Sale not found", "Failed to fetch sale")
		return
	}

	html, err := utils.RenderReceiptHTML(utils.NewReceiptData(sale, h.CurrencyMajor, h.CurrencyMinor))
	if err != nil {
		h.Log.Error("render receipt", zap.String("sale_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to generate receipt")
		return
	}

	render := h.Render
	if render == nil {
		render = utils.HTMLToPDF
	}
	pdf, err := render(r.Context(), html)
	if err != nil {
		h.Log.Error("print receipt", zap.String("sale_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to generate receipt")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", "receipt_"+id+".pdf"))
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	w.WriteHeader(http.StatusOK)
	w.Write(pdf)
}
