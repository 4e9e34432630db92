package utils

import (
	"bytes"
	"context"
	"embed"
	"html/template"
	"os"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"productsapi/models"
)

//go:embed templates/receipt.html
var templatesFS embed.FS

var receiptTmpl = template.Must(template.ParseFS(templatesFS, "templates/receipt.html"))

type ReceiptLine struct {
	Name      string
	Quantity  int
	UnitPrice string
	Subtotal  string
}

type ReceiptData struct {
	Sale       *models.Sale
	Date       string
	Lines      []ReceiptLine
	Total      string
	TotalWords string
}

// NewReceiptData prepares a sale for the receipt template.
func NewReceiptData(sale *models.Sale, major, minor string) ReceiptData {
	lines := make([]ReceiptLine, 0, len(sale.Items))
	for _, it := range sale.Items {
		lines = append(lines, ReceiptLine{
			Name:      it.Name(),
			Quantity:  it.Quantity(),
			UnitPrice: it.UnitPrice().StringFixed(2),
			Subtotal:  it.Subtotal().StringFixed(2),
		})
	}

	date := "-"
	if !sale.Timestamp.IsZero() {
		date = sale.Timestamp.Format("02-Jan-2006 15:04")
	}

	return ReceiptData{
		Sale:       sale,
		Date:       date,
		Lines:      lines,
		Total:      sale.TotalAmount.StringFixed(2),
		TotalWords: AmountToWords(sale.TotalAmount, major, minor),
	}
}

func RenderReceiptHTML(data ReceiptData) ([]byte, error) {
	var buf bytes.Buffer
	if err := receiptTmpl.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// HTMLToPDF prints an HTML document to an A4 PDF with headless Chrome.
func HTMLToPDF(ctx context.Context, html []byte) ([]byte, error) {
	tmp, err := os.CreateTemp("", "receipt_*.html")
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(html); err != nil {
		tmp.Close()
		return nil, err
	}
	if err := tmp.Close(); err != nil {
		return nil, err
	}

	ctx, cancel := chromedp.NewContext(ctx)
	defer cancel()
	ctx, cancelTimeout := context.WithTimeout(ctx, 30*time.Second)
	defer cancelTimeout()

	var pdfBuf []byte
	err = chromedp.Run(ctx,
		chromedp.Navigate("file://"+tmp.Name()),
		chromedp.WaitReady("body"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			pdfBuf, _, err = page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(8.27).  // A4 width
				WithPaperHeight(11.7). // A4 height
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, err
	}
	return pdfBuf, nil
}
