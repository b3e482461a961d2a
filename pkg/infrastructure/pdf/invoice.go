package pdf

import (
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
	"github.com/vsinha/stockroom/pkg/domain/entities"
)

// Company is the letterhead printed on invoices
type Company struct {
	Name    string
	Address string
	City    string
	Phone   string
}

// InvoiceRenderer draws sales invoices as letter-size PDFs
type InvoiceRenderer struct {
	company  Company
	compress bool
}

// NewInvoiceRenderer creates a renderer with the given letterhead
func NewInvoiceRenderer(company Company) *InvoiceRenderer {
	return &InvoiceRenderer{company: company, compress: true}
}

var itemColumns = []struct {
	title string
	width float64
}{
	{"Product", 63.5},
	{"SKU", 25.4},
	{"Quantity", 25.4},
	{"Unit Price", 25.4},
	{"Total", 25.4},
}

// Render writes the invoice for sale to w
func (r *InvoiceRenderer) Render(w io.Writer, sale *entities.Sale) error {
	if sale == nil {
		return fmt.Errorf("no sale to render")
	}

	doc := fpdf.New("P", "mm", "Letter", "")
	doc.SetCompression(r.compress)
	doc.SetTitle("Invoice "+sale.InvoiceNumber, true)
	doc.SetMargins(25.4, 25.4, 25.4)
	tr := doc.UnicodeTranslatorFromDescriptor("")
	doc.AddPage()

	doc.SetFont("Helvetica", "B", 24)
	doc.SetTextColor(0, 0, 139)
	doc.CellFormat(0, 12, "INVOICE", "", 1, "L", false, 0, "")
	doc.Ln(8)

	doc.SetFont("Helvetica", "B", 12)
	doc.CellFormat(0, 6, tr(r.company.Name), "", 1, "L", false, 0, "")
	doc.SetFont("Helvetica", "", 12)
	doc.CellFormat(0, 6, tr(r.company.Address), "", 1, "L", false, 0, "")
	doc.CellFormat(0, 6, tr(r.company.City), "", 1, "L", false, 0, "")
	doc.CellFormat(0, 6, tr("Phone: "+r.company.Phone), "", 1, "L", false, 0, "")
	doc.Ln(8)

	doc.SetTextColor(0, 0, 0)
	details := [][2]string{
		{"Invoice Number:", sale.InvoiceNumber},
		{"Date:", sale.SaleDate.Format("2006-01-02 15:04")},
		{"Customer:", sale.CustomerName},
		{"Email:", orNA(sale.CustomerEmail)},
		{"Phone:", orNA(sale.CustomerPhone)},
		{"Payment:", sale.PaymentMethod},
	}
	for _, d := range details {
		doc.SetFont("Helvetica", "B", 10)
		doc.CellFormat(38, 7, d[0], "", 0, "L", false, 0, "")
		doc.SetFont("Helvetica", "", 10)
		doc.CellFormat(76, 7, tr(d[1]), "", 1, "L", false, 0, "")
	}
	doc.Ln(8)

	r.itemsTable(doc, tr, sale)

	if sale.Notes != "" {
		doc.Ln(8)
		doc.SetFont("Helvetica", "B", 10)
		doc.CellFormat(14, 6, "Notes:", "", 0, "L", false, 0, "")
		doc.SetFont("Helvetica", "", 10)
		doc.MultiCell(0, 6, tr(sale.Notes), "", "L", false)
	}

	if err := doc.Output(w); err != nil {
		return fmt.Errorf("failed to render invoice %s: %w", sale.InvoiceNumber, err)
	}
	return nil
}

func (r *InvoiceRenderer) itemsTable(doc *fpdf.Fpdf, tr func(string) string, sale *entities.Sale) {
	doc.SetDrawColor(0, 0, 0)
	doc.SetLineWidth(0.3)

	doc.SetFont("Helvetica", "B", 10)
	doc.SetFillColor(128, 128, 128)
	doc.SetTextColor(245, 245, 245)
	for _, c := range itemColumns {
		doc.CellFormat(c.width, 9, c.title, "1", 0, "C", true, 0, "")
	}
	doc.Ln(-1)

	doc.SetFont("Helvetica", "", 10)
	doc.SetFillColor(245, 245, 220)
	doc.SetTextColor(0, 0, 0)
	for _, item := range sale.Items {
		cells := []string{
			tr(item.ProductName),
			tr(string(item.ProductSKU)),
			item.Quantity.String(),
			money(item.UnitPrice),
			money(item.TotalPrice),
		}
		for i, c := range itemColumns {
			doc.CellFormat(c.width, 8, cells[i], "1", 0, "C", true, 0, "")
		}
		doc.Ln(-1)
	}

	doc.SetFont("Helvetica", "B", 10)
	doc.SetFillColor(211, 211, 211)
	totals := []string{"", "", "", "TOTAL:", money(sale.TotalAmount)}
	for i, c := range itemColumns {
		doc.CellFormat(c.width, 8, totals[i], "1", 0, "C", true, 0, "")
	}
	doc.Ln(-1)
}

func money(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
