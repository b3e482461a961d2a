package services

import (
	"context"
	"io"
	"strconv"

	"github.com/vsinha/stockroom/pkg/application/dto"
	"github.com/vsinha/stockroom/pkg/domain/repositories"
	"github.com/vsinha/stockroom/pkg/infrastructure/spreadsheet"
	"go.uber.org/zap"
)

// ExportService writes inventory and sales data out as CSV and Excel files
type ExportService struct {
	deps
	inventory *InventoryService
}

// NewExportService creates an export service over store
func NewExportService(store repositories.TxStore, opts ...Option) *ExportService {
	return &ExportService{
		deps:      newDeps(store, "export", opts),
		inventory: NewInventoryService(store, opts...),
	}
}

var rawMaterialColumns = []string{
	"ID", "Name", "SKU", "Category", "CategoryCode", "Quantity", "PricePaid", "TotalValue", "Supplier", "Batches", "ActiveBatches",
}

// RawMaterialsCSV writes the filtered raw materials view
func (s *ExportService) RawMaterialsCSV(ctx context.Context, w io.Writer, filter dto.MaterialFilter) error {
	report, err := s.inventory.RawMaterials(ctx, filter)
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(report.Materials))
	for _, m := range report.Materials {
		rows = append(rows, []string{
			strconv.FormatInt(m.ID, 10),
			m.Name,
			string(m.SKU),
			m.Category,
			m.CategoryCode,
			m.QuantityInStock.String(),
			m.PricePaid.StringFixed(2),
			m.TotalValue.StringFixed(2),
			m.SupplierName,
			strconv.Itoa(m.BatchCount),
			strconv.Itoa(m.ActiveBatches),
		})
	}
	s.logger.Debug("exporting raw materials", zap.Int("rows", len(rows)))
	return spreadsheet.WriteCSV(w, rawMaterialColumns, rows)
}

var batchColumns = []string{
	"BatchNumber", "DateReceived", "QuantityReceived", "QuantityRemaining", "ExpirationDate", "DaysUntilExpiry",
	"Supplier", "ReceiverName", "QCStatus", "Status",
}

// BatchesCSV writes the batch breakdown of one raw material
func (s *ExportService) BatchesCSV(ctx context.Context, w io.Writer, materialID int64) error {
	details, err := s.inventory.BatchDetails(ctx, materialID)
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(details.Batches))
	for _, b := range details.Batches {
		expiry, days := "", ""
		if b.ExpirationDate != nil {
			expiry = b.ExpirationDate.Format("2006-01-02")
		}
		if b.DaysUntilExpiry != nil {
			days = strconv.Itoa(*b.DaysUntilExpiry)
		}
		rows = append(rows, []string{
			b.BatchNumber,
			b.DateReceived.Format("2006-01-02"),
			b.QuantityReceived.String(),
			b.QuantityRemaining.String(),
			expiry,
			days,
			b.SupplierName,
			b.ReceiverName,
			b.Quality.OverallStatus.String(),
			b.Status,
		})
	}
	return spreadsheet.WriteCSV(w, batchColumns, rows)
}

// SalesXLSX writes every sale to a workbook with a Sales sheet and an Items sheet
func (s *ExportService) SalesXLSX(ctx context.Context, w io.Writer) error {
	sales, err := s.store.Sales().List(ctx, 0)
	if err != nil {
		return err
	}
	header := spreadsheet.Sheet{
		Name:   "Sales",
		Header: []string{"Invoice", "Date", "Customer", "Email", "Phone", "Payment", "Items", "Total"},
	}
	items := spreadsheet.Sheet{
		Name:   "Items",
		Header: []string{"Invoice", "Product", "SKU", "Quantity", "UnitPrice", "Total"},
	}
	for _, sale := range sales {
		total, _ := sale.TotalAmount.Float64()
		header.Rows = append(header.Rows, []interface{}{
			sale.InvoiceNumber,
			sale.SaleDate.Format("2006-01-02 15:04"),
			sale.CustomerName,
			sale.CustomerEmail,
			sale.CustomerPhone,
			sale.PaymentMethod,
			len(sale.Items),
			total,
		})
		for _, item := range sale.Items {
			qty, _ := item.Quantity.Float64()
			price, _ := item.UnitPrice.Float64()
			lineTotal, _ := item.TotalPrice.Float64()
			items.Rows = append(items.Rows, []interface{}{
				sale.InvoiceNumber, item.ProductName, string(item.ProductSKU), qty, price, lineTotal,
			})
		}
	}
	s.logger.Debug("exporting sales", zap.Int("sales", len(sales)), zap.Int("items", len(items.Rows)))
	return spreadsheet.WriteXLSX(w, header, items)
}

// Template writes the blank upload workbook for kind
func (s *ExportService) Template(w io.Writer, kind spreadsheet.TemplateKind) error {
	return spreadsheet.WriteTemplate(w, kind)
}
