package output

import (
	"fmt"
	"strconv"

	"github.com/vsinha/stockroom/pkg/application/dto"
	domain "github.com/vsinha/stockroom/pkg/domain/services"
)

const dateFormat = "2006-01-02"

// MaterialsReport lists raw materials with their stock value
func MaterialsReport(r *dto.MaterialReport) *Report {
	rows := make([][]string, 0, len(r.Materials))
	for _, m := range r.Materials {
		rows = append(rows, []string{
			string(m.SKU),
			m.Name,
			m.Category,
			m.QuantityInStock.String(),
			m.PricePaid.StringFixed(2),
			m.TotalValue.StringFixed(2),
			m.SupplierName,
			fmt.Sprintf("%d/%d", m.ActiveBatches, m.BatchCount),
		})
	}
	return &Report{
		Name:   "raw_materials",
		Title:  "Raw Materials",
		Header: []string{"SKU", "Name", "Category", "Stock", "Price", "Value", "Supplier", "Batches"},
		Rows:   rows,
		Summary: []string{
			fmt.Sprintf("Items: %d", r.Summary.Items),
			fmt.Sprintf("Total quantity: %s", r.Summary.TotalQuantity),
			fmt.Sprintf("Total value: %s", r.Summary.TotalValue.StringFixed(2)),
			fmt.Sprintf("Active batches: %d of %d", r.Summary.ActiveBatches, r.Summary.TotalBatches),
		},
		Data: r,
	}
}

// LowStockReport lists products at or below the threshold
func LowStockReport(items []dto.LowStockItem) *Report {
	rows := make([][]string, 0, len(items))
	for _, it := range items {
		rows = append(rows, []string{string(it.SKU), it.Name, it.Type.String(), it.Quantity.String()})
	}
	return &Report{
		Name:   "low_stock",
		Title:  "Low Stock",
		Header: []string{"SKU", "Name", "Type", "Quantity"},
		Rows:   rows,
		Data:   items,
	}
}

// ExpiringReport lists batches that expire inside the window
func ExpiringReport(batches []dto.BatchView) *Report {
	rows := make([][]string, 0, len(batches))
	for _, b := range batches {
		expiry, days := "", ""
		if b.ExpirationDate != nil {
			expiry = b.ExpirationDate.Format(dateFormat)
		}
		if b.DaysUntilExpiry != nil {
			days = strconv.Itoa(*b.DaysUntilExpiry)
		}
		rows = append(rows, []string{
			b.BatchNumber,
			string(b.MaterialSKU),
			b.MaterialName,
			b.QuantityRemaining.String(),
			expiry,
			days,
			b.Status,
		})
	}
	return &Report{
		Name:   "expiring_batches",
		Title:  "Expiring Batches",
		Header: []string{"Batch", "SKU", "Material", "Remaining", "Expires", "Days", "Status"},
		Rows:   rows,
		Data:   batches,
	}
}

// DashboardReport is the headline numbers plus the low stock list
func DashboardReport(d *dto.Dashboard) *Report {
	report := LowStockReport(d.LowStock)
	report.Name = "dashboard"
	report.Title = "Stockroom Dashboard"
	report.Summary = []string{
		fmt.Sprintf("Raw materials: %d (value %s)", d.RawMaterials, d.RawMaterialValue.StringFixed(2)),
		fmt.Sprintf("Finished products: %d (value %s)", d.FinishedProducts, d.FinishedGoodValue.StringFixed(2)),
		fmt.Sprintf("Expiring batches: %d", d.ExpiringBatches),
		fmt.Sprintf("Open production runs: %d", d.OpenRuns),
		fmt.Sprintf("Sales: %d, revenue %s, today %s", d.Sales.Count, d.Sales.Revenue.StringFixed(2), d.Sales.TodayRevenue.StringFixed(2)),
	}
	report.Data = d
	return report
}

// RequirementsReport shows what a production quantity needs
func RequirementsReport(check *domain.RequirementCheck) *Report {
	rows := make([][]string, 0, len(check.Requirements))
	for _, r := range check.Requirements {
		rows = append(rows, []string{
			string(r.MaterialSKU),
			r.MaterialName,
			r.Needed.String(),
			r.Available.String(),
			r.Shortage.String(),
		})
	}
	verdict := "All materials available."
	if !check.OK {
		verdict = fmt.Sprintf("Short on %d material(s).", len(check.Shortages()))
	}
	return &Report{
		Name:    "requirements",
		Title:   fmt.Sprintf("Materials for %s units", check.Quantity),
		Header:  []string{"SKU", "Material", "Needed", "Available", "Shortage"},
		Rows:    rows,
		Summary: []string{verdict},
		Data:    check,
	}
}

// ProductionReport shows the batches a finished run drew from
func ProductionReport(result *dto.ProductionResult) *Report {
	names := make(map[int64]string, len(result.Run.Materials))
	for _, m := range result.Run.Materials {
		names[m.RawMaterialID] = string(m.MaterialSKU)
	}
	var rows [][]string
	for _, c := range result.Consumption {
		if len(c.ConsumedFrom) == 0 {
			rows = append(rows, []string{names[c.ProductID], "-", c.Consumed.String()})
		}
		for _, b := range c.ConsumedFrom {
			rows = append(rows, []string{names[c.ProductID], b.BatchNumber, b.Quantity.String()})
		}
	}
	run := result.Run
	return &Report{
		Name:   "production",
		Title:  fmt.Sprintf("Production run #%d: %s x %s", run.ID, run.ProductName, run.Quantity),
		Header: []string{"Material", "Batch", "Consumed"},
		Rows:   rows,
		Summary: []string{
			fmt.Sprintf("Status: %s", run.Status),
			fmt.Sprintf("Unit cost: %s", run.UnitCost.StringFixed(2)),
		},
		Data: result,
	}
}

// TransactionsReport lists stock movements newest first
func TransactionsReport(views []dto.TransactionView) *Report {
	rows := make([][]string, 0, len(views))
	for _, v := range views {
		rows = append(rows, []string{
			v.Date.Format("2006-01-02 15:04"),
			string(v.ProductSKU),
			v.Type.String(),
			v.Quantity.String(),
			string(v.Source),
			v.Notes,
		})
	}
	return &Report{
		Name:   "transactions",
		Title:  "Stock Movements",
		Header: []string{"Date", "SKU", "Type", "Quantity", "Source", "Notes"},
		Rows:   rows,
		Data:   views,
	}
}
