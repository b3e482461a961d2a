package web

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
	"github.com/vsinha/stockroom/pkg/application/dto"
	"github.com/vsinha/stockroom/pkg/domain/entities"
	"github.com/vsinha/stockroom/pkg/domain/repositories"
)

const defaultListLimit = 50

// runRequest is the body of check, produce and plan requests
type runRequest struct {
	ProductID int64           `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	Notes     string          `json:"notes"`
}

func (h *handler) manufacturable(w http.ResponseWriter, r *http.Request) {
	products, err := h.svc.Catalog.Manufacturable(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, products)
}

func (h *handler) checkMaterials(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	check, err := h.svc.Production.CheckMaterials(r.Context(), req.ProductID, req.Quantity)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, check)
}

func (h *handler) produce(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	result, err := h.svc.Production.Produce(r.Context(), req.ProductID, req.Quantity, req.Notes)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	created(w, result)
}

func (h *handler) activity(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 20)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	views, err := h.svc.Production.RecentActivity(r.Context(), limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, views)
}

func (h *handler) listRuns(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", defaultListLimit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	runs, err := h.svc.Production.ListRuns(r.Context(), limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, runs)
}

func (h *handler) planRun(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	run, err := h.svc.Production.PlanRun(r.Context(), req.ProductID, req.Quantity, req.Notes)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	created(w, run)
}

func (h *handler) getRun(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	run, err := h.svc.Production.GetRun(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, run)
}

func (h *handler) startRun(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	run, err := h.svc.Production.StartRun(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, run)
}

func (h *handler) finishRun(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	result, err := h.svc.Production.FinishRun(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, result)
}

func (h *handler) cancelRun(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	run, err := h.svc.Production.CancelRun(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, run)
}

func (h *handler) createMaterial(w http.ResponseWriter, r *http.Request) {
	var in dto.ProductInput
	if err := decode(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	material, err := h.svc.Receiving.CreateMaterial(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	created(w, material)
}

func (h *handler) receiveBatch(w http.ResponseWriter, r *http.Request) {
	var in dto.ReceiveBatchInput
	if err := decode(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	batch, err := h.svc.Receiving.ReceiveBatch(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	created(w, batch)
}

// listBatches searches when ?q= is set, otherwise lists the most recent receipts
func (h *handler) listBatches(w http.ResponseWriter, r *http.Request) {
	var (
		views []dto.BatchView
		err   error
	)
	if q := r.URL.Query().Get("q"); q != "" {
		views, err = h.svc.Receiving.SearchBatches(r.Context(), q)
	} else {
		var limit int
		if limit, err = queryInt(r, "limit", defaultListLimit); err == nil {
			views, err = h.svc.Receiving.RecentBatches(r.Context(), limit)
		}
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, views)
}

func (h *handler) expiringBatches(w http.ResponseWriter, r *http.Request) {
	days, err := queryInt(r, "days", -1)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	views, err := h.svc.Receiving.ExpiringBatches(r.Context(), days)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, views)
}

func (h *handler) dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.Inventory.Dashboard(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, d)
}

func materialFilter(r *http.Request) (dto.MaterialFilter, error) {
	filter := dto.MaterialFilter{Category: r.URL.Query().Get("category")}
	supplierID, err := queryID(r, "supplier_id")
	if err != nil {
		return filter, err
	}
	filter.SupplierID = supplierID
	level, err := entities.ParseStockLevel(r.URL.Query().Get("level"))
	if err != nil {
		return filter, badRequestf("%v", err)
	}
	filter.Level = level
	return filter, nil
}

func (h *handler) rawMaterials(w http.ResponseWriter, r *http.Request) {
	filter, err := materialFilter(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	report, err := h.svc.Inventory.RawMaterials(r.Context(), filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, report)
}

func (h *handler) batchDetails(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	details, err := h.svc.Inventory.BatchDetails(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, details)
}

func (h *handler) transactions(w http.ResponseWriter, r *http.Request) {
	var filter repositories.TransactionFilter
	productID, err := queryID(r, "product_id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if productID != nil {
		filter.ProductID = *productID
	}
	if src := entities.TxSource(r.URL.Query().Get("source")); src != "" {
		if !src.Valid() {
			h.fail(w, r, badRequestf("unknown source %q", src))
			return
		}
		filter.Source = src
	}
	if filter.Limit, err = queryInt(r, "limit", 100); err != nil {
		h.fail(w, r, err)
		return
	}

	views, err := h.svc.Inventory.Transactions(r.Context(), filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, views)
}

func (h *handler) lowStock(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.Inventory.LowStock(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, items)
}

func (h *handler) listSales(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", defaultListLimit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	sales, err := h.svc.Sales.RecentSales(r.Context(), limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, sales)
}

func (h *handler) createSale(w http.ResponseWriter, r *http.Request) {
	var in dto.SaleInput
	if err := decode(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	sale, err := h.svc.Sales.CreateSale(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	created(w, sale)
}

func (h *handler) salesSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.svc.Sales.Summary(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, summary)
}

func (h *handler) getSale(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	sale, err := h.svc.Sales.GetSale(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, sale)
}

// invoice renders into a buffer so a failure can still become a JSON error
func (h *handler) invoice(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var buf bytes.Buffer
	sale, err := h.svc.Sales.Invoice(r.Context(), id, &buf)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	attachment(w, "application/pdf", fmt.Sprintf("invoice_%s.pdf", sale.InvoiceNumber))
	_, _ = w.Write(buf.Bytes())
}
