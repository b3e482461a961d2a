package web

import (
	"net/http"

	"github.com/shopspring/decimal"
	"github.com/vsinha/stockroom/pkg/application/dto"
	"github.com/vsinha/stockroom/pkg/domain/entities"
	"github.com/vsinha/stockroom/pkg/domain/repositories"
)

func (h *handler) listSuppliers(w http.ResponseWriter, r *http.Request) {
	suppliers, err := h.svc.Catalog.ListSuppliers(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, suppliers)
}

func (h *handler) createSupplier(w http.ResponseWriter, r *http.Request) {
	var in dto.SupplierInput
	if err := decode(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	supplier, err := h.svc.Catalog.CreateSupplier(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	created(w, supplier)
}

func (h *handler) getSupplier(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	supplier, err := h.svc.Catalog.GetSupplier(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, supplier)
}

func (h *handler) updateSupplier(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var in dto.SupplierInput
	if err := decode(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	supplier, err := h.svc.Catalog.UpdateSupplier(r.Context(), id, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, supplier)
}

func (h *handler) deleteSupplier(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.svc.Catalog.DeleteSupplier(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// listProducts filters on ?type=raw|finished, ?category= and ?supplier_id=
func (h *handler) listProducts(w http.ResponseWriter, r *http.Request) {
	var filter repositories.ProductFilter
	if raw := r.URL.Query().Get("type"); raw != "" {
		pt, err := entities.ParseProductType(raw)
		if err != nil {
			h.fail(w, r, badRequestf("%v", err))
			return
		}
		filter.Type = &pt
	}
	filter.Category = r.URL.Query().Get("category")
	supplierID, err := queryID(r, "supplier_id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	filter.SupplierID = supplierID

	products, err := h.svc.Catalog.ListProducts(r.Context(), filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, products)
}

func (h *handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var in dto.ProductInput
	if err := decode(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	product, err := h.svc.Catalog.CreateProduct(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	created(w, product)
}

func (h *handler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	product, err := h.svc.Catalog.GetProduct(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, product)
}

func (h *handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var in dto.ProductInput
	if err := decode(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	product, err := h.svc.Catalog.UpdateProduct(r.Context(), id, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, product)
}

func (h *handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.svc.Catalog.DeleteProduct(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) adjustStock(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var adj dto.StockAdjustment
	if err := decode(r, &adj); err != nil {
		h.fail(w, r, err)
		return
	}
	product, err := h.svc.Catalog.AdjustStock(r.Context(), id, adj)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, product)
}

func (h *handler) productCost(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	cost, err := h.svc.Catalog.ProductCost(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, cost)
}

func (h *handler) productBOM(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	lines, err := h.svc.Catalog.BOMForProduct(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, lines)
}

func (h *handler) listBOM(w http.ResponseWriter, r *http.Request) {
	lines, err := h.svc.Catalog.ListBOM(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, lines)
}

func (h *handler) addBOMLine(w http.ResponseWriter, r *http.Request) {
	var in dto.BOMLineInput
	if err := decode(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	line, err := h.svc.Catalog.AddBOMLine(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	created(w, line)
}

type bomLineUpdate struct {
	QuantityRequired decimal.Decimal `json:"quantity_required"`
	ProductVolume    decimal.Decimal `json:"product_volume"`
}

func (h *handler) updateBOMLine(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var in bomLineUpdate
	if err := decode(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	line, err := h.svc.Catalog.UpdateBOMLine(r.Context(), id, in.QuantityRequired, in.ProductVolume)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, line)
}

func (h *handler) deleteBOMLine(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.svc.Catalog.DeleteBOMLine(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
