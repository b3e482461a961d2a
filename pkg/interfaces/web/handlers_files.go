package web

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/vsinha/stockroom/pkg/infrastructure/spreadsheet"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func templateKind(r *http.Request) (spreadsheet.TemplateKind, error) {
	kind, err := spreadsheet.ParseTemplateKind(chi.URLParam(r, "kind"))
	if err != nil {
		return "", badRequestf("%v", err)
	}
	return kind, nil
}

// importFile accepts a multipart upload in the "file" field
func (h *handler) importFile(w http.ResponseWriter, r *http.Request) {
	kind, err := templateKind(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		h.fail(w, r, badRequestf("invalid upload: %v", err))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		h.fail(w, r, badRequestf("missing file field: %v", err))
		return
	}
	defer file.Close()

	result, err := h.svc.Import.ImportFile(r.Context(), kind, header.Filename, file)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, result)
}

func (h *handler) template(w http.ResponseWriter, r *http.Request) {
	kind, err := templateKind(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := h.svc.Export.Template(&buf, kind); err != nil {
		h.fail(w, r, err)
		return
	}
	attachment(w, xlsxContentType, kind.Filename())
	_, _ = w.Write(buf.Bytes())
}

func (h *handler) exportRawMaterials(w http.ResponseWriter, r *http.Request) {
	filter, err := materialFilter(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := h.svc.Export.RawMaterialsCSV(r.Context(), &buf, filter); err != nil {
		h.fail(w, r, err)
		return
	}
	attachment(w, "text/csv", "raw_materials.csv")
	_, _ = w.Write(buf.Bytes())
}

func (h *handler) exportBatches(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := h.svc.Export.BatchesCSV(r.Context(), &buf, id); err != nil {
		h.fail(w, r, err)
		return
	}
	attachment(w, "text/csv", fmt.Sprintf("batches_%d.csv", id))
	_, _ = w.Write(buf.Bytes())
}

func (h *handler) exportSales(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.svc.Export.SalesXLSX(r.Context(), &buf); err != nil {
		h.fail(w, r, err)
		return
	}
	attachment(w, xlsxContentType, "sales.xlsx")
	_, _ = w.Write(buf.Bytes())
}
