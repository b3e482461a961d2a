package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/vsinha/stockroom/pkg/interfaces/web/middleware"
	"github.com/vsinha/stockroom/pkg/interfaces/web/response"
	"go.uber.org/zap"
)

const maxJSONBody = 1 << 20

// errBadRequest marks request parsing failures, which render as 400
var errBadRequest = errors.New("bad request")

func badRequestf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// fail renders err, logging anything that is not the client's fault
func (h *handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, errBadRequest) {
		response.BadRequest(w, "%v", err)
		return
	}
	if response.StatusFor(err) == http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("request_id", middleware.GetRequestID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}
	response.Error(w, err)
}

// decode reads a JSON body into dst, rejecting unknown fields
func decode(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return badRequestf("invalid JSON body: %v", err)
	}
	return nil
}

func idParam(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequestf("invalid id %q", raw)
	}
	return id, nil
}

// queryInt reads an optional integer query parameter
func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, badRequestf("invalid %s %q", name, raw)
	}
	return n, nil
}

// queryID reads an optional positive id query parameter
func queryID(r *http.Request, name string) (*int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil, badRequestf("invalid %s %q", name, raw)
	}
	return &id, nil
}

func ok(w http.ResponseWriter, v interface{}) {
	response.JSON(w, http.StatusOK, v)
}

func created(w http.ResponseWriter, v interface{}) {
	response.JSON(w, http.StatusCreated, v)
}

// attachment prepares headers for a file download
func attachment(w http.ResponseWriter, contentType, filename string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
}
