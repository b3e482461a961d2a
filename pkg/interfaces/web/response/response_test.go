package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vsinha/stockroom/pkg/application/services"
	"github.com/vsinha/stockroom/pkg/domain/entities"
	"github.com/vsinha/stockroom/pkg/infrastructure/auth"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("product 9: %w", entities.ErrNotFound), http.StatusNotFound},
		{entities.Invalidf("name is required"), http.StatusUnprocessableEntity},
		{fmt.Errorf("sku taken: %w", entities.ErrConflict), http.StatusConflict},
		{entities.ErrInsufficientStock, http.StatusConflict},
		{entities.ErrInvalidTransition, http.StatusConflict},
		{services.ErrInvalidCredentials, http.StatusUnauthorized},
		{auth.ErrInvalidToken, http.StatusUnauthorized},
		{auth.ErrTokenRevoked, http.StatusUnauthorized},
		{errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.status, StatusFor(tt.err))
		})
	}
}

func TestError(t *testing.T) {
	t.Run("domain error keeps message", func(t *testing.T) {
		rec := httptest.NewRecorder()
		Error(rec, fmt.Errorf("eggs short by 4: %w", entities.ErrInsufficientStock))

		require.Equal(t, http.StatusConflict, rec.Code)
		var body ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "insufficient_stock", body.Code)
		assert.Contains(t, body.Message, "eggs short by 4")
	})

	t.Run("internal error is hidden", func(t *testing.T) {
		rec := httptest.NewRecorder()
		Error(rec, errors.New("pq: connection refused"))

		require.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, rec.Body.String(), "pq:")
		assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	})
}

func TestBadRequest(t *testing.T) {
	rec := httptest.NewRecorder()
	BadRequest(rec, "invalid id %q", "abc")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Bad Request","message":"invalid id \"abc\"","code":"bad_request"}`, rec.Body.String())
}
