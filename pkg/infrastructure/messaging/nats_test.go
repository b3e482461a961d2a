package messaging

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vsinha/stockroom/pkg/domain/entities"
	"github.com/vsinha/stockroom/pkg/infrastructure/events"
)

type capture struct {
	subjects []string
	payloads [][]byte
	err      error
}

func (c *capture) Publish(subject string, data []byte) error {
	if c.err != nil {
		return c.err
	}
	c.subjects = append(c.subjects, subject)
	c.payloads = append(c.payloads, data)
	return nil
}

func TestForwarder_Handle(t *testing.T) {
	conn := &capture{}
	f := newForwarder(conn, "", nil)

	run := entities.ProductionRun{ID: 4, ProductID: 1, Status: entities.RunCompleted}
	require.NoError(t, f.Handle(events.NewProductionCompletedEvent(run)))

	require.Len(t, conn.subjects, 1)
	assert.Equal(t, "stockroom.production.completed", conn.subjects[0])

	var envelope struct {
		Type     string `json:"type"`
		StreamID string `json:"stream_id"`
		Data     struct {
			Run struct {
				ID     int64  `json:"id"`
				Status string `json:"status"`
			} `json:"run"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(conn.payloads[0], &envelope))
	assert.Equal(t, "run-4", envelope.StreamID)
	assert.Equal(t, "completed", envelope.Data.Run.Status)
}

func TestForwarder_PublishError(t *testing.T) {
	f := newForwarder(&capture{err: errors.New("nats: connection closed")}, "erp", nil)
	err := f.Handle(events.NewCatalogChangedEvent("product", 1, events.ActionCreated))
	assert.ErrorContains(t, err, "publish catalog.changed event")
	assert.Equal(t, "erp.catalog.changed", f.Subject(events.CatalogChangedEvent))
	assert.NoError(t, f.Close())
}
