package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorilla "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vsinha/stockroom/pkg/infrastructure/events"
	"go.uber.org/goleak"
)

func startHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	upgrader := NewUpgrader(hub, nil)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = upgrader.Serve(w, r, 7)
	}))
	t.Cleanup(func() {
		server.Close()
		cancel()
		<-hub.Done()
	})
	return hub, server
}

func dial(t *testing.T, server *httptest.Server, query string) *gorilla.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + query
	conn, _, err := gorilla.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *gorilla.Conn) map[string]interface{} {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var env map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &env))
	return env
}

func TestHub_BroadcastsEnvelope(t *testing.T) {
	hub, server := startHub(t)
	conn := dial(t, server, "")
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, hub.Handle(events.NewCatalogChangedEvent("product", 3, events.ActionCreated)))

	env := readEnvelope(t, conn)
	assert.Equal(t, events.CatalogChangedEvent, env["type"])
	assert.Equal(t, "catalog-product", env["stream_id"])
	data, ok := env["data"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "created", data["action"])
}

func TestHub_FiltersByType(t *testing.T) {
	hub, server := startHub(t)
	conn := dial(t, server, "?types=stock.low,%20sale.recorded")
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, hub.Handle(events.NewEvent(events.CatalogChangedEvent, "catalog-product", nil)))
	require.NoError(t, hub.Handle(events.NewEvent(events.LowStockEvent, "product-1", nil)))

	env := readEnvelope(t, conn)
	assert.Equal(t, events.LowStockEvent, env["type"])
}

func TestHub_UnregistersOnClose(t *testing.T) {
	hub, server := startHub(t)
	conn := dial(t, server, "")
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_RunStopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	// no clients, so events are simply dropped
	require.NoError(t, hub.Handle(events.NewEvent(events.StockMovedEvent, "product-1", nil)))
	cancel()

	select {
	case <-hub.Done():
	case <-time.After(time.Second):
		t.Fatal("hub did not stop")
	}
}

func TestParseTypes(t *testing.T) {
	assert.Empty(t, parseTypes(""))
	assert.Equal(t, map[string]bool{"a": true, "b": true}, parseTypes(" a, ,b"))
}
