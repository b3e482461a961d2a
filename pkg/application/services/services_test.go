package services

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/vsinha/stockroom/pkg/domain/repositories"
	"github.com/vsinha/stockroom/pkg/infrastructure/events"
	"github.com/vsinha/stockroom/pkg/infrastructure/repositories/memory"
	"github.com/vsinha/stockroom/pkg/infrastructure/repositories/sqlstore"
	testhelpers "github.com/vsinha/stockroom/pkg/infrastructure/testing"
)

// storeKinds are the datastores the stock-moving flows are checked against
var storeKinds = []struct {
	name string
	open func(t *testing.T) repositories.TxStore
}{
	{"memory", func(*testing.T) repositories.TxStore { return memory.NewStore() }},
	{"sqlite", openSQLite},
}

func openSQLite(t *testing.T) repositories.TxStore {
	t.Helper()
	ctx := context.Background()
	store, err := sqlstore.Open(ctx, sqlstore.Config{Driver: "sqlite3", URL: ":memory:"})
	if err != nil {
		t.Fatalf("Failed to open sqlite: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	if _, err := sqlstore.NewMigrator(store, nil).Up(ctx); err != nil {
		t.Fatalf("Failed to migrate sqlite: %v", err)
	}
	return store
}

// forEachStore runs fn as a subtest against a fresh bakery in every datastore
func forEachStore(t *testing.T, fn func(t *testing.T, b *testhelpers.Bakery)) {
	t.Helper()
	for _, kind := range storeKinds {
		t.Run(kind.name, func(t *testing.T) {
			fn(t, testhelpers.BuildBakeryIn(kind.open(t)))
		})
	}
}

// eventRecorder collects the types of every event it sees
type eventRecorder struct {
	mu    sync.Mutex
	types []string
}

func (r *eventRecorder) Handle(e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types = append(r.types, e.Type())
	return nil
}

func (r *eventRecorder) CanHandle(string) bool {
	return true
}

func (r *eventRecorder) count(eventType string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, t := range r.types {
		if t == eventType {
			n++
		}
	}
	return n
}

func (r *eventRecorder) sorted() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := append([]string(nil), r.types...)
	sort.Strings(out)
	return out
}

// newBus returns an event bus with a recorder subscribed to everything
func newBus(t *testing.T) (*events.InMemoryEventStore, *eventRecorder) {
	t.Helper()
	bus := events.NewInMemoryEventStore()
	rec := &eventRecorder{}
	if err := bus.Subscribe([]string{events.AllEvents}, rec); err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}
	t.Cleanup(func() { _ = bus.Close() })
	return bus, rec
}

func dec(s string) decimal.Decimal {
	return testhelpers.Dec(s)
}

func assertDecimal(t *testing.T, what string, want string, got decimal.Decimal) {
	t.Helper()
	if !got.Equal(dec(want)) {
		t.Errorf("Expected %s %s, got %s", what, want, got)
	}
}
