package events

import (
	"errors"
	"sync"
	"testing"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recordingHandler struct {
	mu     sync.Mutex
	types  []string
	accept map[string]bool
}

func (h *recordingHandler) Handle(e Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.types = append(h.types, e.Type())
	return nil
}

func (h *recordingHandler) CanHandle(eventType string) bool {
	return h.accept == nil || h.accept[eventType]
}

func (h *recordingHandler) seen() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.types...)
}

func TestInMemoryEventStore_StreamVersions(t *testing.T) {
	store := NewInMemoryEventStore()
	defer store.Close()

	for i := 0; i < 3; i++ {
		if err := store.AppendEvent("product-1", NewEvent(StockMovedEvent, "product-1", nil)); err != nil {
			t.Fatalf("Failed to append: %v", err)
		}
	}
	if err := store.AppendEvent("product-2", NewEvent(StockMovedEvent, "product-2", nil)); err != nil {
		t.Fatalf("Failed to append: %v", err)
	}

	events, _ := store.ReadEvents("product-1", 2)
	if len(events) != 2 {
		t.Fatalf("Expected 2 events from version 2, got %d", len(events))
	}
	if events[0].Version() != 2 || events[1].Version() != 3 {
		t.Errorf("Expected versions 2,3, got %d,%d", events[0].Version(), events[1].Version())
	}

	all, _ := store.ReadAllEvents(0)
	if len(all) != 4 {
		t.Errorf("Expected 4 events in global log, got %d", len(all))
	}
	if store.Position() != 4 {
		t.Errorf("Expected position 4, got %d", store.Position())
	}
}

func TestInMemoryEventStore_Retention(t *testing.T) {
	store := NewInMemoryEventStore(WithRetention(2))
	defer store.Close()

	for i := 0; i < 5; i++ {
		_ = Publish(store, NewEvent(SaleRecordedEvent, "sale", i))
	}

	all, _ := store.ReadAllEvents(0)
	if len(all) != 2 {
		t.Fatalf("Expected 2 retained events, got %d", len(all))
	}
	if all[0].Data() != 3 {
		t.Errorf("Expected oldest retained event to be 3, got %v", all[0].Data())
	}
	tail, _ := store.ReadAllEvents(4)
	if len(tail) != 1 || tail[0].Data() != 4 {
		t.Errorf("Expected only event 4 from position 4, got %v", tail)
	}
}

func TestInMemoryEventStore_Subscribers(t *testing.T) {
	store := NewInMemoryEventStore()

	sales := &recordingHandler{accept: map[string]bool{SaleRecordedEvent: true}}
	everything := &recordingHandler{}
	failing := HandlerFunc(func(Event) error { return errors.New("boom") })

	_ = store.Subscribe([]string{SaleRecordedEvent, StockMovedEvent}, sales)
	_ = store.Subscribe([]string{AllEvents}, everything)
	_ = store.Subscribe([]string{AllEvents}, failing)

	_ = Publish(store, NewEvent(SaleRecordedEvent, "sale-1", nil))
	_ = Publish(store, NewEvent(StockMovedEvent, "product-1", nil))
	store.Wait()

	if got := sales.seen(); len(got) != 1 || got[0] != SaleRecordedEvent {
		t.Errorf("Expected sales handler to see only the sale, got %v", got)
	}
	if got := everything.seen(); len(got) != 2 {
		t.Errorf("Expected wildcard handler to see 2 events, got %v", got)
	}

	_ = store.Unsubscribe(everything)
	_ = store.Unsubscribe(failing)
	_ = Publish(store, NewEvent(CatalogChangedEvent, "catalog-product", nil))
	store.Wait()
	if got := everything.seen(); len(got) != 2 {
		t.Errorf("Expected no deliveries after unsubscribe, got %v", got)
	}

	if err := store.Close(); err != nil {
		t.Fatalf("Failed to close: %v", err)
	}
	if err := store.AppendEvent("x", NewEvent(SaleRecordedEvent, "x", nil)); err == nil {
		t.Errorf("Expected append after close to fail")
	}
}

func TestPublish_NilStore(t *testing.T) {
	if err := Publish(nil, NewEvent(SaleRecordedEvent, "x", nil)); err != nil {
		t.Errorf("Expected nil store to discard events, got %v", err)
	}
}
