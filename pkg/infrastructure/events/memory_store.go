package events

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// DefaultRetention bounds how many events the in-memory log keeps
const DefaultRetention = 10000

type InMemoryEventStore struct {
	streams     map[string][]Event
	subscribers map[string][]EventHandler
	mutex       sync.RWMutex
	position    int
	allEvents   []Event
	retention   int
	closed      bool

	logger   *zap.Logger
	inflight sync.WaitGroup
}

// Option configures an InMemoryEventStore
type Option func(*InMemoryEventStore)

// WithLogger logs handler failures to logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *InMemoryEventStore) {
		s.logger = logger
	}
}

// WithRetention caps the number of events kept in the global log
func WithRetention(n int) Option {
	return func(s *InMemoryEventStore) {
		if n > 0 {
			s.retention = n
		}
	}
}

func NewInMemoryEventStore(opts ...Option) *InMemoryEventStore {
	s := &InMemoryEventStore{
		streams:     make(map[string][]Event),
		subscribers: make(map[string][]EventHandler),
		allEvents:   make([]Event, 0),
		retention:   DefaultRetention,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *InMemoryEventStore) AppendEvent(streamID string, event Event) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.closed {
		return fmt.Errorf("event store is closed")
	}

	eventWithVersion := BaseEvent{
		EventType:    event.Type(),
		Stream:       streamID,
		EventData:    event.Data(),
		EventTime:    event.Timestamp(),
		EventVersion: len(s.streams[streamID]) + 1,
	}

	s.streams[streamID] = append(s.streams[streamID], eventWithVersion)
	s.allEvents = append(s.allEvents, eventWithVersion)
	s.position++
	if over := len(s.allEvents) - s.retention; over > 0 {
		s.allEvents = append([]Event(nil), s.allEvents[over:]...)
	}

	handlers := s.handlersFor(eventWithVersion.Type())
	s.inflight.Add(len(handlers))
	for _, h := range handlers {
		go s.deliver(h, eventWithVersion)
	}

	return nil
}

// handlersFor must be called with the mutex held
func (s *InMemoryEventStore) handlersFor(eventType string) []EventHandler {
	var handlers []EventHandler
	for _, h := range s.subscribers[eventType] {
		if h.CanHandle(eventType) {
			handlers = append(handlers, h)
		}
	}
	for _, h := range s.subscribers[AllEvents] {
		if h.CanHandle(eventType) {
			handlers = append(handlers, h)
		}
	}
	return handlers
}

func (s *InMemoryEventStore) deliver(h EventHandler, e Event) {
	defer s.inflight.Done()
	defer func() {
		if p := recover(); p != nil {
			s.logger.Error("event handler panicked", zap.String("event", e.Type()), zap.Any("panic", p))
		}
	}()
	if err := h.Handle(e); err != nil {
		s.logger.Warn("error handling event",
			zap.String("event", e.Type()),
			zap.String("stream", e.StreamID()),
			zap.Error(err))
	}
}

func (s *InMemoryEventStore) ReadEvents(streamID string, fromVersion int) ([]Event, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	events, exists := s.streams[streamID]
	if !exists {
		return []Event{}, nil
	}

	if fromVersion < 1 {
		fromVersion = 1
	}

	if fromVersion > len(events) {
		return []Event{}, nil
	}

	return append([]Event(nil), events[fromVersion-1:]...), nil
}

// ReadAllEvents returns retained events starting at an absolute position
func (s *InMemoryEventStore) ReadAllEvents(fromPosition int) ([]Event, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	first := s.position - len(s.allEvents)
	if fromPosition < first {
		fromPosition = first
	}

	if fromPosition >= s.position {
		return []Event{}, nil
	}

	return append([]Event(nil), s.allEvents[fromPosition-first:]...), nil
}

// Position is the number of events appended so far
func (s *InMemoryEventStore) Position() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.position
}

func (s *InMemoryEventStore) Subscribe(eventTypes []string, handler EventHandler) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for _, eventType := range eventTypes {
		s.subscribers[eventType] = append(s.subscribers[eventType], handler)
	}

	return nil
}

func (s *InMemoryEventStore) Unsubscribe(handler EventHandler) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for eventType, handlers := range s.subscribers {
		newHandlers := make([]EventHandler, 0, len(handlers))
		for _, h := range handlers {
			if h != handler {
				newHandlers = append(newHandlers, h)
			}
		}
		s.subscribers[eventType] = newHandlers
	}

	return nil
}

// Wait blocks until every handler dispatched so far has returned
func (s *InMemoryEventStore) Wait() {
	s.inflight.Wait()
}

// Close rejects further appends and waits for in-flight handlers
func (s *InMemoryEventStore) Close() error {
	s.mutex.Lock()
	s.closed = true
	s.mutex.Unlock()
	s.inflight.Wait()
	return nil
}
