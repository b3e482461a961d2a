package events

import (
	"time"
)

// AllEvents subscribes a handler to every event type
const AllEvents = "*"

type Event interface {
	Type() string
	StreamID() string
	Data() interface{}
	Timestamp() time.Time
	Version() int
}

type EventHandler interface {
	Handle(event Event) error
	CanHandle(eventType string) bool
}

type EventStore interface {
	AppendEvent(streamID string, event Event) error
	ReadEvents(streamID string, fromVersion int) ([]Event, error)
	ReadAllEvents(fromPosition int) ([]Event, error)
	Subscribe(eventTypes []string, handler EventHandler) error
	Unsubscribe(handler EventHandler) error
}

type BaseEvent struct {
	EventType    string      `json:"type"`
	Stream       string      `json:"stream_id"`
	EventData    interface{} `json:"data"`
	EventTime    time.Time   `json:"timestamp"`
	EventVersion int         `json:"version"`
}

func (e BaseEvent) Type() string {
	return e.EventType
}

func (e BaseEvent) StreamID() string {
	return e.Stream
}

func (e BaseEvent) Data() interface{} {
	return e.EventData
}

func (e BaseEvent) Timestamp() time.Time {
	return e.EventTime
}

func (e BaseEvent) Version() int {
	return e.EventVersion
}

func NewEvent(eventType, streamID string, data interface{}) Event {
	return BaseEvent{
		EventType:    eventType,
		Stream:       streamID,
		EventData:    data,
		EventTime:    time.Now().UTC(),
		EventVersion: 1,
	}
}

// Envelope is the serializable form of an event
func Envelope(e Event) BaseEvent {
	return BaseEvent{
		EventType:    e.Type(),
		Stream:       e.StreamID(),
		EventData:    e.Data(),
		EventTime:    e.Timestamp(),
		EventVersion: e.Version(),
	}
}

// HandlerFunc adapts a function to an EventHandler that accepts every event type.
// The returned handler is a pointer so it can be passed to Unsubscribe.
func HandlerFunc(fn func(event Event) error) EventHandler {
	return &funcHandler{fn: fn}
}

type funcHandler struct {
	fn func(event Event) error
}

func (h *funcHandler) Handle(event Event) error {
	return h.fn(event)
}

func (h *funcHandler) CanHandle(string) bool {
	return true
}

// Publish appends event to its own stream; a nil store discards it
func Publish(store EventStore, event Event) error {
	if store == nil {
		return nil
	}
	return store.AppendEvent(event.StreamID(), event)
}
