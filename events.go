package strix

import (
	"log/slog"
	"sync"
	"time"
)

// EventType identifies the kind of event on the bus.
type EventType string

const (
	EventScanStarted       EventType = "scan_started"
	EventScanCompleted     EventType = "scan_completed"
	EventScanPaused        EventType = "scan_paused"
	EventScanResumed       EventType = "scan_resumed"
	EventTaskStarted       EventType = "task_started"
	EventTaskCompleted     EventType = "task_completed"
	EventTaskFailed        EventType = "task_failed"
	EventTaskProgress      EventType = "task_progress"
	EventAssetDiscovered   EventType = "asset_discovered"
	EventFindingDiscovered EventType = "finding_discovered"
	EventLogMessage        EventType = "log_message"
)

// Event is a pub/sub record.
type Event struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Source    string         `json:"source"`
	Data      map[string]any `json:"data"`
}

// NewEvent creates an Event with a fresh ID and the current timestamp.
func NewEvent(t EventType, source string, data map[string]any) Event {
	if data == nil {
		data = map[string]any{}
	}
	return Event{ID: NewID(), Type: t, Timestamp: Now(), Source: source, Data: data}
}

// EventHandler receives published events. Handlers run synchronously in
// registration order; a handler that needs to do slow work should hand the
// event off to its own goroutine.
type EventHandler func(Event)

const defaultMaxHistory = 1000

type subscriber struct {
	id int
	fn EventHandler
}

// BusOption configures a Bus.
type BusOption func(*Bus)

// WithBusLogger sets a structured logger for subscriber panic reports.
func WithBusLogger(l *slog.Logger) BusOption {
	return func(b *Bus) { b.logger = l }
}

// WithMaxHistory overrides the bounded history capacity (default 1000).
func WithMaxHistory(n int) BusOption {
	return func(b *Bus) {
		if n > 0 {
			b.maxHistory = n
		}
	}
}

// Bus is a typed in-process publish/subscribe bus with bounded replay
// history. Publish is the only mutation path; a panicking subscriber never
// prevents delivery to the remaining subscribers.
type Bus struct {
	mu          sync.Mutex
	subscribers map[EventType][]subscriber
	nextID      int
	history     []Event
	maxHistory  int
	logger      *slog.Logger
}

// NewBus creates an event bus.
func NewBus(opts ...BusOption) *Bus {
	b := &Bus{
		subscribers: map[EventType][]subscriber{},
		maxHistory:  defaultMaxHistory,
		logger:      slog.New(slog.DiscardHandler),
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Subscribe registers a handler for an event type and returns a function
// that removes it again.
func (b *Bus) Subscribe(t EventType, h EventHandler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.subscribers[t] = append(b.subscribers[t], subscriber{id: id, fn: h})
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.subscribers[t]
		for i, s := range subs {
			if s.id == id {
				b.subscribers[t] = append(subs[:i:i], subs[i+1:]...)
				return
			}
		}
	}
}

// Publish records the event in history and delivers it to all subscribers of
// its type, in registration order. Subscriber panics are recovered, logged,
// and surfaced as a log_message event.
func (b *Bus) Publish(e Event) {
	b.mu.Lock()
	b.history = append(b.history, e)
	if len(b.history) > b.maxHistory {
		b.history = b.history[len(b.history)-b.maxHistory:]
	}
	subs := make([]subscriber, len(b.subscribers[e.Type]))
	copy(subs, b.subscribers[e.Type])
	b.mu.Unlock()

	for _, s := range subs {
		b.deliver(s, e)
	}
}

func (b *Bus) deliver(s subscriber, e Event) {
	defer func() {
		if p := recover(); p != nil {
			b.logger.Error("event subscriber panic", "event_type", e.Type, "panic", p)
			// Avoid recursing when the failing subscriber listens on
			// log_message itself.
			if e.Type != EventLogMessage {
				b.Publish(NewEvent(EventLogMessage, "bus", map[string]any{
					"level":   "error",
					"message": "subscriber panic during " + string(e.Type),
				}))
			}
		}
	}()
	s.fn(e)
}

// History returns a copy of the retained events, optionally filtered by type
// (empty = all) and truncated to the most recent limit entries (0 = all).
func (b *Bus) History(t EventType, limit int) []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []Event
	for _, e := range b.history {
		if t == "" || e.Type == t {
			out = append(out, e)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

// ClearHistory drops all retained events.
func (b *Bus) ClearHistory() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.history = nil
}
