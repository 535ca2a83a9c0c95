package client

import (
	"context"
	"sync"
	"time"

	"github.com/jonwraymond/motapi/observe"
)

// EventKind names a lifecycle notification.
type EventKind string

const (
	EventTokenRefreshed EventKind = "token-refreshed"
	EventTokenError     EventKind = "token-error"
	EventAPIError       EventKind = "api-error"
	EventNetworkError   EventKind = "network-error"
	EventRequestSuccess EventKind = "request-success"
	EventRequestError   EventKind = "request-error"
	EventAdmissionWait  EventKind = "admission-wait"
)

// DefaultEventBuffer is the per-subscriber queue length.
const DefaultEventBuffer = 64

// Event is a lifecycle notification. Only the fields relevant to Kind are set:
//
//	token-refreshed  ExpiresAt
//	token-error      Err
//	api-error        RequestID, Status, Message
//	network-error    RequestID, Err
//	request-success  RequestID, Endpoint, Method
//	request-error    RequestID, Endpoint, Method, Err
//	admission-wait   Wait
type Event struct {
	Kind      EventKind
	Time      time.Time
	RequestID string
	Endpoint  string
	Method    string
	Status    int
	Message   string
	ExpiresAt time.Time
	Wait      time.Duration
	Err       error
}

// eventBus fans events out to subscribers without ever blocking the
// publisher. Each subscriber drains its own buffered queue on its own
// goroutine; an event that does not fit is dropped and counted.
type eventBus struct {
	buffer  int
	clock   func() time.Time
	metrics observe.Metrics
	logger  observe.Logger

	mu     sync.RWMutex
	subs   map[uint64]chan Event
	nextID uint64
	closed bool
	wg     sync.WaitGroup
}

func newEventBus(buffer int, clock func() time.Time, metrics observe.Metrics, logger observe.Logger) *eventBus {
	if buffer <= 0 {
		buffer = DefaultEventBuffer
	}
	return &eventBus{
		buffer:  buffer,
		clock:   clock,
		metrics: metrics,
		logger:  logger,
		subs:    make(map[uint64]chan Event),
	}
}

func (b *eventBus) subscribe(fn func(Event)) func() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return func() {}
	}
	id := b.nextID
	b.nextID++
	ch := make(chan Event, b.buffer)
	b.subs[id] = ch
	b.wg.Add(1)
	b.mu.Unlock()

	go func() {
		defer b.wg.Done()
		for ev := range ch {
			fn(ev)
		}
	}()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if ch, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(ch)
		}
	}
}

func (b *eventBus) publish(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = b.clock()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			b.metrics.RecordDroppedEvent(context.Background(), string(ev.Kind))
			b.logger.Warn(context.Background(), "event subscriber full, event dropped",
				observe.Field{Key: "event.kind", Value: string(ev.Kind)},
				observe.Field{Key: "request.id", Value: ev.RequestID},
			)
		}
	}
}

// close stops accepting events, lets every subscriber drain its queue and
// waits for them to return.
func (b *eventBus) close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
	b.mu.Unlock()

	b.wg.Wait()
}

// LogEvents returns a subscriber that writes every event to logger.
// Failures log at warn, everything else at debug.
//
//	unsubscribe := mot.Subscribe(client.LogEvents(logger))
func LogEvents(logger observe.Logger) func(Event) {
	return func(ev Event) {
		ctx := context.Background()
		fields := eventFields(ev)

		switch ev.Kind {
		case EventTokenError, EventAPIError, EventNetworkError, EventRequestError:
			logger.Warn(ctx, string(ev.Kind), fields...)
		default:
			logger.Debug(ctx, string(ev.Kind), fields...)
		}
	}
}

func eventFields(ev Event) []observe.Field {
	fields := make([]observe.Field, 0, 6)
	if ev.RequestID != "" {
		fields = append(fields, observe.Field{Key: "request.id", Value: ev.RequestID})
	}
	if ev.Endpoint != "" {
		fields = append(fields,
			observe.Field{Key: "endpoint", Value: ev.Endpoint},
			observe.Field{Key: "method", Value: ev.Method},
		)
	}
	if ev.Status != 0 {
		fields = append(fields, observe.Field{Key: "status", Value: ev.Status})
	}
	if ev.Message != "" {
		fields = append(fields, observe.Field{Key: "message", Value: ev.Message})
	}
	if !ev.ExpiresAt.IsZero() {
		fields = append(fields, observe.Field{Key: "expires_at", Value: ev.ExpiresAt.UTC().Format(time.RFC3339)})
	}
	if ev.Wait > 0 {
		fields = append(fields, observe.Field{Key: "wait_ms", Value: ev.Wait.Milliseconds()})
	}
	if ev.Err != nil {
		fields = append(fields, observe.Field{Key: "error", Value: ev.Err.Error()})
	}
	return fields
}
