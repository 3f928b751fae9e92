// Package events implements the cloud-event dispatcher spec.md carries as
// an ambient concern: catalog mutations are announced to zero or more
// listeners over a bounded channel, with per-listener error isolation and a
// send timeout so a slow or wedged listener cannot stall the commit path
// that produced the event.
//
// Grounded on the teacher's RabbitMQ connection wrapper
// (common/mrabbitmq/rabbitmq.go: a struct holding the connection plus a
// lazy Connect/GetChannel) for the AMQP-backed listener in amqp.go.
package events

import (
	"context"
	"time"

	"github.com/lakekeeper/catalog/internal/platform/mlog"
)

// Event is one catalog mutation notification. Kind mirrors the Iceberg REST
// spec's CloudEvents "type" convention (e.g.
// "com.lakekeeper.catalog.tabular.commit"); Payload is the pre-serialized
// event body a listener forwards as-is.
type Event struct {
	Kind        string
	WarehouseID string
	Payload     []byte
}

// Listener receives dispatched events. Implementations must not block
// indefinitely; Dispatcher already enforces a per-send timeout but a
// listener that spawns unbounded background work defeats that protection.
type Listener interface {
	Name() string
	Handle(ctx context.Context, event Event) error
}

// Dispatcher fans out events to every registered Listener over a bounded
// channel. A full channel (the listener's own processing loop falling
// behind) causes a send to time out and be dropped for that listener,
// logged but never propagated as an error to the caller that produced the
// event: event delivery is best-effort, not part of the commit contract.
type Dispatcher struct {
	logger      mlog.Logger
	listeners   []Listener
	sendTimeout time.Duration
	logEvents   bool

	queues []chan Event
}

// NewDispatcher builds a Dispatcher with the given listeners, each fed by
// its own bounded queue so one slow listener cannot back up another.
func NewDispatcher(logger mlog.Logger, sendTimeout time.Duration, logEvents bool, listeners ...Listener) *Dispatcher {
	d := &Dispatcher{
		logger:      logger,
		listeners:   listeners,
		sendTimeout: sendTimeout,
		logEvents:   logEvents,
	}

	d.queues = make([]chan Event, len(listeners))
	for i := range listeners {
		d.queues[i] = make(chan Event, 64)
	}

	return d
}

// Run drains every listener's queue until ctx is cancelled. Call once per
// Dispatcher, typically from the process's main goroutine group.
func (d *Dispatcher) Run(ctx context.Context) {
	for i, l := range d.listeners {
		go d.drain(ctx, i, l)
	}

	<-ctx.Done()
}

func (d *Dispatcher) drain(ctx context.Context, idx int, l Listener) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-d.queues[idx]:
			if err := l.Handle(ctx, event); err != nil {
				d.logger.Errorf("events: listener %s failed to handle %s: %v", l.Name(), event.Kind, err)
			}
		}
	}
}

// Dispatch offers event to every listener's queue, waiting at most
// sendTimeout per listener before giving up on that listener for this
// event. Dispatch itself never returns an error: a publisher that wants to
// know whether delivery happened should not be using a fire-and-forget
// event bus.
func (d *Dispatcher) Dispatch(ctx context.Context, event Event) {
	if d.logEvents {
		d.logger.Infof("events: dispatching %s for warehouse %s", event.Kind, event.WarehouseID)
	}

	for i, l := range d.listeners {
		select {
		case d.queues[i] <- event:
		case <-time.After(d.sendTimeout):
			d.logger.Warnf("events: send to listener %s timed out after %s, dropping %s", l.Name(), d.sendTimeout, event.Kind)
		case <-ctx.Done():
			return
		}
	}
}

// NoopListener discards every event. Used when no event sink is configured.
type NoopListener struct{}

func (NoopListener) Name() string { return "noop" }

func (NoopListener) Handle(context.Context, Event) error { return nil }
