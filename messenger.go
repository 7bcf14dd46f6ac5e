// Package messenger implements a high-level messaging endpoint that
// multiplexes many AMQP 1.0 conversations through a single user-visible
// interface: the caller addresses peers by URI and the messenger
// establishes connections, opens sessions and links on demand,
// transfers encoded messages, and tracks delivery outcomes through a
// bounded-window tracker queue.
//
// A Messenger is single-owner cooperative: every exported method must
// be called from the same goroutine. All I/O progress happens inside
// waitUntil (called by Send/Recv/Stop) or implicitly inside Put/Get via
// getLink.
package messenger

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/amqp-messenger/messenger/internal/buffer"
	"github.com/amqp-messenger/messenger/internal/debug"
	"github.com/amqp-messenger/messenger/internal/driver"
	"github.com/amqp-messenger/messenger/internal/engine"
)

const defaultBatchSize = 10

// MessengerOptions configures a new Messenger. The zero value is valid:
// an empty Name, no timeout (wait forever), and unbounded tracker
// queues.
type MessengerOptions struct {
	Name string

	// Timeout bounds Send/Recv/Stop. Negative or zero means wait
	// forever, matching spec's "negative milliseconds ⇒ wait forever".
	Timeout time.Duration

	IncomingWindow uint
	OutgoingWindow uint
}

// Messenger owns a driver, a scratch buffer, and the two tracker queues
// that make deliveries addressable by Tracker after Put/Get.
type Messenger struct {
	name    string
	timeout time.Duration

	drv *driver.Driver

	scratch *buffer.Buffer
	nextTag uint64

	credit      int64
	distributed int64
	unlimited   bool

	incoming *trackerQueue
	outgoing *trackerQueue

	conns []*engine.Connection
}

// New creates an unstarted Messenger. Call Start before any operation
// that needs the driver.
func New(opts MessengerOptions) *Messenger {
	m := &Messenger{
		name:     opts.Name,
		timeout:  opts.Timeout,
		scratch:  buffer.New(make([]byte, 4096)),
		incoming: newTrackerQueue(dirIncoming, opts.IncomingWindow),
		outgoing: newTrackerQueue(dirOutgoing, opts.OutgoingWindow),
	}
	m.scratch.Reset()
	return m
}

// Name returns the messenger's container identity.
func (m *Messenger) Name() string { return m.name }

// Timeout returns the configured Send/Recv/Stop deadline.
func (m *Messenger) Timeout() time.Duration { return m.timeout }

// SetTimeout changes the Send/Recv/Stop deadline.
func (m *Messenger) SetTimeout(d time.Duration) { m.timeout = d }

// IncomingWindow returns the incoming tracker queue's retained window.
func (m *Messenger) IncomingWindow() uint { return m.incoming.window }

// SetIncomingWindow changes the incoming tracker queue's retained window.
func (m *Messenger) SetIncomingWindow(w uint) { m.incoming.window = w }

// OutgoingWindow returns the outgoing tracker queue's retained window.
func (m *Messenger) OutgoingWindow() uint { return m.outgoing.window }

// SetOutgoingWindow changes the outgoing tracker queue's retained window.
func (m *Messenger) SetOutgoingWindow(w uint) { m.outgoing.window = w }

// Connections returns a snapshot of the registry's connection contexts,
// for observability only — it adds no routing or persistence beyond
// what getStatus already exposes.
func (m *Messenger) Connections() []string {
	out := make([]string, 0, len(m.conns))
	for _, c := range m.conns {
		if ctx, ok := c.Context.(string); ok {
			out = append(out, ctx)
		}
	}
	return out
}

// Start creates the driver. Must be called once before any other
// operation.
func (m *Messenger) Start() error {
	m.drv = driver.New()
	return nil
}

// Stop closes every connection, flushes the close frame on every
// connector, closes every listener, then waits (bounded by Timeout) for
// the driver to reach AllClosed, logging rather than raising on
// timeout, and finally destroys the driver.
func (m *Messenger) Stop() error {
	if m.drv == nil {
		return nil
	}
	for _, c := range m.conns {
		c.Close()
	}
	for _, c := range m.drv.Connectors() {
		_ = c.Process()
	}
	for _, l := range m.drv.Listeners() {
		l.Destroy()
	}
	err := m.waitUntil(m.allClosed, m.timeout)
	m.drv.Destroy()
	m.drv = nil
	if err != nil {
		debug.Log(context.Background(), slog.LevelWarn, "stop: timed out waiting for AllClosed")
	}
	return nil
}

func (m *Messenger) nextTagBytes() []byte {
	tag := []byte(strconv.FormatUint(m.nextTag, 10))
	m.nextTag++
	return tag
}
