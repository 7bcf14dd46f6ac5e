// Package driver owns the sockets a messenger talks to: one Connector
// per outbound or accepted TCP connection, one Listener per bound
// address. Reader goroutines move raw bytes only; the engine and
// messenger state are touched exclusively from the driver's single
// caller, so DoWait/Process are safe without further locking there.
package driver

import (
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/amqp-messenger/messenger/internal/engine"
	"github.com/amqp-messenger/messenger/internal/queue"
)

// Dialer abstracts net.Dial for tests that substitute an in-memory pipe.
type Dialer func(network, address string) (net.Conn, error)

// Driver multiplexes an arbitrary number of connectors and listeners
// behind a single wake channel, so the messenger's event loop can block
// in DoWait until any one of them has work ready.
type Driver struct {
	dial Dialer
	eg   *errgroup.Group

	mu         sync.Mutex
	connectors []*Connector
	listeners  []*Listener
	destroyed  bool

	readyConnectors *queue.Queue[Connector]
	readyListeners  *queue.Queue[Listener]

	wake chan struct{}
}

// New creates a Driver that dials with net.Dial.
func New() *Driver {
	return &Driver{
		dial:            net.Dial,
		eg:              &errgroup.Group{},
		readyConnectors: queue.New[Connector](8),
		readyListeners:  queue.New[Listener](4),
		wake:            make(chan struct{}, 1),
	}
}

// NewWithDialer creates a Driver that dials connections with d, for
// tests that substitute an in-process net.Pipe.
func NewWithDialer(d Dialer) *Driver {
	drv := New()
	drv.dial = d
	return drv
}

// CreateConnector dials host:port and returns a Connector wrapping a
// fresh client-side engine.Connection. ctx is an opaque value the
// caller (the messenger's connection registry) can retrieve later via
// Connector.Engine.Context.
func (d *Driver) CreateConnector(container, host, port string, ctx interface{}) (*Connector, error) {
	nc, err := d.dial("tcp", net.JoinHostPort(host, port))
	if err != nil {
		return nil, errors.Wrapf(err, "dial %s:%s", host, port)
	}
	eng := engine.New(container, false)
	eng.Context = ctx
	eng.Hostname = host
	c := newConnector(d, nc, eng)

	d.mu.Lock()
	d.connectors = append(d.connectors, c)
	d.mu.Unlock()
	return c, nil
}

// CreateListener binds host:port and starts an accept loop; accepted
// connections surface one at a time through Listener.Accept.
func (d *Driver) CreateListener(container, host, port string) (*Listener, error) {
	addr := net.JoinHostPort(host, port)
	nl, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "listen %s", addr)
	}
	l := newListener(d, nl, container)

	d.mu.Lock()
	d.listeners = append(d.listeners, l)
	d.mu.Unlock()
	return l, nil
}

// Connector returns and removes the next connector with bytes ready to
// process, or nil if none is ready.
func (d *Driver) Connector() *Connector {
	return d.readyConnectors.Dequeue()
}

// Listener returns and removes the next listener with a connection
// ready to accept, or nil if none is ready.
func (d *Driver) Listener() *Listener {
	return d.readyListeners.Dequeue()
}

// Connectors returns every connector the driver has created that has not
// yet been destroyed, for the processor's full per-pass sweep.
func (d *Driver) Connectors() []*Connector {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]*Connector, len(d.connectors))
	copy(out, d.connectors)
	return out
}

// Listeners returns every listener the driver has ever created.
func (d *Driver) Listeners() []*Listener {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]*Listener, len(d.listeners))
	copy(out, d.listeners)
	return out
}

// DoWait blocks until a connector or listener has work ready, or until
// timeout elapses if timeout > 0. timeout <= 0 blocks with no timeout.
func (d *Driver) DoWait(timeout time.Duration) {
	if timeout <= 0 {
		<-d.wake
		return
	}
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-d.wake:
	case <-t.C:
	}
}

// Destroy closes every connector and listener and waits for their
// goroutines to exit.
func (d *Driver) Destroy() {
	d.mu.Lock()
	if d.destroyed {
		d.mu.Unlock()
		return
	}
	d.destroyed = true
	connectors := d.connectors
	listeners := d.listeners
	d.mu.Unlock()

	for _, c := range connectors {
		c.Destroy()
	}
	for _, l := range listeners {
		l.Destroy()
	}
	_ = d.eg.Wait()
}

// forgetConnector drops c from the driver's tracked set, called once
// the connector is destroyed so AllClosed-style predicates over
// Connectors() see it gone.
func (d *Driver) forgetConnector(c *Connector) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, cur := range d.connectors {
		if cur == c {
			d.connectors = append(d.connectors[:i], d.connectors[i+1:]...)
			return
		}
	}
}

func (d *Driver) markReadyConnector(c *Connector) {
	d.readyConnectors.Enqueue(c)
	d.signal()
}

func (d *Driver) markReadyListener(l *Listener) {
	d.readyListeners.Enqueue(l)
	d.signal()
}

func (d *Driver) signal() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

