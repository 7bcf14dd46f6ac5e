package driver

import (
	"net"
	"sync"

	"github.com/amqp-messenger/messenger/internal/engine"
)

// Listener wraps a bound net.Listener. A single accept goroutine feeds
// accepted connections into a pending queue; Accept, called from the
// messenger's own goroutine, turns the next pending net.Conn into a
// Connector wrapping a server-side engine.Connection.
type Listener struct {
	driver    *Driver
	nl        net.Listener
	container string

	mu      sync.Mutex
	pending []net.Conn
	err     error
}

func newListener(d *Driver, nl net.Listener, container string) *Listener {
	l := &Listener{
		driver:    d,
		nl:        nl,
		container: container,
	}
	d.eg.Go(func() error {
		l.acceptLoop()
		return nil
	})
	return l
}

func (l *Listener) acceptLoop() {
	for {
		nc, err := l.nl.Accept()
		if err != nil {
			l.mu.Lock()
			l.err = err
			l.mu.Unlock()
			l.driver.markReadyListener(l)
			return
		}
		l.mu.Lock()
		l.pending = append(l.pending, nc)
		l.mu.Unlock()
		l.driver.markReadyListener(l)
	}
}

// Addr returns the listener's bound address.
func (l *Listener) Addr() net.Addr { return l.nl.Addr() }

// Accept returns and removes the next accepted connection as a
// Connector wrapping a fresh server-side engine.Connection, or nil if
// none is pending (including the case where the listener has failed
// and will never accept again).
func (l *Listener) Accept() *Connector {
	l.mu.Lock()
	if len(l.pending) == 0 {
		l.mu.Unlock()
		return nil
	}
	nc := l.pending[0]
	l.pending = l.pending[1:]
	l.mu.Unlock()

	eng := engine.New(l.container, true)
	c := newConnector(l.driver, nc, eng)

	l.driver.mu.Lock()
	l.driver.connectors = append(l.driver.connectors, c)
	l.driver.mu.Unlock()
	return c
}

// Err returns the error that ended the accept loop, if any.
func (l *Listener) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// Destroy closes the underlying listener, causing its accept goroutine
// to observe an error and exit (reaped by the driver's errgroup), then
// closes any connections it accepted but the messenger never claimed
// via Accept.
func (l *Listener) Destroy() {
	_ = l.nl.Close()
	l.mu.Lock()
	pending := l.pending
	l.pending = nil
	l.mu.Unlock()
	for _, nc := range pending {
		_ = nc.Close()
	}
}
