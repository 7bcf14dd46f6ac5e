package driver

import (
	"context"
	"log/slog"
	"net"
	"sync"

	"github.com/pkg/errors"

	"github.com/amqp-messenger/messenger/internal/debug"
	"github.com/amqp-messenger/messenger/internal/engine"
)

// Connector pumps bytes between a net.Conn and an engine.Connection. A
// single background goroutine performs blocking reads and hands
// completed byte chunks to the connector under a mutex; Process, called
// from the messenger's own goroutine, is the only place engine state or
// the net.Conn's writer is touched, so the single-owner guarantee holds
// even though reads happen concurrently.
type Connector struct {
	driver *Driver
	conn   net.Conn
	Engine *engine.Connection

	mu      sync.Mutex
	pending []byte
	err     error
	eof     bool
}

func newConnector(d *Driver, nc net.Conn, eng *engine.Connection) *Connector {
	c := &Connector{
		driver: d,
		conn:   nc,
		Engine: eng,
	}
	d.eg.Go(func() error {
		c.readLoop()
		return nil
	})
	return c
}

func (c *Connector) readLoop() {
	buf := make([]byte, 4096)
	for {
		n, err := c.conn.Read(buf)
		if n > 0 {
			c.mu.Lock()
			c.pending = append(c.pending, buf[:n]...)
			c.mu.Unlock()
			c.driver.markReadyConnector(c)
		}
		if err != nil {
			c.mu.Lock()
			if err.Error() == "EOF" {
				c.eof = true
			} else {
				c.err = err
			}
			c.mu.Unlock()
			c.driver.markReadyConnector(c)
			return
		}
	}
}

// Process decodes any bytes read since the last call into the engine
// connection, advances its state machine, and writes any frames the
// engine produced back to the socket. I/O errors are logged and returned
// so the caller can drive the connector toward closed rather than retry
// forever.
func (c *Connector) Process() error {
	c.mu.Lock()
	pending := c.pending
	c.pending = nil
	readErr, eof := c.err, c.eof
	c.mu.Unlock()

	if len(pending) > 0 {
		c.Engine.RecvBuf.Append(pending)
	}
	if err := c.Engine.Process(); err != nil {
		debug.Log(context.Background(), slog.LevelWarn, "connector: engine process error", "error", err)
		return errors.Wrap(err, "engine process")
	}
	if out := c.Engine.SendBuf.Detach(); len(out) > 0 {
		if _, err := c.conn.Write(out); err != nil {
			debug.Log(context.Background(), slog.LevelWarn, "connector: write error", "error", err)
			return errors.Wrap(err, "connector write")
		}
	}
	if eof && c.Engine.RemoteState() != engine.Closed {
		c.Engine.ForceRemoteClosed()
	}
	return readErr
}

// Closed reports whether both sides of the engine connection have
// reached Closed and the connector is ready to be destroyed.
func (c *Connector) Closed() bool {
	return c.Engine.LocalState() == engine.Closed && c.Engine.RemoteState() == engine.Closed
}

// Destroy closes the underlying socket and drops the connector from the
// driver's tracked set; the reader goroutine observes the resulting
// error and exits on its own, reaped by the driver's errgroup.
func (c *Connector) Destroy() {
	_ = c.conn.Close()
	c.driver.forgetConnector(c)
}
