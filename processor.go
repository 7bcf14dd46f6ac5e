package messenger

import (
	"context"
	"log/slog"

	"github.com/amqp-messenger/messenger/internal/debug"
	"github.com/amqp-messenger/messenger/internal/driver"
	"github.com/amqp-messenger/messenger/internal/engine"
)

// advance runs Pass A: drive every connector's I/O and engine processing
// once, without otherwise mutating messenger state. I/O errors are
// logged, not raised — the affected connector continues toward close on
// its next pass.
func (m *Messenger) advance() {
	for _, c := range m.drv.Connectors() {
		if err := c.Process(); err != nil {
			debug.Log(context.Background(), slog.LevelWarn, "processor: connector error", "error", err)
		}
	}
}

// run executes Pass B: the drain-style active-set walk described by
// spec.md §4.4 steps 1-10.
func (m *Messenger) run() {
	for l := m.drv.Listener(); l != nil; l = m.drv.Listener() {
		m.acceptOne(l)
	}

	for c := m.drv.Connector(); c != nil; c = m.drv.Connector() {
		m.driveConnector(c)
	}
}

// acceptOne accepts one connection off a ready listener, wires a
// server-side SASL-anonymous connection for it, and opens it locally.
func (m *Messenger) acceptOne(l *driver.Listener) {
	connector := l.Accept()
	if connector == nil {
		return
	}
	connector.Engine.Open()
	m.conns = append(m.conns, connector.Engine)
}

// driveConnector runs steps 1-10 of spec.md §4.4 Pass B for one ready
// connector.
func (m *Messenger) driveConnector(c *driver.Connector) {
	// 1. process again
	if err := c.Process(); err != nil {
		debug.Log(context.Background(), slog.LevelWarn, "processor: connector error", "error", err)
	}

	conn := c.Engine

	// 2. mirror a remote open
	if conn.LocalState() == engine.Uninitialized {
		conn.Open()
	}

	// 3. walk the work list: copy remote disposition onto updated sender
	// deliveries, then remove them; leave receiver-side entries for Get.
	walkWork(conn, func(d *engine.Delivery) {
		if d.Link().Role() == roleSender && d.Updated() {
			d.SetLocalState(d.RemoteState())
			conn.RemoveWork(d)
		}
	})

	// 4. slide the outgoing queue
	m.outgoing.slide()

	// 5. open uninitialized-local sessions
	for _, s := range conn.Sessions(engine.SetUninitialized, engine.SetAny) {
		s.Open()
	}

	// 6. open uninitialized-local links, mirroring remote termini
	for _, l := range conn.Links(engine.SetUninitialized, engine.SetAny) {
		if l.Role() == roleSender {
			l.SetLocalTarget(l.RemoteTarget())
		} else {
			l.SetLocalSource(l.RemoteSource())
		}
		l.Open()
	}

	// 7. distribute credit
	m.distributeCredit()

	// 8. close locally any link/session the peer closed
	for _, l := range conn.Links(engine.SetActive, engine.SetClosed) {
		l.Close()
	}
	for _, s := range conn.Sessions(engine.SetActive, engine.SetClosed) {
		s.Close()
	}

	// 9. half-close handshake: local Closed + remote Closed makes
	// Connector.Closed() true for step 10 below.
	if conn.RemoteState() == engine.Closed && conn.LocalState() == engine.Active {
		conn.Close()
	}

	// 10. reclaim and destroy, or process once more
	if c.Closed() {
		m.reclaimCredit(conn)
		c.Destroy()
		m.forgetConnection(conn)
	} else {
		if err := c.Process(); err != nil {
			debug.Log(context.Background(), slog.LevelWarn, "processor: connector error", "error", err)
		}
	}
}

func (m *Messenger) forgetConnection(conn *engine.Connection) {
	for i, c := range m.conns {
		if c == conn {
			m.conns = append(m.conns[:i], m.conns[i+1:]...)
			return
		}
	}
}
