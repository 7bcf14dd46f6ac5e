// Package engine implements the AMQP 1.0 endpoint state machines
// (connection, session, link, delivery) the messenger drives to
// quiescence on every processor pass. It is a supporting collaborator —
// the messenger never reaches into its frame-level details beyond the
// interfaces described in spec.md §6 — kept deliberately small: no TLS,
// no non-anonymous SASL outcome, no flow-control windows beyond link
// credit.
package engine

import (
	"fmt"

	"github.com/amqp-messenger/messenger/internal/buffer"
	"github.com/amqp-messenger/messenger/internal/encoding"
	"github.com/amqp-messenger/messenger/internal/frames"
	"github.com/amqp-messenger/messenger/internal/sasl"
)

type phase uint8

const (
	phaseSASL phase = iota
	phaseOpen
	phaseActive
)

// Connection is one AMQP 1.0 connection's endpoint state machine. The
// driver owns the socket; Connection only ever sees bytes in and
// produces bytes out through RecvBuf/SendBuf, plus the Process method
// that drives one quiescence pass.
type Connection struct {
	endpoint

	Container       string
	Hostname        string
	Context         interface{} // opaque slot set by the registry, e.g. "host:port"
	RemoteContainer string
	IsServer        bool // server side of the handshake (accepted from a Listener)

	sessions        []*Session
	pendingOutbound []frames.FrameBody

	workHead, workTail *Delivery

	phase     phase
	saslClient *sasl.ClientNegotiator
	saslServer *sasl.ServerNegotiator

	RecvBuf *buffer.Buffer
	SendBuf *buffer.Buffer
}

// New creates an unopened connection. container is this side's
// container-id; isServer selects which side of the SASL handshake to run.
func New(container string, isServer bool) *Connection {
	c := &Connection{
		Container: container,
		IsServer:  isServer,
		RecvBuf:   buffer.New(nil),
		SendBuf:   buffer.New(nil),
	}
	if isServer {
		c.saslServer = &sasl.ServerNegotiator{}
	} else {
		c.saslClient = &sasl.ClientNegotiator{}
	}
	return c
}

// Open transitions the connection's local state to Active and, once SASL
// has completed, schedules an Open performative.
func (c *Connection) Open() {
	if c.local != Uninitialized {
		return
	}
	c.local = Active
	if c.phase >= phaseOpen {
		c.pendingOutbound = append(c.pendingOutbound, &frames.PerformOpen{ContainerID: c.Container, Hostname: c.Hostname})
	}
}

// Close transitions the connection's local state to Closed and schedules
// a Close performative.
func (c *Connection) Close() {
	if c.local == Closed {
		return
	}
	c.local = Closed
	c.pendingOutbound = append(c.pendingOutbound, &frames.PerformClose{})
}

// ForceRemoteClosed marks the remote side Closed without a Close
// performative having arrived, used when the driver observes the
// underlying socket reached EOF.
func (c *Connection) ForceRemoteClosed() {
	c.remote = Closed
}

// Session creates a new, as-yet-unopened session on the next free channel.
func (c *Connection) Session() *Session {
	s := &Session{conn: c, channel: uint16(len(c.sessions))}
	c.sessions = append(c.sessions, s)
	return s
}

// Sessions returns the connection's sessions whose (local, remote) state
// pair matches the given filter sets.
func (c *Connection) Sessions(localSet, remoteSet StateSet) []*Session {
	var out []*Session
	for _, s := range c.sessions {
		if s.matches(localSet, remoteSet) {
			out = append(out, s)
		}
	}
	return out
}

// Links returns every link across every session whose (local, remote)
// state pair matches the given filter sets.
func (c *Connection) Links(localSet, remoteSet StateSet) []*Link {
	var out []*Link
	for _, s := range c.sessions {
		out = append(out, s.Links(localSet, remoteSet)...)
	}
	return out
}

// WorkHead returns the head of the connection's work list: deliveries
// with a pending local action (an arrived remote disposition, or a fully
// received inbound transfer). Walking the list does not consume it;
// entries stay until removed with RemoveWork.
func (c *Connection) WorkHead() *Delivery { return c.workHead }

// AdvanceWork removes the delivery at the head of the work list, if any.
func (c *Connection) AdvanceWork() {
	if c.workHead == nil {
		return
	}
	next := c.workHead.workNext
	c.workHead.workNext = nil
	c.workHead = next
	if c.workHead == nil {
		c.workTail = nil
	}
}

// RemoveWork unlinks d from the work list if present, wherever it sits
// in the chain. Callers use this once they've finished acting on a
// delivery found by walking WorkHead/Delivery.WorkNext, so a consumed
// inbound delivery does not keep reporting itself available forever.
func (c *Connection) RemoveWork(d *Delivery) {
	if c.workHead == d {
		c.AdvanceWork()
		return
	}
	for cur := c.workHead; cur != nil; cur = cur.workNext {
		if cur.workNext == d {
			cur.workNext = d.workNext
			if c.workTail == d {
				c.workTail = cur
			}
			d.workNext = nil
			return
		}
	}
}

func (c *Connection) enqueueWork(d *Delivery) {
	for cur := c.workHead; cur != nil; cur = cur.workNext {
		if cur == d {
			return // already queued
		}
	}
	if c.workTail == nil {
		c.workHead, c.workTail = d, d
		return
	}
	c.workTail.workNext = d
	c.workTail = d
}

// Process decodes any bytes appended to RecvBuf into frames and applies
// them to the endpoint state machine, then encodes any frames queued by
// Open/Close/Session/Link/Flow/Send calls (or produced while handling
// received frames, e.g. a SASL response) into SendBuf. It never blocks;
// the driver is responsible for moving SendBuf/RecvBuf to and from the
// socket.
func (c *Connection) Process() error {
	if c.IsServer && c.phase == phaseSASL && len(c.RecvBuf.Bytes()) == 0 {
		c.writeSASL(c.saslServer.Start())
	}
	for {
		ch, typ, body, ok, err := frames.ReadFrame(c.RecvBuf)
		if err != nil {
			return fmt.Errorf("engine: decode frame: %w", err)
		}
		if !ok {
			break
		}
		if err := c.dispatch(ch, typ, body); err != nil {
			return err
		}
	}
	c.flushOutbound()
	return nil
}

func (c *Connection) dispatch(ch uint16, typ frames.Type, body frames.FrameBody) error {
	if typ == frames.TypeSASL {
		return c.handleSASL(body)
	}
	if c.phase < phaseOpen {
		// peer is racing ahead of our own SASL completion; ignore until ready
		return nil
	}
	switch fr := body.(type) {
	case *frames.PerformOpen:
		c.RemoteContainer = fr.ContainerID
		if c.remote == Uninitialized {
			c.remote = Active
		}
	case *frames.PerformClose:
		c.remote = Closed
	case *frames.PerformBegin:
		s := c.sessionByChannel(ch)
		if s == nil {
			s = &Session{conn: c, channel: ch}
			c.sessions = append(c.sessions, s)
		}
		if s.remote == Uninitialized {
			s.remote = Active
		}
	case *frames.PerformEnd:
		if s := c.sessionByChannel(ch); s != nil {
			s.remote = Closed
		}
	case *frames.PerformAttach:
		if s := c.sessionByChannel(ch); s != nil {
			l := s.linkByHandle(fr.Handle)
			if l == nil {
				l = s.newLink(fr.Name, oppositeRole(fr.Role), nil, nil)
				l.handle = fr.Handle
			}
			l.handleAttach(fr)
		}
	case *frames.PerformFlow:
		if s := c.sessionByChannel(ch); s != nil && fr.Handle != nil {
			if l := s.linkByHandle(*fr.Handle); l != nil {
				l.handleFlow(fr)
			}
		}
	case *frames.PerformTransfer:
		if s := c.sessionByChannel(ch); s != nil {
			if l := s.linkByHandle(fr.Handle); l != nil {
				l.handleTransfer(fr)
			}
		}
	case *frames.PerformDisposition:
		if s := c.sessionByChannel(ch); s != nil {
			for _, l := range s.links {
				l.handleDisposition(fr)
			}
		}
	case *frames.PerformDetach:
		if s := c.sessionByChannel(ch); s != nil {
			if l := s.linkByHandle(fr.Handle); l != nil {
				l.handleDetach(fr)
			}
		}
	}
	return nil
}

func oppositeRole(r encoding.Role) encoding.Role {
	if r == encoding.RoleSender {
		return encoding.RoleReceiver
	}
	return encoding.RoleSender
}

func (c *Connection) handleSASL(body frames.FrameBody) error {
	var out frames.FrameBody
	var complete bool
	var err error
	if c.IsServer {
		out, complete, err = c.saslServer.Step(body)
	} else {
		out, complete, err = c.saslClient.Step(body)
	}
	if err != nil {
		return err
	}
	if out != nil {
		c.writeSASL(out)
	}
	if complete {
		c.phase = phaseOpen
		if c.local == Active {
			c.pendingOutbound = append(c.pendingOutbound, &frames.PerformOpen{ContainerID: c.Container, Hostname: c.Hostname})
		}
	}
	return nil
}

func (c *Connection) writeSASL(body frames.FrameBody) {
	_ = frames.WriteFrame(c.SendBuf, frames.TypeSASL, 0, body)
}

func (c *Connection) sessionByChannel(ch uint16) *Session {
	for _, s := range c.sessions {
		if s.channel == ch {
			return s
		}
	}
	return nil
}

// flushOutbound encodes every performative queued on the connection and
// its sessions/links since the last Process call.
func (c *Connection) flushOutbound() {
	for _, fr := range c.pendingOutbound {
		_ = frames.WriteFrame(c.SendBuf, frames.TypeAMQP, 0, fr)
	}
	c.pendingOutbound = nil

	for _, s := range c.sessions {
		for _, fr := range s.Advance() {
			_ = frames.WriteFrame(c.SendBuf, frames.TypeAMQP, s.channel, fr)
		}
		for _, l := range s.links {
			for _, fr := range l.Advance() {
				_ = frames.WriteFrame(c.SendBuf, frames.TypeAMQP, s.channel, fr)
			}
		}
	}
}
