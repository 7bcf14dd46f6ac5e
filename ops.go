package messenger

import (
	"strings"

	"github.com/amqp-messenger/messenger/internal/engine"
)

// Put encodes msg and submits it on the sender resolved from msg.Address.
// It adjusts an empty or "~/"-prefixed reply-to before encoding (see
// spec.md §4.6) and appends the resulting delivery to the outgoing
// tracker queue. The only network wait is dialing a new connection when
// none is registered for the address; call Send to wait for settlement.
func (m *Messenger) Put(msg *Message) error {
	addr, err := parseAddress(msg.Address)
	if err != nil {
		return err
	}

	sender, err := m.getLink(addr.host, addr.port, senderFinder{path: addr.path})
	if err != nil {
		return err
	}

	switch {
	case msg.Properties.ReplyTo == "":
		msg.Properties.ReplyTo = "amqp://" + m.name
	case strings.HasPrefix(msg.Properties.ReplyTo, "~/"):
		msg.Properties.ReplyTo = "amqp://" + m.name + "/" + strings.TrimPrefix(msg.Properties.ReplyTo, "~/")
	}

	m.scratch.Reset()
	if err := msg.Marshal(m.scratch); err != nil {
		return err
	}

	tag := m.nextTagBytes()
	d := sender.Send(tag, append([]byte(nil), m.scratch.Bytes()...))
	m.outgoing.add(d)
	return nil
}

// Send waits until every pending outgoing delivery has reached a
// terminal disposition or its connection has gone remotely closed.
func (m *Messenger) Send() error {
	return m.waitUntil(m.sentSettled, m.timeout)
}

// Recv adjusts the receive-credit pool (n == -1 means unlimited),
// redistributes credit, and waits until a message is available.
func (m *Messenger) Recv(n int) error {
	m.setCredit(n)
	return m.waitUntil(m.messageAvailable, m.timeout)
}

// Get returns the first readable, non-partial delivery found across any
// connection's work list, decoded into a fresh Message, or
// ErrNothingAvailable if none matched.
func (m *Messenger) Get() (*Message, error) {
	for _, c := range m.conns {
		var found *engine.Delivery
		walkWork(c, func(d *engine.Delivery) {
			if found == nil && d.Readable() && !d.Partial() {
				found = d
			}
		})
		if found == nil {
			continue
		}

		m.scratch.Reset()
		m.scratch.Append(found.Bytes())
		msg := &Message{}
		if err := msg.Unmarshal(m.scratch); err != nil {
			return nil, err
		}

		m.incoming.add(found)
		m.distributed--
		found.Link().RemoveDelivery(found)
		c.RemoveWork(found)
		return msg, nil
	}
	return nil, ErrNothingAvailable
}

// Subscribe arranges to receive messages from source. A source
// containing "~" is a server-side bind: the tilde is stripped and the
// rest parsed as a URI to create a listener. Otherwise source is parsed
// as a URI and a receiver link is resolved via getLink, ready to flow
// credit once Recv is called.
func (m *Messenger) Subscribe(source string) error {
	if strings.Contains(source, "~") {
		raw := strings.Replace(source, "~", "", 1)
		addr, err := parseAddress(raw)
		if err != nil {
			return ErrInvalidAddress
		}
		_, err = m.drv.CreateListener(m.name, addr.host, addr.port)
		return err
	}

	addr, err := parseAddress(source)
	if err != nil {
		return err
	}
	_, err = m.getLink(addr.host, addr.port, receiverFinder{path: addr.path})
	return err
}

// Accept applies the Accepted disposition to tracker (and, with
// FlagCumulative, every live delivery from the queue's tail through
// tracker).
func (m *Messenger) Accept(t Tracker, flags DispositionFlags) {
	m.queueFor(t).accept(t, flags)
}

// Reject applies the Rejected disposition to tracker.
func (m *Messenger) Reject(t Tracker, flags DispositionFlags) {
	m.queueFor(t).reject(t, flags)
}

// Settle removes disposition-pending status from tracker; for outgoing
// deliveries this also finalizes them locally.
func (m *Messenger) Settle(t Tracker, flags DispositionFlags) {
	m.queueFor(t).settle(t, flags)
}

// GetStatus reports tracker's current disposition, or StatusUnknown if
// it has slid out of its queue's window.
func (m *Messenger) GetStatus(t Tracker) dispositionState {
	return m.queueFor(t).getStatus(t)
}

func (m *Messenger) queueFor(t Tracker) *trackerQueue {
	if t.dir == dirIncoming {
		return m.incoming
	}
	return m.outgoing
}

// OutgoingTracker returns the tracker most recently added by Put.
func (m *Messenger) OutgoingTracker() Tracker { return m.outgoing.last() }

// IncomingTracker returns the tracker most recently added by Get.
func (m *Messenger) IncomingTracker() Tracker { return m.incoming.last() }

// Outgoing returns the count of queued outgoing deliveries, across
// active senders, not yet slid out of the window.
func (m *Messenger) Outgoing() int { return m.outgoing.len() }

// Incoming returns the count of queued incoming deliveries, across
// active receivers, not yet slid out of the window.
func (m *Messenger) Incoming() int { return m.incoming.len() }
