package engine

import (
	"github.com/amqp-messenger/messenger/internal/encoding"
	"github.com/amqp-messenger/messenger/internal/frames"
)

// Link is one sender or receiver endpoint attached to a Session.
type Link struct {
	endpoint

	session *Session
	handle  uint32
	name    string
	role    encoding.Role

	localSource  *encoding.Source
	localTarget  *encoding.Target
	remoteSource *encoding.Source
	remoteTarget *encoding.Target

	credit        uint32 // receiver: credit granted to the remote sender
	deliveryCount uint32

	deliveries []*Delivery
	nextTagSeq uint64

	pendingOutbound []frames.FrameBody // Attach/Flow/Detach awaiting Advance
}

// Name returns the link's name, also used as its local source/target
// address by the messenger's link finder.
func (l *Link) Name() string { return l.name }

// Role reports whether this link is a sender or receiver.
func (l *Link) Role() encoding.Role { return l.role }

// Handle returns the link's session-local handle.
func (l *Link) Handle() uint32 { return l.handle }

// LocalSource / LocalTarget / RemoteSource / RemoteTarget expose the
// link's negotiated termini.
func (l *Link) LocalSource() *encoding.Source   { return l.localSource }
func (l *Link) LocalTarget() *encoding.Target   { return l.localTarget }
func (l *Link) RemoteSource() *encoding.Source  { return l.remoteSource }
func (l *Link) RemoteTarget() *encoding.Target  { return l.remoteTarget }
func (l *Link) SetLocalSource(s *encoding.Source) { l.localSource = s }
func (l *Link) SetLocalTarget(t *encoding.Target) { l.localTarget = t }

// Credit returns the link's currently held receive credit.
func (l *Link) Credit() uint32 { return l.credit }

// Queued returns the number of deliveries still tracked on this link.
func (l *Link) Queued() int { return len(l.deliveries) }

// Session returns the session this link is attached to.
func (l *Link) Session() *Session { return l.session }

// Open transitions the link's local state to Active and schedules an
// Attach frame.
func (l *Link) Open() {
	if l.local != Uninitialized {
		return
	}
	l.local = Active
	l.pendingOutbound = append(l.pendingOutbound, &frames.PerformAttach{
		Name:   l.name,
		Handle: l.handle,
		Role:   l.role,
		Source: l.localSource,
		Target: l.localTarget,
	})
}

// Close transitions the link's local state to Closed and schedules a
// Detach frame.
func (l *Link) Close() {
	if l.local == Closed {
		return
	}
	l.local = Closed
	l.pendingOutbound = append(l.pendingOutbound, &frames.PerformDetach{Handle: l.handle, Closed: true})
}

// Flow grants additional receive credit and schedules a Flow frame. Used
// only on receiver links; the credit controller is the sole caller.
func (l *Link) Flow(amount uint32) {
	l.credit += amount
	dc := l.deliveryCount
	credit := l.credit
	l.pendingOutbound = append(l.pendingOutbound, &frames.PerformFlow{
		Handle:        &l.handle,
		DeliveryCount: &dc,
		LinkCredit:    &credit,
	})
}

// Send queues an outbound transfer for payload under the given delivery
// tag and returns the Delivery handle. Sender links only.
func (l *Link) Send(tag []byte, payload []byte) *Delivery {
	did := l.deliveryCount
	l.deliveryCount++
	d := &Delivery{link: l, tag: append([]byte(nil), tag...), id: did, Bytes: payload}
	l.deliveries = append(l.deliveries, d)
	l.pendingOutbound = append(l.pendingOutbound, &frames.PerformTransfer{
		Handle:      l.handle,
		DeliveryID:  &did,
		DeliveryTag: d.tag,
		Payload:     payload,
	})
	l.session.conn.enqueueWork(d)
	return d
}

// Disposition schedules an outgoing Disposition performative covering
// delivery IDs [first, last], reporting state (nil for a bare settle)
// back to the peer. Receiver links use this to tell the sender a
// delivery was accepted, rejected, or settled.
func (l *Link) Disposition(first, last uint32, state encoding.DeliveryState, settled bool) {
	l.pendingOutbound = append(l.pendingOutbound, &frames.PerformDisposition{
		Role:    l.role,
		First:   first,
		Last:    last,
		Settled: settled,
		State:   state,
	})
}

// Deliveries returns the live deliveries on this link in insertion order.
func (l *Link) Deliveries() []*Delivery { return l.deliveries }

// RemoveDelivery drops d from the link's tracked deliveries. Used once
// a receiver's inbound delivery has been fully consumed via Get, so
// completed deliveries don't accumulate for the lifetime of the link.
func (l *Link) RemoveDelivery(d *Delivery) {
	for i, cand := range l.deliveries {
		if cand == d {
			l.deliveries = append(l.deliveries[:i], l.deliveries[i+1:]...)
			return
		}
	}
}

// Advance drains and returns frames queued by Open/Close/Flow/Send since
// the last Advance call, for the driver to write to the wire.
func (l *Link) Advance() []frames.FrameBody {
	out := l.pendingOutbound
	l.pendingOutbound = nil
	return out
}

// Next returns the next link on the same session whose (local, remote)
// states match the given sets, or nil. Used by filtered iteration.
func (l *Link) Next(localSet, remoteSet StateSet) *Link {
	links := l.session.links
	for i, cur := range links {
		if cur == l {
			for _, cand := range links[i+1:] {
				if cand.matches(localSet, remoteSet) {
					return cand
				}
			}
			return nil
		}
	}
	return nil
}

// handleAttach records the remote peer's Attach performative.
func (l *Link) handleAttach(a *frames.PerformAttach) {
	l.remoteSource = a.Source
	l.remoteTarget = a.Target
	if l.remote == Uninitialized {
		l.remote = Active
	}
}

// handleFlow applies a Flow performative observed for a sender link,
// updating the credit the remote receiver has granted us.
func (l *Link) handleFlow(f *frames.PerformFlow) {
	if f.LinkCredit != nil {
		l.credit = *f.LinkCredit
	}
}

// handleTransfer appends payload bytes to the addressed delivery
// (receiver links only), creating the delivery on its first frame.
func (l *Link) handleTransfer(t *frames.PerformTransfer) *Delivery {
	var d *Delivery
	for _, cand := range l.deliveries {
		if string(cand.tag) == string(t.DeliveryTag) {
			d = cand
			break
		}
	}
	if d == nil {
		var id uint32
		if t.DeliveryID != nil {
			id = *t.DeliveryID
		}
		d = &Delivery{link: l, tag: append([]byte(nil), t.DeliveryTag...), id: id}
		l.deliveries = append(l.deliveries, d)
	}
	d.Bytes = append(d.Bytes, t.Payload...)
	d.partial = t.More
	if l.credit > 0 {
		l.credit--
	}
	l.deliveryCount++
	if !t.More {
		l.session.conn.enqueueWork(d)
	}
	return d
}

// handleDisposition applies a remote disposition to every local delivery
// whose delivery ID falls within [first, last].
func (l *Link) handleDisposition(disp *frames.PerformDisposition) {
	for _, d := range l.deliveries {
		if d.id >= disp.First && d.id <= disp.Last {
			d.applyRemote(disp.State, disp.Settled)
			l.session.conn.enqueueWork(d)
		}
	}
}

// handleDetach records the remote peer's Detach performative.
func (l *Link) handleDetach(d *frames.PerformDetach) {
	l.remote = Closed
}
