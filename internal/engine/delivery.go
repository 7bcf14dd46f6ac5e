package engine

import "github.com/amqp-messenger/messenger/internal/encoding"

// Delivery is a single message-in-flight on a Link, identified by its
// delivery tag. It tracks both the local application's view of the
// disposition and the most recently observed remote disposition.
type Delivery struct {
	link *Link
	tag  []byte
	id   uint32

	// Bytes buffers transfer payload as it arrives (receiver side) or is
	// about to be sent (sender side, before Link.Send flushes it).
	Bytes []byte

	partial bool // more transfer frames still expected for this delivery
	settled bool // locally settled: removed from the link's pending set

	localState  encoding.DeliveryState
	remoteState encoding.DeliveryState
	remoteSettled bool
	updated       bool // remote state changed since last observed

	workNext *Delivery // intrusive link in the connection's work list
}

// Link returns the link this delivery belongs to.
func (d *Delivery) Link() *Link { return d.link }

// Tag returns the delivery's tag, unique per link.
func (d *Delivery) Tag() []byte { return d.tag }

// ID returns the delivery's sender-assigned delivery ID, used to match
// incoming Disposition ranges back to deliveries.
func (d *Delivery) ID() uint32 { return d.id }

// Readable reports whether the delivery has received at least one
// transfer frame of payload and belongs to a receiving link.
func (d *Delivery) Readable() bool {
	return d.link.role == encoding.RoleReceiver && d.Bytes != nil
}

// Partial reports whether more transfer frames are still expected.
func (d *Delivery) Partial() bool { return d.partial }

// Updated reports whether the remote disposition has changed since the
// last time it was observed, and clears the flag.
func (d *Delivery) Updated() bool {
	u := d.updated
	d.updated = false
	return u
}

// RemoteState returns the most recently observed remote disposition, or
// nil if none has been reported yet.
func (d *Delivery) RemoteState() encoding.DeliveryState { return d.remoteState }

// RemotelySettled reports whether the remote end has settled this delivery.
func (d *Delivery) RemotelySettled() bool { return d.remoteSettled }

// LocalState returns the delivery's locally-applied disposition.
func (d *Delivery) LocalState() encoding.DeliveryState { return d.localState }

// SetLocalState applies a local disposition without settling.
func (d *Delivery) SetLocalState(s encoding.DeliveryState) { d.localState = s }

// Settle marks the delivery as locally settled and removes it from the
// connection's work list.
func (d *Delivery) Settle() {
	d.settled = true
	if d.link != nil {
		d.link.session.conn.RemoveWork(d)
	}
}

// Settled reports whether the delivery has been locally settled.
func (d *Delivery) Settled() bool { return d.settled }

// WorkNext returns the next delivery in the connection's work list.
func (d *Delivery) WorkNext() *Delivery { return d.workNext }

// applyRemote records a disposition reported by the peer.
func (d *Delivery) applyRemote(state encoding.DeliveryState, settled bool) {
	d.remoteState = state
	d.remoteSettled = d.remoteSettled || settled
	d.updated = true
}
