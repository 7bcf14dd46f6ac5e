package messenger

import (
	"github.com/amqp-messenger/messenger/internal/encoding"
	"github.com/amqp-messenger/messenger/internal/engine"
)

type direction uint8

const (
	dirIncoming direction = iota
	dirOutgoing
)

// dispositionState is the status a Tracker can report via getStatus.
type dispositionState uint8

const (
	StatusUnknown dispositionState = iota
	StatusPending
	StatusAccepted
	StatusRejected
	StatusReleased
	StatusModified
	StatusSettled
	StatusAborted
)

// DispositionFlags modifies accept/reject/settle calls.
type DispositionFlags uint8

// FlagCumulative applies the disposition to every live delivery from
// the queue's tail through the named tracker, inclusive.
const FlagCumulative DispositionFlags = 1 << 0

// Tracker is an opaque (direction, sequence) reference to a delivery
// that was once live in a tracker queue. It remains valid to pass to
// Accept/Reject/Settle/GetStatus after the delivery has slid out; those
// calls simply report/no-op with StatusUnknown.
type Tracker struct {
	dir direction
	seq uint64
}

type trackerEntry struct {
	seq      uint64
	delivery *engine.Delivery
	disp     dispositionState
}

// trackerQueue is an ordered sequence of delivery handles with a
// monotonic high-water mark and a settled-tail retention window.
type trackerQueue struct {
	dir       direction
	window    uint
	highWater uint64
	entries   []*trackerEntry // front = oldest still-retained
}

func newTrackerQueue(dir direction, window uint) *trackerQueue {
	return &trackerQueue{dir: dir, window: window}
}

// add appends delivery, assigning it the queue's next sequence number,
// and returns its Tracker.
func (q *trackerQueue) add(d *engine.Delivery) Tracker {
	seq := q.highWater
	q.highWater++
	q.entries = append(q.entries, &trackerEntry{seq: seq, delivery: d, disp: StatusPending})
	return Tracker{dir: q.dir, seq: seq}
}

// last returns the tracker most recently added, or the zero Tracker
// with seq == highWater (itself invalid/UNKNOWN) if none has been added.
func (q *trackerQueue) last() Tracker {
	if q.highWater == 0 {
		return Tracker{dir: q.dir, seq: 0}
	}
	return Tracker{dir: q.dir, seq: q.highWater - 1}
}

// entryFor returns the live entry wrapping d, or nil if d has slid out
// of the window or was never added to this queue.
func (q *trackerQueue) entryFor(d *engine.Delivery) *trackerEntry {
	for _, e := range q.entries {
		if e.delivery == d {
			return e
		}
	}
	return nil
}

func (q *trackerQueue) indexOf(seq uint64) int {
	for i, e := range q.entries {
		if e.seq == seq {
			return i
		}
	}
	return -1
}

// applyRange walks from the queue's current tail (index 0) through the
// tracker's sequence, inclusive, skipping entries already gone, and
// calls fn on each live entry in that span. If cumulative is false it
// only touches the entry exactly matching t's sequence, if still live.
func (q *trackerQueue) applyRange(t Tracker, cumulative bool, fn func(*trackerEntry)) {
	idx := q.indexOf(t.seq)
	if idx < 0 {
		return // expired or future: silently ignored
	}
	if !cumulative {
		fn(q.entries[idx])
		return
	}
	for i := 0; i <= idx; i++ {
		fn(q.entries[i])
	}
}

// accept marks the targeted deliveries Accepted. For the incoming
// direction this also reports the outcome to the peer that sent them,
// via a Disposition performative — an outgoing delivery's Accepted
// status is instead learned by observing the peer's own disposition
// (see Messenger.sentSettled), never generated locally.
func (q *trackerQueue) accept(t Tracker, flags DispositionFlags) {
	q.applyRange(t, flags&FlagCumulative != 0, func(e *trackerEntry) {
		e.disp = StatusAccepted
		if q.dir == dirIncoming {
			e.delivery.Link().Disposition(e.delivery.ID(), e.delivery.ID(), &encoding.StateAccepted{}, false)
		}
	})
}

func (q *trackerQueue) reject(t Tracker, flags DispositionFlags) {
	q.applyRange(t, flags&FlagCumulative != 0, func(e *trackerEntry) {
		e.disp = StatusRejected
		if q.dir == dirIncoming {
			e.delivery.Link().Disposition(e.delivery.ID(), e.delivery.ID(), &encoding.StateRejected{}, false)
		}
	})
}

// settle marks the targeted deliveries settled. Outgoing deliveries are
// finalized locally (Delivery.Settle, so the work list and slide logic
// can reclaim them); incoming deliveries instead report settlement to
// the peer via a Disposition performative with the settled flag set.
func (q *trackerQueue) settle(t Tracker, flags DispositionFlags) {
	q.applyRange(t, flags&FlagCumulative != 0, func(e *trackerEntry) {
		if e.disp == StatusPending {
			e.disp = StatusSettled
		}
		if q.dir == dirOutgoing {
			e.delivery.Settle()
		} else {
			e.delivery.Link().Disposition(e.delivery.ID(), e.delivery.ID(), nil, true)
		}
	})
}

func (q *trackerQueue) getStatus(t Tracker) dispositionState {
	idx := q.indexOf(t.seq)
	if idx < 0 {
		return StatusUnknown
	}
	return q.entries[idx].disp
}

// slide drops head entries while the queue exceeds window and the head
// is terminally settled. A window of 0 means unbounded: nothing is dropped.
func (q *trackerQueue) slide() {
	for q.window > 0 && uint(len(q.entries)) > q.window && isTerminal(q.entries[0].disp) {
		q.entries = q.entries[1:]
	}
}

func isTerminal(d dispositionState) bool {
	switch d {
	case StatusAccepted, StatusRejected, StatusReleased, StatusModified, StatusSettled, StatusAborted:
		return true
	default:
		return false
	}
}

// deliveries iterates still-live deliveries in insertion order.
func (q *trackerQueue) deliveries() []*engine.Delivery {
	out := make([]*engine.Delivery, 0, len(q.entries))
	for _, e := range q.entries {
		out = append(out, e.delivery)
	}
	return out
}

func (q *trackerQueue) len() int { return len(q.entries) }
