package messenger

import (
	"time"

	"github.com/amqp-messenger/messenger/internal/encoding"
	"github.com/amqp-messenger/messenger/internal/engine"
)

// waitUntil runs Pass A once, then loops running Pass B and testing
// predicate, blocking in the driver's doWait between iterations (except
// the first) until predicate holds or timeout elapses. timeout <= 0
// waits forever.
func (m *Messenger) waitUntil(predicate func() bool, timeout time.Duration) error {
	m.advance()

	var deadline time.Time
	hasDeadline := timeout > 0
	if hasDeadline {
		deadline = time.Now().Add(timeout)
	}

	first := true
	for {
		m.run()
		if predicate() {
			return nil
		}
		if hasDeadline && time.Now().After(deadline) {
			return ErrTimeout
		}
		if first {
			first = false
			continue
		}

		remaining := time.Duration(0)
		if hasDeadline {
			remaining = time.Until(deadline)
			if remaining <= 0 {
				return ErrTimeout
			}
		}
		m.drv.DoWait(remaining)
	}
}

// sentSettled reports whether every live outgoing delivery has reached
// a terminal remote state (settling it locally and recording that
// outcome on its tracker entry as it's observed) or its connection has
// gone remotely CLOSED (skipped). The source this was distilled from
// never finished its own sender-unsettled accounting; like it, this
// uses the outgoing tracker queue itself as the proxy for "a sender
// still has something pending" rather than a separate per-link
// queued-frame count.
func (m *Messenger) sentSettled() bool {
	for _, d := range m.outgoing.deliveries() {
		conn := d.Link().Session().Connection()
		if conn.RemoteState() == engine.Closed {
			continue
		}
		if d.RemotelySettled() || isTerminalState(d.RemoteState()) {
			if e := m.outgoing.entryFor(d); e != nil && e.disp == StatusPending {
				e.disp = dispositionFromState(d.RemoteState())
			}
			if !d.Settled() {
				d.Settle()
			}
			continue
		}
		return false
	}
	return true
}

// dispositionFromState maps an observed remote delivery state onto the
// tracker queue's status enum; a delivery reported RemotelySettled
// without ever carrying an explicit outcome maps to StatusSettled.
func dispositionFromState(s encoding.DeliveryState) dispositionState {
	switch s.(type) {
	case *encoding.StateAccepted:
		return StatusAccepted
	case *encoding.StateRejected:
		return StatusRejected
	case *encoding.StateReleased:
		return StatusReleased
	case *encoding.StateModified:
		return StatusModified
	default:
		return StatusSettled
	}
}

// messageAvailable reports whether any connection's work list holds a
// delivery that is readable and not partial.
func (m *Messenger) messageAvailable() bool {
	for _, c := range m.conns {
		found := false
		walkWork(c, func(d *engine.Delivery) {
			if found {
				return
			}
			if d.Readable() && !d.Partial() {
				found = true
			}
		})
		if found {
			return true
		}
	}
	return false
}

// allClosed reports whether the driver has no connectors remaining.
func (m *Messenger) allClosed() bool {
	return len(m.drv.Connectors()) == 0
}

// isTerminalState reports whether a remote delivery state is one of the
// four disposition outcomes (Accepted/Rejected/Released/Modified), as
// opposed to nil (no disposition yet).
func isTerminalState(s encoding.DeliveryState) bool {
	switch s.(type) {
	case *encoding.StateAccepted, *encoding.StateRejected, *encoding.StateReleased, *encoding.StateModified:
		return true
	default:
		return false
	}
}
