package messenger

import (
	"testing"

	"github.com/amqp-messenger/messenger/internal/engine"
	"github.com/stretchr/testify/require"
)

func newTestDelivery(t *testing.T) *engine.Delivery {
	t.Helper()
	c := engine.New("c", false)
	s := c.Session()
	l := s.Sender("l", "")
	return l.Send([]byte("tag"), []byte("payload"))
}

func TestTrackerQueueAddAndStatus(t *testing.T) {
	q := newTrackerQueue(dirOutgoing, 0)
	d := newTestDelivery(t)
	tr := q.add(d)
	require.Equal(t, StatusPending, q.getStatus(tr))
	require.Equal(t, tr, q.last())
}

func TestTrackerQueueUnknownTrackerIsSilentlyIgnored(t *testing.T) {
	q := newTrackerQueue(dirOutgoing, 0)
	unknown := Tracker{dir: dirOutgoing, seq: 999}
	require.Equal(t, StatusUnknown, q.getStatus(unknown))
	q.accept(unknown, 0) // must not panic
}

func TestTrackerQueueCumulativeAccept(t *testing.T) {
	q := newTrackerQueue(dirIncoming, 0)
	var trackers []Tracker
	for i := 0; i < 3; i++ {
		trackers = append(trackers, q.add(newTestDelivery(t)))
	}
	q.accept(trackers[2], FlagCumulative)
	for _, tr := range trackers {
		require.Equal(t, StatusAccepted, q.getStatus(tr))
	}
}

func TestTrackerQueueNonCumulativeAcceptOnlyTouchesOne(t *testing.T) {
	q := newTrackerQueue(dirIncoming, 0)
	t1 := q.add(newTestDelivery(t))
	t2 := q.add(newTestDelivery(t))
	q.accept(t2, 0)
	require.Equal(t, StatusPending, q.getStatus(t1))
	require.Equal(t, StatusAccepted, q.getStatus(t2))
}

func TestTrackerQueueSettleIdempotent(t *testing.T) {
	q := newTrackerQueue(dirOutgoing, 0)
	tr := q.add(newTestDelivery(t))
	q.settle(tr, 0)
	first := q.getStatus(tr)
	q.settle(tr, 0)
	require.Equal(t, first, q.getStatus(tr))
}

func TestTrackerQueueSlideDropsOnlyTerminalHeadPastWindow(t *testing.T) {
	q := newTrackerQueue(dirOutgoing, 2)
	var trackers []Tracker
	for i := 0; i < 3; i++ {
		trackers = append(trackers, q.add(newTestDelivery(t)))
	}
	// head not yet terminal: slide must not drop anything.
	q.slide()
	require.Equal(t, 3, q.len())

	q.settle(trackers[0], 0)
	q.slide()
	require.Equal(t, 2, q.len())
	require.Equal(t, StatusUnknown, q.getStatus(trackers[0]))
}

func TestTrackerQueueEntryForMissingDeliveryReturnsNil(t *testing.T) {
	q := newTrackerQueue(dirOutgoing, 0)
	other := newTestDelivery(t)
	require.Nil(t, q.entryFor(other))
}
