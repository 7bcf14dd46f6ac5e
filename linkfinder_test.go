package messenger

import (
	"testing"

	"github.com/amqp-messenger/messenger/internal/engine"
	"github.com/stretchr/testify/require"
)

func TestSenderFinderMatchesByTargetAddress(t *testing.T) {
	c := engine.New("c", false)
	s := c.Session()
	l := s.Sender("l", "orders")

	f := senderFinder{path: "orders"}
	require.Same(t, l, f.test(l))

	other := senderFinder{path: "other"}
	require.Nil(t, other.test(l))
}

func TestSenderFinderIgnoresReceiverLinks(t *testing.T) {
	c := engine.New("c", false)
	s := c.Session()
	l := s.Receiver("l", "orders")

	f := senderFinder{path: "orders"}
	require.Nil(t, f.test(l))
}

func TestReceiverFinderEmptyAddressMatchesEmptyPath(t *testing.T) {
	c := engine.New("c", false)
	s := c.Session()
	l := s.Receiver("l", "")

	f := receiverFinder{path: ""}
	require.Same(t, l, f.test(l))
}

func TestSourceAddressTreatsNilAsEmptyPath(t *testing.T) {
	require.Equal(t, "", sourceAddress(nil))
	require.Equal(t, "", targetAddress(nil))
}

func TestReceiverFinderCreate(t *testing.T) {
	c := engine.New("c", false)
	s := c.Session()
	f := receiverFinder{path: "events"}
	l := f.create(s)
	require.Equal(t, "events", l.LocalSource().Address)
}
