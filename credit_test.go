package messenger

import (
	"testing"

	"github.com/amqp-messenger/messenger/internal/engine"
	"github.com/stretchr/testify/require"
)

func newActiveReceiver(t *testing.T, m *Messenger, name string) *engine.Link {
	t.Helper()
	c := engine.New("c", false)
	s := c.Session()
	l := s.Receiver(name, "")
	l.Open()
	m.conns = append(m.conns, c)
	return l
}

func TestDistributeCreditSplitsFairlyAcrossReceivers(t *testing.T) {
	m := New(MessengerOptions{Name: "m"})
	r1 := newActiveReceiver(t, m, "r1")
	r2 := newActiveReceiver(t, m, "r2")

	m.setCredit(10)

	require.Equal(t, uint32(5), r1.Credit())
	require.Equal(t, uint32(5), r2.Credit())
	require.Equal(t, int64(0), m.credit)
}

func TestDistributeCreditUnlimitedRefillsBatch(t *testing.T) {
	m := New(MessengerOptions{Name: "m"})
	newActiveReceiver(t, m, "r1")

	m.setCredit(-1)
	require.True(t, m.unlimited)
	require.Equal(t, uint32(defaultBatchSize), m.receivers()[0].Credit())
}

func TestDistributeCreditNoReceiversIsNoop(t *testing.T) {
	m := New(MessengerOptions{Name: "m"})
	m.setCredit(5)
	require.Equal(t, int64(5), m.credit)
}

func TestReclaimCreditReturnsHeldCreditToPool(t *testing.T) {
	m := New(MessengerOptions{Name: "m"})
	c := engine.New("c", false)
	s := c.Session()
	l := s.Receiver("r", "")
	l.Open()
	l.Flow(7)
	m.distributed = 7

	m.reclaimCredit(c)
	require.Equal(t, int64(7), m.credit)
	require.Equal(t, int64(0), m.distributed)
}
