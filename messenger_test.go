package messenger

import (
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEndToEndPutSendRecvGetAccept(t *testing.T) {
	recv := New(MessengerOptions{Name: "recv", Timeout: 5 * time.Second})
	require.NoError(t, recv.Start())
	defer recv.Stop()
	require.NoError(t, recv.Subscribe("~amqp://127.0.0.1:0/orders"))

	listeners := recv.drv.Listeners()
	require.Len(t, listeners, 1)
	addr := listeners[0].Addr().(*net.TCPAddr)

	send := New(MessengerOptions{Name: "send", Timeout: 5 * time.Second})
	require.NoError(t, send.Start())
	defer send.Stop()

	target := fmt.Sprintf("amqp://127.0.0.1:%d/orders", addr.Port)
	require.NoError(t, send.Put(&Message{Address: target, Body: "hello"}))

	sendErr := make(chan error, 1)
	go func() { sendErr <- send.Send() }()

	var msg *Message
	deadline := time.Now().Add(5 * time.Second)
	for msg == nil && time.Now().Before(deadline) {
		if err := recv.Recv(1); err != nil {
			t.Fatalf("recv: %v", err)
		}
		got, err := recv.Get()
		if err == ErrNothingAvailable {
			continue
		}
		require.NoError(t, err)
		msg = got
	}
	require.NotNil(t, msg, "expected a message within the deadline")
	require.Equal(t, "hello", msg.Body)
	require.Equal(t, "amqp://send", msg.Properties.ReplyTo)

	recv.Accept(recv.IncomingTracker(), 0)

	// drive recv's loop a bit more so the disposition we just queued
	// actually reaches the wire and the sender observes it. The
	// predicate never holds, so this always returns ErrTimeout; it's
	// only here to pump recv's processor passes.
	_ = recv.waitUntil(func() bool { return false }, 200*time.Millisecond)

	require.NoError(t, <-sendErr)
	require.Equal(t, StatusAccepted, send.GetStatus(send.OutgoingTracker()))
}

func TestPutInvalidAddressLeavesStateUnchanged(t *testing.T) {
	m := New(MessengerOptions{Name: "m"})
	require.NoError(t, m.Start())
	defer m.Stop()

	before := m.Outgoing()
	err := m.Put(&Message{Address: "not a valid uri with no host", Body: "x"})
	require.ErrorIs(t, err, ErrInvalidAddress)
	require.Equal(t, before, m.Outgoing())
}

func TestGetReturnsErrNothingAvailableWhenEmpty(t *testing.T) {
	m := New(MessengerOptions{Name: "m"})
	require.NoError(t, m.Start())
	defer m.Stop()

	_, err := m.Get()
	require.ErrorIs(t, err, ErrNothingAvailable)
}
