package driver

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestListenerDestroyClosesUnclaimedConnections(t *testing.T) {
	d := New()
	l, err := d.CreateListener("server", "127.0.0.1", "0")
	require.NoError(t, err)

	host, port := splitAddr(t, l.Addr().String())
	conn, err := net.Dial("tcp", net.JoinHostPort(host, port))
	require.NoError(t, err)
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for len(l.pending) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	require.Len(t, l.pending, 1, "server should have queued the accepted connection")

	l.Destroy()
	require.Nil(t, l.pending)

	buf := make([]byte, 1)
	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, err = conn.Read(buf)
	require.Error(t, err, "client side should observe the server closing an unclaimed connection")
}

func TestListenerAcceptReturnsNilWhenNothingPending(t *testing.T) {
	d := New()
	l, err := d.CreateListener("server", "127.0.0.1", "0")
	require.NoError(t, err)
	require.Nil(t, l.Accept())
}
