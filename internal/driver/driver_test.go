package driver

import (
	"testing"
	"time"

	"github.com/fortytw2/leaktest"
	"github.com/stretchr/testify/require"
)

func TestConnectorHandshakeOverLoopback(t *testing.T) {
	defer leaktest.Check(t)()

	d := New()
	l, err := d.CreateListener("server", "127.0.0.1", "0")
	require.NoError(t, err)

	host, port := splitAddr(t, l.Addr().String())
	client, err := d.CreateConnector("client", host, port, "client-ctx")
	require.NoError(t, err)
	client.Engine.Open()

	require.NoError(t, client.Process())

	deadline := time.Now().Add(2 * time.Second)
	var server *Connector
	for server == nil && time.Now().Before(deadline) {
		if lr := d.Listener(); lr != nil {
			server = lr.Accept()
		}
	}
	require.NotNil(t, server, "expected an accepted connection")
	server.Engine.Open()

	deadline = time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		require.NoError(t, server.Process())
		require.NoError(t, client.Process())
		if server.Engine.RemoteContainer != "" && client.Engine.RemoteContainer != "" {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	require.Equal(t, "client", server.Engine.RemoteContainer)
	require.Equal(t, "server", client.Engine.RemoteContainer)

	d.Destroy()
}

func TestAllClosedAfterDestroy(t *testing.T) {
	defer leaktest.Check(t)()

	d := New()
	l, err := d.CreateListener("server", "127.0.0.1", "0")
	require.NoError(t, err)
	host, port := splitAddr(t, l.Addr().String())

	c, err := d.CreateConnector("client", host, port, "ctx")
	require.NoError(t, err)
	require.Len(t, d.Connectors(), 1)

	c.Destroy()
	require.Empty(t, d.Connectors(), "forgetConnector must prune the connector once destroyed")

	d.Destroy()
}

func splitAddr(t *testing.T, addr string) (string, string) {
	t.Helper()
	for i := len(addr) - 1; i >= 0; i-- {
		if addr[i] == ':' {
			return addr[:i], addr[i+1:]
		}
	}
	t.Fatalf("no port in addr %q", addr)
	return "", ""
}
