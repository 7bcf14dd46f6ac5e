package messenger

import (
	"github.com/amqp-messenger/messenger/internal/engine"
)

// getLink looks up the connection registered for (host, port), reusing
// it if present, otherwise dialing a new one; then finds or creates the
// link finder describes on it.
func (m *Messenger) getLink(host, port string, finder linkFinder) (*engine.Link, error) {
	conn, err := m.getConnection(host, port)
	if err != nil {
		return nil, err
	}

	for _, l := range conn.Links(engine.SetActive, engine.SetAny) {
		if match := finder.test(l); match != nil {
			return match, nil
		}
	}

	s := conn.Session()
	s.Open()
	l := finder.create(s)
	l.Open()
	return l, nil
}

// getConnection looks up a connection by remote container name equal
// to host, or by connector context equal to "host:port"; if none
// matches, it dials a new connector, opens the connection, and
// registers it.
func (m *Messenger) getConnection(host, port string) (*engine.Connection, error) {
	ctxKey := host + ":" + port
	for _, c := range m.conns {
		if c.RemoteContainer == host {
			return c, nil
		}
		if s, ok := c.Context.(string); ok && s == ctxKey {
			return c, nil
		}
	}

	connector, err := m.drv.CreateConnector(m.name, host, port, ctxKey)
	if err != nil {
		return nil, err
	}
	connector.Engine.Open()
	m.conns = append(m.conns, connector.Engine)
	return connector.Engine, nil
}
