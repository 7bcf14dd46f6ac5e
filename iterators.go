package messenger

import "github.com/amqp-messenger/messenger/internal/engine"

// allSessions walks every session on every registered connection whose
// (local, remote) state pair matches the given filter sets.
func (m *Messenger) allSessions(localSet, remoteSet engine.StateSet) []*engine.Session {
	var out []*engine.Session
	for _, c := range m.conns {
		out = append(out, c.Sessions(localSet, remoteSet)...)
	}
	return out
}

// allLinks walks every link on every registered connection whose
// (local, remote) state pair matches the given filter sets.
func (m *Messenger) allLinks(localSet, remoteSet engine.StateSet) []*engine.Link {
	var out []*engine.Link
	for _, c := range m.conns {
		out = append(out, c.Links(localSet, remoteSet)...)
	}
	return out
}

// walkWork visits every delivery on c's work list front to back without
// mutating the list; fn decides whether and how to remove an entry
// (via Connection.RemoveWork) once it has finished with it.
func walkWork(c *engine.Connection, fn func(*engine.Delivery)) {
	for d := c.WorkHead(); d != nil; {
		next := d.WorkNext() // fn may unlink d, which clears d.WorkNext()
		fn(d)
		d = next
	}
}
