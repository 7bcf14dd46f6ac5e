package engine

import (
	"github.com/amqp-messenger/messenger/internal/encoding"
	"github.com/amqp-messenger/messenger/internal/frames"
)

// Session groups a set of links within a Connection.
type Session struct {
	endpoint

	conn    *Connection
	channel uint16
	links   []*Link
	nextHandle uint32

	pendingOutbound []frames.FrameBody
}

// Connection returns the session's parent connection.
func (s *Session) Connection() *Connection { return s.conn }

// Open transitions the session's local state to Active and schedules a
// Begin frame.
func (s *Session) Open() {
	if s.local != Uninitialized {
		return
	}
	s.local = Active
	s.pendingOutbound = append(s.pendingOutbound, &frames.PerformBegin{
		NextOutgoingID: 0,
		IncomingWindow: 1 << 20,
		OutgoingWindow: 1 << 20,
	})
}

// Close transitions the session's local state to Closed and schedules an
// End frame.
func (s *Session) Close() {
	if s.local == Closed {
		return
	}
	s.local = Closed
	s.pendingOutbound = append(s.pendingOutbound, &frames.PerformEnd{})
}

// Advance drains frames queued by Open/Close since the last call.
func (s *Session) Advance() []frames.FrameBody {
	out := s.pendingOutbound
	s.pendingOutbound = nil
	return out
}

// Sender creates a new, as-yet-unopened sender link named name with the
// given target address.
func (s *Session) Sender(name, targetAddr string) *Link {
	return s.newLink(name, encoding.RoleSender, nil, &encoding.Target{Address: targetAddr})
}

// Receiver creates a new, as-yet-unopened receiver link named name with
// the given source address.
func (s *Session) Receiver(name, sourceAddr string) *Link {
	return s.newLink(name, encoding.RoleReceiver, &encoding.Source{Address: sourceAddr}, nil)
}

func (s *Session) newLink(name string, role encoding.Role, src *encoding.Source, tgt *encoding.Target) *Link {
	l := &Link{
		session:     s,
		handle:      s.nextHandle,
		name:        name,
		role:        role,
		localSource: src,
		localTarget: tgt,
	}
	s.nextHandle++
	s.links = append(s.links, l)
	return l
}

// Links returns the session's links whose (local, remote) state pair
// matches the given filter sets, in attach order.
func (s *Session) Links(localSet, remoteSet StateSet) []*Link {
	var out []*Link
	for _, l := range s.links {
		if l.matches(localSet, remoteSet) {
			out = append(out, l)
		}
	}
	return out
}

// Next returns the next session on the same connection whose (local,
// remote) states match the given sets, or nil.
func (s *Session) Next(localSet, remoteSet StateSet) *Session {
	sessions := s.conn.sessions
	for i, cur := range sessions {
		if cur == s {
			for _, cand := range sessions[i+1:] {
				if cand.matches(localSet, remoteSet) {
					return cand
				}
			}
			return nil
		}
	}
	return nil
}

func (s *Session) linkByHandle(h uint32) *Link {
	for _, l := range s.links {
		if l.handle == h {
			return l
		}
	}
	return nil
}
