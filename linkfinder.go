package messenger

import (
	"github.com/amqp-messenger/messenger/internal/encoding"
	"github.com/amqp-messenger/messenger/internal/engine"
)

const (
	roleSender   = encoding.RoleSender
	roleReceiver = encoding.RoleReceiver
)

// linkFinder matches an existing link by address path or creates one,
// implemented once per direction by senderFinder/receiverFinder.
type linkFinder interface {
	test(l *engine.Link) *engine.Link
	create(s *engine.Session) *engine.Link
}

// senderFinder locates or creates a sender link whose local target
// address equals path.
type senderFinder struct{ path string }

func (f senderFinder) test(l *engine.Link) *engine.Link {
	if l.Role() != roleSender {
		return nil
	}
	if targetAddress(l.LocalTarget()) != f.path {
		return nil
	}
	return l
}

func (f senderFinder) create(s *engine.Session) *engine.Link {
	return s.Sender(f.path, f.path)
}

// receiverFinder locates or creates a receiver link whose local source
// address equals path.
type receiverFinder struct{ path string }

func (f receiverFinder) test(l *engine.Link) *engine.Link {
	if l.Role() != roleReceiver {
		return nil
	}
	if sourceAddress(l.LocalSource()) != f.path {
		return nil
	}
	return l
}

func (f receiverFinder) create(s *engine.Session) *engine.Link {
	return s.Receiver(f.path, f.path)
}

// targetAddress/sourceAddress treat a nil terminus (no address set) the
// same as an explicit empty path, per the link key rule: "a
// target/source with null address matches an empty path string."
func targetAddress(t *encoding.Target) string {
	if t == nil {
		return ""
	}
	return t.Address
}

func sourceAddress(s *encoding.Source) string {
	if s == nil {
		return ""
	}
	return s.Address
}
