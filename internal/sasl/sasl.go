// Package sasl implements the anonymous SASL mechanism the messenger
// negotiates on every new connection. Authentication beyond anonymous
// SASL is explicitly out of scope (spec Non-goals); this package exists
// only so a real connection handshake can complete against another
// instance of this messenger or any AMQP 1.0 peer configured to accept
// anonymous clients.
package sasl

import (
	"github.com/amqp-messenger/messenger/internal/encoding"
	"github.com/amqp-messenger/messenger/internal/frames"
)

// MechanismAnonymous is the only mechanism this messenger offers or accepts.
const MechanismAnonymous = encoding.Symbol("ANONYMOUS")

// ClientNegotiator drives the client side of a SASL exchange: on receipt of
// the server's mechanism list, always answers with SASLInit{ANONYMOUS}.
type ClientNegotiator struct {
	done bool
}

// Step feeds one received SASL frame and returns the next frame to send,
// if any, plus whether negotiation is complete.
func (c *ClientNegotiator) Step(in frames.FrameBody) (out frames.FrameBody, complete bool, err error) {
	switch in.(type) {
	case *frames.SASLMechanisms:
		return &frames.SASLInit{Mechanism: MechanismAnonymous}, false, nil
	case *frames.SASLOutcome:
		c.done = true
		return nil, true, nil
	default:
		return nil, c.done, nil
	}
}

// ServerNegotiator drives the server side: it always offers ANONYMOUS and
// accepts any client selection without verifying credentials.
type ServerNegotiator struct {
	offered bool
}

// Start returns the initial SASLMechanisms frame a server sends on accept.
func (s *ServerNegotiator) Start() frames.FrameBody {
	s.offered = true
	return &frames.SASLMechanisms{Mechanisms: []encoding.Symbol{MechanismAnonymous}}
}

// Step feeds one received SASL frame and returns the next frame to send,
// if any, plus whether negotiation is complete.
func (s *ServerNegotiator) Step(in frames.FrameBody) (out frames.FrameBody, complete bool, err error) {
	switch in.(type) {
	case *frames.SASLInit:
		return &frames.SASLOutcome{Code: 0}, true, nil
	default:
		return nil, false, nil
	}
}
