// Package frames implements the AMQP 1.0 performatives (Open, Begin,
// Attach, Flow, Transfer, Disposition, Detach, Close) and SASL frame
// bodies the engine and driver exchange, plus the 8-byte frame header
// that wraps each one on the wire. Field coverage is trimmed to what the
// messenger actually needs, in the spirit of (not a copy of)
// github.com/Azure/go-amqp's internal/frames package.
package frames

import (
	"encoding/binary"

	"github.com/amqp-messenger/messenger/internal/buffer"
	"github.com/amqp-messenger/messenger/internal/encoding"
)

// Type distinguishes an AMQP frame from a SASL frame at the transport
// framing layer, prior to any performative decoding.
type Type uint8

const (
	TypeAMQP Type = 0x0
	TypeSASL Type = 0x1
)

const headerSize = 8

// FrameBody is implemented by every performative and SASL frame body.
type FrameBody interface {
	encoding.Marshaler
	frameName() string
}

// WriteFrame encodes body as a complete framed message (header + payload)
// for channel ch and appends it to wr.
func WriteFrame(wr *buffer.Buffer, typ Type, ch uint16, body FrameBody) error {
	payload := buffer.New(nil)
	if err := body.Marshal(payload); err != nil {
		return err
	}
	size := uint32(headerSize + payload.Len())

	var hdr [headerSize]byte
	binary.BigEndian.PutUint32(hdr[0:], size)
	hdr[4] = 2 // data offset, in 4-byte words
	hdr[5] = byte(typ)
	binary.BigEndian.PutUint16(hdr[6:8], ch)

	wr.Append(hdr[:])
	wr.Append(payload.Bytes())
	return nil
}

// ReadFrame decodes the next complete frame from r, returning its channel,
// type, and decoded body. It returns ok=false if r does not yet contain a
// full frame (caller should wait for more bytes).
func ReadFrame(r *buffer.Buffer) (ch uint16, typ Type, body FrameBody, ok bool, err error) {
	hdr, peeked := r.Peek(headerSize)
	if !peeked {
		return 0, 0, nil, false, nil
	}
	size := binary.BigEndian.Uint32(hdr)
	if r.Len() < int(size) {
		return 0, 0, nil, false, nil
	}
	doff := hdr[4]
	typ = Type(hdr[5])
	ch = binary.BigEndian.Uint16(hdr[6:8])
	r.Skip(headerSize)
	r.Skip(int(doff)*4 - headerSize)

	bodyLen := int64(size) - int64(doff)*4
	if bodyLen == 0 {
		return ch, typ, nil, true, nil
	}
	payload, _ := r.Next(bodyLen)
	pr := buffer.New(append([]byte(nil), payload...))
	body, err = decodeBody(pr, typ)
	return ch, typ, body, true, err
}
