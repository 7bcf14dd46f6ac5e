package encoding

import (
	"fmt"
	"time"

	"github.com/amqp-messenger/messenger/internal/buffer"
)

// MarshalComposite writes a described-list composite: the described-type
// marker, a ulong descriptor code, then a list32 of the given fields in
// order. Trailing omitted fields are dropped; an omitted field in the
// middle of the list is written as null to preserve positional decoding,
// mirroring the omit-by-position convention in Azure-go-amqp's
// marshalComposite helper.
func MarshalComposite(wr *buffer.Buffer, code AMQPType, fields []Field) error {
	wr.AppendByte(byte(TypeCodeDescribed))
	wr.AppendByte(byte(TypeCodeUlong))
	writeUint64(wr, uint64(code))

	last := -1
	for i, f := range fields {
		if !f.Omit {
			last = i
		}
	}

	wr.AppendByte(byte(TypeCodeList32))
	writeUint32(wr, uint32(last+1))
	for i := 0; i <= last; i++ {
		if fields[i].Omit {
			wr.AppendByte(byte(TypeCodeNull))
			continue
		}
		if err := Marshal(wr, fields[i].Value); err != nil {
			return err
		}
	}
	return nil
}

type Field struct {
	Value interface{}
	Omit  bool
}

// UnmarshalComposite reads a described-list composite matching code and
// scatters its fields into dst in order. Fewer fields on the wire than len(dst)
// is not an error (trailing fields keep their zero value).
func UnmarshalComposite(r *buffer.Buffer, code AMQPType, dst []interface{}) error {
	marker, ok := r.ReadByte()
	if !ok || AMQPType(marker) != TypeCodeDescribed {
		return fmt.Errorf("encoding: expected described type, got 0x%x", marker)
	}
	var descriptor interface{}
	if err := Unmarshal(r, &descriptor); err != nil {
		return err
	}
	if got, ok := descriptor.(uint64); !ok || AMQPType(got) != code {
		return fmt.Errorf("encoding: descriptor mismatch, want 0x%x got %v", code, descriptor)
	}
	listCode, ok := r.ReadByte()
	if !ok || AMQPType(listCode) != TypeCodeList32 {
		return fmt.Errorf("encoding: expected list32 body, got 0x%x", listCode)
	}
	count, err := readUint32(r)
	if err != nil {
		return err
	}
	for i := uint32(0); i < count; i++ {
		var v interface{}
		if err := Unmarshal(r, &v); err != nil {
			return err
		}
		if int(i) < len(dst) {
			assign(dst[i], v)
		}
	}
	return nil
}

// ReadCompositeHeader consumes a described-list composite's marker,
// descriptor (asserted to equal code) and list32 header, returning the
// element count so the caller can decode fields itself — used where a
// field's concrete type depends on which composite is present (e.g. an
// Attach frame's Source/Target slots).
func ReadCompositeHeader(r *buffer.Buffer, code AMQPType) (count uint32, err error) {
	marker, ok := r.ReadByte()
	if !ok || AMQPType(marker) != TypeCodeDescribed {
		return 0, fmt.Errorf("encoding: expected described type, got 0x%x", marker)
	}
	var descriptor interface{}
	if err := Unmarshal(r, &descriptor); err != nil {
		return 0, err
	}
	if got, ok := descriptor.(uint64); !ok || AMQPType(got) != code {
		return 0, fmt.Errorf("encoding: descriptor mismatch, want 0x%x got %v", code, descriptor)
	}
	listCode, ok := r.ReadByte()
	if !ok || AMQPType(listCode) != TypeCodeList32 {
		return 0, fmt.Errorf("encoding: expected list32 body, got 0x%x", listCode)
	}
	return readUint32(r)
}

// IsNullNext reports whether the next byte is the null type code, and if
// so consumes it.
func IsNullNext(r *buffer.Buffer) bool {
	b, ok := r.Peek(1)
	if !ok || AMQPType(b[0]) != TypeCodeNull {
		return false
	}
	r.Skip(1)
	return true
}

func assign(dst interface{}, v interface{}) {
	if v == nil {
		return
	}
	switch d := dst.(type) {
	case *string:
		if s, ok := v.(string); ok {
			*d = s
		}
	case *bool:
		if b, ok := v.(bool); ok {
			*d = b
		}
	case *uint32:
		if n, ok := v.(uint32); ok {
			*d = n
		}
	case *uint8:
		if n, ok := v.(uint32); ok {
			*d = uint8(n)
		}
	case *time.Time:
		if t, ok := v.(time.Time); ok {
			*d = t
		}
	case *[]byte:
		if b, ok := v.([]byte); ok {
			*d = b
		}
	case *Symbol:
		if s, ok := v.(Symbol); ok {
			*d = s
		}
	case *[]interface{}:
		if l, ok := v.([]interface{}); ok {
			*d = l
		}
	case *map[string]interface{}:
		if m, ok := v.(map[string]interface{}); ok {
			*d = m
		}
	}
}

// Source describes the originating end of a link's terminus. Only the
// fields the messenger's link finder and credit controller consult are
// kept; the remainder of the AMQP source composite (distribution-mode,
// filter-set, default-outcome, ...) is out of scope for this messenger.
type Source struct {
	Address string
	Dynamic bool
}

func (s *Source) Marshal(wr *buffer.Buffer) error {
	return MarshalComposite(wr, TypeCodeSource, []Field{
		{Value: s.Address, Omit: s.Address == ""},
		{Value: s.Dynamic, Omit: !s.Dynamic},
	})
}

func (s *Source) Unmarshal(r *buffer.Buffer) error {
	return UnmarshalComposite(r, TypeCodeSource, []interface{}{&s.Address, &s.Dynamic})
}

// Target describes the receiving end of a link's terminus.
type Target struct {
	Address string
	Dynamic bool
}

func (t *Target) Marshal(wr *buffer.Buffer) error {
	return MarshalComposite(wr, TypeCodeTarget, []Field{
		{Value: t.Address, Omit: t.Address == ""},
		{Value: t.Dynamic, Omit: !t.Dynamic},
	})
}

func (t *Target) Unmarshal(r *buffer.Buffer) error {
	return UnmarshalComposite(r, TypeCodeTarget, []interface{}{&t.Address, &t.Dynamic})
}

// DeliveryState is a disposition outcome attached to a transfer or
// disposition performative.
type DeliveryState interface {
	Marshaler
	isDeliveryState()
}

// StateAccepted indicates the message was accepted by the receiver.
type StateAccepted struct{}

func (*StateAccepted) isDeliveryState() {}
func (*StateAccepted) Marshal(wr *buffer.Buffer) error {
	return MarshalComposite(wr, TypeCodeStateAccepted, nil)
}

// StateRejected indicates the message was rejected, optionally with an error.
type StateRejected struct {
	Error *Error
}

func (*StateRejected) isDeliveryState() {}
func (s *StateRejected) Marshal(wr *buffer.Buffer) error {
	desc := ""
	if s.Error != nil {
		desc = s.Error.Description
	}
	return MarshalComposite(wr, TypeCodeStateRejected, []Field{
		{Value: desc, Omit: desc == ""},
	})
}

// StateReleased indicates the message was released back to the source
// without being examined by the receiving application.
type StateReleased struct{}

func (*StateReleased) isDeliveryState() {}
func (*StateReleased) Marshal(wr *buffer.Buffer) error {
	return MarshalComposite(wr, TypeCodeStateReleased, nil)
}

// StateModified indicates the message was examined but not accepted, with
// optional hints for redelivery.
type StateModified struct {
	DeliveryFailed    bool
	UndeliverableHere bool
}

func (*StateModified) isDeliveryState() {}
func (s *StateModified) Marshal(wr *buffer.Buffer) error {
	return MarshalComposite(wr, TypeCodeStateModified, []Field{
		{Value: s.DeliveryFailed, Omit: !s.DeliveryFailed},
		{Value: s.UndeliverableHere, Omit: !s.UndeliverableHere},
	})
}

// UnmarshalDeliveryState peeks the composite descriptor and decodes the
// matching concrete DeliveryState, leaving r positioned past it.
func UnmarshalDeliveryState(r *buffer.Buffer) (DeliveryState, error) {
	descriptor, err := peekDescriptor(r)
	if err != nil {
		return nil, err
	}
	switch AMQPType(descriptor) {
	case TypeCodeStateAccepted:
		var s StateAccepted
		return &s, UnmarshalComposite(r, TypeCodeStateAccepted, nil)
	case TypeCodeStateRejected:
		var desc string
		s := &StateRejected{}
		if err := UnmarshalComposite(r, TypeCodeStateRejected, []interface{}{&desc}); err != nil {
			return nil, err
		}
		if desc != "" {
			s.Error = &Error{Condition: ErrCondInternalError, Description: desc}
		}
		return s, nil
	case TypeCodeStateReleased:
		var s StateReleased
		return &s, UnmarshalComposite(r, TypeCodeStateReleased, nil)
	case TypeCodeStateModified:
		var s StateModified
		return &s, UnmarshalComposite(r, TypeCodeStateModified, []interface{}{&s.DeliveryFailed, &s.UndeliverableHere})
	default:
		return nil, fmt.Errorf("encoding: unknown delivery state descriptor 0x%x", descriptor)
	}
}

// peekDescriptor reads ahead to the composite's descriptor code without
// consuming the buffer, for dispatch-by-type decoding.
func peekDescriptor(r *buffer.Buffer) (uint64, error) {
	hdr, ok := r.Peek(10)
	if !ok {
		return 0, fmt.Errorf("encoding: buffer overflow peeking descriptor")
	}
	if AMQPType(hdr[0]) != TypeCodeDescribed || AMQPType(hdr[1]) != TypeCodeUlong {
		return 0, fmt.Errorf("encoding: expected described ulong descriptor")
	}
	var code uint64
	for _, b := range hdr[2:10] {
		code = code<<8 | uint64(b)
	}
	return code, nil
}
