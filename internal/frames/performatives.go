package frames

import (
	"fmt"

	"github.com/amqp-messenger/messenger/internal/buffer"
	"github.com/amqp-messenger/messenger/internal/encoding"
)

// Performative descriptor codes, matching the AMQP 1.0 "transport"
// section numbering also used (as type codes) in Azure-go-amqp's types.go.
const (
	codeOpen        encoding.AMQPType = 0x10
	codeBegin       encoding.AMQPType = 0x11
	codeAttach      encoding.AMQPType = 0x12
	codeFlow        encoding.AMQPType = 0x13
	codeTransfer    encoding.AMQPType = 0x14
	codeDisposition encoding.AMQPType = 0x15
	codeDetach      encoding.AMQPType = 0x16
	codeEnd         encoding.AMQPType = 0x17
	codeClose       encoding.AMQPType = 0x18

	codeSASLMechanisms encoding.AMQPType = 0x40
	codeSASLInit       encoding.AMQPType = 0x41
	codeSASLOutcome    encoding.AMQPType = 0x44
)

// PerformOpen is the connection-establishment performative.
type PerformOpen struct {
	ContainerID  string
	Hostname     string
	IdleTimeout  uint32
}

func (*PerformOpen) frameName() string { return "Open" }
func (o *PerformOpen) Marshal(wr *buffer.Buffer) error {
	return encoding.MarshalComposite(wr, codeOpen, []encoding.Field{
		{Value: o.ContainerID, Omit: false},
		{Value: o.Hostname, Omit: o.Hostname == ""},
		{Value: uint32(0), Omit: true}, // max-frame-size: unused, always default
		{Value: uint32(0), Omit: true}, // channel-max: unused
		{Value: o.IdleTimeout, Omit: o.IdleTimeout == 0},
	})
}

// PerformBegin starts a session on a connection channel.
type PerformBegin struct {
	RemoteChannel *uint16
	NextOutgoingID uint32
	IncomingWindow uint32
	OutgoingWindow uint32
}

func (*PerformBegin) frameName() string { return "Begin" }
func (b *PerformBegin) Marshal(wr *buffer.Buffer) error {
	var rc uint32
	omitRC := b.RemoteChannel == nil
	if !omitRC {
		rc = uint32(*b.RemoteChannel)
	}
	return encoding.MarshalComposite(wr, codeBegin, []encoding.Field{
		{Value: rc, Omit: omitRC},
		{Value: b.NextOutgoingID, Omit: false},
		{Value: b.IncomingWindow, Omit: false},
		{Value: b.OutgoingWindow, Omit: false},
	})
}

// PerformAttach establishes a link on a session.
type PerformAttach struct {
	Name   string
	Handle uint32
	Role   encoding.Role
	Source *encoding.Source
	Target *encoding.Target
}

func (*PerformAttach) frameName() string { return "Attach" }
func (a *PerformAttach) Marshal(wr *buffer.Buffer) error {
	var srcVal, tgtVal interface{}
	if a.Source != nil {
		srcVal = a.Source
	}
	if a.Target != nil {
		tgtVal = a.Target
	}
	return encoding.MarshalComposite(wr, codeAttach, []encoding.Field{
		{Value: a.Name, Omit: false},
		{Value: a.Handle, Omit: false},
		{Value: bool(a.Role), Omit: false},
		{Value: srcVal, Omit: a.Source == nil},
		{Value: tgtVal, Omit: a.Target == nil},
	})
}

// PerformFlow updates link/session credit.
type PerformFlow struct {
	Handle        *uint32
	DeliveryCount *uint32
	LinkCredit    *uint32
	Drain         bool
}

func (*PerformFlow) frameName() string { return "Flow" }
func (f *PerformFlow) Marshal(wr *buffer.Buffer) error {
	var h, dc, lc uint32
	if f.Handle != nil {
		h = *f.Handle
	}
	if f.DeliveryCount != nil {
		dc = *f.DeliveryCount
	}
	if f.LinkCredit != nil {
		lc = *f.LinkCredit
	}
	return encoding.MarshalComposite(wr, codeFlow, []encoding.Field{
		{Value: uint32(0), Omit: true}, // next-incoming-id: unused
		{Value: uint32(0), Omit: false},
		{Value: uint32(0), Omit: false},
		{Value: h, Omit: f.Handle == nil},
		{Value: dc, Omit: f.DeliveryCount == nil},
		{Value: lc, Omit: f.LinkCredit == nil},
		{Value: f.Drain, Omit: !f.Drain},
	})
}

// PerformTransfer carries message bytes for a single delivery.
type PerformTransfer struct {
	Handle      uint32
	DeliveryID  *uint32
	DeliveryTag []byte
	Settled     bool
	More        bool
	Payload     []byte
}

func (*PerformTransfer) frameName() string { return "Transfer" }
func (t *PerformTransfer) Marshal(wr *buffer.Buffer) error {
	var did uint32
	if t.DeliveryID != nil {
		did = *t.DeliveryID
	}
	if err := encoding.MarshalComposite(wr, codeTransfer, []encoding.Field{
		{Value: t.Handle, Omit: false},
		{Value: did, Omit: t.DeliveryID == nil},
		{Value: t.DeliveryTag, Omit: len(t.DeliveryTag) == 0},
		{Value: t.Settled, Omit: !t.Settled},
		{Value: t.More, Omit: !t.More},
	}); err != nil {
		return err
	}
	wr.Append(t.Payload)
	return nil
}

// PerformDisposition communicates a delivery's outcome.
type PerformDisposition struct {
	Role    encoding.Role
	First   uint32
	Last    uint32
	Settled bool
	State   encoding.DeliveryState
}

func (*PerformDisposition) frameName() string { return "Disposition" }
func (d *PerformDisposition) Marshal(wr *buffer.Buffer) error {
	var stateVal interface{}
	if d.State != nil {
		stateVal = d.State
	}
	return encoding.MarshalComposite(wr, codeDisposition, []encoding.Field{
		{Value: bool(d.Role), Omit: false},
		{Value: d.First, Omit: false},
		{Value: d.Last, Omit: d.Last == d.First},
		{Value: d.Settled, Omit: !d.Settled},
		{Value: stateVal, Omit: d.State == nil},
	})
}

// PerformDetach tears down a link.
type PerformDetach struct {
	Handle uint32
	Closed bool
	Error  *encoding.Error
}

func (*PerformDetach) frameName() string { return "Detach" }
func (d *PerformDetach) Marshal(wr *buffer.Buffer) error {
	return encoding.MarshalComposite(wr, codeDetach, []encoding.Field{
		{Value: d.Handle, Omit: false},
		{Value: d.Closed, Omit: !d.Closed},
	})
}

// PerformEnd tears down a session.
type PerformEnd struct{}

func (*PerformEnd) frameName() string { return "End" }
func (*PerformEnd) Marshal(wr *buffer.Buffer) error {
	return encoding.MarshalComposite(wr, codeEnd, nil)
}

// PerformClose tears down a connection.
type PerformClose struct{}

func (*PerformClose) frameName() string { return "Close" }
func (*PerformClose) Marshal(wr *buffer.Buffer) error {
	return encoding.MarshalComposite(wr, codeClose, nil)
}

// SASLMechanisms advertises the server's supported mechanisms.
type SASLMechanisms struct {
	Mechanisms []encoding.Symbol
}

func (*SASLMechanisms) frameName() string { return "SASLMechanisms" }
func (m *SASLMechanisms) Marshal(wr *buffer.Buffer) error {
	items := make([]interface{}, len(m.Mechanisms))
	for i, s := range m.Mechanisms {
		items[i] = s
	}
	return encoding.MarshalComposite(wr, codeSASLMechanisms, []encoding.Field{
		{Value: items, Omit: false},
	})
}

// SASLInit is the client's mechanism selection.
type SASLInit struct {
	Mechanism encoding.Symbol
}

func (*SASLInit) frameName() string { return "SASLInit" }
func (i *SASLInit) Marshal(wr *buffer.Buffer) error {
	return encoding.MarshalComposite(wr, codeSASLInit, []encoding.Field{
		{Value: i.Mechanism, Omit: false},
	})
}

// SASLOutcome concludes the SASL exchange.
type SASLOutcome struct {
	Code uint8 // 0 = ok
}

func (*SASLOutcome) frameName() string { return "SASLOutcome" }
func (o *SASLOutcome) Marshal(wr *buffer.Buffer) error {
	return encoding.MarshalComposite(wr, codeSASLOutcome, []encoding.Field{
		{Value: uint32(o.Code), Omit: false},
	})
}

// decodeBody dispatches on the composite descriptor to decode the right
// performative or SASL frame body.
func decodeBody(r *buffer.Buffer, typ Type) (FrameBody, error) {
	raw := r.Bytes()
	if len(raw) < 10 {
		return nil, fmt.Errorf("frames: short frame body")
	}
	code := descriptorOf(raw)
	switch code {
	case codeOpen:
		var o PerformOpen
		return &o, encoding.UnmarshalComposite(r, codeOpen, []interface{}{&o.ContainerID, &o.Hostname, new(uint32), new(uint32), &o.IdleTimeout})
	case codeBegin:
		var b PerformBegin
		var rc, noid, in, out uint32
		if err := encoding.UnmarshalComposite(r, codeBegin, []interface{}{&rc, &noid, &in, &out}); err != nil {
			return nil, err
		}
		remoteChannel := uint16(rc)
		b.RemoteChannel = &remoteChannel
		b.NextOutgoingID, b.IncomingWindow, b.OutgoingWindow = noid, in, out
		return &b, nil
	case codeAttach:
		a, err := decodeAttach(r)
		if err != nil {
			return nil, err
		}
		return a, nil
	case codeFlow:
		var f PerformFlow
		var nid, incW, outW, handle, dc, lc uint32
		var drain bool
		if err := encoding.UnmarshalComposite(r, codeFlow, []interface{}{&nid, &incW, &outW, &handle, &dc, &lc, &drain}); err != nil {
			return nil, err
		}
		f.Handle, f.DeliveryCount, f.LinkCredit, f.Drain = &handle, &dc, &lc, drain
		return &f, nil
	case codeTransfer:
		var t PerformTransfer
		var did uint32
		if err := encoding.UnmarshalComposite(r, codeTransfer, []interface{}{&t.Handle, &did, &t.DeliveryTag, &t.Settled, &t.More}); err != nil {
			return nil, err
		}
		t.DeliveryID = &did
		t.Payload = append([]byte(nil), r.Bytes()...)
		r.Skip(r.Len())
		return &t, nil
	case codeDisposition:
		d, err := decodeDisposition(r)
		if err != nil {
			return nil, err
		}
		return d, nil
	case codeDetach:
		var d PerformDetach
		if err := encoding.UnmarshalComposite(r, codeDetach, []interface{}{&d.Handle, &d.Closed}); err != nil {
			return nil, err
		}
		return &d, nil
	case codeEnd:
		var e PerformEnd
		return &e, encoding.UnmarshalComposite(r, codeEnd, nil)
	case codeClose:
		var c PerformClose
		return &c, encoding.UnmarshalComposite(r, codeClose, nil)
	case codeSASLMechanisms:
		var m SASLMechanisms
		var list []interface{}
		if err := encoding.UnmarshalComposite(r, codeSASLMechanisms, []interface{}{&list}); err != nil {
			return nil, err
		}
		for _, v := range list {
			if s, ok := v.(encoding.Symbol); ok {
				m.Mechanisms = append(m.Mechanisms, s)
			}
		}
		return &m, nil
	case codeSASLInit:
		var i SASLInit
		return &i, encoding.UnmarshalComposite(r, codeSASLInit, []interface{}{&i.Mechanism})
	case codeSASLOutcome:
		var o SASLOutcome
		var code uint32
		if err := encoding.UnmarshalComposite(r, codeSASLOutcome, []interface{}{&code}); err != nil {
			return nil, err
		}
		o.Code = uint8(code)
		return &o, nil
	default:
		return nil, fmt.Errorf("frames: unknown performative descriptor 0x%x", code)
	}
}

// decodeAttach decodes a PerformAttach by hand rather than through the
// generic field-list path: its Source/Target slots are themselves
// composites, not primitives, so they need their own Unmarshal call
// instead of the generic dispatcher in Unmarshal.
func decodeAttach(r *buffer.Buffer) (*PerformAttach, error) {
	count, err := encoding.ReadCompositeHeader(r, codeAttach)
	if err != nil {
		return nil, err
	}
	a := &PerformAttach{}
	fields := []func() error{
		func() error { return readStringField(r, &a.Name) },
		func() error { return readUint32Field(r, &a.Handle) },
		func() error {
			var role bool
			if err := readBoolField(r, &role); err != nil {
				return err
			}
			a.Role = encoding.Role(role)
			return nil
		},
		func() error {
			if encoding.IsNullNext(r) {
				return nil
			}
			a.Source = &encoding.Source{}
			return a.Source.Unmarshal(r)
		},
		func() error {
			if encoding.IsNullNext(r) {
				return nil
			}
			a.Target = &encoding.Target{}
			return a.Target.Unmarshal(r)
		},
	}
	for i := uint32(0); i < count && int(i) < len(fields); i++ {
		if err := fields[i](); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func readStringField(r *buffer.Buffer, dst *string) error {
	if encoding.IsNullNext(r) {
		return nil
	}
	var v interface{}
	if err := encoding.Unmarshal(r, &v); err != nil {
		return err
	}
	if s, ok := v.(string); ok {
		*dst = s
	}
	return nil
}

func readUint32Field(r *buffer.Buffer, dst *uint32) error {
	if encoding.IsNullNext(r) {
		return nil
	}
	var v interface{}
	if err := encoding.Unmarshal(r, &v); err != nil {
		return err
	}
	if n, ok := v.(uint32); ok {
		*dst = n
	}
	return nil
}

// decodeDisposition decodes a PerformDisposition by hand: its State slot
// is a nested delivery-state composite and needs UnmarshalDeliveryState,
// not the generic primitive dispatcher.
func decodeDisposition(r *buffer.Buffer) (*PerformDisposition, error) {
	count, err := encoding.ReadCompositeHeader(r, codeDisposition)
	if err != nil {
		return nil, err
	}
	d := &PerformDisposition{}
	var role bool
	fields := []func() error{
		func() error { return readBoolField(r, &role) },
		func() error { return readUint32Field(r, &d.First) },
		func() error { return readUint32Field(r, &d.Last) },
		func() error { return readBoolField(r, &d.Settled) },
		func() error {
			if encoding.IsNullNext(r) {
				return nil
			}
			state, err := encoding.UnmarshalDeliveryState(r)
			if err != nil {
				return err
			}
			d.State = state
			return nil
		},
	}
	for i := uint32(0); i < count && int(i) < len(fields); i++ {
		if err := fields[i](); err != nil {
			return nil, err
		}
	}
	d.Role = encoding.Role(role)
	if d.Last == 0 {
		d.Last = d.First
	}
	return d, nil
}

func readBoolField(r *buffer.Buffer, dst *bool) error {
	if encoding.IsNullNext(r) {
		return nil
	}
	var v interface{}
	if err := encoding.Unmarshal(r, &v); err != nil {
		return err
	}
	if b, ok := v.(bool); ok {
		*dst = b
	}
	return nil
}

func descriptorOf(raw []byte) encoding.AMQPType {
	var code uint64
	for _, b := range raw[2:10] {
		code = code<<8 | uint64(b)
	}
	return encoding.AMQPType(code)
}
