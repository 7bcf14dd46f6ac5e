package messenger

import (
	"time"

	"github.com/amqp-messenger/messenger/internal/buffer"
	"github.com/amqp-messenger/messenger/internal/encoding"
)

// Header carries per-delivery transfer annotations.
type Header struct {
	Durable       bool
	Priority      uint8
	TTL           time.Duration
	FirstAcquirer bool
	DeliveryCount uint32
}

// Properties carries the immutable, application-visible message
// metadata defined by the AMQP message format.
type Properties struct {
	MessageID          string
	UserID             []byte
	To                 string
	Subject            string
	ReplyTo            string
	CorrelationID      string
	ContentType        string
	ContentEncoding    string
	AbsoluteExpiryTime time.Time
	CreationTime       time.Time
	GroupID            string
	GroupSequence      uint32
	ReplyToGroupID     string
}

// Message is the application-visible unit Put/Get exchange. Body is
// carried as a single AMQP amqp-value section; the binary-data and
// sequence section variants of the real format are not implemented
// (see SPEC_FULL.md §3 — they are not required by any public
// operation).
type Message struct {
	// Address is the destination URI Put resolves a sender link from.
	// It is a messenger-local routing field, not one of the wire
	// sections Marshal/Unmarshal exchange — mirroring how a qpid-proton
	// style Message keeps address out of band from the sections an
	// AMQP transfer actually carries.
	Address string

	Header                Header
	Properties            Properties
	ApplicationProperties map[string]interface{}
	Body                  interface{}
}

// Marshal encodes m as four consecutive sections (header, properties,
// application-properties, amqp-value) into wr. wr auto-grows, which is
// how the scratch buffer satisfies "never shrinks, always ≥ the largest
// message encoded" without an explicit overflow-and-retry loop.
func (m *Message) Marshal(wr *buffer.Buffer) error {
	h := m.Header
	if err := encoding.MarshalComposite(wr, encoding.TypeCodeMessageHeader, []encoding.Field{
		{Value: h.Durable, Omit: !h.Durable},
		{Value: uint32(h.Priority), Omit: h.Priority == 0},
		{Value: uint32(h.TTL / time.Millisecond), Omit: h.TTL == 0},
		{Value: h.FirstAcquirer, Omit: !h.FirstAcquirer},
		{Value: h.DeliveryCount, Omit: h.DeliveryCount == 0},
	}); err != nil {
		return err
	}

	p := m.Properties
	if err := encoding.MarshalComposite(wr, encoding.TypeCodeMessageProperties, []encoding.Field{
		{Value: p.MessageID, Omit: p.MessageID == ""},
		{Value: p.UserID, Omit: len(p.UserID) == 0},
		{Value: p.To, Omit: p.To == ""},
		{Value: p.Subject, Omit: p.Subject == ""},
		{Value: p.ReplyTo, Omit: p.ReplyTo == ""},
		{Value: p.CorrelationID, Omit: p.CorrelationID == ""},
		{Value: p.ContentType, Omit: p.ContentType == ""},
		{Value: p.ContentEncoding, Omit: p.ContentEncoding == ""},
		{Value: p.AbsoluteExpiryTime, Omit: p.AbsoluteExpiryTime.IsZero()},
		{Value: p.CreationTime, Omit: p.CreationTime.IsZero()},
		{Value: p.GroupID, Omit: p.GroupID == ""},
		{Value: p.GroupSequence, Omit: p.GroupSequence == 0},
		{Value: p.ReplyToGroupID, Omit: p.ReplyToGroupID == ""},
	}); err != nil {
		return err
	}

	appProps := map[string]interface{}(m.ApplicationProperties)
	if err := encoding.MarshalComposite(wr, encoding.TypeCodeApplicationProperties, []encoding.Field{
		{Value: appProps, Omit: len(appProps) == 0},
	}); err != nil {
		return err
	}

	return encoding.MarshalComposite(wr, encoding.TypeCodeAMQPValue, []encoding.Field{
		{Value: m.Body, Omit: m.Body == nil},
	})
}

// Unmarshal decodes m's four sections from r, in the order Marshal
// wrote them.
func (m *Message) Unmarshal(r *buffer.Buffer) error {
	var durable, firstAcquirer bool
	var priority, ttlMillis, deliveryCount uint32
	if err := encoding.UnmarshalComposite(r, encoding.TypeCodeMessageHeader, []interface{}{
		&durable, &priority, &ttlMillis, &firstAcquirer, &deliveryCount,
	}); err != nil {
		return err
	}
	m.Header = Header{
		Durable:       durable,
		Priority:      uint8(priority),
		TTL:           time.Duration(ttlMillis) * time.Millisecond,
		FirstAcquirer: firstAcquirer,
		DeliveryCount: deliveryCount,
	}

	var p Properties
	if err := encoding.UnmarshalComposite(r, encoding.TypeCodeMessageProperties, []interface{}{
		&p.MessageID, &p.UserID, &p.To, &p.Subject, &p.ReplyTo, &p.CorrelationID,
		&p.ContentType, &p.ContentEncoding, &p.AbsoluteExpiryTime, &p.CreationTime,
		&p.GroupID, &p.GroupSequence, &p.ReplyToGroupID,
	}); err != nil {
		return err
	}
	m.Properties = p

	var appProps map[string]interface{}
	if err := encoding.UnmarshalComposite(r, encoding.TypeCodeApplicationProperties, []interface{}{&appProps}); err != nil {
		return err
	}
	m.ApplicationProperties = appProps

	var body interface{}
	if err := encoding.UnmarshalComposite(r, encoding.TypeCodeAMQPValue, []interface{}{&body}); err != nil {
		return err
	}
	m.Body = body
	return nil
}
