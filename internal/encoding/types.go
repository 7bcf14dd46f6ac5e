// Package encoding implements the subset of the AMQP 1.0 type system and
// composite types (Source, Target, delivery states) needed by the
// messenger's wire codec. It mirrors the constraint-encoding style of
// github.com/Azure/go-amqp's types.go, trimmed to what the messenger
// actually puts on the wire.
package encoding

// AMQPType is a one-byte AMQP primitive type constructor code.
type AMQPType uint8

// Type codes. Only the subset the messenger encodes/decodes is kept;
// unused numeric widths (e.g. smallint variants) are folded into the
// widest form the messenger ever sends.
const (
	TypeCodeNull AMQPType = 0x40

	TypeCodeBool      AMQPType = 0x56
	TypeCodeBoolTrue  AMQPType = 0x41
	TypeCodeBoolFalse AMQPType = 0x42

	TypeCodeUbyte AMQPType = 0x50
	TypeCodeUint  AMQPType = 0x70
	TypeCodeUlong AMQPType = 0x80

	TypeCodeByte AMQPType = 0x51
	TypeCodeInt  AMQPType = 0x71
	TypeCodeLong AMQPType = 0x81

	TypeCodeDouble AMQPType = 0x82

	TypeCodeTimestamp AMQPType = 0x83

	TypeCodeVbin32 AMQPType = 0xb0
	TypeCodeStr32  AMQPType = 0xb1
	TypeCodeSym32  AMQPType = 0xb3

	TypeCodeList32 AMQPType = 0xd0
	TypeCodeMap32  AMQPType = 0xd1

	TypeCodeSource AMQPType = 0x28
	TypeCodeTarget AMQPType = 0x29
	TypeCodeError  AMQPType = 0x1d

	TypeCodeMessageHeader         AMQPType = 0x70
	TypeCodeMessageProperties     AMQPType = 0x73
	TypeCodeApplicationProperties AMQPType = 0x74
	TypeCodeAMQPValue             AMQPType = 0x77

	TypeCodeStateAccepted AMQPType = 0x24
	TypeCodeStateRejected AMQPType = 0x25
	TypeCodeStateReleased AMQPType = 0x26
	TypeCodeStateModified AMQPType = 0x27

	// described-type composite marker, followed by a ulong descriptor code
	// and a list32 of fields; used for Source, Target, Error, sections,
	// delivery states and performatives alike.
	TypeCodeDescribed AMQPType = 0x00
)

// Symbol is an ASCII-only AMQP string used for names, capabilities and
// application-property keys that need wire economy.
type Symbol string

// Role indicates which end of a link a party plays.
type Role bool

const (
	RoleSender   Role = false
	RoleReceiver Role = true
)

func (r Role) String() string {
	if r {
		return "receiver"
	}
	return "sender"
}

// ErrCond is a well-known AMQP error condition symbol.
type ErrCond string

const (
	ErrCondInternalError ErrCond = "amqp:internal-error"
	ErrCondNotFound      ErrCond = "amqp:not-found"
	ErrCondDecodeError   ErrCond = "amqp:decode-error"
)

// Error carries a remote-reported AMQP error condition and description.
type Error struct {
	Condition   ErrCond
	Description string
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	return string(e.Condition) + ": " + e.Description
}
