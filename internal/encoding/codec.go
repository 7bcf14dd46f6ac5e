package encoding

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/amqp-messenger/messenger/internal/buffer"
)

// Marshal writes v, a Go value representing one AMQP primitive (nil, bool,
// uint32, uint64, int32, int64, float64, string, Symbol, []byte, time.Time,
// []interface{}, map[string]interface{}, or a type implementing Marshaler),
// into wr.
func Marshal(wr *buffer.Buffer, v interface{}) error {
	switch v := v.(type) {
	case nil:
		wr.AppendByte(byte(TypeCodeNull))
	case bool:
		if v {
			wr.AppendByte(byte(TypeCodeBoolTrue))
		} else {
			wr.AppendByte(byte(TypeCodeBoolFalse))
		}
	case uint32:
		wr.AppendByte(byte(TypeCodeUint))
		writeUint32(wr, v)
	case uint64:
		wr.AppendByte(byte(TypeCodeUlong))
		writeUint64(wr, v)
	case int32:
		wr.AppendByte(byte(TypeCodeInt))
		writeUint32(wr, uint32(v))
	case int64:
		wr.AppendByte(byte(TypeCodeLong))
		writeUint64(wr, uint64(v))
	case float64:
		wr.AppendByte(byte(TypeCodeDouble))
		writeUint64(wr, math.Float64bits(v))
	case string:
		wr.AppendByte(byte(TypeCodeStr32))
		writeUint32(wr, uint32(len(v)))
		wr.AppendString(v)
	case Symbol:
		wr.AppendByte(byte(TypeCodeSym32))
		writeUint32(wr, uint32(len(v)))
		wr.AppendString(string(v))
	case []byte:
		wr.AppendByte(byte(TypeCodeVbin32))
		writeUint32(wr, uint32(len(v)))
		wr.Append(v)
	case time.Time:
		wr.AppendByte(byte(TypeCodeTimestamp))
		writeUint64(wr, uint64(v.UnixMilli()))
	case []interface{}:
		return marshalList(wr, v)
	case map[string]interface{}:
		return marshalStringMap(wr, v)
	case Marshaler:
		return v.Marshal(wr)
	default:
		return fmt.Errorf("encoding: cannot marshal %T", v)
	}
	return nil
}

// Marshaler is implemented by composite types (Source, Target, Error,
// delivery states, frame performatives) that encode themselves as a
// described list rather than a bare primitive.
type Marshaler interface {
	Marshal(wr *buffer.Buffer) error
}

// Unmarshaler is the read-side counterpart of Marshaler.
type Unmarshaler interface {
	Unmarshal(r *buffer.Buffer) error
}

func marshalList(wr *buffer.Buffer, items []interface{}) error {
	wr.AppendByte(byte(TypeCodeList32))
	writeUint32(wr, uint32(len(items)))
	for _, it := range items {
		if err := Marshal(wr, it); err != nil {
			return err
		}
	}
	return nil
}

func marshalStringMap(wr *buffer.Buffer, m map[string]interface{}) error {
	wr.AppendByte(byte(TypeCodeMap32))
	writeUint32(wr, uint32(len(m)*2))
	for k, v := range m {
		if err := Marshal(wr, k); err != nil {
			return err
		}
		if err := Marshal(wr, v); err != nil {
			return err
		}
	}
	return nil
}

func writeUint32(wr *buffer.Buffer, v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	wr.Append(b[:])
}

func writeUint64(wr *buffer.Buffer, v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	wr.Append(b[:])
}

// Unmarshal reads one AMQP primitive from r into *v.
func Unmarshal(r *buffer.Buffer, v *interface{}) error {
	code, ok := r.ReadByte()
	if !ok {
		return fmt.Errorf("encoding: buffer overflow reading type code")
	}
	switch AMQPType(code) {
	case TypeCodeNull:
		*v = nil
	case TypeCodeBoolTrue:
		*v = true
	case TypeCodeBoolFalse:
		*v = false
	case TypeCodeUint:
		n, err := readUint32(r)
		if err != nil {
			return err
		}
		*v = n
	case TypeCodeUlong:
		n, err := readUint64(r)
		if err != nil {
			return err
		}
		*v = n
	case TypeCodeInt:
		n, err := readUint32(r)
		if err != nil {
			return err
		}
		*v = int32(n)
	case TypeCodeLong:
		n, err := readUint64(r)
		if err != nil {
			return err
		}
		*v = int64(n)
	case TypeCodeDouble:
		n, err := readUint64(r)
		if err != nil {
			return err
		}
		*v = math.Float64frombits(n)
	case TypeCodeTimestamp:
		n, err := readUint64(r)
		if err != nil {
			return err
		}
		*v = time.UnixMilli(int64(n)).UTC()
	case TypeCodeStr32:
		s, err := readString(r)
		if err != nil {
			return err
		}
		*v = s
	case TypeCodeSym32:
		s, err := readString(r)
		if err != nil {
			return err
		}
		*v = Symbol(s)
	case TypeCodeVbin32:
		n, err := readUint32(r)
		if err != nil {
			return err
		}
		buf, ok := r.Next(int64(n))
		if !ok {
			return fmt.Errorf("encoding: buffer overflow reading binary")
		}
		*v = append([]byte(nil), buf...)
	case TypeCodeList32:
		list, err := unmarshalList(r)
		if err != nil {
			return err
		}
		*v = list
	case TypeCodeMap32:
		m, err := unmarshalStringMap(r)
		if err != nil {
			return err
		}
		*v = m
	default:
		return fmt.Errorf("encoding: unsupported type code 0x%x", code)
	}
	return nil
}

func unmarshalList(r *buffer.Buffer) ([]interface{}, error) {
	count, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	out := make([]interface{}, 0, count)
	for i := uint32(0); i < count; i++ {
		var elem interface{}
		if err := Unmarshal(r, &elem); err != nil {
			return nil, err
		}
		out = append(out, elem)
	}
	return out, nil
}

func unmarshalStringMap(r *buffer.Buffer) (map[string]interface{}, error) {
	count, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	m := make(map[string]interface{}, count/2)
	for i := uint32(0); i < count; i += 2 {
		var key, val interface{}
		if err := Unmarshal(r, &key); err != nil {
			return nil, err
		}
		if err := Unmarshal(r, &val); err != nil {
			return nil, err
		}
		ks, _ := key.(string)
		m[ks] = val
	}
	return m, nil
}

func readUint32(r *buffer.Buffer) (uint32, error) {
	buf, ok := r.Next(4)
	if !ok {
		return 0, fmt.Errorf("encoding: buffer overflow reading uint32")
	}
	return binary.BigEndian.Uint32(buf), nil
}

func readUint64(r *buffer.Buffer) (uint64, error) {
	buf, ok := r.Next(8)
	if !ok {
		return 0, fmt.Errorf("encoding: buffer overflow reading uint64")
	}
	return binary.BigEndian.Uint64(buf), nil
}

func readString(r *buffer.Buffer) (string, error) {
	n, err := readUint32(r)
	if err != nil {
		return "", err
	}
	buf, ok := r.Next(int64(n))
	if !ok {
		return "", fmt.Errorf("encoding: buffer overflow reading string")
	}
	return string(buf), nil
}
