// Package wire implements the positional binary codec used for action
// log memos. Values are encoded back to back in call order: fixed width
// for integers and uuids, length prefixed for strings and decimals.
// A RawMessage swallows whatever remains, so it must come last.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

// RawMessage trailing opaque bytes
type RawMessage []byte

var (
	// ErrShortBuffer not enough bytes left for the requested value
	ErrShortBuffer = errors.New("wire: short buffer")
	// ErrUnsupportedType value type not handled by the codec
	ErrUnsupportedType = errors.New("wire: unsupported type")
)

// Encode encode values into a memo body
func Encode(values ...interface{}) ([]byte, error) {
	var body []byte
	for _, v := range values {
		switch v := v.(type) {
		case int8:
			body = append(body, byte(v))
		case uint8:
			body = append(body, v)
		case int:
			body = appendInt64(body, int64(v))
		case int64:
			body = appendInt64(body, v)
		case uint64:
			var buf [8]byte
			binary.BigEndian.PutUint64(buf[:], v)
			body = append(body, buf[:]...)
		case uuid.UUID:
			body = append(body, v.Bytes()...)
		case string:
			b, err := appendString(body, v)
			if err != nil {
				return nil, err
			}
			body = b
		case decimal.Decimal:
			b, err := appendString(body, v.String())
			if err != nil {
				return nil, err
			}
			body = b
		case RawMessage:
			body = append(body, v...)
		case []byte:
			body = append(body, v...)
		default:
			return nil, fmt.Errorf("%w: %T", ErrUnsupportedType, v)
		}
	}

	return body, nil
}

// Scan decode values from a memo body, returning the unconsumed tail
func Scan(body []byte, dest ...interface{}) ([]byte, error) {
	var err error
	for _, d := range dest {
		switch d := d.(type) {
		case *int8:
			if len(body) < 1 {
				return nil, ErrShortBuffer
			}
			*d = int8(body[0])
			body = body[1:]
		case *uint8:
			if len(body) < 1 {
				return nil, ErrShortBuffer
			}
			*d = body[0]
			body = body[1:]
		case *int:
			var v int64
			if v, body, err = readInt64(body); err != nil {
				return nil, err
			}
			*d = int(v)
		case *int64:
			if *d, body, err = readInt64(body); err != nil {
				return nil, err
			}
		case *uint64:
			if len(body) < 8 {
				return nil, ErrShortBuffer
			}
			*d = binary.BigEndian.Uint64(body[:8])
			body = body[8:]
		case *uuid.UUID:
			if len(body) < uuid.Size {
				return nil, ErrShortBuffer
			}
			if *d, err = uuid.FromBytes(body[:uuid.Size]); err != nil {
				return nil, err
			}
			body = body[uuid.Size:]
		case *string:
			if *d, body, err = readString(body); err != nil {
				return nil, err
			}
		case *decimal.Decimal:
			var s string
			if s, body, err = readString(body); err != nil {
				return nil, err
			}
			if *d, err = decimal.NewFromString(s); err != nil {
				return nil, err
			}
		case *RawMessage:
			if *d == nil {
				*d = make(RawMessage, len(body))
			}
			n := copy(*d, body)
			*d = (*d)[:n]
			body = body[n:]
		default:
			return nil, fmt.Errorf("%w: %T", ErrUnsupportedType, d)
		}
	}

	return body, nil
}

func appendInt64(body []byte, v int64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(v))
	return append(body, buf[:]...)
}

func readInt64(body []byte) (int64, []byte, error) {
	if len(body) < 8 {
		return 0, nil, ErrShortBuffer
	}
	return int64(binary.BigEndian.Uint64(body[:8])), body[8:], nil
}

func appendString(body []byte, s string) ([]byte, error) {
	if len(s) > 0xffff {
		return nil, errors.New("wire: string too long")
	}
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], uint16(len(s)))
	return append(append(body, buf[:]...), s...), nil
}

func readString(body []byte) (string, []byte, error) {
	if len(body) < 2 {
		return "", nil, ErrShortBuffer
	}
	n := int(binary.BigEndian.Uint16(body[:2]))
	body = body[2:]
	if len(body) < n {
		return "", nil, ErrShortBuffer
	}
	return string(body[:n]), body[n:], nil
}
