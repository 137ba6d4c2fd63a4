package packet

import (
	"errors"
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

var ErrMalformed = errors.New("malformed packet")

// field numbers of the on-wire representation
const (
	fieldType protowire.Number = iota + 1
	fieldSeqno
	fieldTTL
	fieldHopCount
	fieldSource
	fieldDestination
	fieldSender
	fieldPreviousHop
	fieldPayload
)

// Marshal encodes a packet using the protobuf wire format, empty fields are omitted.
func Marshal(p *Packet) ([]byte, error) {
	if !p.Type.Valid() {
		return nil, fmt.Errorf("cannot marshal packet of type %s", p.Type)
	}
	b := make([]byte, 0, 32+len(p.Payload))
	b = appendVarint(b, fieldType, uint64(p.Type))
	b = appendVarint(b, fieldSeqno, uint64(p.SequenceNumber))
	b = appendVarint(b, fieldTTL, uint64(p.TTL))
	b = appendVarint(b, fieldHopCount, uint64(p.HopCount))
	b = appendString(b, fieldSource, p.Source)
	b = appendString(b, fieldDestination, p.Destination)
	b = appendString(b, fieldSender, p.Sender)
	b = appendString(b, fieldPreviousHop, p.PreviousHop)
	if len(p.Payload) != 0 {
		b = protowire.AppendTag(b, fieldPayload, protowire.BytesType)
		b = protowire.AppendBytes(b, p.Payload)
	}
	return b, nil
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendString(b []byte, num protowire.Number, a Address) []byte {
	if a == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, string(a))
}

// Unmarshal decodes a frame produced by Marshal. Unknown fields are skipped.
func Unmarshal(b []byte) (*Packet, error) {
	p := &Packet{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("%w: %w", ErrMalformed, protowire.ParseError(n))
		}
		b = b[n:]
		switch {
		case typ == protowire.VarintType && num <= fieldHopCount:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, fmt.Errorf("%w: field %d: %w", ErrMalformed, num, protowire.ParseError(n))
			}
			b = b[n:]
			if err := p.setVarint(num, v); err != nil {
				return nil, err
			}
		case typ == protowire.BytesType && num >= fieldSource && num <= fieldPayload:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, fmt.Errorf("%w: field %d: %w", ErrMalformed, num, protowire.ParseError(n))
			}
			b = b[n:]
			p.setBytes(num, v)
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, fmt.Errorf("%w: field %d: %w", ErrMalformed, num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	if !p.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown packet type %d", ErrMalformed, uint8(p.Type))
	}
	return p, nil
}

func (p *Packet) setVarint(num protowire.Number, v uint64) error {
	limit := uint64(math.MaxUint8)
	if num == fieldSeqno {
		limit = math.MaxUint32
	}
	if v > limit {
		return fmt.Errorf("%w: field %d overflows (%d)", ErrMalformed, num, v)
	}
	switch num {
	case fieldType:
		p.Type = Type(v)
	case fieldSeqno:
		p.SequenceNumber = uint32(v)
	case fieldTTL:
		p.TTL = uint8(v)
	case fieldHopCount:
		p.HopCount = uint8(v)
	}
	return nil
}

func (p *Packet) setBytes(num protowire.Number, v []byte) {
	switch num {
	case fieldSource:
		p.Source = Address(v)
	case fieldDestination:
		p.Destination = Address(v)
	case fieldSender:
		p.Sender = Address(v)
	case fieldPreviousHop:
		p.PreviousHop = Address(v)
	case fieldPayload:
		p.Payload = append([]byte(nil), v...)
	}
}
