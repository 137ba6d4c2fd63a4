package packet

import (
	"bytes"
	"fmt"
)

// Address identifies a node or an interface. The router only relies on value equality.
type Address string

type Type uint8

const (
	DATA Type = iota + 1
	FANT
	BANT
	DUPLICATE_ERROR
	ACK
	ROUTE_FAILURE
	ENERGY_INFO
	HELLO
	PANT
)

var typeNames = map[Type]string{
	DATA:            "DATA",
	FANT:            "FANT",
	BANT:            "BANT",
	DUPLICATE_ERROR: "DUPLICATE_ERROR",
	ACK:             "ACK",
	ROUTE_FAILURE:   "ROUTE_FAILURE",
	ENERGY_INFO:     "ENERGY_INFO",
	HELLO:           "HELLO",
	PANT:            "PANT",
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(%d)", uint8(t))
}

func (t Type) Valid() bool {
	_, ok := typeNames[t]
	return ok
}

// IsAnt reports whether packets of this type are used to discover or refresh routes
func (t Type) IsAnt() bool {
	return t == FANT || t == BANT || t == PANT
}

// Key is the de-duplication key of a logical message. The destination is intentionally not part of it.
type Key struct {
	Source         Address
	SequenceNumber uint32
}

// Packet is the unit exchanged between ARA nodes.
// Once built, only the forwarding step touches Sender, PreviousHop, HopCount and TTL.
type Packet struct {
	Type           Type
	SequenceNumber uint32
	TTL            uint8
	HopCount       uint8
	Source         Address
	Destination    Address
	// Sender is the node that transmitted this copy of the packet
	Sender      Address
	PreviousHop Address
	Payload     []byte
}

func (p *Packet) Key() Key {
	return Key{Source: p.Source, SequenceNumber: p.SequenceNumber}
}

func (p *Packet) PayloadLength() int {
	return len(p.Payload)
}

// Clone returns a deep copy with an independent payload buffer
func (p *Packet) Clone() *Packet {
	c := *p
	if p.Payload != nil {
		c.Payload = bytes.Clone(p.Payload)
	}
	return &c
}

// Equals compares the logical identity of two packets
func (p *Packet) Equals(o *Packet) bool {
	if p == nil || o == nil {
		return p == o
	}
	return p.Type == o.Type &&
		p.Source == o.Source &&
		p.Destination == o.Destination &&
		p.SequenceNumber == o.SequenceNumber
}

func (p *Packet) String() string {
	return fmt.Sprintf("(%s #%d src: %s, dst: %s, sender: %s, ttl: %d, hops: %d)",
		p.Type, p.SequenceNumber, p.Source, p.Destination, p.Sender, p.TTL, p.HopCount)
}
