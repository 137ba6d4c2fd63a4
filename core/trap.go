package core

import (
	"slices"

	"github.com/encodeous/ara/packet"
)

// packetTrap holds packets waiting for a route discovery, grouped by destination.
// It is owned by the client and only used under its discovery lock.
type packetTrap struct {
	packets map[packet.Address][]*packet.Packet
	count   int
}

func newPacketTrap() *packetTrap {
	return &packetTrap{packets: make(map[packet.Address][]*packet.Packet)}
}

func (t *packetTrap) trap(pkt *packet.Packet) {
	t.packets[pkt.Destination] = append(t.packets[pkt.Destination], pkt)
	t.count++
}

func (t *packetTrap) contains(pkt *packet.Packet) bool {
	return slices.ContainsFunc(t.packets[pkt.Destination], pkt.Equals)
}

func (t *packetTrap) trapped(destination packet.Address) int {
	return len(t.packets[destination])
}

// release removes and returns every packet trapped for destination, in arrival order
func (t *packetTrap) release(destination packet.Address) []*packet.Packet {
	pkts := t.packets[destination]
	delete(t.packets, destination)
	t.count -= len(pkts)
	return pkts
}

func (t *packetTrap) len() int {
	return t.count
}
