package sim

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/encodeous/ara/core"
	"github.com/encodeous/ara/packet"
	"github.com/encodeous/ara/state"
)

// Node is a simulated mesh node: an ARA client, its radios and the application receiving its packets
type Node struct {
	Id         state.NodeId
	cfg        state.SimNodeCfg
	net        *Network
	log        *slog.Logger
	client     *core.Client
	interfaces []*Interface

	mu            sync.Mutex
	delivered     []*packet.Packet
	undeliverable []*packet.Packet
}

var _ core.Application = (*Node)(nil)

func (n *Node) DeliverToSystem(pkt *packet.Packet) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.delivered = append(n.delivered, pkt)
	n.log.Info("received", "from", pkt.Source, "seq", pkt.SequenceNumber, "hops", pkt.HopCount, "payload", string(pkt.Payload))
}

func (n *Node) PacketNotDeliverable(pkt *packet.Packet) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.undeliverable = append(n.undeliverable, pkt)
	n.log.Warn("packet not deliverable", "to", pkt.Destination, "seq", pkt.SequenceNumber)
}

func (n *Node) Client() *core.Client {
	return n.client
}

func (n *Node) Interfaces() []*Interface {
	return slices.Clone(n.interfaces)
}

func (n *Node) Delivered() []*packet.Packet {
	n.mu.Lock()
	defer n.mu.Unlock()
	return slices.Clone(n.delivered)
}

func (n *Node) Undeliverable() []*packet.Packet {
	n.mu.Lock()
	defer n.mu.Unlock()
	return slices.Clone(n.undeliverable)
}

// Send originates a data packet towards another node
func (n *Node) Send(to state.NodeId, payload []byte) error {
	pkt := n.client.Factory().MakeDataPacket(n.Id.Address(), to.Address(), n.client.NextSequenceNumber(), payload)
	return n.client.SendPacket(pkt)
}
