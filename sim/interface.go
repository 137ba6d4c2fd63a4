package sim

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/encodeous/ara/core"
	"github.com/encodeous/ara/packet"
	"github.com/encodeous/ara/perf"
)

// BroadcastAddress is stamped on broadcast frames that do not name a destination
const BroadcastAddress = packet.Address("*")

var ErrUnknownRecipient = errors.New("recipient is not linked to this interface")

type frame struct {
	data []byte
}

// Interface is one radio of a simulated node. It implements core.NetworkInterface.
type Interface struct {
	node  *Node
	index int
	inbox chan frame

	mu    sync.RWMutex
	links map[packet.Address]*Link
}

var _ core.NetworkInterface = (*Interface)(nil)

func newInterface(node *Node, index int) *Interface {
	return &Interface{
		node:  node,
		index: index,
		inbox: make(chan frame, 1024),
		links: make(map[packet.Address]*Link),
	}
}

func (i *Interface) LocalAddress() packet.Address {
	return i.node.Id.Address()
}

func (i *Interface) Index() int {
	return i.index
}

func (i *Interface) String() string {
	return fmt.Sprintf("%s/%d", i.node.Id, i.index)
}

func (i *Interface) attach(remote packet.Address, l *Link) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.links[remote] = l
}

func (i *Interface) detach(remote packet.Address) {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.links, remote)
}

// Peers returns the addresses reachable over this interface
func (i *Interface) Peers() []packet.Address {
	i.mu.RLock()
	defer i.mu.RUnlock()
	out := make([]packet.Address, 0, len(i.links))
	for addr := range i.links {
		out = append(out, addr)
	}
	return out
}

func (i *Interface) Send(pkt *packet.Packet, recipient packet.Address) error {
	i.mu.RLock()
	l, ok := i.links[recipient]
	i.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%s -> %s: %w", i, recipient, ErrUnknownRecipient)
	}
	data, err := packet.Marshal(pkt)
	if err != nil {
		return err
	}
	l.transmit(i, data)
	return nil
}

func (i *Interface) Broadcast(pkt *packet.Packet) error {
	if pkt.Destination == "" {
		pkt = pkt.Clone()
		pkt.Destination = BroadcastAddress
	}
	data, err := packet.Marshal(pkt)
	if err != nil {
		return err
	}
	i.mu.RLock()
	links := make([]*Link, 0, len(i.links))
	for _, l := range i.links {
		links = append(links, l)
	}
	i.mu.RUnlock()
	for _, l := range links {
		l.transmit(i, data)
	}
	return nil
}

func (i *Interface) enqueue(f frame) {
	select {
	case i.inbox <- f:
	default:
		i.node.net.dropped.Add(1)
	}
}

// run decodes frames that reached this interface and hands them to the client
func (i *Interface) run(ctx context.Context) error {
	for {
		select {
		case f := <-i.inbox:
			perf.RecvBytesPerSecond.Add(float64(len(f.data)))
			pkt, err := packet.Unmarshal(f.data)
			if err != nil {
				i.node.log.Warn("dropping malformed frame", "iface", i.String(), "error", err)
				continue
			}
			i.node.client.ReceivePacket(pkt, i)
		case <-ctx.Done():
			return nil
		}
	}
}
