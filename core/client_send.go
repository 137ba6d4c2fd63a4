package core

import (
	"math"

	"github.com/encodeous/ara/packet"
	"github.com/encodeous/ara/perf"
)

// SendPacket routes a packet originated on this node. A packet without a known route is trapped until a discovery resolves.
func (c *Client) SendPacket(pkt *packet.Packet) error {
	if c.isClosed() {
		return ErrClosed
	}
	c.stats.sent.Add(1)
	return c.route(pkt)
}

func (c *Client) route(pkt *packet.Packet) error {
	// packets queue up behind a running discovery, even when a route appeared in the meantime
	if c.IsRouteDiscoveryRunning(pkt.Destination) {
		return c.startDiscovery(pkt)
	}
	if c.table.IsDeliverable(pkt) {
		if nh, ok := c.policy.NextHop(pkt, c.table); ok {
			c.forward(pkt, nh)
			return nil
		}
	}
	return c.startDiscovery(pkt)
}

func (c *Client) startDiscovery(pkt *packet.Packet) error {
	dst := pkt.Destination

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.trap.trap(pkt)
	trapped := c.trap.len()
	_, running := c.discoveries[dst]
	if !running {
		d := &discovery{
			destination: dst,
			started:     c.clock.Now(),
			timer:       NewTimer(c.clock, RouteDiscoveryTimer, dst, c.onTimeout),
		}
		c.discoveries[dst] = d
		d.timer.Run(c.cfg.DiscoveryTimeout)
	}
	c.mu.Unlock()

	c.stats.trapped.Add(1)
	c.metrics.SetTrapped(trapped)
	perf.TrappedPerSecond.Add(1)
	c.Log(PacketTrapped, "no route, waiting for discovery", "pkt", pkt)

	if !running {
		c.stats.discoveries.Add(1)
		c.metrics.RecordDiscoveryStart()
		c.Log(DiscoveryStarted, "broadcasting FANT", "dst", dst)
		c.broadcastFANT(dst)
	}
	return nil
}

func (c *Client) broadcastFANT(destination packet.Address) {
	fant := c.factory.MakeFANT(c.addr, destination, c.NextSequenceNumber())
	c.history.register(fant)
	c.metrics.RecordFANT()
	c.broadcast(fant)
}

// BroadcastEnergy announces the energy level of this node to its neighbours
func (c *Client) BroadcastEnergy(level uint8) {
	pkt := c.factory.MakeEnergyDisseminationPacket(c.addr, c.NextSequenceNumber(), level)
	c.history.register(pkt)
	c.broadcast(pkt)
}

func (c *Client) broadcastPANT() {
	pant := c.factory.MakePANT(c.addr, c.NextSequenceNumber())
	c.history.register(pant)
	c.broadcast(pant)
}

// prepare stamps this node as the sender of a copy of pkt
func (c *Client) prepare(pkt *packet.Packet) *packet.Packet {
	out := pkt.Clone()
	if out.Sender != c.addr {
		out.PreviousHop = out.Sender
		out.Sender = c.addr
	}
	if out.HopCount < math.MaxUint8 {
		out.HopCount++
	}
	return out
}

func (c *Client) forward(pkt *packet.Packet, nh NextHop) {
	c.stats.forwarded.Add(1)
	c.send(nh.Interface, pkt, nh.Address)
}

func (c *Client) send(iface NetworkInterface, pkt *packet.Packet, recipient packet.Address) {
	out := c.prepare(pkt)
	if err := iface.Send(out, recipient); err != nil {
		c.stats.sendErrors.Add(1)
		c.Log(SendFailed, "send failed", "pkt", out, "to", recipient, "error", err)
		return
	}
	c.metrics.RecordSent(out.Type.String())
	perf.SentPacketPerSecond.Add(1)
}

func (c *Client) broadcast(pkt *packet.Packet) {
	for _, iface := range c.NetworkInterfaces() {
		out := c.prepare(pkt)
		if err := iface.Broadcast(out); err != nil {
			c.stats.sendErrors.Add(1)
			c.Log(SendFailed, "broadcast failed", "pkt", out, "iface", ifaceName(iface), "error", err)
			continue
		}
		c.metrics.RecordSent(out.Type.String())
		perf.SentPacketPerSecond.Add(1)
	}
}
