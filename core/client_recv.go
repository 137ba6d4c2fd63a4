package core

import (
	"github.com/encodeous/ara/packet"
	"github.com/encodeous/ara/perf"
)

// ReceivePacket handles a packet decoded by iface. It is safe to call from every interface concurrently.
func (c *Client) ReceivePacket(pkt *packet.Packet, iface NetworkInterface) {
	if c.isClosed() {
		return
	}
	c.stats.received.Add(1)
	c.metrics.RecordReceived(pkt.Type.String())
	perf.RecvPacketPerSecond.Add(1)
	c.touchNeighbour(pkt.Sender, iface)

	// an ACK carries the key of the packet it acknowledges, so it bypasses the duplicate history
	if pkt.Type == packet.ACK {
		c.handleAck(pkt, iface)
		return
	}
	if c.isLocalAddress(pkt.Source) {
		c.stats.dropped.Add(1)
		c.metrics.RecordDrop("own_packet")
		return
	}
	if c.history.register(pkt) {
		c.handleDuplicate(pkt, iface)
		return
	}

	c.updateRoutingTable(pkt, iface)

	switch pkt.Type {
	case packet.DATA:
		c.handleData(pkt, iface)
	case packet.FANT:
		c.handleFANT(pkt)
	case packet.BANT, packet.PANT:
		if !c.isLocalAddress(pkt.Destination) {
			c.relayBroadcast(pkt)
		}
	case packet.DUPLICATE_ERROR, packet.ROUTE_FAILURE:
		// a DUPLICATE_ERROR names the duplicated packet's source, so this drops the reverse path through the warner.
		// The forward path towards the duplicated packet's destination is left alone.
		if c.table.RemoveEntry(pkt.Destination, pkt.Sender, iface) {
			c.metrics.SetRoutingEntries(c.table.Len())
			c.Log(RouteRemoved, pkt.Type.String(), "dst", pkt.Destination, "nh", pkt.Sender)
		}
	case packet.HELLO:
		if c.isLocalAddress(pkt.Destination) {
			c.send(iface, c.factory.MakeAcknowledgmentPacket(pkt, c.addr), pkt.Sender)
		}
	case packet.ENERGY_INFO:
		c.recordEnergy(pkt, iface)
	}
}

// updateRoutingTable deposits pheromone on the reverse path of pkt, weaker the further the source is
func (c *Client) updateRoutingTable(pkt *packet.Packet, iface NetworkInterface) {
	hops := max(1, int(pkt.HopCount))
	c.table.Update(pkt.Source, pkt.Sender, iface, c.cfg.InitialPheromone/float64(hops))
	c.metrics.SetRoutingEntries(c.table.Len())
	c.routeObserved(pkt.Source)
}

func (c *Client) handleDuplicate(pkt *packet.Packet, iface NetworkInterface) {
	c.stats.duplicates.Add(1)
	c.metrics.RecordDuplicate()
	c.Log(DuplicateDropped, "already seen", "pkt", pkt)
	if pkt.Type != packet.DATA || !c.warnLim.Allow() {
		return
	}
	warning := c.factory.MakeDuplicateWarningPacket(pkt, c.addr, c.NextSequenceNumber())
	c.send(iface, warning, pkt.Sender)
}

func (c *Client) handleData(pkt *packet.Packet, iface NetworkInterface) {
	if c.isLocalAddress(pkt.Destination) {
		c.stats.delivered.Add(1)
		c.Log(PacketDelivered, "delivering to system", "pkt", pkt)
		c.app.DeliverToSystem(pkt)
		return
	}
	if pkt.TTL == 0 {
		c.dropExpired(pkt)
		return
	}
	out := pkt.Clone()
	out.TTL--
	if nh, ok := c.policy.NextHop(out, c.table); ok {
		c.Log(PacketForwarded, "relaying", "pkt", out, "nh", nh.Address)
		c.forward(out, nh)
		return
	}
	c.stats.dropped.Add(1)
	c.metrics.RecordDrop("no_route")
	c.Log(NoRouteToRelay, "replying with route failure", "pkt", pkt)
	failure := c.factory.MakeRouteFailurePacket(c.addr, pkt.Destination, c.NextSequenceNumber())
	c.send(iface, failure, pkt.Sender)
}

func (c *Client) handleFANT(pkt *packet.Packet) {
	if !c.isLocalAddress(pkt.Destination) {
		c.relayBroadcast(pkt)
		return
	}
	bant := c.factory.MakeBANT(pkt, c.NextSequenceNumber())
	c.history.register(bant)
	c.broadcast(bant)
}

// relayBroadcast floods an ant further, as long as its TTL permits
func (c *Client) relayBroadcast(pkt *packet.Packet) {
	if pkt.TTL == 0 {
		c.dropExpired(pkt)
		return
	}
	out := pkt.Clone()
	out.TTL--
	c.broadcast(out)
}

func (c *Client) dropExpired(pkt *packet.Packet) {
	c.stats.dropped.Add(1)
	c.metrics.RecordDrop("ttl")
	c.Log(TTLExpired, "dropping", "pkt", pkt)
}

func (c *Client) handleAck(pkt *packet.Packet, iface NetworkInterface) {
	if pkt.Sender == "" || c.isLocalAddress(pkt.Sender) {
		return
	}
	c.table.Update(pkt.Sender, pkt.Sender, iface, c.cfg.InitialPheromone)
	c.metrics.SetRoutingEntries(c.table.Len())
	c.routeObserved(pkt.Sender)
}
