package core

import (
	"context"
	"reflect"
	"time"

	"github.com/encodeous/ara/packet"
	"github.com/encodeous/ara/perf"
	"github.com/google/uuid"
)

type clientEvent interface {
	dispatch(c *Client)
}

type discoveryTimedOut struct {
	destination packet.Address
	timer       uuid.UUID
}

func (e discoveryTimedOut) dispatch(c *Client) {
	c.discoveryTimeout(e.destination, e.timer)
}

type deliveryTimerFired struct {
	destination packet.Address
	timer       uuid.UUID
}

func (e deliveryTimerFired) dispatch(c *Client) {
	c.flush(e.destination, e.timer)
}

type pantTimerFired struct{}

func (pantTimerFired) dispatch(c *Client) {
	c.broadcastPANT()
	c.pant.Run(c.cfg.PantInterval)
}

// onTimeout turns timer expiries into events for the client loop
func (c *Client) onTimeout(to Timeout) {
	var ev clientEvent
	switch to.Type {
	case RouteDiscoveryTimer:
		ev = discoveryTimedOut{destination: to.Context.(packet.Address), timer: to.Id}
	case DeliveryTimer:
		ev = deliveryTimerFired{destination: to.Context.(packet.Address), timer: to.Id}
	case PantTimer:
		ev = pantTimerFired{}
	default:
		return
	}
	select {
	case c.events <- ev:
	case <-c.done:
	}
}

// Run processes timer events and the periodic maintenance of the client until ctx is cancelled or the client is closed.
func (c *Client) Run(ctx context.Context) error {
	c.log.Debug("started client loop")
	evaporation := c.clock.Ticker(c.cfg.EvaporationInterval)
	defer evaporation.Stop()

	var activity <-chan time.Time
	if c.cfg.NeighbourActivityInterval > 0 {
		ticker := c.clock.Ticker(c.cfg.NeighbourActivityInterval)
		defer ticker.Stop()
		activity = ticker.C
	}
	if c.cfg.PantInterval > 0 {
		c.pant.Run(c.cfg.PantInterval)
	}
	c.started.Store(true)

	reason := ErrClosed
	for {
		select {
		case ev := <-c.events:
			start := time.Now()
			ev.dispatch(c)
			elapsed := time.Since(start)
			perf.DispatchLatency.Add(float64(elapsed.Microseconds()))
			if elapsed > time.Millisecond*4 {
				c.log.Warn("dispatch took a long time!", "event", reflect.TypeOf(ev).Name(), "elapsed", elapsed, "len", len(c.events))
			}
		case <-evaporation.C:
			c.evaporate()
		case <-activity:
			c.checkNeighbours()
		case <-ctx.Done():
			reason = context.Cause(ctx)
			goto endLoop
		case <-c.done:
			goto endLoop
		}
	}
endLoop:
	c.log.Debug("stopped client loop", "reason", reason.Error())
	return c.Close()
}

func (c *Client) evaporate() {
	pruned := c.table.Evaporate()
	c.history.deleteExpired()
	c.metrics.SetRoutingEntries(c.table.Len())
	if pruned > 0 {
		c.metrics.RecordEvaporated(pruned)
		c.Log(EntriesEvaporated, "pruned stale paths", "count", pruned)
	}
}

func (c *Client) touchNeighbour(addr packet.Address, iface NetworkInterface) {
	if addr == "" || iface == nil || c.isLocalAddress(addr) {
		return
	}
	c.neighMu.Lock()
	defer c.neighMu.Unlock()
	key := neighbourKey{address: addr, iface: iface}
	n, ok := c.neighbours[key]
	if !ok {
		n = &neighbour{address: addr, iface: iface}
		c.neighbours[key] = n
	}
	n.lastSeen = c.clock.Now()
	n.helloPending = false
}

func (c *Client) recordEnergy(pkt *packet.Packet, iface NetworkInterface) {
	if len(pkt.Payload) < 1 {
		return
	}
	c.neighMu.Lock()
	defer c.neighMu.Unlock()
	if n, ok := c.neighbours[neighbourKey{address: pkt.Source, iface: iface}]; ok {
		n.energy = pkt.Payload[0]
		n.hasEnergy = true
	}
}

// checkNeighbours probes quiet neighbours with a HELLO, and forgets the ones that stayed quiet since the last probe
func (c *Client) checkNeighbours() {
	now := c.clock.Now()
	silent := make([]neighbourKey, 0)
	probe := make([]neighbourKey, 0)

	c.neighMu.Lock()
	for key, n := range c.neighbours {
		if now.Sub(n.lastSeen) < c.cfg.MaxNeighbourInactivity {
			continue
		}
		if n.helloPending {
			silent = append(silent, key)
			delete(c.neighbours, key)
		} else {
			n.helloPending = true
			probe = append(probe, key)
		}
	}
	c.neighMu.Unlock()

	for _, key := range silent {
		removed := c.table.RemoveNextHop(key.address)
		c.metrics.SetRoutingEntries(c.table.Len())
		c.Log(NeighbourSilent, "removing paths", "neigh", key.address, "removed", removed)
	}
	for _, key := range probe {
		hello := c.factory.MakeHelloPacket(c.addr, key.address, c.NextSequenceNumber())
		c.send(key.iface, hello, key.address)
	}
}
