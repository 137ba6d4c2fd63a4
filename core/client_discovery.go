package core

import (
	"github.com/encodeous/ara/packet"
	"github.com/encodeous/ara/perf"
	"github.com/google/uuid"
)

// routeObserved completes the running discovery of destination once the table can deliver to it.
// Trapped packets are flushed after the delivery delay, so that more ants can add alternative paths.
func (c *Client) routeObserved(destination packet.Address) {
	if !c.table.HasRoute(destination) {
		return
	}

	c.mu.Lock()
	d, ok := c.discoveries[destination]
	if !ok || d.delivery != nil {
		c.mu.Unlock()
		return
	}
	d.timer.Interrupt()
	d.delivery = NewTimer(c.clock, DeliveryTimer, destination, c.onTimeout)
	if c.cfg.DeliveryDelay > 0 {
		d.delivery.Run(c.cfg.DeliveryDelay)
	}
	elapsed := c.clock.Since(d.started)
	delivery := d.delivery.Id()
	c.mu.Unlock()

	c.stats.routesFound.Add(1)
	c.metrics.RecordRouteFound()
	perf.DiscoveryLatency.Add(float64(elapsed.Milliseconds()))
	c.Log(RouteFound, "discovery complete", "dst", destination, "elapsed", elapsed)

	if c.cfg.DeliveryDelay == 0 {
		c.flush(destination, delivery)
	}
}

// flush releases the packets trapped for destination exactly once
func (c *Client) flush(destination packet.Address, timer uuid.UUID) {
	c.mu.Lock()
	d, ok := c.discoveries[destination]
	if !ok || d.delivery == nil || d.delivery.Id() != timer {
		c.mu.Unlock()
		c.Log(StaleTimer, "no running discovery to flush", "dst", destination)
		return
	}
	delete(c.discoveries, destination)
	pkts := c.trap.release(destination)
	trapped := c.trap.len()
	c.mu.Unlock()

	c.metrics.SetTrapped(trapped)
	c.Log(PacketsFlushed, "sending trapped packets", "dst", destination, "count", len(pkts))
	for _, pkt := range pkts {
		if err := c.route(pkt); err != nil {
			c.app.PacketNotDeliverable(pkt)
		}
	}
}

func (c *Client) isCurrentDiscovery(destination packet.Address, timer uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.discoveries[destination]
	return ok && d.delivery == nil && d.timer.Id() == timer
}

// discoveryTimeout retries the FANT broadcast, or gives up on the trapped packets once every retry is spent
func (c *Client) discoveryTimeout(destination packet.Address, timer uuid.UUID) {
	if !c.isCurrentDiscovery(destination, timer) {
		c.Log(StaleTimer, "discovery timer for a resolved destination", "dst", destination)
		return
	}
	// a route may have shown up without completing the discovery, e.g. while the packet was being trapped
	if c.table.HasRoute(destination) {
		c.routeObserved(destination)
		return
	}

	c.mu.Lock()
	d, ok := c.discoveries[destination]
	if !ok || d.delivery != nil || d.timer.Id() != timer {
		c.mu.Unlock()
		return
	}
	if d.retries < c.cfg.MaxDiscoveryRetries {
		d.retries++
		retries := d.retries
		d.timer.Run(c.cfg.DiscoveryTimeout)
		c.mu.Unlock()

		c.metrics.RecordDiscoveryRetry()
		c.Log(DiscoveryRetried, "re-broadcasting FANT", "dst", destination, "retry", retries)
		c.broadcastFANT(destination)
		return
	}
	retries := d.retries
	delete(c.discoveries, destination)
	pkts := c.trap.release(destination)
	trapped := c.trap.len()
	c.mu.Unlock()

	c.stats.discoveriesFailed.Add(1)
	c.stats.undeliverable.Add(uint64(len(pkts)))
	c.metrics.SetTrapped(trapped)
	c.metrics.RecordDiscoveryFailure(len(pkts))
	c.Log(DiscoveryFailed, "no route found", "dst", destination, "retries", retries, "dropped", len(pkts))
	for _, pkt := range pkts {
		c.app.PacketNotDeliverable(pkt)
	}
}
