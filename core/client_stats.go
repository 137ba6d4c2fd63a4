package core

import (
	"fmt"
	"sync/atomic"
)

type counters struct {
	sent              atomic.Uint64
	received          atomic.Uint64
	delivered         atomic.Uint64
	forwarded         atomic.Uint64
	trapped           atomic.Uint64
	undeliverable     atomic.Uint64
	duplicates        atomic.Uint64
	dropped           atomic.Uint64
	sendErrors        atomic.Uint64
	discoveries       atomic.Uint64
	discoveriesFailed atomic.Uint64
	routesFound       atomic.Uint64
}

// Statistics is a point in time snapshot of the client counters
type Statistics struct {
	Sent              uint64 // packets handed to SendPacket
	Received          uint64
	Delivered         uint64 // DATA handed to the application
	Forwarded         uint64
	Trapped           uint64
	Undeliverable     uint64
	Duplicates        uint64
	Dropped           uint64
	SendErrors        uint64
	Discoveries       uint64
	DiscoveriesFailed uint64
	RoutesFound       uint64

	RunningDiscoveries int
	TrappedNow         int
	RoutingEntries     int
}

func (c *Client) Statistics() Statistics {
	c.mu.Lock()
	running := len(c.discoveries)
	trapped := c.trap.len()
	c.mu.Unlock()

	return Statistics{
		Sent:               c.stats.sent.Load(),
		Received:           c.stats.received.Load(),
		Delivered:          c.stats.delivered.Load(),
		Forwarded:          c.stats.forwarded.Load(),
		Trapped:            c.stats.trapped.Load(),
		Undeliverable:      c.stats.undeliverable.Load(),
		Duplicates:         c.stats.duplicates.Load(),
		Dropped:            c.stats.dropped.Load(),
		SendErrors:         c.stats.sendErrors.Load(),
		Discoveries:        c.stats.discoveries.Load(),
		DiscoveriesFailed:  c.stats.discoveriesFailed.Load(),
		RoutesFound:        c.stats.routesFound.Load(),
		RunningDiscoveries: running,
		TrappedNow:         trapped,
		RoutingEntries:     c.table.Len(),
	}
}

func (s Statistics) String() string {
	return fmt.Sprintf("sent: %d, received: %d, delivered: %d, forwarded: %d, trapped: %d, undeliverable: %d, duplicates: %d, dropped: %d, discoveries: %d (failed: %d, found: %d), routes: %d",
		s.Sent, s.Received, s.Delivered, s.Forwarded, s.Trapped, s.Undeliverable, s.Duplicates, s.Dropped,
		s.Discoveries, s.DiscoveriesFailed, s.RoutesFound, s.RoutingEntries)
}
