package core

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dustin/go-broadcast"
)

type RouterEvent int

// trace events

const (
	RouteFound RouterEvent = iota
	DiscoveryStarted
	DiscoveryRetried
	PacketTrapped
	PacketsFlushed
	PacketDelivered
	PacketForwarded
	DuplicateDropped
	RouteRemoved
	NeighbourSilent
	EntriesEvaporated
	StaleTimer
	TTLExpired
)

// warn events

const (
	DiscoveryFailed RouterEvent = iota + 1000
	NoRouteToRelay
	SendFailed
)

var routerEventNames = map[RouterEvent]string{
	RouteFound:        "RouteFound",
	DiscoveryStarted:  "DiscoveryStarted",
	DiscoveryRetried:  "DiscoveryRetried",
	PacketTrapped:     "PacketTrapped",
	PacketsFlushed:    "PacketsFlushed",
	PacketDelivered:   "PacketDelivered",
	PacketForwarded:   "PacketForwarded",
	DuplicateDropped:  "DuplicateDropped",
	RouteRemoved:      "RouteRemoved",
	NeighbourSilent:   "NeighbourSilent",
	EntriesEvaporated: "EntriesEvaporated",
	DiscoveryFailed:   "DiscoveryFailed",
	StaleTimer:        "StaleTimer",
	TTLExpired:        "TTLExpired",
	NoRouteToRelay:    "NoRouteToRelay",
	SendFailed:        "SendFailed",
}

func (e RouterEvent) String() string {
	if name, ok := routerEventNames[e]; ok {
		return name
	}
	return fmt.Sprintf("RouterEvent(%d)", int(e))
}

func (e RouterEvent) IsWarning() bool {
	return e >= 1000
}

// TraceEvent is published for every router event, observers subscribe through Trace.Register
type TraceEvent struct {
	Node  string
	Event RouterEvent
	Desc  string
	Args  []any
}

// Trace fans router events out to any number of observers
type Trace struct {
	broadcast.Broadcaster
}

func NewTrace() *Trace {
	return &Trace{Broadcaster: broadcast.NewBroadcaster(1024)}
}

// Log records a router event
func (c *Client) Log(event RouterEvent, desc string, args ...any) {
	level := slog.LevelDebug
	if event.IsWarning() {
		level = slog.LevelWarn
	}
	if ctx := context.Background(); c.log.Enabled(ctx, level) {
		c.log.Log(ctx, level, event.String()+" "+desc, args...)
	}
	if c.trace != nil {
		c.trace.Submit(TraceEvent{
			Node:  string(c.addr),
			Event: event,
			Desc:  desc,
			Args:  args,
		})
	}
}
