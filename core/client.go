package core

import (
	"errors"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/encodeous/ara/metrics"
	"github.com/encodeous/ara/packet"
	"github.com/encodeous/ara/state"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"
)

var ErrClosed = errors.New("client is closed")

// NetworkInterface is the outbound transport boundary. Implementations must be comparable, they are used as routing table keys.
type NetworkInterface interface {
	LocalAddress() packet.Address
	Send(pkt *packet.Packet, recipient packet.Address) error
	Broadcast(pkt *packet.Packet) error
}

// Application receives the packets addressed to this node, and the ones that could not be routed
type Application interface {
	DeliverToSystem(pkt *packet.Packet)
	PacketNotDeliverable(pkt *packet.Packet)
}

type Config struct {
	Address     packet.Address
	Routing     state.RoutingCfg
	Application Application
	// Policy overrides Routing.ForwardingPolicy
	Policy  ForwardingPolicy
	Logger  *slog.Logger
	Clock   clock.Clock
	Metrics *metrics.Metrics
	Trace   *Trace
}

// discovery is a running route discovery for one destination.
// Once a route is found the discovery stays registered until its delivery timer flushes the trap.
type discovery struct {
	destination packet.Address
	retries     int
	started     time.Time
	timer       *Timer
	delivery    *Timer
}

type neighbour struct {
	address      packet.Address
	iface        NetworkInterface
	lastSeen     time.Time
	helloPending bool
	energy       uint8
	hasEnergy    bool
}

type neighbourKey struct {
	address packet.Address
	iface   NetworkInterface
}

// Client is the ARA routing engine of a single node.
type Client struct {
	addr    packet.Address
	cfg     state.RoutingCfg
	app     Application
	log     *slog.Logger
	clock   clock.Clock
	policy  ForwardingPolicy
	factory *packet.Factory
	table   *RoutingTable
	history *duplicateHistory
	metrics *metrics.Metrics
	trace   *Trace
	warnLim *rate.Limiter
	seq     atomic.Uint32
	stats   counters

	ifaceMu    sync.RWMutex
	interfaces []NetworkInterface

	// discovery lock, never held together with the routing table lock
	mu          sync.Mutex
	discoveries map[packet.Address]*discovery
	trap        *packetTrap
	closed      bool

	neighMu    sync.Mutex
	neighbours map[neighbourKey]*neighbour

	pant      *Timer
	started   atomic.Bool
	events    chan clientEvent
	done      chan struct{}
	closeOnce sync.Once
}

func NewClient(cfg Config) (*Client, error) {
	if err := state.RoutingConfigValidator(&cfg.Routing); err != nil {
		return nil, err
	}
	if cfg.Address == "" {
		return nil, errors.New("client address must not be empty")
	}
	if cfg.Application == nil {
		return nil, errors.New("client requires an application")
	}
	if cfg.Logger == nil {
		cfg.Logger = state.DiscardLogger()
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewWithRegistry(prometheus.NewRegistry())
	}
	if cfg.Policy == nil {
		policy, err := NewForwardingPolicy(cfg.Routing.ForwardingPolicy)
		if err != nil {
			return nil, err
		}
		cfg.Policy = policy
	}

	burst := 0
	if cfg.Routing.DuplicateWarningRate > 0 {
		burst = max(1, int(cfg.Routing.DuplicateWarningRate))
	}

	c := &Client{
		addr:        cfg.Address,
		cfg:         cfg.Routing,
		app:         cfg.Application,
		log:         cfg.Logger,
		clock:       cfg.Clock,
		policy:      cfg.Policy,
		factory:     packet.NewFactory(cfg.Routing.MaxTTL),
		table:       NewRoutingTable(cfg.Routing.EvaporationFactor, cfg.Routing.PheromoneThreshold),
		history:     newDuplicateHistory(cfg.Routing.DuplicateHistorySize, cfg.Routing.DuplicateHistoryTTL),
		metrics:     cfg.Metrics,
		trace:       cfg.Trace,
		warnLim:     rate.NewLimiter(rate.Limit(cfg.Routing.DuplicateWarningRate), burst),
		discoveries: make(map[packet.Address]*discovery),
		trap:        newPacketTrap(),
		neighbours:  make(map[neighbourKey]*neighbour),
		events:      make(chan clientEvent, 256),
		done:        make(chan struct{}),
	}
	c.pant = NewTimer(c.clock, PantTimer, nil, c.onTimeout)
	return c, nil
}

func (c *Client) Address() packet.Address {
	return c.addr
}

func (c *Client) RoutingTable() *RoutingTable {
	return c.table
}

func (c *Client) Factory() *packet.Factory {
	return c.factory
}

func (c *Client) AddNetworkInterface(iface NetworkInterface) {
	c.ifaceMu.Lock()
	defer c.ifaceMu.Unlock()
	if slices.Contains(c.interfaces, iface) {
		return
	}
	c.interfaces = append(c.interfaces, iface)
}

func (c *Client) NetworkInterfaces() []NetworkInterface {
	c.ifaceMu.RLock()
	defer c.ifaceMu.RUnlock()
	return slices.Clone(c.interfaces)
}

func (c *Client) NumberOfNetworkInterfaces() int {
	c.ifaceMu.RLock()
	defer c.ifaceMu.RUnlock()
	return len(c.interfaces)
}

// NextSequenceNumber returns 1, 2, 3, ... across every goroutine
func (c *Client) NextSequenceNumber() uint32 {
	return c.seq.Add(1)
}

func (c *Client) isLocalAddress(addr packet.Address) bool {
	if addr == c.addr {
		return true
	}
	c.ifaceMu.RLock()
	defer c.ifaceMu.RUnlock()
	for _, iface := range c.interfaces {
		if iface.LocalAddress() == addr {
			return true
		}
	}
	return false
}

// IsRouteDiscoveryRunning reports whether destination has a discovery that has not been flushed or abandoned yet
func (c *Client) IsRouteDiscoveryRunning(destination packet.Address) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.discoveries[destination]
	return ok
}

// IsTrapped reports whether a packet equal to pkt waits for a route
func (c *Client) IsTrapped(pkt *packet.Packet) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.trap.contains(pkt)
}

// HasBeenReceivedEarlier checks the duplicate history without registering pkt
func (c *Client) HasBeenReceivedEarlier(pkt *packet.Packet) bool {
	return c.history.contains(pkt)
}

// RegisterReceivedPacket adds pkt to the duplicate history
func (c *Client) RegisterReceivedPacket(pkt *packet.Packet) {
	c.history.register(pkt)
}

// NeighbourEnergy returns the last energy level announced by a neighbour
func (c *Client) NeighbourEnergy(addr packet.Address) (uint8, bool) {
	c.neighMu.Lock()
	defer c.neighMu.Unlock()
	for k, n := range c.neighbours {
		if k.address == addr && n.hasEnergy {
			return n.energy, true
		}
	}
	return 0, false
}

// Neighbours returns the addresses heard from directly, sorted
func (c *Client) Neighbours() []packet.Address {
	c.neighMu.Lock()
	defer c.neighMu.Unlock()
	out := make([]packet.Address, 0, len(c.neighbours))
	for k := range c.neighbours {
		out = append(out, k.address)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// Close stops every timer and makes the client drop further work
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		for _, d := range c.discoveries {
			d.timer.Interrupt()
			if d.delivery != nil {
				d.delivery.Interrupt()
			}
		}
		c.mu.Unlock()
		c.pant.Interrupt()
		close(c.done)
	})
	return nil
}

func (c *Client) isClosed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}
