package core

import (
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/encodeous/ara/packet"
	"github.com/encodeous/ara/state"
)

// NextHop is where a packet leaves this node
type NextHop struct {
	Address   packet.Address
	Interface NetworkInterface
}

// ForwardingPolicy picks the next hop of a packet. Implementations never return the packet's sender.
// Returning false means that no path is known, which starts a route discovery instead of failing.
type ForwardingPolicy interface {
	NextHop(pkt *packet.Packet, table *RoutingTable) (NextHop, bool)
}

func NewForwardingPolicy(name string) (ForwardingPolicy, error) {
	switch name {
	case "", state.PolicyBest:
		return BestPheromonePolicy{}, nil
	case state.PolicyStochastic:
		return NewStochasticPolicy(nil), nil
	case state.PolicyRoundRobin:
		return NewRoundRobinPolicy(), nil
	}
	return nil, fmt.Errorf("unknown forwarding policy %q", name)
}

// BestPheromonePolicy always takes the strongest path
type BestPheromonePolicy struct{}

func (BestPheromonePolicy) NextHop(pkt *packet.Packet, table *RoutingTable) (NextHop, bool) {
	e, ok := table.GetBestEntry(pkt.Destination, pkt.Sender)
	if !ok {
		return NextHop{}, false
	}
	return NextHop{Address: e.NextHop, Interface: e.Interface}, true
}

// StochasticPolicy picks a path with a probability proportional to its pheromone
type StochasticPolicy struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewStochasticPolicy uses rng for its draws, or a randomly seeded source when rng is nil
func NewStochasticPolicy(rng *rand.Rand) *StochasticPolicy {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &StochasticPolicy{rng: rng}
}

func (p *StochasticPolicy) NextHop(pkt *packet.Packet, table *RoutingTable) (NextHop, bool) {
	candidates := table.Candidates(pkt.Destination, pkt.Sender)
	if len(candidates) == 0 {
		return NextHop{}, false
	}
	total := 0.0
	for _, c := range candidates {
		total += c.Pheromone
	}
	p.mu.Lock()
	draw := p.rng.Float64() * total
	p.mu.Unlock()

	for _, c := range candidates {
		draw -= c.Pheromone
		if draw < 0 {
			return NextHop{Address: c.NextHop, Interface: c.Interface}, true
		}
	}
	last := candidates[len(candidates)-1]
	return NextHop{Address: last.NextHop, Interface: last.Interface}, true
}

// RoundRobinPolicy spreads packets of a destination over all of its paths in turn
type RoundRobinPolicy struct {
	mu   sync.Mutex
	next map[packet.Address]int
}

func NewRoundRobinPolicy() *RoundRobinPolicy {
	return &RoundRobinPolicy{next: make(map[packet.Address]int)}
}

func (p *RoundRobinPolicy) NextHop(pkt *packet.Packet, table *RoutingTable) (NextHop, bool) {
	candidates := table.Candidates(pkt.Destination, pkt.Sender)
	if len(candidates) == 0 {
		return NextHop{}, false
	}
	p.mu.Lock()
	idx := p.next[pkt.Destination] % len(candidates)
	p.next[pkt.Destination] = idx + 1
	p.mu.Unlock()

	c := candidates[idx]
	return NextHop{Address: c.NextHop, Interface: c.Interface}, true
}
