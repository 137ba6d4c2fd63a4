package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/benbjohnson/clock"
	"github.com/encodeous/ara/core"
	"github.com/encodeous/ara/metrics"
	"github.com/encodeous/ara/state"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
)

type Options struct {
	Clock  clock.Clock
	Logger *slog.Logger
	// Registry receives the metrics of every node, labelled with the node id
	Registry prometheus.Registerer
	Trace    *core.Trace
	Seed     uint64
}

// Network is an in-memory mesh of ARA nodes
type Network struct {
	cfg   *state.SimCfg
	clock clock.Clock
	log   *slog.Logger
	nodes map[state.NodeId]*Node
	links []*Link

	rngMu sync.Mutex
	rng   *rand.Rand

	dropped atomic.Uint64
}

func NewNetwork(cfg *state.SimCfg, opts Options) (*Network, error) {
	if err := state.SimConfigValidator(cfg); err != nil {
		return nil, err
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Logger == nil {
		opts.Logger = state.DiscardLogger()
	}
	if opts.Registry == nil {
		opts.Registry = prometheus.NewRegistry()
	}

	n := &Network{
		cfg:   cfg,
		clock: opts.Clock,
		log:   opts.Logger,
		nodes: make(map[state.NodeId]*Node),
		rng:   rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15)),
	}

	for _, ncfg := range cfg.Nodes {
		node := &Node{
			Id:  ncfg.Id,
			cfg: ncfg,
			net: n,
			log: opts.Logger.With("node", string(ncfg.Id)),
		}
		client, err := core.NewClient(core.Config{
			Address:     ncfg.Id.Address(),
			Routing:     cfg.Routing,
			Application: node,
			Logger:      node.log,
			Clock:       opts.Clock,
			Metrics:     metrics.NewWithRegistry(prometheus.WrapRegistererWith(prometheus.Labels{"node": string(ncfg.Id)}, opts.Registry)),
			Trace:       opts.Trace,
		})
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", ncfg.Id, err)
		}
		node.client = client
		for i := range ncfg.Interfaces {
			iface := newInterface(node, i)
			node.interfaces = append(node.interfaces, iface)
			client.AddNetworkInterface(iface)
		}
		n.nodes[ncfg.Id] = node
	}

	edges, err := cfg.Edges()
	if err != nil {
		return nil, err
	}
	for _, e := range edges {
		a, b := n.nodes[e.V1], n.nodes[e.V2]
		// radio k of one node hears radio k of the other
		for k := range min(len(a.interfaces), len(b.interfaces)) {
			n.links = append(n.links, newLink(n, a.interfaces[k], b.interfaces[k], cfg.Link))
		}
	}
	return n, nil
}

func (n *Network) random() float64 {
	n.rngMu.Lock()
	defer n.rngMu.Unlock()
	return n.rng.Float64()
}

func (n *Network) Node(id state.NodeId) *Node {
	return n.nodes[id]
}

// Nodes returns every node sorted by id
func (n *Network) Nodes() []*Node {
	out := make([]*Node, 0, len(n.nodes))
	for _, node := range n.nodes {
		out = append(out, node)
	}
	slices.SortFunc(out, func(a, b *Node) int {
		return strings.Compare(string(a.Id), string(b.Id))
	})
	return out
}

func (n *Network) Links() []*Link {
	return slices.Clone(n.links)
}

// Disconnect takes down every link between a and b
func (n *Network) Disconnect(a, b state.NodeId) int {
	cut := 0
	for _, l := range n.links {
		if (l.a.node.Id == a && l.b.node.Id == b) || (l.a.node.Id == b && l.b.node.Id == a) {
			l.Down()
			cut++
		}
	}
	return cut
}

// Dropped counts frames lost to full interface queues
func (n *Network) Dropped() uint64 {
	return n.dropped.Load()
}

// Run drives every client loop and radio until ctx is cancelled
func (n *Network) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, node := range n.Nodes() {
		g.Go(func() error {
			return node.client.Run(ctx)
		})
		for _, iface := range node.interfaces {
			g.Go(func() error {
				return iface.run(ctx)
			})
		}
	}
	for _, node := range n.Nodes() {
		if node.cfg.Energy > 0 {
			node.client.BroadcastEnergy(node.cfg.Energy)
		}
	}
	n.log.Info("simulation started", "nodes", len(n.nodes), "links", len(n.links))
	return g.Wait()
}

// Simulate runs the network, plays the configured traffic, and lets the mesh settle for the configured duration
func (n *Network) Simulate(ctx context.Context) (*Report, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return n.Run(gctx)
	})

	traffic, tctx := errgroup.WithContext(gctx)
	for _, tr := range n.cfg.Traffic {
		traffic.Go(func() error {
			return n.generate(tctx, tr)
		})
	}
	err := traffic.Wait()
	if err == nil {
		select {
		case <-n.clock.After(n.cfg.Duration):
		case <-ctx.Done():
		}
	}
	cancel()
	if werr := g.Wait(); werr != nil && !errors.Is(werr, context.Canceled) {
		return nil, werr
	}
	if err != nil {
		return nil, err
	}
	return n.Report(), nil
}

func (n *Network) generate(ctx context.Context, tr state.TrafficCfg) error {
	node := n.nodes[tr.From]
	for i := range tr.Count {
		payload := tr.Payload
		if payload == "" {
			payload = fmt.Sprintf("%s->%s #%d", tr.From, tr.To, i)
		}
		if err := node.Send(tr.To, []byte(payload)); err != nil {
			if errors.Is(err, core.ErrClosed) {
				return nil
			}
			return err
		}
		if i == tr.Count-1 || tr.Interval <= 0 {
			continue
		}
		select {
		case <-n.clock.After(tr.Interval):
		case <-ctx.Done():
			return nil
		}
	}
	return nil
}
