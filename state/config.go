package state

import (
	"time"

	"github.com/encodeous/ara/packet"
)

type NodeId string

func (id NodeId) Address() packet.Address {
	return packet.Address(id)
}

// RoutingCfg holds every tunable of the ARA routing engine
type RoutingCfg struct {
	MaxTTL              uint8         `yaml:"max_ttl"`               // hop limit stamped on every packet created by this node
	MaxDiscoveryRetries int           `yaml:"max_discovery_retries"` // FANT re-broadcasts before a route discovery is abandoned
	DiscoveryTimeout    time.Duration `yaml:"discovery_timeout"`
	DeliveryDelay       time.Duration `yaml:"delivery_delay"` // wait for additional BANTs before flushing trapped packets
	InitialPheromone    float64       `yaml:"initial_pheromone"`
	EvaporationInterval time.Duration `yaml:"evaporation_interval"`
	EvaporationFactor   float64       `yaml:"evaporation_factor"`
	PheromoneThreshold  float64       `yaml:"pheromone_threshold"` // entries below this value are removed during evaporation

	DuplicateHistorySize uint64        `yaml:"duplicate_history_size"`
	DuplicateHistoryTTL  time.Duration `yaml:"duplicate_history_ttl"`
	DuplicateWarningRate float64       `yaml:"duplicate_warning_rate"` // DUPLICATE_ERROR replies per second

	PantInterval              time.Duration `yaml:"pant_interval,omitempty"`               // 0 disables periodic ants
	NeighbourActivityInterval time.Duration `yaml:"neighbour_activity_interval,omitempty"` // 0 disables neighbour checks
	MaxNeighbourInactivity    time.Duration `yaml:"max_neighbour_inactivity,omitempty"`
	ForwardingPolicy          string        `yaml:"forwarding_policy,omitempty"` // best, stochastic or round_robin
}

func DefaultRoutingCfg() RoutingCfg {
	return RoutingCfg{
		MaxTTL:                 DefaultMaxTTL,
		MaxDiscoveryRetries:    DefaultMaxDiscoveryRetries,
		DiscoveryTimeout:       DefaultDiscoveryTimeout,
		DeliveryDelay:          DefaultDeliveryDelay,
		InitialPheromone:       DefaultInitialPheromone,
		EvaporationInterval:    DefaultEvaporationInterval,
		EvaporationFactor:      DefaultEvaporationFactor,
		PheromoneThreshold:     DefaultPheromoneThreshold,
		DuplicateHistorySize:   DefaultDuplicateHistorySize,
		DuplicateHistoryTTL:    DefaultDuplicateHistoryTTL,
		DuplicateWarningRate:   DefaultDuplicateWarningRate,
		MaxNeighbourInactivity: DefaultMaxNeighbourInactivity,
		ForwardingPolicy:       PolicyBest,
	}
}

type SimNodeCfg struct {
	Id         NodeId `yaml:"id"`
	Interfaces int    `yaml:"interfaces,omitempty"` // number of radios, defaults to 1
	Energy     uint8  `yaml:"energy,omitempty"`     // energy level advertised at startup, 0 disables
}

type LinkCfg struct {
	Latency time.Duration `yaml:"latency,omitempty"`
	Jitter  time.Duration `yaml:"jitter,omitempty"`
	Loss    float64       `yaml:"loss,omitempty"` // probability that a frame is dropped
}

type TrafficCfg struct {
	From     NodeId        `yaml:"from"`
	To       NodeId        `yaml:"to"`
	Count    int           `yaml:"count"`
	Interval time.Duration `yaml:"interval,omitempty"`
	Payload  string        `yaml:"payload,omitempty"`
}

// SimCfg describes a simulated mesh, see ParseGraph for the graph syntax
type SimCfg struct {
	Routing  RoutingCfg    `yaml:"routing"`
	Nodes    []SimNodeCfg  `yaml:"nodes"`
	Graph    []string      `yaml:"graph"`
	Link     LinkCfg       `yaml:"link,omitempty"`
	Traffic  []TrafficCfg  `yaml:"traffic,omitempty"`
	Duration time.Duration `yaml:"duration,omitempty"` // how long the simulation keeps running after the last packet was sent
	LogPath  string        `yaml:"log_path,omitempty"`
}

func (c *SimCfg) NodeIds() []string {
	ids := make([]string, 0, len(c.Nodes))
	for _, n := range c.Nodes {
		ids = append(ids, string(n.Id))
	}
	return ids
}

func (c *SimCfg) GetNode(id NodeId) *SimNodeCfg {
	for i := range c.Nodes {
		if c.Nodes[i].Id == id {
			return &c.Nodes[i]
		}
	}
	return nil
}

// Edges returns the links of the simulated mesh
func (c *SimCfg) Edges() ([]Pair[NodeId, NodeId], error) {
	return ParseGraph(c.Graph, c.NodeIds())
}

// ExpandSimConfig fills in defaults that were left out of the file
func ExpandSimConfig(c *SimCfg) {
	def := DefaultRoutingCfg()
	r := &c.Routing
	if r.MaxTTL == 0 {
		r.MaxTTL = def.MaxTTL
	}
	if r.DiscoveryTimeout == 0 {
		r.DiscoveryTimeout = def.DiscoveryTimeout
	}
	if r.InitialPheromone == 0 {
		r.InitialPheromone = def.InitialPheromone
	}
	if r.EvaporationInterval == 0 {
		r.EvaporationInterval = def.EvaporationInterval
	}
	if r.EvaporationFactor == 0 {
		r.EvaporationFactor = def.EvaporationFactor
	}
	if r.DuplicateHistorySize == 0 {
		r.DuplicateHistorySize = def.DuplicateHistorySize
	}
	if r.DuplicateHistoryTTL == 0 {
		r.DuplicateHistoryTTL = def.DuplicateHistoryTTL
	}
	if r.DuplicateWarningRate == 0 {
		r.DuplicateWarningRate = def.DuplicateWarningRate
	}
	if r.MaxNeighbourInactivity == 0 {
		r.MaxNeighbourInactivity = def.MaxNeighbourInactivity
	}
	if r.ForwardingPolicy == "" {
		r.ForwardingPolicy = def.ForwardingPolicy
	}
	for i := range c.Nodes {
		if c.Nodes[i].Interfaces == 0 {
			c.Nodes[i].Interfaces = 1
		}
	}
	for i := range c.Traffic {
		if c.Traffic[i].Count == 0 {
			c.Traffic[i].Count = 1
		}
	}
	if c.Duration == 0 {
		c.Duration = DefaultSimDuration
	}
}
