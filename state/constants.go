package state

import "time"

const (
	PolicyBest       = "best"
	PolicyStochastic = "stochastic"
	PolicyRoundRobin = "round_robin"
)

var (
	DefaultMaxTTL              = uint8(15)
	DefaultMaxDiscoveryRetries = 2
	DefaultDiscoveryTimeout    = time.Second * 1
	DefaultDeliveryDelay       = time.Millisecond * 50

	DefaultInitialPheromone    = 10.0
	DefaultEvaporationInterval = time.Second * 1
	DefaultEvaporationFactor   = 0.9
	DefaultPheromoneThreshold  = 0.1

	DefaultDuplicateHistorySize = uint64(2048)
	DefaultDuplicateHistoryTTL  = time.Second * 30
	DefaultDuplicateWarningRate = 10.0

	DefaultMaxNeighbourInactivity = time.Second * 5

	// how long a simulation keeps running after all traffic was sent
	DefaultSimDuration = time.Second * 5
	// upper bound of radios per simulated node
	MaxInterfaces = 8

	SimConfigPath = "sim.yaml"
)
