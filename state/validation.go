package state

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
)

var ErrInvalidConfig = errors.New("invalid config")

var namePattern = regexp.MustCompile("^[0-9a-z._-]+$")

func NameValidator(s string) error {
	if !namePattern.MatchString(s) {
		return fmt.Errorf("%s is not a valid name, must match pattern %s", s, namePattern.String())
	}
	if len(s) > 100 {
		return fmt.Errorf("len(\"%s\") = %d > 100 is too long", s, len(s))
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

func RoutingConfigValidator(cfg *RoutingCfg) error {
	if cfg.MaxTTL == 0 {
		return invalid("max_ttl must be positive")
	}
	if cfg.MaxDiscoveryRetries < 0 {
		return invalid("max_discovery_retries must not be negative")
	}
	if cfg.DiscoveryTimeout <= 0 {
		return invalid("discovery_timeout must be positive")
	}
	if cfg.DeliveryDelay < 0 {
		return invalid("delivery_delay must not be negative")
	}
	if cfg.InitialPheromone <= 0 {
		return invalid("initial_pheromone must be positive")
	}
	if cfg.EvaporationInterval <= 0 {
		return invalid("evaporation_interval must be positive")
	}
	if cfg.EvaporationFactor <= 0 || cfg.EvaporationFactor >= 1 {
		return invalid("evaporation_factor %v must be in (0, 1)", cfg.EvaporationFactor)
	}
	if cfg.PheromoneThreshold < 0 || cfg.PheromoneThreshold >= cfg.InitialPheromone {
		return invalid("pheromone_threshold %v must be in [0, initial_pheromone)", cfg.PheromoneThreshold)
	}
	if cfg.DuplicateHistorySize == 0 {
		return invalid("duplicate_history_size must be positive")
	}
	if cfg.DuplicateHistoryTTL <= 0 {
		return invalid("duplicate_history_ttl must be positive")
	}
	if cfg.DuplicateWarningRate < 0 {
		return invalid("duplicate_warning_rate must not be negative")
	}
	if cfg.PantInterval < 0 || cfg.NeighbourActivityInterval < 0 {
		return invalid("intervals must not be negative")
	}
	if cfg.NeighbourActivityInterval > 0 && cfg.MaxNeighbourInactivity <= 0 {
		return invalid("max_neighbour_inactivity must be positive when neighbour checks are enabled")
	}
	if !slices.Contains([]string{PolicyBest, PolicyStochastic, PolicyRoundRobin}, cfg.ForwardingPolicy) {
		return invalid("unknown forwarding_policy %q", cfg.ForwardingPolicy)
	}
	return nil
}

func SimConfigValidator(cfg *SimCfg) error {
	if err := RoutingConfigValidator(&cfg.Routing); err != nil {
		return err
	}
	if len(cfg.Nodes) == 0 {
		return invalid("no nodes defined")
	}
	seen := make(map[NodeId]struct{})
	for _, node := range cfg.Nodes {
		if err := NameValidator(string(node.Id)); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
		if _, ok := seen[node.Id]; ok {
			return invalid("duplicate node: %s", node.Id)
		}
		seen[node.Id] = struct{}{}
		if node.Interfaces < 1 || node.Interfaces > MaxInterfaces {
			return invalid("node %s: interfaces must be in [1, %d]", node.Id, MaxInterfaces)
		}
	}
	if _, err := cfg.Edges(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if cfg.Link.Loss < 0 || cfg.Link.Loss > 1 {
		return invalid("link loss %v must be in [0, 1]", cfg.Link.Loss)
	}
	if cfg.Link.Latency < 0 || cfg.Link.Jitter < 0 {
		return invalid("link latency and jitter must not be negative")
	}
	for _, tr := range cfg.Traffic {
		if _, ok := seen[tr.From]; !ok {
			return invalid("traffic source %s is not a node", tr.From)
		}
		if _, ok := seen[tr.To]; !ok {
			return invalid("traffic destination %s is not a node", tr.To)
		}
		if tr.From == tr.To {
			return invalid("traffic from %s to itself", tr.From)
		}
		if tr.Count < 1 {
			return invalid("traffic count must be positive")
		}
	}
	return nil
}
