package state

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// ReadSimConfig loads, expands and validates a simulation config
func ReadSimConfig(path string) (*SimCfg, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := ParseSimConfig(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func ParseSimConfig(data []byte) (*SimCfg, error) {
	cfg := &SimCfg{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	ExpandSimConfig(cfg)
	if err := SimConfigValidator(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func MarshalRoutingConfig(cfg RoutingCfg) ([]byte, error) {
	return yaml.Marshal(cfg)
}

func ParseRoutingConfig(data []byte) (RoutingCfg, error) {
	cfg := DefaultRoutingCfg()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return RoutingCfg{}, err
	}
	if err := RoutingConfigValidator(&cfg); err != nil {
		return RoutingCfg{}, err
	}
	return cfg, nil
}
