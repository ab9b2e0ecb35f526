package discovery

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// OverrideDocument is the structured key-value document an environment may
// supply to override the computed defaults for socket/log directories and
// individual service endpoints (§4.8).
type OverrideDocument struct {
	SocketDir string                     `yaml:"socket_dir"`
	LogDir    string                     `yaml:"log_dir"`
	Services  map[string]ServiceOverride `yaml:"services"`
}

// ServiceOverride customizes one logical service's resolved endpoint.
type ServiceOverride struct {
	SocketPath string `yaml:"socket_path"`
	HealthPort int    `yaml:"health_port"`
	Priority   int    `yaml:"priority"`
	Enabled    *bool  `yaml:"enabled"`
}

// LoadOverrides reads an environment's override document from path. A
// missing file is not an error — the caller falls back to environment
// defaults, matching §4.8's "configuration files may override" (optional,
// not required).
func LoadOverrides(path string) (*OverrideDocument, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &OverrideDocument{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("discovery: read %s: %w", path, err)
	}

	var doc OverrideDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("discovery: parse %s: %w", path, err)
	}
	return &doc, nil
}

func (o ServiceOverride) enabled() bool {
	if o.Enabled == nil {
		return true
	}
	return *o.Enabled
}
