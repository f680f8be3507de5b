package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"

	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"
)

// DefaultPath is where the controller looks for its configuration when
// --config is not given.
const DefaultPath = "/etc/wifisetup/config.yaml"

// Load reads the configuration at path on top of Default and validates it.
//
// An empty path means DefaultPath, and a missing DefaultPath is not an error:
// the device simply runs with built-in defaults. A path the operator named
// explicitly must exist.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("failed to expand config path %q: %w", path, err)
	}

	cfg := Default()

	data, err := os.ReadFile(expanded)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", expanded, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
		// built-in defaults
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Marshal renders the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

func joinHostPort(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}
