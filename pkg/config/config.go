// Package config loads the server list and run settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ryanelliottsmith/iperfcheck/pkg/types"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "list.yml"

// Environment variables that override file settings.
const (
	EnvMaxConcurrent = "IPERFCHECK_MAX_CONCURRENT"
	EnvBinary        = "IPERFCHECK_BINARY"
	EnvRetryAttempts = "IPERFCHECK_RETRY_ATTEMPTS"
	EnvRetryDelay    = "IPERFCHECK_RETRY_DELAY"
	EnvPortTimeout   = "IPERFCHECK_PORT_TIMEOUT"
	EnvTestTimeout   = "IPERFCHECK_TEST_TIMEOUT"
)

var ErrNoServers = errors.New("server list is empty")

// Config is a parsed server list file.
type Config struct {
	Settings types.Settings
	Servers  []types.ServerSpec
}

// serverRecord accepts both the capitalised keys of list.yml
// and lowercase ones.
type serverRecord struct {
	Name         string      `yaml:"Name"`
	NameLower    string      `yaml:"name"`
	City         string      `yaml:"City"`
	CityLower    string      `yaml:"city"`
	Address      string      `yaml:"address"`
	AddressUpper string      `yaml:"Address"`
	Port         interface{} `yaml:"port"`
	PortUpper    interface{} `yaml:"Port"`
}

func (r serverRecord) spec() types.ServerSpec {
	s := types.ServerSpec{
		Name:    firstNonEmpty(r.Name, r.NameLower),
		City:    firstNonEmpty(r.City, r.CityLower),
		Address: firstNonEmpty(r.Address, r.AddressUpper),
		Port:    r.Port,
	}
	if s.Port == nil {
		s.Port = r.PortUpper
	}
	s.Name = strings.TrimSpace(s.Name)
	s.Address = strings.TrimSpace(s.Address)
	return s
}

type document struct {
	Settings yaml.Node      `yaml:"settings"`
	Servers  []serverRecord `yaml:"servers"`
}

// Load reads and parses a YAML server list.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse accepts either a top-level sequence of servers or a mapping with
// "settings" and "servers" keys. Settings missing from the document keep
// their defaults.
func Parse(data []byte) (*Config, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if len(root.Content) == 0 {
		return nil, ErrNoServers
	}

	cfg := &Config{Settings: types.DefaultSettings()}
	var records []serverRecord

	node := root.Content[0]
	switch node.Kind {
	case yaml.SequenceNode:
		if err := node.Decode(&records); err != nil {
			return nil, fmt.Errorf("failed to decode servers: %w", err)
		}
	case yaml.MappingNode:
		var doc document
		if err := node.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode config: %w", err)
		}
		if doc.Settings.Kind != 0 {
			if err := doc.Settings.Decode(&cfg.Settings); err != nil {
				return nil, fmt.Errorf("failed to decode settings: %w", err)
			}
		}
		records = doc.Servers
	default:
		return nil, fmt.Errorf("line %d: expected a list of servers or a mapping", node.Line)
	}

	cfg.Servers = make([]types.ServerSpec, 0, len(records))
	for _, r := range records {
		cfg.Servers = append(cfg.Servers, r.spec())
	}

	cfg.Settings.ApplyDefaults()
	return cfg, nil
}

// Validate checks every server record and reports all problems at once.
func Validate(cfg *Config) error {
	if cfg == nil || len(cfg.Servers) == 0 {
		return ErrNoServers
	}

	var err error
	for i, s := range cfg.Servers {
		if s.Name == "" {
			err = multierr.Append(err, fmt.Errorf("server #%d: name is required", i+1))
		}
		if s.Address == "" {
			err = multierr.Append(err, fmt.Errorf("server #%d (%s): address is required", i+1, s.Name))
		}
	}
	return err
}

// ApplyEnv overrides settings from the environment. Unparsable values are
// ignored.
func ApplyEnv(settings *types.Settings, getenv func(string) string) {
	if getenv == nil {
		getenv = os.Getenv
	}
	settings.MaxConcurrent = intEnv(getenv, EnvMaxConcurrent, settings.MaxConcurrent)
	settings.RetryAttempts = intEnv(getenv, EnvRetryAttempts, settings.RetryAttempts)
	settings.RetryDelay = durationEnv(getenv, EnvRetryDelay, settings.RetryDelay)
	settings.PortTimeout = durationEnv(getenv, EnvPortTimeout, settings.PortTimeout)
	settings.TestTimeout = durationEnv(getenv, EnvTestTimeout, settings.TestTimeout)
	if v := strings.TrimSpace(getenv(EnvBinary)); v != "" {
		settings.Binary = v
	}
}

func durationEnv(getenv func(string) string, key string, fallback time.Duration) time.Duration {
	val := strings.TrimSpace(getenv(key))
	if val == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(val)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func intEnv(getenv func(string) string, key string, fallback int) int {
	val := strings.TrimSpace(getenv(key))
	if val == "" {
		return fallback
	}
	n, err := strconv.Atoi(val)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
