package types

import "time"

const (
	DefaultPortTimeout   = 3 * time.Second
	DefaultTestTimeout   = 8 * time.Second
	DefaultTestDuration  = 3
	DefaultGracePeriod   = 2 * time.Second
	DefaultRetryAttempts = 3
	DefaultRetryDelay    = 2 * time.Second
	DefaultMaxConcurrent = 15
	DefaultBinary        = "iperf3"
)

// ServerSpec is one entry of the server list. Port holds the raw port field
// as decoded from YAML and is expanded with ParsePorts.
type ServerSpec struct {
	Name    string      `json:"name" yaml:"Name"`
	City    string      `json:"city" yaml:"City"`
	Address string      `json:"address" yaml:"address"`
	Port    interface{} `json:"port,omitempty" yaml:"port,omitempty"`
}

// Ports expands the server's port field.
func (s ServerSpec) Ports() []int {
	return ParsePorts(s.Port)
}

// Settings are the tunables of a run. Zero values are replaced by defaults
// in ApplyDefaults.
type Settings struct {
	PortTimeout   time.Duration `json:"port_timeout" yaml:"port_timeout"`
	TestTimeout   time.Duration `json:"test_timeout" yaml:"test_timeout"`
	TestDuration  int           `json:"test_duration_seconds" yaml:"test_duration_seconds"`
	GracePeriod   time.Duration `json:"grace_period" yaml:"grace_period"`
	RetryAttempts int           `json:"retry_attempts" yaml:"retry_attempts"`
	RetryDelay    time.Duration `json:"retry_delay" yaml:"retry_delay"`
	MaxConcurrent int           `json:"max_concurrent" yaml:"max_concurrent"`
	Binary        string        `json:"binary" yaml:"binary"`
	Ping          bool          `json:"ping" yaml:"ping"`
	Debug         bool          `json:"debug,omitempty" yaml:"debug,omitempty"`
}

func DefaultSettings() Settings {
	return Settings{
		PortTimeout:   DefaultPortTimeout,
		TestTimeout:   DefaultTestTimeout,
		TestDuration:  DefaultTestDuration,
		GracePeriod:   DefaultGracePeriod,
		RetryAttempts: DefaultRetryAttempts,
		RetryDelay:    DefaultRetryDelay,
		MaxConcurrent: DefaultMaxConcurrent,
		Binary:        DefaultBinary,
	}
}

// ApplyDefaults fills in default values when empty.
func (s *Settings) ApplyDefaults() {
	d := DefaultSettings()
	if s.PortTimeout <= 0 {
		s.PortTimeout = d.PortTimeout
	}
	if s.TestTimeout <= 0 {
		s.TestTimeout = d.TestTimeout
	}
	if s.TestDuration <= 0 {
		s.TestDuration = d.TestDuration
	}
	if s.GracePeriod <= 0 {
		s.GracePeriod = d.GracePeriod
	}
	if s.RetryAttempts <= 0 {
		s.RetryAttempts = d.RetryAttempts
	}
	if s.RetryDelay <= 0 {
		s.RetryDelay = d.RetryDelay
	}
	if s.MaxConcurrent <= 0 {
		s.MaxConcurrent = d.MaxConcurrent
	}
	if s.Binary == "" {
		s.Binary = d.Binary
	}
}
