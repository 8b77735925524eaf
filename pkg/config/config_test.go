package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/ryanelliottsmith/iperfcheck/pkg/types"
	"go.uber.org/multierr"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "list.yml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoad_ListFormat(t *testing.T) {
	t.Parallel()

	path := writeFile(t, `
- Name: Moscow-1
  City: Moscow
  address: speedtest.example.net
  port: 5201
- Name: Riga
  City: Riga
  address: 192.0.2.10
  port: "5201-5203"
- Name: NoPort
  City: Oslo
  address: 192.0.2.20
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(cfg.Servers) != 3 {
		t.Fatalf("servers=%d", len(cfg.Servers))
	}

	first := cfg.Servers[0]
	if first.Name != "Moscow-1" || first.City != "Moscow" || first.Address != "speedtest.example.net" {
		t.Fatalf("first=%+v", first)
	}
	if !reflect.DeepEqual(first.Ports(), []int{5201}) {
		t.Fatalf("first ports=%v", first.Ports())
	}
	if !reflect.DeepEqual(cfg.Servers[1].Ports(), []int{5201, 5202, 5203}) {
		t.Fatalf("range ports=%v", cfg.Servers[1].Ports())
	}
	if cfg.Servers[2].Port != nil || !reflect.DeepEqual(cfg.Servers[2].Ports(), []int{types.DefaultPort}) {
		t.Fatalf("default port=%v", cfg.Servers[2].Ports())
	}
	if !reflect.DeepEqual(cfg.Settings, types.DefaultSettings()) {
		t.Fatalf("settings=%+v", cfg.Settings)
	}
}

func TestLoad_MappingFormatWithSettings(t *testing.T) {
	t.Parallel()

	path := writeFile(t, `
settings:
  max_concurrent: 4
  retry_delay: 500ms
  binary: /usr/local/bin/iperf3
servers:
  - name: lower
    city: Paris
    address: 198.51.100.7
    port: "5201, 5202"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Settings.MaxConcurrent != 4 || cfg.Settings.RetryDelay != 500*time.Millisecond {
		t.Fatalf("settings=%+v", cfg.Settings)
	}
	if cfg.Settings.Binary != "/usr/local/bin/iperf3" {
		t.Fatalf("binary=%q", cfg.Settings.Binary)
	}
	// Unset settings keep their defaults.
	if cfg.Settings.RetryAttempts != types.DefaultRetryAttempts || cfg.Settings.TestTimeout != types.DefaultTestTimeout {
		t.Fatalf("settings=%+v", cfg.Settings)
	}
	s := cfg.Servers[0]
	if s.Name != "lower" || s.City != "Paris" || !reflect.DeepEqual(s.Ports(), []int{5201, 5202}) {
		t.Fatalf("server=%+v", s)
	}
}

func TestLoad_MalformedPortIsNotFatal(t *testing.T) {
	t.Parallel()

	cfg, err := Parse([]byte(`- {Name: a, City: b, address: c, port: "abc"}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !reflect.DeepEqual(cfg.Servers[0].Ports(), []int{types.DefaultPort}) {
		t.Fatalf("ports=%v", cfg.Servers[0].Ports())
	}
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yml")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("missing file err=%v", err)
	}
	if _, err := Load(writeFile(t, "- Name: [unterminated")); err == nil {
		t.Fatal("expected YAML error")
	}
	if _, err := Parse([]byte("")); !errors.Is(err, ErrNoServers) {
		t.Fatalf("empty err=%v", err)
	}
	if _, err := Parse([]byte("just a string")); err == nil {
		t.Fatal("expected error for scalar document")
	}
	if _, err := Parse([]byte("settings:\n  retry_delay: soon\nservers: []\n")); err == nil {
		t.Fatal("expected error for bad duration")
	}
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	t.Parallel()

	cfg := &Config{Servers: []types.ServerSpec{
		{Name: "ok", Address: "192.0.2.1"},
		{Address: "192.0.2.2"},
		{Name: "no-address"},
	}}
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	if n := len(multierr.Errors(err)); n != 2 {
		t.Fatalf("errors=%d: %v", n, err)
	}

	if err := Validate(&Config{}); !errors.Is(err, ErrNoServers) {
		t.Fatalf("empty err=%v", err)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Parallel()

	env := map[string]string{
		EnvMaxConcurrent: "7",
		EnvRetryAttempts: "nope",
		EnvRetryDelay:    "250ms",
		EnvBinary:        " /opt/iperf3 ",
		EnvTestTimeout:   "-1s",
	}
	s := types.DefaultSettings()
	ApplyEnv(&s, func(k string) string { return env[k] })

	if s.MaxConcurrent != 7 || s.RetryDelay != 250*time.Millisecond || s.Binary != "/opt/iperf3" {
		t.Fatalf("settings=%+v", s)
	}
	if s.RetryAttempts != types.DefaultRetryAttempts || s.TestTimeout != types.DefaultTestTimeout {
		t.Fatalf("invalid values should be ignored: %+v", s)
	}
}
