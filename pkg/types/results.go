package types

import "time"

// Fixed diagnostics for throughput attempts that produced no text of their own.
const (
	DiagnosticTimeout   = "Timeout"
	DiagnosticTestError = "Test error"
)

// ProbeOutcome is the result of a single throughput attempt.
type ProbeOutcome struct {
	OK         bool   `json:"ok"`
	Diagnostic string `json:"diagnostic,omitempty"`
}

func Success() ProbeOutcome {
	return ProbeOutcome{OK: true}
}

func Failure(diagnostic string) ProbeOutcome {
	return ProbeOutcome{Diagnostic: diagnostic}
}

// ServerResult is the verdict for one server. Status is true when at least
// one port passed a throughput test.
type ServerResult struct {
	DeclaredPorts []int          `json:"declared_ports" yaml:"declared_ports"`
	PassedPorts   []int          `json:"passed_ports" yaml:"passed_ports"`
	FailedPorts   []int          `json:"failed_ports" yaml:"failed_ports"`
	Status        bool           `json:"status" yaml:"status"`
	Diagnostics   map[int]string `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
	Ping          *PingDetails   `json:"ping,omitempty" yaml:"ping,omitempty"`
	Error         string         `json:"error,omitempty" yaml:"error,omitempty"`
	StartTime     time.Time      `json:"start_time" yaml:"start_time"`
	EndTime       time.Time      `json:"end_time" yaml:"end_time"`
	Duration      time.Duration  `json:"duration" yaml:"duration"`
}

// DisplayPorts is what a report shows in the port column: the passed ports of
// an available server, every declared port otherwise.
func (r ServerResult) DisplayPorts() []int {
	if r.Status {
		return r.PassedPorts
	}
	return r.DeclaredPorts
}

// ServerReport pairs an input record with the result produced for it.
type ServerReport struct {
	Server ServerSpec   `json:"server" yaml:"server"`
	Result ServerResult `json:"result" yaml:"result"`
}

// FleetRun is one invocation over the whole server list. Reports keep the
// order of the input list.
type FleetRun struct {
	RunID     string         `json:"run_id" yaml:"run_id"`
	StartTime time.Time      `json:"start_time" yaml:"start_time"`
	EndTime   time.Time      `json:"end_time" yaml:"end_time"`
	Duration  time.Duration  `json:"duration" yaml:"duration"`
	Reports   []ServerReport `json:"reports" yaml:"reports"`
}

type Summary struct {
	Total       int           `json:"total" yaml:"total"`
	Available   int           `json:"available" yaml:"available"`
	Unavailable int           `json:"unavailable" yaml:"unavailable"`
	Duration    time.Duration `json:"duration" yaml:"duration"`
}

func (r *FleetRun) Summary() Summary {
	s := Summary{Total: len(r.Reports), Duration: r.Duration}
	for _, rep := range r.Reports {
		if rep.Result.Status {
			s.Available++
		}
	}
	s.Unavailable = s.Total - s.Available
	return s
}

type PingDetails struct {
	PacketsSent     int     `json:"packets_sent" yaml:"packets_sent"`
	PacketsReceived int     `json:"packets_received" yaml:"packets_received"`
	PacketLoss      float64 `json:"packet_loss_percent" yaml:"packet_loss_percent"`
	MinLatencyMS    float64 `json:"min_latency_ms" yaml:"min_latency_ms"`
	AvgLatencyMS    float64 `json:"avg_latency_ms" yaml:"avg_latency_ms"`
	MaxLatencyMS    float64 `json:"max_latency_ms" yaml:"max_latency_ms"`
}

type PortCheckDetails struct {
	Port      int     `json:"port" yaml:"port"`
	Open      bool    `json:"open" yaml:"open"`
	LatencyMS float64 `json:"latency_ms,omitempty" yaml:"latency_ms,omitempty"`
}

type ResultStatus string

const (
	StatusPass ResultStatus = "pass"
	StatusFail ResultStatus = "fail"
)

// TestResult is the outcome of a standalone check run from the command line.
type TestResult struct {
	Check     string                 `json:"check" yaml:"check"`
	Target    string                 `json:"target,omitempty" yaml:"target,omitempty"`
	Status    ResultStatus           `json:"status" yaml:"status"`
	Error     string                 `json:"error,omitempty" yaml:"error,omitempty"`
	Summary   string                 `json:"summary,omitempty" yaml:"summary,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty" yaml:"details,omitempty"`
	StartTime time.Time              `json:"start_time" yaml:"start_time"`
	EndTime   time.Time              `json:"end_time" yaml:"end_time"`
	Duration  time.Duration          `json:"duration" yaml:"duration"`
}
