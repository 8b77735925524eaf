// Package tester decides whether a single iperf3 server is available.
//
// A server is tested in two stages. Every declared port first gets a TCP
// connect; only ports that answer are handed to iperf3, which is retried a
// bounded number of times with a fixed delay. The server is available when at
// least one port sustains a throughput test.
package tester

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ryanelliottsmith/iperfcheck/pkg/checks"
	"github.com/ryanelliottsmith/iperfcheck/pkg/types"
)

type PortProber interface {
	IsOpen(ctx context.Context, address string, port int) bool
}

type ThroughputProber interface {
	Probe(ctx context.Context, address string, port int) types.ProbeOutcome
}

type LatencyProber interface {
	Ping(ctx context.Context, target string) (*types.PingDetails, error)
}

type Tester struct {
	Ports      PortProber
	Throughput ThroughputProber
	// Latency is optional. Its result is recorded but never decides status.
	Latency LatencyProber

	RetryAttempts int
	RetryDelay    time.Duration
	OnEvent       types.EventHandler
	Debug         bool

	// newTimer overrides the timer used between attempts.
	newTimer func() backoff.Timer
}

// New wires a Tester to the real TCP, iperf3 and (when enabled) ICMP checks.
func New(settings types.Settings, onEvent types.EventHandler) *Tester {
	settings.ApplyDefaults()

	ports := checks.NewPortsCheck(settings.PortTimeout)
	ports.Debug = settings.Debug

	t := &Tester{
		Ports:         ports,
		Throughput:    checks.NewBandwidthCheck(settings),
		RetryAttempts: settings.RetryAttempts,
		RetryDelay:    settings.RetryDelay,
		OnEvent:       onEvent,
		Debug:         settings.Debug,
	}
	if settings.Ping {
		t.Latency = checks.NewPingCheck(0, false)
	}
	return t
}

// Test runs both stages against server. The returned error is only non-nil
// when ctx ended before the test could finish.
func (t *Tester) Test(ctx context.Context, server types.ServerSpec) (types.ServerResult, error) {
	result := types.ServerResult{
		StartTime:   time.Now(),
		PassedPorts: []int{},
		FailedPorts: []int{},
	}
	defer func() {
		result.EndTime = time.Now()
		result.Duration = result.EndTime.Sub(result.StartTime)
	}()

	declared := types.UniquePorts(server.Ports())
	result.DeclaredPorts = declared

	if t.Latency != nil {
		details, err := t.Latency.Ping(ctx, server.Address)
		if err != nil && t.Debug {
			log.Printf("[tester] %s: ping %s: %v", server.Name, server.Address, err)
		}
		result.Ping = details
	}

	var open, closed []int
	for _, port := range declared {
		if t.Ports.IsOpen(ctx, server.Address, port) {
			open = append(open, port)
		} else {
			closed = append(closed, port)
		}
	}
	if t.Debug {
		log.Printf("[tester] %s: %d/%d ports open on %s", server.Name, len(open), len(declared), server.Address)
	}

	if len(open) == 0 {
		result.FailedPorts = append(result.FailedPorts, declared...)
		t.emit(types.PortsClosedEvent(server, declared))
		return result, ctx.Err()
	}

	for _, port := range open {
		ok, diagnostic := t.probeWithRetry(ctx, server, port)
		if ok {
			result.PassedPorts = append(result.PassedPorts, port)
			continue
		}
		result.FailedPorts = append(result.FailedPorts, port)
		if result.Diagnostics == nil {
			result.Diagnostics = make(map[int]string)
		}
		result.Diagnostics[port] = diagnostic
	}

	// Open and closed ports partition the declared set, so nothing is
	// counted twice here.
	result.FailedPorts = append(result.FailedPorts, closed...)
	result.Status = len(result.PassedPorts) > 0

	return result, ctx.Err()
}

// probeWithRetry runs the throughput probe until it succeeds or the attempt
// budget is spent, sleeping RetryDelay between attempts. It returns the last
// diagnostic on failure.
func (t *Tester) probeWithRetry(ctx context.Context, server types.ServerSpec, port int) (bool, string) {
	attempts := t.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}

	attempt := 0
	var last types.ProbeOutcome

	operation := func() error {
		attempt++
		last = t.Throughput.Probe(ctx, server.Address, port)
		if last.OK {
			return nil
		}
		return errors.New(last.Diagnostic)
	}

	// notify fires once per failed attempt that will be retried, right
	// before the delay.
	notify := func(err error, _ time.Duration) {
		t.emit(types.AttemptFailedEvent(server, port, attempt, err.Error()))
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(t.RetryDelay), uint64(attempts-1)),
		ctx,
	)

	var timer backoff.Timer
	if t.newTimer != nil {
		timer = t.newTimer()
	}

	if err := backoff.RetryNotifyWithTimer(operation, policy, notify, timer); err == nil {
		t.emit(types.PortPassedEvent(server, port, attempt))
		return true, ""
	}

	diagnostic := last.Diagnostic
	if diagnostic == "" {
		diagnostic = types.DiagnosticTestError
	}
	t.emit(types.PortFailedEvent(server, port, attempt, diagnostic))
	return false, diagnostic
}

func (t *Tester) emit(event *types.Event) {
	if t.OnEvent != nil {
		t.OnEvent(event)
	}
}
