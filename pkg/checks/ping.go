package checks

import (
	"context"
	"fmt"
	"time"

	probing "github.com/prometheus-community/pro-bing"
	"github.com/ryanelliottsmith/iperfcheck/pkg/types"
)

// DefaultPingCount is the default number of ping packets to send
const DefaultPingCount = 3

// PingCheck measures ICMP round-trip latency. It only annotates results; a
// host that drops ICMP can still pass its throughput test.
type PingCheck struct {
	Count      int
	Privileged bool
	Timeout    time.Duration
}

func (c *PingCheck) Name() string {
	return "ping"
}

func (c *PingCheck) Ping(ctx context.Context, target string) (*types.PingDetails, error) {
	count := c.Count
	if count == 0 {
		count = DefaultPingCount
	}

	pinger, err := probing.NewPinger(target)
	if err != nil {
		return nil, fmt.Errorf("failed to create pinger: %w", err)
	}

	// Unprivileged mode uses UDP ICMP sockets; raw sockets need CAP_NET_RAW.
	pinger.SetPrivileged(c.Privileged)
	pinger.Count = count
	pinger.Timeout = c.Timeout
	if pinger.Timeout <= 0 {
		pinger.Timeout = DefaultPingTimeout
	}
	pinger.Interval = 200 * time.Millisecond

	if err := pinger.RunWithContext(ctx); err != nil {
		return nil, fmt.Errorf("ping failed: %w", err)
	}

	stats := pinger.Statistics()
	details := &types.PingDetails{
		PacketsSent:     stats.PacketsSent,
		PacketsReceived: stats.PacketsRecv,
		PacketLoss:      stats.PacketLoss,
		MinLatencyMS:    float64(stats.MinRtt.Microseconds()) / 1000.0,
		AvgLatencyMS:    float64(stats.AvgRtt.Microseconds()) / 1000.0,
		MaxLatencyMS:    float64(stats.MaxRtt.Microseconds()) / 1000.0,
	}

	if details.PacketsReceived == 0 {
		return details, fmt.Errorf("no replies from %s", target)
	}
	return details, nil
}

// FormatSummary renders ping statistics on one line.
func (c *PingCheck) FormatSummary(d *types.PingDetails) string {
	if d == nil {
		return ""
	}
	return fmt.Sprintf("%d sent, %d received, %.1f%% loss, avg %.2fms",
		d.PacketsSent, d.PacketsReceived, d.PacketLoss, d.AvgLatencyMS)
}

func NewPingCheck(count int, privileged bool) *PingCheck {
	if count == 0 {
		count = DefaultPingCount
	}
	return &PingCheck{
		Count:      count,
		Privileged: privileged,
		Timeout:    DefaultPingTimeout,
	}
}
