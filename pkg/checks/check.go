// Package checks holds the network probes a server test is built from: a
// TCP reachability check, the iperf3 throughput check and an optional ICMP
// latency check.
package checks

import (
	"context"
	"time"

	"github.com/ryanelliottsmith/iperfcheck/pkg/types"
)

const (
	// DefaultPortsTimeout bounds a single TCP connect attempt, DNS included.
	DefaultPortsTimeout = types.DefaultPortTimeout

	// DefaultPingTimeout bounds an ICMP latency measurement.
	DefaultPingTimeout = 5 * time.Second
)

// withTimeout derives a context bounded by timeout. A non-positive timeout
// leaves the parent deadline in charge.
func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
