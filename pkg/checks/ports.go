package checks

import (
	"context"
	"fmt"
	"log"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/ryanelliottsmith/iperfcheck/pkg/types"
)

// PortsCheck is the cheap reachability pre-filter run before any iperf3
// process is started. Every failure mode collapses to "closed".
type PortsCheck struct {
	Timeout time.Duration
	Debug   bool

	// dial replaces net.Dialer.DialContext when set.
	dial func(ctx context.Context, network, address string) (net.Conn, error)
}

func (c *PortsCheck) Name() string {
	return "ports"
}

// IsOpen reports whether a TCP connection to address:port can be established
// within the check timeout. The connection is closed immediately.
func (c *PortsCheck) IsOpen(ctx context.Context, address string, port int) bool {
	return c.checkPort(ctx, address, port).Open
}

// Check probes each port in order and returns one entry per port.
func (c *PortsCheck) Check(ctx context.Context, address string, ports []int) []types.PortCheckDetails {
	results := make([]types.PortCheckDetails, 0, len(ports))
	for _, port := range ports {
		results = append(results, c.checkPort(ctx, address, port))
	}
	return results
}

func (c *PortsCheck) checkPort(ctx context.Context, host string, port int) types.PortCheckDetails {
	details := types.PortCheckDetails{
		Port: port,
		Open: false,
	}

	ctx, cancel := withTimeout(ctx, c.Timeout)
	defer cancel()

	address := net.JoinHostPort(host, strconv.Itoa(port))
	start := time.Now()

	dial := c.dial
	if dial == nil {
		dial = (&net.Dialer{}).DialContext
	}
	conn, err := dial(ctx, "tcp", address)
	if err != nil {
		if c.Debug {
			log.Printf("[ports] %s closed: %v", address, err)
		}
		return details
	}
	conn.Close()

	details.Open = true
	details.LatencyMS = float64(time.Since(start).Microseconds()) / 1000.0
	return details
}

// FormatSummary renders port results as "n/m open" with per-port detail in
// debug mode.
func (c *PortsCheck) FormatSummary(results []types.PortCheckDetails, debug bool) string {
	var open int
	var portDetails []string

	for _, r := range results {
		if r.Open {
			open++
			if debug {
				portDetails = append(portDetails, fmt.Sprintf("%d/tcp: %.2fms", r.Port, r.LatencyMS))
			}
		} else if debug {
			portDetails = append(portDetails, fmt.Sprintf("%d/tcp: CLOSED", r.Port))
		}
	}

	summary := fmt.Sprintf("%d/%d open", open, len(results))
	if debug && len(portDetails) > 0 {
		return summary + " | " + strings.Join(portDetails, ", ")
	}
	return summary
}

func NewPortsCheck(timeout time.Duration) *PortsCheck {
	if timeout <= 0 {
		timeout = DefaultPortsTimeout
	}
	return &PortsCheck{
		Timeout: timeout,
	}
}
