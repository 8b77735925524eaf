package checks

import (
	"bytes"
	"context"
	"errors"
	"log"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/kballard/go-shellquote"
	"github.com/ryanelliottsmith/iperfcheck/pkg/types"
)

// BandwidthCheck runs the iperf3 client against one server port. Success is
// an exit status of zero with some standard output; the measured bandwidth is
// not parsed.
type BandwidthCheck struct {
	Binary      string
	Duration    int
	Timeout     time.Duration
	GracePeriod time.Duration
	Debug       bool
}

func (c *BandwidthCheck) Name() string {
	return "bandwidth"
}

// Args returns the iperf3 client arguments for address:port.
func (c *BandwidthCheck) Args(address string, port int) []string {
	return []string{"-c", address, "-p", strconv.Itoa(port), "-t", strconv.Itoa(c.Duration)}
}

// Probe starts one iperf3 process and waits for it. When the timeout expires
// the process receives SIGTERM, then SIGKILL once the grace period is over;
// in every case it is reaped before Probe returns.
func (c *BandwidthCheck) Probe(ctx context.Context, address string, port int) types.ProbeOutcome {
	ctx, cancel := withTimeout(ctx, c.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.Binary, c.Args(address, port)...)
	cmd.Cancel = func() error {
		return terminate(cmd.Process)
	}
	cmd.WaitDelay = c.GracePeriod

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if c.Debug {
		log.Printf("[bandwidth] running %s", shellquote.Join(cmd.Args...))
	}

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start).Truncate(time.Millisecond)

	if err == nil && stdout.Len() > 0 {
		if c.Debug {
			log.Printf("[bandwidth] %s:%d passed in %s (%d bytes of output)", address, port, elapsed, stdout.Len())
		}
		return types.Success()
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		if c.Debug {
			log.Printf("[bandwidth] %s:%d timed out after %s", address, port, elapsed)
		}
		return types.Failure(types.DiagnosticTimeout)
	}

	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		if c.Debug {
			log.Printf("[bandwidth] %s:%d could not run iperf3: %v", address, port, err)
		}
		return types.Failure(err.Error())
	}

	msg := strings.TrimSpace(stderr.String())
	if msg == "" {
		msg = types.DiagnosticTestError
	}
	if c.Debug {
		log.Printf("[bandwidth] %s:%d failed (exit %d): %s", address, port, cmd.ProcessState.ExitCode(), msg)
	}
	return types.Failure(msg)
}

// LookPath reports whether the configured binary can be found.
func (c *BandwidthCheck) LookPath() error {
	_, err := exec.LookPath(c.Binary)
	return err
}

func terminate(p *os.Process) error {
	if p == nil {
		return os.ErrProcessDone
	}
	if runtime.GOOS == "windows" {
		return p.Kill()
	}
	return p.Signal(syscall.SIGTERM)
}

func NewBandwidthCheck(settings types.Settings) *BandwidthCheck {
	settings.ApplyDefaults()
	return &BandwidthCheck{
		Binary:      settings.Binary,
		Duration:    settings.TestDuration,
		Timeout:     settings.TestTimeout,
		GracePeriod: settings.GracePeriod,
		Debug:       settings.Debug,
	}
}
