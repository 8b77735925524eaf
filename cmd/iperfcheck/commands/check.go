package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/kballard/go-shellquote"
	"github.com/ryanelliottsmith/iperfcheck/pkg/checks"
	"github.com/ryanelliottsmith/iperfcheck/pkg/config"
	"github.com/ryanelliottsmith/iperfcheck/pkg/output"
	"github.com/ryanelliottsmith/iperfcheck/pkg/types"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run standalone checks against a single host",
	Long:  "Run one check directly without loading a server list.",
}

var checkPortsCmd = &cobra.Command{
	Use:   "ports",
	Short: "Test TCP port reachability",
	RunE: func(cmd *cobra.Command, args []string) error {
		targets, _ := cmd.Flags().GetStringSlice("targets")
		portSpec, _ := cmd.Flags().GetString("ports")
		timeout, _ := cmd.Flags().GetDuration("timeout")
		debug, _ := cmd.Flags().GetBool("debug")
		format, _ := cmd.Flags().GetString("output")

		if len(targets) == 0 {
			return fmt.Errorf("at least one target required (use --targets)")
		}
		ports, ok := types.ParsePortString(portSpec)
		if !ok {
			return fmt.Errorf("invalid --ports %q", portSpec)
		}

		check := checks.NewPortsCheck(timeout)
		for _, target := range targets {
			result := timed(check.Name(), target, func(r *types.TestResult) {
				details := check.Check(cmd.Context(), target, types.UniquePorts(ports))
				r.Summary = check.FormatSummary(details, debug)
				r.Details = map[string]interface{}{"ports": details}
				r.Status = types.StatusPass
				for _, d := range details {
					if !d.Open {
						r.Status = types.StatusFail
					}
				}
			})
			if err := output.PrintResult(cmd.OutOrStdout(), result, format); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout())
		}
		return nil
	},
}

var checkBandwidthCmd = &cobra.Command{
	Use:   "bandwidth",
	Short: "Run a single iperf3 client test",
	RunE: func(cmd *cobra.Command, args []string) error {
		target, _ := cmd.Flags().GetString("target")
		port, _ := cmd.Flags().GetInt("port")
		debug, _ := cmd.Flags().GetBool("debug")
		format, _ := cmd.Flags().GetString("output")

		if target == "" {
			return fmt.Errorf("target required (use --target)")
		}
		if port < 1 || port > 65535 {
			return fmt.Errorf("invalid --port %d", port)
		}

		settings := types.DefaultSettings()
		config.ApplyEnv(&settings, os.Getenv)
		applyFlags(cmd.Flags(), &settings)
		settings.Debug = debug

		check := checks.NewBandwidthCheck(settings)
		if err := check.LookPath(); err != nil {
			return fmt.Errorf("iperf3 binary: %w", err)
		}

		result := timed(check.Name(), fmt.Sprintf("%s:%d", target, port), func(r *types.TestResult) {
			outcome := check.Probe(cmd.Context(), target, port)
			r.Details = map[string]interface{}{
				"command": shellquote.Join(append([]string{check.Binary}, check.Args(target, port)...)...),
			}
			if outcome.OK {
				r.Status = types.StatusPass
				r.Summary = "throughput test completed"
			} else {
				r.Status = types.StatusFail
				r.Error = outcome.Diagnostic
			}
		})
		return output.PrintResult(cmd.OutOrStdout(), result, format)
	},
}

var checkPingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Test ICMP connectivity",
	RunE: func(cmd *cobra.Command, args []string) error {
		targets, _ := cmd.Flags().GetStringSlice("targets")
		count, _ := cmd.Flags().GetInt("count")
		privileged, _ := cmd.Flags().GetBool("privileged")
		format, _ := cmd.Flags().GetString("output")

		if len(targets) == 0 {
			return fmt.Errorf("at least one target required (use --targets)")
		}

		check := checks.NewPingCheck(count, privileged)
		for _, target := range targets {
			result := timed(check.Name(), target, func(r *types.TestResult) {
				details, err := check.Ping(cmd.Context(), target)
				if err != nil {
					r.Status = types.StatusFail
					r.Error = err.Error()
					return
				}
				r.Status = types.StatusPass
				r.Summary = check.FormatSummary(details)
				r.Details = map[string]interface{}{"ping": details}
			})
			if err := output.PrintResult(cmd.OutOrStdout(), result, format); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout())
		}
		return nil
	},
}

func timed(check, target string, fn func(r *types.TestResult)) *types.TestResult {
	r := &types.TestResult{
		Check:     check,
		Target:    target,
		StartTime: time.Now(),
	}
	fn(r)
	r.EndTime = time.Now()
	r.Duration = r.EndTime.Sub(r.StartTime)
	return r
}

func init() {
	checkCmd.AddCommand(checkPortsCmd)
	checkCmd.AddCommand(checkBandwidthCmd)
	checkCmd.AddCommand(checkPingCmd)

	checkPortsCmd.Flags().StringSlice("targets", []string{}, "Target hosts")
	checkPortsCmd.Flags().String("ports", fmt.Sprint(types.DefaultPort), `Ports to check ("5201", "5201-5205" or "5201,5202")`)
	checkPortsCmd.Flags().Duration("timeout", types.DefaultPortTimeout, "TCP connect timeout per port")

	checkBandwidthCmd.Flags().String("target", "", "iperf3 server host")
	checkBandwidthCmd.Flags().Int("port", types.DefaultPort, "iperf3 server port")
	checkBandwidthCmd.Flags().Duration("test-timeout", types.DefaultTestTimeout, "Wall-clock limit for the test")
	checkBandwidthCmd.Flags().Int("test-duration", types.DefaultTestDuration, "iperf3 test length in seconds")
	checkBandwidthCmd.Flags().String("binary", types.DefaultBinary, "iperf3 executable")

	checkPingCmd.Flags().StringSlice("targets", []string{}, "Target hosts to ping")
	checkPingCmd.Flags().Int("count", checks.DefaultPingCount, "Packets per target")
	checkPingCmd.Flags().Bool("privileged", false, "Use raw ICMP sockets (needs CAP_NET_RAW)")
}
