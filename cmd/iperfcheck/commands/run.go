package commands

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ryanelliottsmith/iperfcheck/pkg/checks"
	"github.com/ryanelliottsmith/iperfcheck/pkg/config"
	"github.com/ryanelliottsmith/iperfcheck/pkg/coordinator"
	"github.com/ryanelliottsmith/iperfcheck/pkg/output"
	"github.com/ryanelliottsmith/iperfcheck/pkg/tester"
	"github.com/ryanelliottsmith/iperfcheck/pkg/types"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Test every server in the list and write the report",
	Long: `Load the server list, test every server concurrently and write the
markdown report. Servers with no open port are never handed to iperf3.`,
	RunE: runTests,
}

func init() {
	runCmd.Flags().StringP("config", "c", config.DefaultPath, "Server list (YAML)")
	runCmd.Flags().String("readme", output.DefaultReportPath, "Markdown report to write (empty to skip)")
	runCmd.Flags().String("header", output.DefaultHeaderPath, "File whose contents start the report")
	runCmd.Flags().String("timezone", "", "IANA zone for the report timestamp (default MSK, UTC+3)")
	runCmd.Flags().Bool("details", false, "Print a per-server result table")

	runCmd.Flags().Int("max-concurrent", types.DefaultMaxConcurrent, "Servers tested at the same time")
	runCmd.Flags().Int("retry-attempts", types.DefaultRetryAttempts, "iperf3 attempts per open port")
	runCmd.Flags().Duration("retry-delay", types.DefaultRetryDelay, "Delay between iperf3 attempts")
	runCmd.Flags().Duration("port-timeout", types.DefaultPortTimeout, "TCP connect timeout per port")
	runCmd.Flags().Duration("test-timeout", types.DefaultTestTimeout, "Wall-clock limit per iperf3 attempt")
	runCmd.Flags().Int("test-duration", types.DefaultTestDuration, "iperf3 test length in seconds")
	runCmd.Flags().String("binary", types.DefaultBinary, "iperf3 executable")
	runCmd.Flags().Bool("ping", false, "Annotate results with ICMP latency")
}

func runTests(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	readmePath, _ := cmd.Flags().GetString("readme")
	headerPath, _ := cmd.Flags().GetString("header")
	zone, _ := cmd.Flags().GetString("timezone")
	details, _ := cmd.Flags().GetBool("details")
	outputFormat, _ := cmd.Flags().GetString("output")
	debug, _ := cmd.Flags().GetBool("debug")

	loc := output.DefaultLocation
	if zone != "" {
		l, err := time.LoadLocation(zone)
		if err != nil {
			return fmt.Errorf("invalid --timezone: %w", err)
		}
		loc = l
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load server list: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid server list %s: %w", configPath, err)
	}

	settings := cfg.Settings
	config.ApplyEnv(&settings, os.Getenv)
	applyFlags(cmd.Flags(), &settings)
	settings.Debug = debug
	settings.ApplyDefaults()
	log.Printf("[config] %d servers, settings %+v", len(cfg.Servers), settings)

	stdout := cmd.OutOrStdout()
	stderr := cmd.ErrOrStderr()

	if err := checks.NewBandwidthCheck(settings).LookPath(); err != nil {
		warn(stderr, "%v; every throughput test will fail", err)
	}

	// Structured output owns stdout; progress moves to stderr.
	progressOut := stdout
	if outputFormat != output.FormatTable {
		progressOut = stderr
	}
	printer := output.NewProgressPrinter(progressOut, outputFormat)
	agg := coordinator.NewAggregator(printer.Handle)

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	t := tester.New(settings, agg.Handle)
	scheduler := coordinator.NewScheduler(t, settings.MaxConcurrent, agg.Handle)
	run := scheduler.RunAll(ctx, cfg.Servers)

	if ctx.Err() != nil {
		warn(stderr, "run interrupted, unfinished servers are reported unavailable")
	}
	log.Printf("[run] %s: %d events", run.RunID, len(agg.GetEvents()))

	summary := run.Summary()
	summaryOut := stdout
	if outputFormat != output.FormatTable {
		summaryOut = stderr
	}

	if readmePath != "" {
		header, err := output.LoadHeader(headerPath)
		if err != nil {
			warn(stderr, "%v", err)
		}
		content := output.RenderMarkdown(run, header, loc)
		if err := output.WriteReport(readmePath, content); err != nil {
			fmt.Fprintf(stderr, "Error creating %s: %v\n", readmePath, err)
		} else {
			fmt.Fprintf(summaryOut, "\n📄 %s created successfully!\n", readmePath)
			output.PrintSummary(summaryOut, summary)
		}
	} else {
		fmt.Fprintln(summaryOut)
		output.PrintSummary(summaryOut, summary)
	}

	if outputFormat != output.FormatTable {
		return output.PrintRun(stdout, run, outputFormat)
	}
	if details {
		fmt.Fprintln(stdout)
		return output.PrintRun(stdout, run, output.FormatTable)
	}
	return nil
}

// applyFlags copies explicitly set flags over file and environment settings.
func applyFlags(flags *pflag.FlagSet, s *types.Settings) {
	if flags.Changed("max-concurrent") {
		s.MaxConcurrent, _ = flags.GetInt("max-concurrent")
	}
	if flags.Changed("retry-attempts") {
		s.RetryAttempts, _ = flags.GetInt("retry-attempts")
	}
	if flags.Changed("retry-delay") {
		s.RetryDelay, _ = flags.GetDuration("retry-delay")
	}
	if flags.Changed("port-timeout") {
		s.PortTimeout, _ = flags.GetDuration("port-timeout")
	}
	if flags.Changed("test-timeout") {
		s.TestTimeout, _ = flags.GetDuration("test-timeout")
	}
	if flags.Changed("test-duration") {
		s.TestDuration, _ = flags.GetInt("test-duration")
	}
	if flags.Changed("binary") {
		s.Binary, _ = flags.GetString("binary")
	}
	if flags.Changed("ping") {
		s.Ping, _ = flags.GetBool("ping")
	}
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
