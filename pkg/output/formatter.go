package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/ryanelliottsmith/iperfcheck/pkg/types"
	"gopkg.in/yaml.v3"
)

const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// ValidFormat reports whether format is one of the supported output formats.
func ValidFormat(format string) bool {
	switch format {
	case FormatTable, FormatJSON, FormatYAML:
		return true
	}
	return false
}

func PrintResult(w io.Writer, result *types.TestResult, format string) error {
	switch format {
	case FormatJSON:
		return printJSON(w, result)
	case FormatYAML:
		return printYAML(w, result)
	case FormatTable:
		return printTable(w, result)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// PrintRun writes the results of a fleet run in the requested format.
func PrintRun(w io.Writer, run *types.FleetRun, format string) error {
	switch format {
	case FormatJSON:
		return printJSON(w, struct {
			*types.FleetRun
			Summary types.Summary `json:"summary"`
		}{run, run.Summary()})
	case FormatYAML:
		return printYAML(w, struct {
			Run     *types.FleetRun `yaml:"run"`
			Summary types.Summary   `yaml:"summary"`
		}{run, run.Summary()})
	case FormatTable:
		return printRunTable(w, run)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// PrintSummary writes the closing available/unavailable/time lines.
func PrintSummary(w io.Writer, s types.Summary) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	fmt.Fprintf(w, "✅ Available: %s/%d servers\n", green(s.Available), s.Total)
	fmt.Fprintf(w, "❌ Unavailable: %s/%d servers\n", red(s.Unavailable), s.Total)
	fmt.Fprintf(w, "⏱️ Execution time: %.1f seconds\n", s.Duration.Seconds())
}

func printJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func printYAML(w io.Writer, v interface{}) error {
	encoder := yaml.NewEncoder(w)
	defer encoder.Close()
	encoder.SetIndent(2)
	return encoder.Encode(v)
}

func statusSymbol(ok bool) string {
	if ok {
		return "✓"
	}
	return "✗"
}

func printTable(w io.Writer, result *types.TestResult) error {
	fmt.Fprintf(w, "Check:    %s\n", result.Check)
	fmt.Fprintf(w, "Target:   %s\n", result.Target)
	fmt.Fprintf(w, "Status:   %s %s\n", statusSymbol(result.Status == types.StatusPass), result.Status)
	fmt.Fprintf(w, "Duration: %v\n", result.Duration.Truncate(time.Millisecond))

	if result.Summary != "" {
		fmt.Fprintf(w, "Summary:  %s\n", result.Summary)
	}
	if result.Error != "" {
		fmt.Fprintf(w, "Error:    %s\n", result.Error)
	}

	if len(result.Details) > 0 {
		fmt.Fprintln(w, "\nDetails:")
		detailsJSON, _ := json.MarshalIndent(result.Details, "  ", "  ")
		fmt.Fprintf(w, "  %s\n", string(detailsJSON))
	}

	return nil
}

// calculateColumnWidths returns the widths needed to show every name and
// address without truncation, never narrower than the header labels.
func calculateColumnWidths(reports []types.ServerReport) (nameWidth, addrWidth int) {
	const minWidth = 6
	nameWidth = minWidth
	addrWidth = minWidth

	if len("Address") > addrWidth {
		addrWidth = len("Address")
	}

	for _, rep := range reports {
		if len(rep.Server.Name) > nameWidth {
			nameWidth = len(rep.Server.Name)
		}
		if len(rep.Server.Address) > addrWidth {
			addrWidth = len(rep.Server.Address)
		}
	}
	return nameWidth, addrWidth
}

func printRunTable(w io.Writer, run *types.FleetRun) error {
	if len(run.Reports) == 0 {
		fmt.Fprintln(w, "No servers tested.")
		return nil
	}

	nameWidth, addrWidth := calculateColumnWidths(run.Reports)
	const portsWidth = 17

	fmt.Fprintln(w, strings.Repeat("-", nameWidth+3+addrWidth+3+portsWidth+3+8+3+len("Details")))
	fmt.Fprintf(w, "%-*s   %-*s   %-*s   %-8s   %s\n", nameWidth, "Name", addrWidth, "Address", portsWidth, "Ports", "Status", "Details")

	for _, rep := range run.Reports {
		status := "✓ PASS"
		if !rep.Result.Status {
			status = "✗ FAIL"
		}
		fmt.Fprintf(w, "%-*s   %-*s   %-*s   %-8s   %s\n",
			nameWidth, rep.Server.Name,
			addrWidth, rep.Server.Address,
			portsWidth, JoinPorts(rep.Result.DisplayPorts(), ","),
			status,
			resultDetails(rep.Result))
	}

	s := run.Summary()
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("=", 60))
	fmt.Fprintf(w, "Summary: %d available, %d unavailable, %d total (%.1f seconds)\n",
		s.Available, s.Unavailable, s.Total, s.Duration.Seconds())
	return nil
}

func resultDetails(r types.ServerResult) string {
	var parts []string
	if r.Error != "" {
		parts = append(parts, r.Error)
	}

	ports := make([]int, 0, len(r.Diagnostics))
	for p := range r.Diagnostics {
		ports = append(ports, p)
	}
	sort.Ints(ports)
	for _, p := range ports {
		parts = append(parts, fmt.Sprintf("%d: %s", p, oneLine(r.Diagnostics[p])))
	}

	if r.Ping != nil {
		parts = append(parts, fmt.Sprintf("rtt %.2fms", r.Ping.AvgLatencyMS))
	}
	return strings.Join(parts, " | ")
}

// JoinPorts renders ports separated by sep.
func JoinPorts(ports []int, sep string) string {
	s := make([]string, len(ports))
	for i, p := range ports {
		s[i] = strconv.Itoa(p)
	}
	return strings.Join(s, sep)
}

// oneLine folds multi-line diagnostics (iperf3 stderr) onto a single line.
func oneLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	out := lines[:0]
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, " | ")
}

func stdoutIfNil(w io.Writer) io.Writer {
	if w == nil {
		return os.Stdout
	}
	return w
}
