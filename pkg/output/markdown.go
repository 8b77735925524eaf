package output

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/ryanelliottsmith/iperfcheck/pkg/types"
	"github.com/ryanelliottsmith/iperfcheck/pkg/util"
)

const (
	DefaultHeaderPath = "readme-header.md"
	DefaultReportPath = "README.md"
	DefaultHeader     = "## Table of servers\n"

	reportTimeLayout = "02.01.2006 15:04:05"
)

// DefaultLocation is the zone report timestamps are rendered in.
var DefaultLocation = time.FixedZone("MSK", 3*60*60)

// LoadHeader returns the contents of the header file. A missing or unreadable
// file yields DefaultHeader together with the error so callers can warn.
func LoadHeader(path string) (string, error) {
	text, err := util.ReadText(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return DefaultHeader, fmt.Errorf("%s not found, using default header", path)
		}
		return DefaultHeader, fmt.Errorf("error reading %s: %w", path, err)
	}
	return text, nil
}

// RenderMarkdown builds the README document for a finished run.
func RenderMarkdown(run *types.FleetRun, header string, loc *time.Location) string {
	if loc == nil {
		loc = DefaultLocation
	}

	var b strings.Builder
	b.WriteString(strings.TrimRight(header, "\n"))
	b.WriteString("\n\n")

	b.WriteString("| Name | City | Address | Port | Status |\n")
	b.WriteString("|------|------|---------|------|--------|\n")

	for _, rep := range run.Reports {
		status := "❌"
		if rep.Result.Status {
			status = "✅"
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n",
			cell(rep.Server.Name),
			cell(rep.Server.City),
			cell(rep.Server.Address),
			JoinPorts(rep.Result.DisplayPorts(), "<br>"),
			status)
	}

	s := run.Summary()
	latest := run.EndTime
	if latest.IsZero() {
		latest = time.Now()
	}

	fmt.Fprintf(&b, "\n📅 **Latest test:** %s (%s)\n\n", latest.In(loc).Format(reportTimeLayout), zoneLabel(latest, loc))
	fmt.Fprintf(&b, "✅ **Available**: %d/%d servers\n\n", s.Available, s.Total)
	fmt.Fprintf(&b, "❌ **Unavailable**: %d/%d servers\n\n", s.Unavailable, s.Total)
	fmt.Fprintf(&b, "⏱️ **Execution time**: %.1f seconds\n\n", s.Duration.Seconds())

	return b.String()
}

// WriteReport replaces the file at path with content.
func WriteReport(path, content string) error {
	if err := util.WriteFileAtomic(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	log.Printf("[report] wrote %s (%s)", path, humanize.Bytes(uint64(len(content))))
	return nil
}

// zoneLabel renders e.g. "MSK, UTC+3" or "UTC+5:30".
func zoneLabel(t time.Time, loc *time.Location) string {
	name, offset := t.In(loc).Zone()

	sign := "+"
	if offset < 0 {
		sign = "-"
		offset = -offset
	}
	utc := fmt.Sprintf("UTC%s%d", sign, offset/3600)
	if m := offset % 3600 / 60; m != 0 {
		utc += fmt.Sprintf(":%02d", m)
	}

	if name == "" || name == "UTC" || strings.HasPrefix(name, "+") || strings.HasPrefix(name, "-") {
		return utc
	}
	return name + ", " + utc
}

func cell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
