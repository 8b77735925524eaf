package types

import (
	"math"
	"strconv"
	"strings"
)

const (
	// DefaultPort is the iperf3 server port used when a server declares none
	// or declares one that cannot be parsed.
	DefaultPort = 5201

	minPort = 1
	maxPort = 65535
)

// DefaultPorts returns the single-port set used as the lenient fallback.
func DefaultPorts() []int {
	return []int{DefaultPort}
}

// ParsePorts expands a port field into an ordered list of ports.
//
// Accepted forms are a bare integer, a numeric string, an inclusive range
// "a-b" (bounds in either order) and a comma separated list. Anything else,
// including nil and out of range values, yields DefaultPorts. The result is
// not deduplicated.
func ParsePorts(field interface{}) []int {
	switch v := field.(type) {
	case int:
		return singlePort(int64(v))
	case int8:
		return singlePort(int64(v))
	case uint8:
		return singlePort(int64(v))
	case int16:
		return singlePort(int64(v))
	case int32:
		return singlePort(int64(v))
	case int64:
		return singlePort(v)
	case uint:
		return singlePort(int64(v))
	case uint16:
		return singlePort(int64(v))
	case uint32:
		return singlePort(int64(v))
	case uint64:
		if v > math.MaxInt32 {
			return DefaultPorts()
		}
		return singlePort(int64(v))
	case float64:
		// JSON numbers and some YAML encoders hand integers over as floats.
		if v != math.Trunc(v) {
			return DefaultPorts()
		}
		return singlePort(int64(v))
	case string:
		ports, ok := ParsePortString(v)
		if !ok {
			return DefaultPorts()
		}
		return ports
	default:
		return DefaultPorts()
	}
}

// ParsePortString parses the string forms of a port field. It reports false
// when the string is empty or malformed.
func ParsePortString(s string) ([]int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, false
	}

	if strings.Contains(s, "-") {
		lo, hi, _ := strings.Cut(s, "-")
		start, err := parsePort(lo)
		if err != nil {
			return nil, false
		}
		end, err := parsePort(hi)
		if err != nil {
			return nil, false
		}
		if start > end {
			start, end = end, start
		}
		ports := make([]int, 0, end-start+1)
		for p := start; p <= end; p++ {
			ports = append(ports, p)
		}
		return ports, true
	}

	if strings.Contains(s, ",") {
		var ports []int
		for _, tok := range strings.Split(s, ",") {
			tok = strings.TrimSpace(tok)
			if tok == "" {
				continue
			}
			p, err := parsePort(tok)
			if err != nil {
				return nil, false
			}
			ports = append(ports, p)
		}
		if len(ports) == 0 {
			return nil, false
		}
		return ports, true
	}

	p, err := parsePort(s)
	if err != nil {
		return nil, false
	}
	return []int{p}, true
}

// UniquePorts drops repeated ports, keeping the first occurrence of each.
func UniquePorts(ports []int) []int {
	seen := make(map[int]struct{}, len(ports))
	out := make([]int, 0, len(ports))
	for _, p := range ports {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

func parsePort(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	if n < minPort || n > maxPort {
		return 0, strconv.ErrRange
	}
	return n, nil
}

func singlePort(n int64) []int {
	if n < minPort || n > maxPort {
		return DefaultPorts()
	}
	return []int{int(n)}
}
