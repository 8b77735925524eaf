package types

import (
	"reflect"
	"testing"
)

func TestParsePorts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		field interface{}
		want  []int
	}{
		{"int", 5201, []int{5201}},
		{"int64", int64(5202), []int{5202}},
		{"integral float", float64(5203), []int{5203}},
		{"range", "5201-5203", []int{5201, 5202, 5203}},
		{"reversed range", "5203-5201", []int{5201, 5202, 5203}},
		{"single element range", "5201-5201", []int{5201}},
		{"range with spaces", " 5201 - 5202 ", []int{5201, 5202}},
		{"list", "5201,5202, 5203", []int{5201, 5202, 5203}},
		{"list keeps order", "5210,5201", []int{5210, 5201}},
		{"list drops empty tokens", "5201,,5202,", []int{5201, 5202}},
		{"list keeps duplicates", "5201,5201", []int{5201, 5201}},
		{"numeric string", "5201", []int{5201}},
		{"empty string", "", []int{DefaultPort}},
		{"blank string", "   ", []int{DefaultPort}},
		{"nil", nil, []int{DefaultPort}},
		{"garbage", "abc", []int{DefaultPort}},
		{"bad range", "5201-abc", []int{DefaultPort}},
		{"bad list token", "5201,abc", []int{DefaultPort}},
		{"only commas", ",,", []int{DefaultPort}},
		{"fractional float", 5201.5, []int{DefaultPort}},
		{"bool", true, []int{DefaultPort}},
		{"zero", 0, []int{DefaultPort}},
		{"negative", -1, []int{DefaultPort}},
		{"too large", 70000, []int{DefaultPort}},
		{"range out of bounds", "65535-65536", []int{DefaultPort}},
		{"slice", []int{1, 2}, []int{DefaultPort}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := ParsePorts(tt.field)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("ParsePorts(%#v) = %v, want %v", tt.field, got, tt.want)
			}
		})
	}
}

func TestParsePortString_ReportsFailure(t *testing.T) {
	t.Parallel()

	if _, ok := ParsePortString("x-y"); ok {
		t.Fatal("expected failure for x-y")
	}
	ports, ok := ParsePortString("80")
	if !ok || !reflect.DeepEqual(ports, []int{80}) {
		t.Fatalf("ports=%v ok=%v", ports, ok)
	}
}

func TestUniquePorts(t *testing.T) {
	t.Parallel()

	got := UniquePorts([]int{5202, 5201, 5202, 5203, 5201})
	want := []int{5202, 5201, 5203}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestServerResult_DisplayPorts(t *testing.T) {
	t.Parallel()

	up := ServerResult{DeclaredPorts: []int{5201, 5202}, PassedPorts: []int{5202}, Status: true}
	if got := up.DisplayPorts(); !reflect.DeepEqual(got, []int{5202}) {
		t.Fatalf("available display=%v", got)
	}

	down := ServerResult{DeclaredPorts: []int{5201, 5202}, FailedPorts: []int{5201, 5202}}
	if got := down.DisplayPorts(); !reflect.DeepEqual(got, []int{5201, 5202}) {
		t.Fatalf("unavailable display=%v", got)
	}
}

func TestFleetRun_Summary(t *testing.T) {
	t.Parallel()

	run := &FleetRun{Reports: []ServerReport{
		{Result: ServerResult{Status: true}},
		{Result: ServerResult{Status: false}},
		{Result: ServerResult{Status: true}},
	}}
	s := run.Summary()
	if s.Total != 3 || s.Available != 2 || s.Unavailable != 1 {
		t.Fatalf("summary=%+v", s)
	}
}

func TestSettings_ApplyDefaults(t *testing.T) {
	t.Parallel()

	var s Settings
	s.ApplyDefaults()
	if s.RetryAttempts != DefaultRetryAttempts || s.MaxConcurrent != DefaultMaxConcurrent {
		t.Fatalf("settings=%+v", s)
	}
	if s.Binary != DefaultBinary || s.TestDuration != DefaultTestDuration {
		t.Fatalf("settings=%+v", s)
	}
	if s.RetryDelay != DefaultRetryDelay || s.GracePeriod != DefaultGracePeriod {
		t.Fatalf("retry delay=%v", s.RetryDelay)
	}
}
