package coordinator

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ryanelliottsmith/iperfcheck/pkg/types"
)

// gaugeTester tracks how many Test calls are in flight at once.
type gaugeTester struct {
	active int32
	peak   int32
	calls  int32
	hold   time.Duration
}

func (g *gaugeTester) Test(ctx context.Context, server types.ServerSpec) (types.ServerResult, error) {
	if err := ctx.Err(); err != nil {
		return types.ServerResult{}, err
	}
	atomic.AddInt32(&g.calls, 1)
	n := atomic.AddInt32(&g.active, 1)
	for {
		p := atomic.LoadInt32(&g.peak)
		if n <= p || atomic.CompareAndSwapInt32(&g.peak, p, n) {
			break
		}
	}
	time.Sleep(g.hold)
	atomic.AddInt32(&g.active, -1)

	ports := server.Ports()
	return types.ServerResult{DeclaredPorts: ports, PassedPorts: ports, FailedPorts: []int{}, Status: true}, nil
}

func servers(n int) []types.ServerSpec {
	out := make([]types.ServerSpec, n)
	for i := range out {
		out[i] = types.ServerSpec{Name: fmt.Sprintf("srv-%02d", i), Address: fmt.Sprintf("10.0.0.%d", i+1), Port: 5201 + i}
	}
	return out
}

func TestRunAll_RespectsConcurrencyLimit(t *testing.T) {
	t.Parallel()

	g := &gaugeTester{hold: 20 * time.Millisecond}
	s := NewScheduler(g, 4, nil)

	run := s.RunAll(context.Background(), servers(25))

	if got := atomic.LoadInt32(&g.calls); got != 25 {
		t.Fatalf("calls=%d", got)
	}
	if peak := atomic.LoadInt32(&g.peak); peak > 4 {
		t.Fatalf("peak concurrency %d exceeds limit 4", peak)
	}
	if peak := atomic.LoadInt32(&g.peak); peak < 2 {
		t.Fatalf("servers never ran in parallel (peak %d)", peak)
	}
	if len(run.Reports) != 25 {
		t.Fatalf("reports=%d", len(run.Reports))
	}
}

func TestRunAll_KeepsInputOrder(t *testing.T) {
	t.Parallel()

	in := servers(10)
	run := NewScheduler(&gaugeTester{}, 3, nil).RunAll(context.Background(), in)

	for i, rep := range run.Reports {
		if rep.Server.Name != in[i].Name {
			t.Fatalf("report %d is %s, want %s", i, rep.Server.Name, in[i].Name)
		}
		if !reflect.DeepEqual(rep.Result.PassedPorts, []int{5201 + i}) {
			t.Fatalf("report %d passed=%v", i, rep.Result.PassedPorts)
		}
	}
	if run.RunID == "" || run.Duration <= 0 || run.EndTime.Before(run.StartTime) {
		t.Fatalf("run metadata=%+v", run)
	}
}

// flakyTester panics for one server and errors for another.
type flakyTester struct {
	inner gaugeTester
}

func (f *flakyTester) Test(ctx context.Context, server types.ServerSpec) (types.ServerResult, error) {
	switch server.Name {
	case "srv-01":
		panic("unexpected nil map")
	case "srv-03":
		return types.ServerResult{PassedPorts: []int{5204}, Status: true}, errors.New("interrupted")
	}
	return f.inner.Test(ctx, server)
}

func TestRunAll_IsolatesFailures(t *testing.T) {
	t.Parallel()

	agg := NewAggregator()
	run := NewScheduler(&flakyTester{}, 2, agg.Handle).RunAll(context.Background(), servers(5))

	for i, rep := range run.Reports {
		switch i {
		case 1:
			if rep.Result.Status || rep.Result.Error == "" {
				t.Fatalf("panicking server result=%+v", rep.Result)
			}
			if !reflect.DeepEqual(rep.Result.FailedPorts, []int{5202}) || len(rep.Result.PassedPorts) != 0 {
				t.Fatalf("panicking server ports=%+v", rep.Result)
			}
		case 3:
			if rep.Result.Status || rep.Result.Error != "interrupted" || len(rep.Result.PassedPorts) != 0 {
				t.Fatalf("erroring server result=%+v", rep.Result)
			}
		default:
			if !rep.Result.Status {
				t.Fatalf("server %d should be unaffected: %+v", i, rep.Result)
			}
		}
	}

	if s := run.Summary(); s.Available != 3 || s.Unavailable != 2 {
		t.Fatalf("summary=%+v", s)
	}
	if n := agg.Count(types.EventTypeServerError); n != 2 {
		t.Fatalf("server error events=%d", n)
	}
	if agg.Count(types.EventTypeRunStart) != 1 || agg.Count(types.EventTypeComplete) != 1 {
		t.Fatalf("events=%v", agg.GetEvents())
	}
}

func TestRunAll_CancelledBeforeStart(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g := &gaugeTester{}
	run := NewScheduler(g, 1, nil).RunAll(ctx, servers(3))

	if len(run.Reports) != 3 {
		t.Fatalf("reports=%d", len(run.Reports))
	}
	for _, rep := range run.Reports {
		if rep.Result.Status {
			t.Fatalf("cancelled run reported %s available", rep.Server.Name)
		}
	}
}

func TestRunAll_Empty(t *testing.T) {
	t.Parallel()

	run := NewScheduler(&gaugeTester{}, 0, nil).RunAll(context.Background(), nil)
	if len(run.Reports) != 0 {
		t.Fatalf("reports=%d", len(run.Reports))
	}
}

func TestNewScheduler_DefaultLimit(t *testing.T) {
	t.Parallel()

	if s := NewScheduler(&gaugeTester{}, 0, nil); s.MaxConcurrent != types.DefaultMaxConcurrent {
		t.Fatalf("limit=%d", s.MaxConcurrent)
	}
}

func TestAggregator_ForwardsInOrder(t *testing.T) {
	t.Parallel()

	var seen []types.EventType
	agg := NewAggregator(func(e *types.Event) { seen = append(seen, e.Type) })

	server := types.ServerSpec{Name: "a"}
	agg.Handle(types.AttemptFailedEvent(server, 5201, 1, "x"))
	agg.Handle(types.PortPassedEvent(server, 5201, 2))

	if !reflect.DeepEqual(seen, []types.EventType{types.EventTypeAttemptFailed, types.EventTypePortPassed}) {
		t.Fatalf("seen=%v", seen)
	}
	if got := agg.GetEventsOfType(types.EventTypePortPassed); len(got) != 1 || got[0].Attempt != 2 {
		t.Fatalf("passed=%v", got)
	}
	if len(agg.GetEvents()) != 2 {
		t.Fatalf("events=%d", len(agg.GetEvents()))
	}
}
