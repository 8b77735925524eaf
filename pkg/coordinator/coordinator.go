// Package coordinator runs server tests across the whole fleet.
package coordinator

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ryanelliottsmith/iperfcheck/pkg/types"
	"golang.org/x/sync/semaphore"
)

// ServerTester tests a single server. Implementations are called from many
// goroutines at once.
type ServerTester interface {
	Test(ctx context.Context, server types.ServerSpec) (types.ServerResult, error)
}

// Scheduler runs one test per server with at most MaxConcurrent in flight.
// A failing or panicking test only affects its own server.
type Scheduler struct {
	Tester        ServerTester
	MaxConcurrent int
	OnEvent       types.EventHandler
}

func NewScheduler(tester ServerTester, maxConcurrent int, onEvent types.EventHandler) *Scheduler {
	if maxConcurrent <= 0 {
		maxConcurrent = types.DefaultMaxConcurrent
	}
	return &Scheduler{
		Tester:        tester,
		MaxConcurrent: maxConcurrent,
		OnEvent:       onEvent,
	}
}

// RunAll tests every server and returns one report per server, in input
// order. It always completes; servers whose test could not finish are
// reported unavailable with the error attached.
func (s *Scheduler) RunAll(ctx context.Context, servers []types.ServerSpec) *types.FleetRun {
	run := &types.FleetRun{
		RunID:     GenerateRunID(),
		StartTime: time.Now(),
		Reports:   make([]types.ServerReport, len(servers)),
	}
	s.emit(types.RunStartEvent(run.RunID, len(servers)))

	limit := s.MaxConcurrent
	if limit <= 0 {
		limit = types.DefaultMaxConcurrent
	}
	sem := semaphore.NewWeighted(int64(limit))

	var wg sync.WaitGroup
	for i, server := range servers {
		wg.Add(1)
		go func(i int, server types.ServerSpec) {
			defer wg.Done()
			// Each goroutine writes only its own slot.
			run.Reports[i] = types.ServerReport{
				Server: server,
				Result: s.runOne(ctx, sem, server),
			}
		}(i, server)
	}
	wg.Wait()

	run.EndTime = time.Now()
	run.Duration = run.EndTime.Sub(run.StartTime)
	s.emit(types.CompleteEvent(run.RunID, run.Summary()))
	return run
}

func (s *Scheduler) runOne(ctx context.Context, sem *semaphore.Weighted, server types.ServerSpec) (result types.ServerResult) {
	start := time.Now()

	if err := sem.Acquire(ctx, 1); err != nil {
		return s.failed(server, start, err)
	}
	defer sem.Release(1)

	defer func() {
		if r := recover(); r != nil {
			log.Printf("[scheduler] panic while testing %s: %v", server.Name, r)
			result = s.failed(server, start, fmt.Errorf("panic: %v", r))
		}
	}()

	result, err := s.Tester.Test(ctx, server)
	if err != nil {
		failed := s.failed(server, start, err)
		failed.Diagnostics = result.Diagnostics
		failed.Ping = result.Ping
		return failed
	}
	return result
}

// failed builds the result of a server whose test did not complete: every
// declared port is reported failed and the error is kept for the report.
func (s *Scheduler) failed(server types.ServerSpec, start time.Time, err error) types.ServerResult {
	declared := types.UniquePorts(server.Ports())
	end := time.Now()
	s.emit(types.ServerErrorEvent(server, err.Error()))
	return types.ServerResult{
		DeclaredPorts: declared,
		PassedPorts:   []int{},
		FailedPorts:   append([]int{}, declared...),
		Status:        false,
		Error:         err.Error(),
		StartTime:     start,
		EndTime:       end,
		Duration:      end.Sub(start),
	}
}

func (s *Scheduler) emit(event *types.Event) {
	if s.OnEvent != nil {
		s.OnEvent(event)
	}
}

func GenerateRunID() string {
	return uuid.New().String()
}
