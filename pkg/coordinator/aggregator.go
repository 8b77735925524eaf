package coordinator

import (
	"sync"

	"github.com/ryanelliottsmith/iperfcheck/pkg/types"
)

// Aggregator records progress events from concurrent server tests and
// forwards each one to its sinks. Sinks are called one at a time, so console
// output from parallel tests never interleaves within a line.
type Aggregator struct {
	mu     sync.RWMutex
	events []*types.Event
	sinks  []types.EventHandler
	counts map[types.EventType]int
}

func NewAggregator(sinks ...types.EventHandler) *Aggregator {
	return &Aggregator{
		events: make([]*types.Event, 0),
		sinks:  sinks,
		counts: make(map[types.EventType]int),
	}
}

// Handle satisfies types.EventHandler.
func (a *Aggregator) Handle(event *types.Event) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.events = append(a.events, event)
	a.counts[event.Type]++

	for _, sink := range a.sinks {
		if sink != nil {
			sink(event)
		}
	}
}

func (a *Aggregator) GetEvents() []*types.Event {
	a.mu.RLock()
	defer a.mu.RUnlock()

	result := make([]*types.Event, len(a.events))
	copy(result, a.events)
	return result
}

func (a *Aggregator) GetEventsOfType(typ types.EventType) []*types.Event {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var results []*types.Event
	for _, event := range a.events {
		if event.Type == typ {
			results = append(results, event)
		}
	}
	return results
}

func (a *Aggregator) Count(typ types.EventType) int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.counts[typ]
}
