// Package status tracks the house a batch is simulating right now. The
// tracker is the simulation's sink and gate, so controllers can read the
// latest minute, pause the run and stream records while it goes.
package status

import (
	"context"
	"sync"

	"github.com/Agrid-Dev/housesim/internal/simulation"
	"github.com/Agrid-Dev/housesim/internal/weather"
)

type Snapshot struct {
	House   string
	RunID   string
	Running bool
	Paused  bool
	// Done counts finished houses of the batch, Failed those that aborted.
	Done, Failed int

	Clock    simulation.Clock
	Progress float64 // 0..1 of the current house
	Minute   simulation.MinuteRecord
	Summary  *simulation.AnnualSummary
	LastErr  string
}

type Tracker struct {
	mu     sync.RWMutex
	s      Snapshot
	years  int
	resume chan struct{} // non-nil while paused
	subs   map[int]chan simulation.MinuteRecord
	nextID int
}

func New() *Tracker {
	return &Tracker{subs: make(map[int]chan simulation.MinuteRecord)}
}

func (t *Tracker) Get() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.s
}

// Begin starts tracking a house run of the given number of years.
func (t *Tracker) Begin(house, runID string, years int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.s.House = house
	t.s.RunID = runID
	t.s.Running = true
	t.s.Clock = simulation.Clock{}
	t.s.Progress = 0
	t.s.Minute = simulation.MinuteRecord{}
	t.s.Summary = nil
	t.years = max(years, 1)
}

// Finish records the outcome of the current house.
func (t *Tracker) Finish(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.s.Running = false
	if err != nil {
		t.s.Failed++
		t.s.LastErr = err.Error()
		return
	}
	t.s.Done++
	t.s.Progress = 1
}

func (t *Tracker) SetPaused(paused bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.s.Paused = paused
	switch {
	case paused && t.resume == nil:
		t.resume = make(chan struct{})
	case !paused && t.resume != nil:
		close(t.resume)
		t.resume = nil
	}
}

// Wait blocks while paused.
func (t *Tracker) Wait(ctx context.Context) error {
	for {
		t.mu.RLock()
		ch := t.resume
		t.mu.RUnlock()
		if ch == nil {
			return ctx.Err()
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ch:
		}
	}
}

// Subscribe returns a channel of minute records. Slow subscribers miss
// records rather than stall the run.
func (t *Tracker) Subscribe(buffer int) (<-chan simulation.MinuteRecord, func()) {
	ch := make(chan simulation.MinuteRecord, max(buffer, 1))
	t.mu.Lock()
	id := t.nextID
	t.nextID++
	t.subs[id] = ch
	t.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			t.mu.Lock()
			delete(t.subs, id)
			t.mu.Unlock()
			close(ch)
		})
	}
}

func (t *Tracker) Minute(r *simulation.MinuteRecord) error {
	t.mu.Lock()
	t.s.Clock = r.Clock
	t.s.Minute = *r
	t.s.Minute.Fans = append([]bool(nil), r.Fans...)
	t.s.Progress = float64(r.Total+1) / float64(t.years*weather.MinutesPerYear)
	rec := t.s.Minute
	for _, ch := range t.subs {
		select {
		case ch <- rec:
		default:
		}
	}
	t.mu.Unlock()
	return nil
}

func (t *Tracker) Filter(simulation.FilterRecord) error { return nil }

func (t *Tracker) Summary(s simulation.AnnualSummary) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.s.Summary = &s
	return nil
}

// LastSummary returns the most recent annual summary.
func (t *Tracker) LastSummary() (simulation.AnnualSummary, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.s.Summary == nil {
		return simulation.AnnualSummary{}, ErrNoSummary
	}
	return *t.s.Summary, nil
}
