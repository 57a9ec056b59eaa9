package status

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Agrid-Dev/housesim/internal/simulation"
	"github.com/Agrid-Dev/housesim/internal/weather"
)

func TestMinuteUpdatesSnapshot(t *testing.T) {
	tr := New()
	tr.Begin("ranch", "run-1", 2)
	rec := &simulation.MinuteRecord{House: "ranch", Clock: simulation.Clock{Day: 3, Hour: 4, Total: weather.MinutesPerYear - 1}, TempHouse: 293, Fans: []bool{true}}
	if err := tr.Minute(rec); err != nil {
		t.Fatal(err)
	}
	rec.Fans[0] = false

	s := tr.Get()
	if !s.Running || s.House != "ranch" || s.RunID != "run-1" {
		t.Fatalf("unexpected snapshot %+v", s)
	}
	if s.Clock.Day != 3 || s.Minute.TempHouse != 293 {
		t.Fatalf("minute not recorded: %+v", s.Clock)
	}
	if s.Progress != 0.5 {
		t.Fatalf("progress %v, want 0.5", s.Progress)
	}
	if !s.Minute.Fans[0] {
		t.Fatalf("snapshot must own its fan states")
	}
}

func TestFinishCounts(t *testing.T) {
	tr := New()
	tr.Begin("a", "r", 1)
	tr.Finish(nil)
	tr.Begin("b", "r", 1)
	tr.Finish(errors.New("bad input"))
	s := tr.Get()
	if s.Done != 1 || s.Failed != 1 || s.LastErr != "bad input" || s.Running {
		t.Fatalf("unexpected %+v", s)
	}
}

func TestSummaryStored(t *testing.T) {
	tr := New()
	_ = tr.Summary(simulation.AnnualSummary{House: "a", TotalKWh: 12})
	if s := tr.Get(); s.Summary == nil || s.Summary.TotalKWh != 12 {
		t.Fatalf("summary missing")
	}
}

func TestPauseBlocksUntilResumed(t *testing.T) {
	tr := New()
	tr.SetPaused(true)
	tr.SetPaused(true)

	done := make(chan error, 1)
	go func() { done <- tr.Wait(context.Background()) }()

	select {
	case <-done:
		t.Fatalf("Wait returned while paused")
	case <-time.After(50 * time.Millisecond):
	}

	tr.SetPaused(false)
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Wait: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("Wait did not resume")
	}
}

func TestWaitCancelledWhilePaused(t *testing.T) {
	tr := New()
	tr.SetPaused(true)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := tr.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestSubscribe(t *testing.T) {
	tr := New()
	tr.Begin("a", "r", 1)
	ch, cancel := tr.Subscribe(1)
	_ = tr.Minute(&simulation.MinuteRecord{House: "a", TempOut: 280})
	_ = tr.Minute(&simulation.MinuteRecord{House: "a", TempOut: 281}) // dropped, buffer full

	got := <-ch
	if got.TempOut != 280 {
		t.Fatalf("got %v", got.TempOut)
	}
	cancel()
	cancel()
	if _, ok := <-ch; ok {
		t.Fatalf("channel should be closed after cancel")
	}
	if err := tr.Minute(&simulation.MinuteRecord{}); err != nil {
		t.Fatalf("publish after unsubscribe: %v", err)
	}
}

func TestLastSummaryBeforeYearEnd(t *testing.T) {
	tr := New()
	if _, err := tr.LastSummary(); !errors.Is(err, ErrNoSummary) {
		t.Fatalf("expected ErrNoSummary, got %v", err)
	}
}
