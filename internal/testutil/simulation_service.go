package testutil

import (
	"sync"

	"github.com/Agrid-Dev/housesim/internal/equipment"
	"github.com/Agrid-Dev/housesim/internal/psychro"
	"github.com/Agrid-Dev/housesim/internal/simulation"
	"github.com/Agrid-Dev/housesim/internal/status"
)

// FakeSimulationService is a reusable fake implementing ports.SimulationService.
// Put ONLY what multiple test packages need here.
type FakeSimulationService struct {
	mu sync.Mutex
	S  status.Snapshot

	SetPausedCalled bool
	SetPausedArg    bool

	Records chan simulation.MinuteRecord
}

func NewFakeSimulationService() *FakeSimulationService {
	return &FakeSimulationService{
		S: status.Snapshot{
			House:    "ranch",
			RunID:    "run-1",
			Running:  true,
			Clock:    simulation.Clock{Day: 2, Hour: 13, Minute: 30, Total: 2250},
			Progress: 0.25,
			Minute: simulation.MinuteRecord{
				House:     "ranch",
				TempOut:   psychro.CToK + 5,
				TempHouse: psychro.CToK + 20.5,
				TempAttic: psychro.CToK + 8,
				RHHouse:   45.5,
				RelExp:    0.875,
				RelDose:   1.125,
				RivecOn:   true,
				Mode:      equipment.ModeHeating,
				ModeCode:  equipment.ModeHeating.Code(),
			},
		},
		Records: make(chan simulation.MinuteRecord, 4),
	}
}

func (f *FakeSimulationService) Get() status.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.S
}

func (f *FakeSimulationService) Set(s status.Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.S = s
}

func (f *FakeSimulationService) LastSummary() (simulation.AnnualSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.S.Summary == nil {
		return simulation.AnnualSummary{}, status.ErrNoSummary
	}
	return *f.S.Summary, nil
}

func (f *FakeSimulationService) SetPaused(b bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.SetPausedCalled = true
	f.SetPausedArg = b
	f.S.Paused = b
}

func (f *FakeSimulationService) Paused() (called, arg bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.SetPausedCalled, f.SetPausedArg
}

func (f *FakeSimulationService) Subscribe(int) (<-chan simulation.MinuteRecord, func()) {
	return f.Records, func() {}
}
