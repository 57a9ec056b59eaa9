package ports

import (
	"github.com/Agrid-Dev/housesim/internal/simulation"
	"github.com/Agrid-Dev/housesim/internal/status"
)

// SimulationService is the control-plane port used by controllers (HTTP/MQTT/etc).
type SimulationService interface {
	Get() status.Snapshot
	LastSummary() (simulation.AnnualSummary, error)
	SetPaused(bool)
	Subscribe(buffer int) (<-chan simulation.MinuteRecord, func())
}
