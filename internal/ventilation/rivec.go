package ventilation

import (
	"fmt"
	"math"
)

// ControlType selects how the whole-house fan is controlled.
type ControlType int

const (
	ControlContinuous ControlType = iota + 1
	// ControlAuxFans runs the fan whenever exposure or dose exceed one.
	ControlAuxFans
	// ControlOccupancy relaxes the exposure threshold while the house is
	// empty.
	ControlOccupancy
	// ControlOccupancyAux is ControlOccupancy with auxiliary fans counted
	// toward exposure.
	ControlOccupancyAux
)

func (t ControlType) Valid() bool { return t >= ControlContinuous && t <= ControlOccupancyAux }

func (t ControlType) String() string {
	switch t {
	case ControlContinuous:
		return "continuous"
	case ControlAuxFans:
		return "aux_fans"
	case ControlOccupancy:
		return "occupancy"
	case ControlOccupancyAux:
		return "occupancy_aux"
	default:
		return "unknown"
	}
}

// Control is the ventilation control configuration of a house.
type Control struct {
	Type ControlType
	// Managed puts CFIS and recovery ventilators under exposure control
	// instead of their fixed hourly timetable.
	Managed bool
}

// NewControl builds a control from the configured type code. Zero means
// continuous.
func NewControl(code int, managed bool) (Control, error) {
	if code == 0 {
		code = int(ControlContinuous)
	}
	t := ControlType(code)
	if !t.Valid() {
		return Control{}, fmt.Errorf("%w: control type %d", ErrInvalidControl, code)
	}
	return Control{Type: t, Managed: managed}, nil
}

// Controlled reports whether the whole-house fan follows the exposure
// decision.
func (c Control) Controlled() bool { return c.Type > ControlContinuous }

func (c Control) ManagedRecovery() bool { return c.Managed }

func (c Control) occupancyAware() bool {
	return c.Type == ControlOccupancy || c.Type == ControlOccupancyAux
}

const doseTimeConstant = 24.0 // h

type ExposureParams struct {
	Aeq           float64 // target equivalent ventilation, 1/h
	ExposureLimit float64 // unoccupied exposure threshold
	Interval      int     // minutes between decisions
	Timestep      float64 // h
}

func (p *ExposureParams) Validate() error {
	if p.Aeq <= 0 {
		return fmt.Errorf("%w: aeq %v", ErrInvalidParams, p.Aeq)
	}
	if p.ExposureLimit < 1 {
		return fmt.Errorf("%w: exposure limit %v", ErrInvalidParams, p.ExposureLimit)
	}
	if p.Interval < 1 || p.Interval > 60 {
		return fmt.Errorf("%w: control interval %d", ErrInvalidParams, p.Interval)
	}
	if p.Timestep <= 0 {
		return fmt.Errorf("%w: timestep %v", ErrInvalidParams, p.Timestep)
	}
	return nil
}

// Exposure tracks relative exposure and dose against a target ventilation
// rate and turns the controlled fan on or off.
type Exposure struct {
	params  ExposureParams
	control Control

	relExp  float64
	relDose float64
	on      bool
}

func NewExposure(params ExposureParams, control Control) (*Exposure, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Exposure{params: params, control: control, relExp: 1, relDose: 1}, nil
}

func (e *Exposure) RelExp() float64  { return e.relExp }
func (e *Exposure) RelDose() float64 { return e.relDose }
func (e *Exposure) On() bool         { return e.on }
func (e *Exposure) Aeq() float64     { return e.params.Aeq }

// Update advances exposure and dose by one timestep at total ventilation
// rate ach (1/h). Exposure relaxes toward Aeq/ach at rate ach; dose
// follows exposure with a 24 h time constant and is held while an
// occupancy-aware house is empty.
func (e *Exposure) Update(ach float64, occupied bool) {
	ach = math.Max(ach, 1e-6)
	dt := e.params.Timestep
	target := e.params.Aeq / ach
	decay := math.Exp(-ach * dt)
	e.relExp = target + (e.relExp-target)*decay

	if !e.control.occupancyAware() || occupied {
		k := math.Exp(-dt / doseTimeConstant)
		e.relDose = e.relExp*(1-k) + e.relDose*k
	}
}

// Decide re-evaluates the controlled fan on decision ticks and returns the
// current state.
func (e *Exposure) Decide(minute int, occupied bool) bool {
	if minute%e.params.Interval != 0 {
		return e.on
	}
	switch {
	case e.control.Type == ControlAuxFans:
		e.on = e.relExp >= 1 || e.relDose > 1
	case e.control.occupancyAware() && occupied:
		e.on = e.relExp >= 1 || e.relDose > 1
	case e.control.occupancyAware():
		e.on = e.relExp > e.params.ExposureLimit
	}
	return e.on
}
