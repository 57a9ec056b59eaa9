// Package ventilation decides each minute which house fans run, what they
// move and what they draw, and tracks the relative exposure and dose that
// drive exposure-controlled fans.
package ventilation

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/Agrid-Dev/housesim/internal/building"
	"github.com/Agrid-Dev/housesim/internal/equipment"
	"github.com/Agrid-Dev/housesim/internal/schedule"
)

const (
	supplyFanHeat = 0.84
	cyclerMinutes = 20
)

// Fan is a configured ventilation fan and its state for the current minute.
type Fan struct {
	Role  Role
	Power float64 // W
	Flow  float64 // m3/s, positive supply
	On    bool
}

// Conditions are the inputs to one minute of fan dispatch.
type Conditions struct {
	Hour, Minute int
	Weekend      bool
	Season       equipment.Season
	// Mode is the thermostat-driven air handler mode before ventilation.
	Mode equipment.Mode
	// AHMinutes counts air handler minutes so far this hour.
	AHMinutes  int
	RivecOn    bool
	Economizer bool
	Scheduled  schedule.FanFlags

	OutdoorDensity float64
	HouseDensity   float64

	// Filter-adjusted air handler flows, m3/s.
	CoolingFlow float64
	HeatingFlow float64

	control         Control
	volume          float64
	fanPowerCooling float64
	hrvSensible     float64
	ervSensible     float64
	ervTotal        float64
}

func (c *Conditions) ach(q float64) float64 { return math.Abs(q) * 3600 / c.volume }

// managedOrHalfHour runs recovery ventilators either under exposure control
// or from the given minute to the end of every hour.
func (c *Conditions) managedOrHalfHour(from int) bool {
	if c.control.ManagedRecovery() {
		return c.RivecOn
	}
	return c.Minute >= from
}

// cyclerTarget is how many air handler minutes a cycler needs by now to
// reach its 20 minutes in the last third of the hour.
func (c *Conditions) cyclerTarget() int { return max(c.Minute-39, 0) }

// Dispatch is the outcome of one minute of fan dispatch. Mass flows are
// kg/s, powers W, ventilation sums are air changes per hour.
type Dispatch struct {
	// Mode is the air handler mode after ventilation; ModeVenting when a
	// ventilation role turned the blower on.
	Mode equipment.Mode

	FanSupply  float64
	FanExhaust float64

	// ReturnOutdoor is outdoor air drawn into the return duct, tempered
	// against house air by ReturnSensible and ReturnLatent.
	ReturnOutdoor  float64
	ReturnSensible float64
	ReturnLatent   float64

	// Recovered is supply air of a stand-alone recovery ventilator.
	Recovered     float64
	RecoveryRatio float64

	MechVentPower   float64
	EconomizerPower float64
	FanHeat         float64 // supply fan heat into house air

	VentIn, VentOut float64 // whole-house ventilation
	AuxIn, AuxOut   float64 // auxiliary and economizer fans

	RivecRunning bool
	Venting      bool
}

// VentSum is the whole-house mechanical ventilation rate counted toward
// exposure, larger of inflow and outflow.
func (d *Dispatch) VentSum(withAux bool) float64 {
	in, out := d.VentIn, d.VentOut
	if withAux {
		in += d.AuxIn
		out += d.AuxOut
	}
	return math.Max(in, out)
}

// NonRivecVentSum is the auxiliary fan rate, larger of inflow and outflow.
func (d *Dispatch) NonRivecVentSum() float64 { return math.Max(d.AuxIn, d.AuxOut) }

func (d *Dispatch) throughEnvelope(c *Conditions, q float64) {
	if q > 0 {
		d.FanSupply += q * c.OutdoorDensity
	} else {
		d.FanExhaust -= q * c.HouseDensity
	}
}

func (d *Dispatch) auxiliary(c *Conditions, f *Fan) {
	f.On = true
	d.MechVentPower += f.Power
	d.throughEnvelope(c, f.Flow)
	if f.Flow > 0 {
		d.AuxIn += c.ach(f.Flow)
	} else {
		d.AuxOut += c.ach(f.Flow)
	}
}

// vent turns the blower on at cooling speed for ventilation.
func (d *Dispatch) vent(c *Conditions) {
	if d.Mode == equipment.ModeVenting {
		return
	}
	d.Mode = equipment.ModeVenting
	d.Venting = true
	d.MechVentPower += c.fanPowerCooling
}

func (d *Dispatch) openIntake(c *Conditions, f *Fan) {
	f.On = true
	d.ReturnOutdoor += math.Abs(f.Flow) * c.HouseDensity
	d.VentIn += c.ach(f.Flow)
	if c.control.ManagedRecovery() && c.RivecOn {
		d.RivecRunning = true
	}
}

// balancedThroughReturn is a recovery ventilator ducted to the return: it
// brings outdoor air into the return and exhausts the same flow from the
// house, running the blower if the thermostat does not.
func (d *Dispatch) balancedThroughReturn(c *Conditions, f *Fan, sensible, latent float64) {
	f.On = true
	q := math.Abs(f.Flow)
	d.VentIn += c.ach(q)
	d.VentOut += c.ach(q)
	d.MechVentPower += f.Power
	if !c.Mode.Thermal() {
		d.vent(c)
	}
	m := q * c.HouseDensity
	d.ReturnOutdoor += m
	d.FanExhaust += m
	d.ReturnSensible = sensible
	d.ReturnLatent = latent
	if c.control.ManagedRecovery() {
		d.RivecRunning = true
	}
}

// Fans is the ventilation fan set of one house.
type Fans struct {
	fans            []Fan
	control         Control
	volume          float64
	fanPowerCooling float64
	hrvSensible     float64
	ervSensible     float64
	ervTotal        float64
}

// NewFans resolves the configured fans of b into roles.
func NewFans(b *building.Building) (*Fans, error) {
	v := b.Ventilation
	control, err := NewControl(v.ControlType, v.RivecManaged)
	if err != nil {
		return nil, err
	}
	if b.Geometry.HouseVolume <= 0 {
		return nil, fmt.Errorf("%w: house volume %v", ErrInvalidParams, b.Geometry.HouseVolume)
	}
	fs := &Fans{
		control:         control,
		volume:          b.Geometry.HouseVolume,
		fanPowerCooling: b.Equipment.FanPowerCooling,
		hrvSensible:     v.HRVSensible,
		ervSensible:     v.ERVSensible,
		ervTotal:        v.ERVTotal,
	}
	for i, cfg := range v.Fans {
		var role Role
		if cfg.Role != "" {
			role, err = ParseRole(cfg.Role)
		} else {
			role, err = RoleForCode(cfg.Oper)
		}
		if err != nil {
			return nil, fmt.Errorf("fan %d: %w", i+1, err)
		}
		if Inactive(role) {
			slog.Warn("fan uses a historical controller and will not run", "fan", i+1, "role", role.Name())
		}
		fs.fans = append(fs.fans, Fan{Role: role, Power: cfg.Power, Flow: cfg.Flow})
	}
	return fs, nil
}

func (fs *Fans) Control() Control { return fs.control }

// Fans returns the fans with their state from the last dispatch.
func (fs *Fans) Fans() []Fan { return fs.fans }

// HasEconomizer reports whether any fan is an economizer.
func (fs *Fans) HasEconomizer() bool {
	for _, f := range fs.fans {
		switch f.Role.(type) {
		case economizerRole, economizerCFIS:
			return true
		}
	}
	return false
}

// Dispatch decides every fan for one minute.
func (fs *Fans) Dispatch(c Conditions) Dispatch {
	c.control = fs.control
	c.volume = fs.volume
	c.fanPowerCooling = fs.fanPowerCooling
	c.hrvSensible = fs.hrvSensible
	c.ervSensible = fs.ervSensible
	c.ervTotal = fs.ervTotal

	d := Dispatch{Mode: c.Mode}
	for i := range fs.fans {
		f := &fs.fans[i]
		f.On = false
		f.Role.apply(&c, f, &d)
	}
	if d.Recovered > 0 {
		d.RecoveryRatio = fs.hrvSensible
	}
	return d
}
