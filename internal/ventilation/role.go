package ventilation

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Agrid-Dev/housesim/internal/equipment"
)

// Role decides, for one minute, whether a fan runs and what it contributes
// to house flows, power and the ventilation sums. The set of roles is
// closed; every implementation lives in this file.
type Role interface {
	Name() string
	apply(c *Conditions, f *Fan, d *Dispatch)
}

type (
	// continuousRole runs all the time, or under exposure control when
	// the control type asks for it.
	continuousRole struct{}
	// fixedRole runs on a fixed daily timetable and counts as an
	// auxiliary fan.
	fixedRole struct {
		name string
		on   func(c *Conditions) bool
	}
	// scheduledRole follows the minute fan schedule.
	scheduledRole struct {
		name string
		on   func(c *Conditions) bool
	}
	hrvRole        struct{}
	hrvAirHandler  struct{}
	ervAirHandler  struct{}
	cyclerRole     struct{ scaled bool }
	passiveRole    struct{}
	cfisRole       struct{}
	economizerRole struct{}
	economizerCFIS struct{}
	historicalRole struct{ code int }
)

var (
	bathFixed    = fixedRole{"bath", func(c *Conditions) bool { return c.Hour == 7 && c.Minute >= 30 }}
	kitchenFixed = fixedRole{"kitchen", func(c *Conditions) bool { return c.Hour == 18 }}
	exhaustFixed = fixedRole{"fixed_exhaust", func(c *Conditions) bool {
		if c.Season == equipment.SeasonHeating {
			return c.Hour < 2 || c.Hour > 5
		}
		return c.Hour < 16 || c.Hour > 19
	}}
	dryerFixed = fixedRole{"dryer", func(c *Conditions) bool { return c.Weekend && c.Hour > 12 && c.Hour <= 15 }}

	dryerScheduled   = scheduledRole{"scheduled_dryer", func(c *Conditions) bool { return c.Scheduled.Dryer }}
	kitchenScheduled = scheduledRole{"scheduled_kitchen", func(c *Conditions) bool { return c.Scheduled.Kitchen }}
	bath1Scheduled   = scheduledRole{"scheduled_bath1", func(c *Conditions) bool { return c.Scheduled.Bath1 }}
	bath2Scheduled   = scheduledRole{"scheduled_bath2", func(c *Conditions) bool { return c.Scheduled.Bath2 }}
	bath3Scheduled   = scheduledRole{"scheduled_bath3", func(c *Conditions) bool { return c.Scheduled.Bath3 }}
)

var roles = []Role{
	continuousRole{},
	bathFixed, kitchenFixed, exhaustFixed, dryerFixed,
	dryerScheduled, kitchenScheduled, bath1Scheduled, bath2Scheduled, bath3Scheduled,
	hrvRole{}, hrvAirHandler{}, ervAirHandler{},
	cyclerRole{scaled: true}, cyclerRole{}, passiveRole{},
	cfisRole{}, economizerRole{}, economizerCFIS{},
}

const historicalPrefix = "historical_"

// ParseRole looks a role up by name.
func ParseRole(name string) (Role, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for _, r := range roles {
		if r.Name() == n {
			return r, nil
		}
	}
	if rest, ok := strings.CutPrefix(n, historicalPrefix); ok {
		if code, err := strconv.Atoi(rest); err == nil {
			if r, err := RoleForCode(code); err == nil && Inactive(r) {
				return r, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownRole, name)
}

// Inactive reports whether r is a historical controller that never runs.
func Inactive(r Role) bool {
	_, ok := r.(historicalRole)
	return ok
}

// RoleForCode maps a legacy numeric operation code onto a role.
func RoleForCode(code int) (Role, error) {
	switch code {
	case 1:
		return continuousRole{}, nil
	case 2:
		return bathFixed, nil
	case 3:
		return kitchenFixed, nil
	case 4:
		return exhaustFixed, nil
	case 5:
		return hrvRole{}, nil
	case 6:
		return cyclerRole{scaled: true}, nil
	case 15:
		return cyclerRole{}, nil
	case 10, 14, 18:
		return passiveRole{}, nil
	case 13:
		return cfisRole{}, nil
	case 16:
		return hrvAirHandler{}, nil
	case 17:
		return ervAirHandler{}, nil
	case 19:
		return dryerFixed, nil
	case 21:
		return economizerRole{}, nil
	case 22:
		return economizerCFIS{}, nil
	case 23:
		return dryerScheduled, nil
	case 24:
		return kitchenScheduled, nil
	case 25:
		return bath1Scheduled, nil
	case 26:
		return bath2Scheduled, nil
	case 27:
		return bath3Scheduled, nil
	case 30, 31, 50, 51:
		return historicalRole{code: code}, nil
	default:
		return nil, fmt.Errorf("%w: operation code %d", ErrUnknownRole, code)
	}
}

func (continuousRole) Name() string  { return "continuous_exhaust" }
func (r fixedRole) Name() string     { return r.name }
func (r scheduledRole) Name() string { return r.name }
func (hrvRole) Name() string         { return "hrv" }
func (hrvAirHandler) Name() string   { return "hrv_air_handler" }
func (ervAirHandler) Name() string   { return "erv_air_handler" }
func (r cyclerRole) Name() string {
	if r.scaled {
		return "fan_cycler"
	}
	return "fan_cycler_fixed"
}
func (passiveRole) Name() string      { return "passive_intake" }
func (cfisRole) Name() string         { return "cfis" }
func (economizerRole) Name() string   { return "economizer" }
func (economizerCFIS) Name() string   { return "economizer_cfis" }
func (r historicalRole) Name() string { return historicalPrefix + strconv.Itoa(r.code) }

func (continuousRole) apply(c *Conditions, f *Fan, d *Dispatch) {
	controlled := c.control.Controlled()
	if controlled && !c.RivecOn {
		return
	}
	f.On = true
	d.MechVentPower += f.Power
	d.throughEnvelope(c, f.Flow)
	if f.Flow > 0 {
		d.FanHeat += supplyFanHeat * f.Power
		d.VentIn += c.ach(f.Flow)
	} else {
		d.VentOut += c.ach(f.Flow)
	}
	if controlled {
		d.RivecRunning = true
	}
}

func (r fixedRole) apply(c *Conditions, f *Fan, d *Dispatch) {
	if r.on(c) {
		d.auxiliary(c, f)
	}
}

func (r scheduledRole) apply(c *Conditions, f *Fan, d *Dispatch) {
	if r.on(c) {
		d.auxiliary(c, f)
	}
}

// hrvRole is a stand-alone recovery ventilator entered as a supply and an
// exhaust fan, each with half the power.
func (hrvRole) apply(c *Conditions, f *Fan, d *Dispatch) {
	if !c.managedOrHalfHour(30) {
		return
	}
	f.On = true
	d.MechVentPower += f.Power
	if f.Flow > 0 {
		m := f.Flow * c.OutdoorDensity
		d.FanSupply += m
		d.Recovered += m
		d.VentIn += c.ach(f.Flow)
	} else {
		d.FanExhaust -= f.Flow * c.HouseDensity
		d.VentOut += c.ach(f.Flow)
	}
	if c.control.ManagedRecovery() {
		d.RivecRunning = true
	}
}

func (hrvAirHandler) apply(c *Conditions, f *Fan, d *Dispatch) {
	if !c.managedOrHalfHour(30) {
		return
	}
	d.balancedThroughReturn(c, f, c.hrvSensible, 0)
}

func (ervAirHandler) apply(c *Conditions, f *Fan, d *Dispatch) {
	if !c.managedOrHalfHour(40) {
		return
	}
	d.balancedThroughReturn(c, f, c.ervSensible, c.ervTotal)
}

func (r cyclerRole) apply(c *Conditions, f *Fan, d *Dispatch) {
	if !c.Mode.Thermal() || c.AHMinutes > cyclerMinutes {
		return
	}
	q := math.Abs(f.Flow)
	if r.scaled && c.Mode == equipment.ModeCooling && c.HeatingFlow > 0 {
		q *= c.CoolingFlow / c.HeatingFlow
	}
	f.On = true
	d.ReturnOutdoor += q * c.HouseDensity
}

func (passiveRole) apply(c *Conditions, f *Fan, d *Dispatch) {
	if !c.Mode.Thermal() {
		return
	}
	f.On = true
	d.ReturnOutdoor += math.Abs(f.Flow) * c.HouseDensity
}

func (cfisRole) apply(c *Conditions, f *Fan, d *Dispatch) {
	managed := c.control.ManagedRecovery()
	if c.Mode.Thermal() {
		if (managed && c.RivecOn) || (!managed && c.AHMinutes <= cyclerMinutes) {
			d.openIntake(c, f)
		}
		return
	}
	if (managed && c.RivecOn) || (!managed && c.AHMinutes < c.cyclerTarget()) {
		d.vent(c)
		d.openIntake(c, f)
	}
}

func (economizerRole) apply(c *Conditions, f *Fan, d *Dispatch) {
	if !c.Economizer {
		return
	}
	f.On = true
	d.EconomizerPower += f.Power
	d.throughEnvelope(c, f.Flow)
	d.AuxIn += c.ach(f.Flow)
}

func (economizerCFIS) apply(c *Conditions, f *Fan, d *Dispatch) {
	if c.Economizer {
		return
	}
	if c.Mode.Thermal() {
		if c.AHMinutes <= cyclerMinutes {
			d.openIntake(c, f)
		}
		return
	}
	if c.AHMinutes < c.cyclerTarget() {
		d.vent(c)
		d.openIntake(c, f)
	}
}

// historicalRole never runs; it stands for controller variants kept only in
// old input files.
func (historicalRole) apply(*Conditions, *Fan, *Dispatch) {}
