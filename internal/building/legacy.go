package building

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
)

const endOfFileMarker = "E_O_F"

// tokens reads whitespace separated values and keeps the first error.
type tokens struct {
	sc  *bufio.Scanner
	n   int
	err error
}

func newTokens(r io.Reader) *tokens {
	sc := bufio.NewScanner(r)
	sc.Split(bufio.ScanWords)
	return &tokens{sc: sc}
}

func (t *tokens) next() string {
	if t.err != nil {
		return ""
	}
	if !t.sc.Scan() {
		t.err = t.sc.Err()
		if t.err == nil {
			t.err = fmt.Errorf("unexpected end of input after %d values", t.n)
		}
		return ""
	}
	t.n++
	return t.sc.Text()
}

func (t *tokens) float(dst *float64) {
	s := t.next()
	if t.err != nil {
		return
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		t.err = fmt.Errorf("value %d: %w", t.n, err)
		return
	}
	*dst = v
}

func (t *tokens) int(dst *int) {
	var f float64
	t.float(&f)
	*dst = int(f)
}

func (t *tokens) bool(dst *bool) {
	var i int
	t.int(&i)
	*dst = i != 0
}

func (t *tokens) str(dst *string) {
	if s := t.next(); t.err == nil {
		*dst = s
	}
}

func (t *tokens) count(max int) int {
	var n int
	t.int(&n)
	if t.err == nil && (n < 0 || n > max) {
		t.err = fmt.Errorf("value %d: count %d out of range", t.n, n)
		return 0
	}
	return n
}

// decodeLegacy reads the positional .in layout terminated by E_O_F.
func decodeLegacy(r io.Reader) (*Building, error) {
	var b Building
	t := newTokens(r)

	f := &b.Files
	t.str(&f.Weather)
	t.str(&f.FanSchedule)
	t.str(&f.Thermostat)
	t.str(&f.Occupancy)
	t.str(&f.Shelter)

	env := &b.Envelope
	inf := &b.Infiltration
	g := &b.Geometry
	t.float(&env.C)
	t.float(&env.Exp)
	t.float(&inf.WindSpeedMultiplier)
	t.float(&inf.ShelterFactor)
	t.float(&inf.StackCoef)
	t.float(&inf.WindCoef)
	t.float(&g.EaveHeight)
	t.float(&env.R)
	t.float(&env.X)
	env.Flues = make([]Flue, t.count(64))
	for i := range env.Flues {
		t.float(&env.Flues[i].C)
		t.float(&env.Flues[i].Height)
		t.float(&env.Flues[i].Temp)
	}
	for i := range env.WallFraction {
		t.float(&env.WallFraction[i])
	}
	for i := range env.FloorFraction {
		t.float(&env.FloorFraction[i])
	}
	t.float(&env.FlueShelter)
	env.Pipes = make([]Pipe, t.count(64))
	for i := range env.Pipes {
		p := &env.Pipes[i]
		t.int(&p.Wall)
		t.float(&p.Height)
		t.float(&p.Area)
		t.float(&p.Exp)
		t.float(&p.Shelter)
		t.float(&p.ShelterOff)
	}

	t.float(&g.FloorHeight)
	var rowOrIsolated string
	t.str(&rowOrIsolated)
	g.RowHouse = rowOrIsolated == "R"
	t.float(&g.HouseVolume)
	t.float(&g.FloorArea)
	t.float(&g.PlanArea)
	t.float(&g.StoryHeight)
	t.float(&env.UAWall)
	t.float(&env.UAFloor)
	t.float(&env.UAWindow)
	env.Openings = make([]Opening, t.count(64))
	for i := range env.Openings {
		o := &env.Openings[i]
		t.int(&o.Wall)
		t.float(&o.High)
		t.float(&o.Wide)
		t.float(&o.Top)
		t.float(&o.Bottom)
	}
	b.Ventilation.Fans = make([]Fan, t.count(64))
	for i := range b.Ventilation.Fans {
		fan := &b.Ventilation.Fans[i]
		t.float(&fan.Power)
		t.float(&fan.Flow)
		t.int(&fan.Oper)
	}
	t.float(&env.WindowEastWest)
	t.float(&env.WindowNorth)
	t.float(&env.WindowSouth)
	t.float(&env.ShadingCoef)
	t.float(&env.CeilingRSI)
	t.float(&env.LatentLoad)
	t.float(&env.InternalGains)

	a := &b.Attic
	t.float(&a.Volume)
	t.float(&a.C)
	t.float(&a.Exp)
	for i := range a.SoffitFraction {
		t.float(&a.SoffitFraction[i])
	}
	for i := range a.SoffitHeight {
		t.float(&a.SoffitHeight[i])
	}
	a.Vents = make([]AtticVent, t.count(64))
	for i := range a.Vents {
		v := &a.Vents[i]
		t.int(&v.Wall)
		t.float(&v.Height)
		t.float(&v.Area)
		t.float(&v.Exp)
	}
	t.float(&a.RoofPitch)
	var peakOrient string
	t.str(&peakOrient)
	a.RoofPeakPerpendicular = peakOrient == "D"
	t.float(&a.RoofPeakHeight)
	a.Fans = make([]AtticFan, t.count(64))
	for i := range a.Fans {
		t.float(&a.Fans[i].Power)
		t.float(&a.Fans[i].Flow)
		t.int(&a.Fans[i].Oper)
	}
	t.float(&a.RoofIntRSI)
	t.float(&a.RoofIntThickness)
	t.float(&a.RoofExtRSI)
	t.float(&a.GableEndRSI)
	t.int(&a.RoofType)

	d := &b.Ducts
	var location int
	t.int(&location)
	d.Location = DuctLocation(location)
	t.float(&d.SupplyThickness)
	t.float(&d.ReturnThickness)
	t.float(&d.SupplyRSI)
	t.float(&d.ReturnRSI)
	t.float(&d.SupplyLeakFraction)
	t.float(&d.ReturnLeakFraction)
	t.float(&d.SupplyLength)
	t.float(&d.ReturnLength)
	t.float(&d.SupplyDiameter)
	t.float(&d.ReturnDiameter)

	e := &b.Equipment
	t.float(&e.CoolingFlow)
	t.float(&e.HeatingFlow)
	t.float(&d.SupplyExp)
	t.float(&d.ReturnExp)
	t.float(&d.SupplyC)
	t.float(&d.ReturnC)
	t.float(&e.NominalTons)
	var ratedKBtu float64
	t.float(&ratedKBtu)
	e.RatedTons = ratedKBtu / 12
	t.float(&e.EER)
	t.float(&e.FurnaceCapacity)
	t.float(&e.FanPowerHeating)
	t.float(&e.FanPowerCooling)
	t.float(&e.Charge)
	t.float(&e.AFUE)
	t.int(&g.Bedrooms)
	t.float(&g.Stories)
	t.float(&inf.WeatherFactor)
	t.int(&b.Terrain)

	v := &b.Ventilation
	t.float(&v.Aeq)
	t.bool(&inf.RealTime)
	t.bool(&g.Crawlspace)
	t.float(&v.HRVSensible)
	t.float(&v.ERVSensible)
	t.float(&v.ERVTotal)

	t.bool(&b.Filter.Enabled)
	t.int(&b.Filter.MERV)
	t.int(&b.Filter.LoadingRate)
	t.bool(&b.Filter.BPMMotor)

	t.bool(&v.RivecManaged)
	t.int(&v.ControlType)
	t.bool(&v.AuxFans)

	t.float(&e.DehumCapacity)
	t.float(&e.DehumEnergyFactor)
	t.float(&e.DehumSetpoint)
	t.bool(&a.RadiantBarrier)

	var marker string
	t.str(&marker)
	if t.err != nil {
		return nil, t.err
	}
	if marker != endOfFileMarker {
		return nil, fmt.Errorf("%w: last value %q", ErrEndOfFileMarker, marker)
	}
	return &b, nil
}
