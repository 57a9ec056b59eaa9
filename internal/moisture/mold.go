package moisture

import "math"

// Sensitivity is a mold sensitivity class of a building material.
type Sensitivity int

const (
	VerySensitive Sensitivity = iota
	Sensitive
	MediumResistant
	Resistant
)

func (s Sensitivity) String() string {
	switch s {
	case VerySensitive:
		return "very_sensitive"
	case Sensitive:
		return "sensitive"
	case MediumResistant:
		return "medium_resistant"
	case Resistant:
		return "resistant"
	default:
		return "unknown"
	}
}

type moldClass struct {
	k1Low, k1High float64 // growth multipliers below and above M = 1
	a, b, c       float64 // maximum index curve
	rhMin         float64 // %
}

var moldClasses = [...]moldClass{
	VerySensitive:   {1, 2, 1, 7, 2, 80},
	Sensitive:       {0.578, 0.386, 0.3, 6, 1, 80},
	MediumResistant: {0.072, 0.097, 0, 5, 1.5, 85},
	Resistant:       {0.033, 0.014, 0, 3, 1, 85},
}

// MoldIndex tracks the VTT mold growth index (0..6) of one surface,
// updated once an hour.
type MoldIndex struct {
	Sensitivity Sensitivity
	Index       float64
	dryHours    int
}

// criticalRH is the humidity above which growth is possible, %.
func (m *MoldIndex) criticalRH(tC float64) float64 {
	rhMin := moldClasses[m.Sensitivity].rhMin
	if tC > 20 {
		return rhMin
	}
	return math.Max(rhMin, -0.00267*tC*tC*tC+0.160*tC*tC-3.13*tC+100)
}

// Update advances the index by one hour at surface temperature tC (C) and
// relative humidity rh (%).
func (m *MoldIndex) Update(tC, rh float64) {
	cls := moldClasses[m.Sensitivity]
	rhCrit := m.criticalRH(tC)
	if tC > 0 && tC < 50 && rh >= rhCrit {
		m.dryHours = 0
		x := (rhCrit - rh) / (rhCrit - 100)
		maxIndex := cls.a + cls.b*x - cls.c*x*x
		k1 := cls.k1Low
		if m.Index >= 1 {
			k1 = cls.k1High
		}
		k2 := math.Max(1-math.Exp(2.3*(m.Index-maxIndex)), 0)
		perDay := 1 / (7 * math.Exp(-0.68*math.Log(tC)-13.9*math.Log(rh)+66.02))
		m.Index += perDay / 24 * k1 * k2
	} else {
		m.dryHours++
		switch {
		case m.dryHours <= 6:
			m.Index -= 0.00133
		case m.dryHours > 24:
			m.Index -= 0.000667
		}
	}
	m.Index = math.Max(0, math.Min(6, m.Index))
}
