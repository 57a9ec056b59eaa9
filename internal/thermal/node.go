// Package thermal solves the heat balance of the attic, ducts and house as
// an 18-node network. Each minute is one backward Euler step, so the node
// temperatures come from a single linear solve.
package thermal

import "github.com/Agrid-Dev/housesim/internal/psychro"

// Node indexes the thermal network.
type Node int

const (
	AtticAir Node = iota
	InnerNorthSheathing
	OuterNorthSheathing
	InnerSouthSheathing
	OuterSouthSheathing
	BulkWood
	Ceiling
	AtticFloor
	InnerGable
	OuterGable
	ReturnDuctSurface
	ReturnDuctAir
	HouseMass
	SupplyDuctSurface
	SupplyDuctAir
	HouseAir
	NorthRoofInsulation
	SouthRoofInsulation

	NodeCount = int(SouthRoofInsulation) + 1
)

var nodeNames = [NodeCount]string{
	"attic_air",
	"inner_north_sheathing",
	"outer_north_sheathing",
	"inner_south_sheathing",
	"outer_south_sheathing",
	"bulk_wood",
	"ceiling",
	"attic_floor",
	"inner_gable",
	"outer_gable",
	"return_duct_surface",
	"return_duct_air",
	"house_mass",
	"supply_duct_surface",
	"supply_duct_air",
	"house_air",
	"north_roof_insulation",
	"south_roof_insulation",
}

func (n Node) Valid() bool { return n >= 0 && int(n) < NodeCount }

func (n Node) String() string {
	if !n.Valid() {
		return "unknown"
	}
	return nodeNames[n]
}

// Temperatures holds one temperature per node, K.
type Temperatures [NodeCount]float64

// InitialTemperatures starts every node at 20 C except the outer roof
// sheathing, which starts cold.
func InitialTemperatures() Temperatures {
	var t Temperatures
	for i := range t {
		t[i] = psychro.AirTempRef
	}
	t[OuterNorthSheathing] = 278
	t[OuterSouthSheathing] = 278
	return t
}
