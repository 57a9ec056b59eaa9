package equipment

// cooldownFiring is the burner fraction delivered in the cooldown minute.
const cooldownFiring = 0.25

// FanHeatFraction is the share of blower power that ends up in the air.
const FanHeatFraction = 0.85

type FurnaceParams struct {
	Capacity float64 // delivered heat, W
	AFUE     float64
}

func (params *FurnaceParams) Validate() error {
	if params.Capacity <= 0 || params.AFUE <= 0 || params.AFUE > 1 {
		return ErrInvalidFurnace
	}
	return nil
}

type FurnaceOutput struct {
	Heat float64 // W into the supply air, fan heat included
	Gas  float64 // W of fuel burned
}

type Furnace struct {
	params FurnaceParams
}

func NewFurnace(params FurnaceParams) (*Furnace, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Furnace{params: params}, nil
}

// Output returns the heat delivered to the supply air and the fuel burned.
// In cooling mode the fan heat is charged to the compressor instead.
func (f *Furnace) Output(mode Mode, fanHeat float64) FurnaceOutput {
	switch mode {
	case ModeHeating:
		return FurnaceOutput{
			Heat: f.params.Capacity + fanHeat,
			Gas:  f.params.Capacity / f.params.AFUE,
		}
	case ModeHeatingCooldown:
		return FurnaceOutput{
			Heat: cooldownFiring*f.params.Capacity + fanHeat,
			Gas:  cooldownFiring * f.params.Capacity / f.params.AFUE,
		}
	case ModeVenting:
		return FurnaceOutput{Heat: fanHeat}
	default:
		return FurnaceOutput{}
	}
}
