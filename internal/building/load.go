package building

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads a building description. YAML files (.yaml/.yml) use the field
// names of Building; .in files use the legacy whitespace-separated layout.
func Load(path string) (*Building, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read building %s: %w", path, err)
	}

	var b *Building
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		b, err = decodeYAML(data)
	case ".in":
		b, err = decodeLegacy(bytes.NewReader(data))
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("parse building %s: %w", path, err)
	}

	b.applyDefaults()
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("building %s: %w", path, err)
	}
	return b, nil
}

func decodeYAML(data []byte) (*Building, error) {
	var b Building
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&b); err != nil {
		return nil, err
	}
	return &b, nil
}

// UnmarshalYAML accepts "attic", "house" or the legacy 0/1 codes.
func (l *DuctLocation) UnmarshalYAML(value *yaml.Node) error {
	switch strings.ToLower(value.Value) {
	case "attic", "0":
		*l = DuctsInAttic
	case "house", "conditioned", "1":
		*l = DuctsInHouse
	default:
		return fmt.Errorf("%w: unknown duct location %q", ErrInvalidDucts, value.Value)
	}
	return nil
}

func (b *Building) applyDefaults() {
	if b.Geometry.Stories == 0 {
		b.Geometry.Stories = 1
	}
	if b.Geometry.StoryHeight == 0 {
		b.Geometry.StoryHeight = 2.5
	}
	if b.Equipment.Charge == 0 {
		b.Equipment.Charge = 1
	}
	if b.Equipment.NominalTons == 0 {
		b.Equipment.NominalTons = b.Equipment.RatedTons
	}
	if b.Ventilation.ExposureLimit == 0 {
		b.Ventilation.ExposureLimit = 5
	}
	if b.Terrain == 0 {
		b.Terrain = 2
	}
	if b.Envelope.FlueShelter == 0 {
		b.Envelope.FlueShelter = 1
	}
	for i := range b.Attic.SoffitHeight {
		if b.Attic.SoffitHeight[i] == 0 {
			b.Attic.SoffitHeight[i] = b.Geometry.EaveHeight
		}
	}
	if b.Attic.RoofPeakHeight == 0 && b.Attic.RoofPitch > 0 {
		width := math.Sqrt(b.Geometry.PlanArea)
		b.Attic.RoofPeakHeight = b.Geometry.EaveHeight + width/2*math.Tan(b.Attic.RoofPitch*math.Pi/180)
	}
	if b.Attic.RoofType == 0 {
		b.Attic.RoofType = 1
	}
	if b.Envelope.ShadingCoef == 0 {
		b.Envelope.ShadingCoef = 1
	}
	if b.Infiltration.WindSpeedMultiplier == 0 {
		b.Infiltration.WindSpeedMultiplier = 1
	}
	if b.Infiltration.ShelterFactor == 0 {
		b.Infiltration.ShelterFactor = 1
	}
	if b.Ducts.SupplyExp == 0 {
		b.Ducts.SupplyExp = 0.6
	}
	if b.Ducts.ReturnExp == 0 {
		b.Ducts.ReturnExp = 0.6
	}
	var wall float64
	for _, f := range b.Envelope.WallFraction {
		wall += f
	}
	if wall == 0 {
		b.Envelope.WallFraction = [4]float64{0.25, 0.25, 0.25, 0.25}
	}
	var floor float64
	for _, f := range b.Envelope.FloorFraction {
		floor += f
	}
	if floor == 0 {
		b.Envelope.FloorFraction = [4]float64{0.25, 0.25, 0.25, 0.25}
	}
}
